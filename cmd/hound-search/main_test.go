package main

import "testing"

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("1, 2,3,")
	if err != nil {
		t.Fatalf("parseIDList failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("ids = %v", ids)
	}

	if _, err := parseIDList("1,abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}
