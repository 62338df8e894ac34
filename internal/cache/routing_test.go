package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRoutes_ComputeMemoized(t *testing.T) {
	client := testRedis(t)
	r := NewRoutingCache(client, nil)

	scope := []int64{time.Now().UnixNano(), 2}
	want := RoutingTable{1: {10, 11}, 2: {12}}

	computeCalls := 0
	compute := func(context.Context) (RoutingTable, error) {
		computeCalls++
		return want, nil
	}

	for i := 0; i < 2; i++ {
		table, err := r.Routes(context.Background(), scope, compute)
		if err != nil {
			t.Fatalf("Routes %d failed: %v", i, err)
		}
		if len(table) != 2 || len(table[1]) != 2 || table[2][0] != 12 {
			t.Errorf("Routes %d = %v", i, table)
		}
	}

	if computeCalls != 1 {
		t.Errorf("compute called %d times, want 1", computeCalls)
	}
}

func TestRoutes_ScopeOrderSharesEntry(t *testing.T) {
	client := testRedis(t)
	r := NewRoutingCache(client, nil)

	base := time.Now().UnixNano()
	a := []int64{base, base + 1}
	b := []int64{base + 1, base}

	computeCalls := 0
	compute := func(context.Context) (RoutingTable, error) {
		computeCalls++
		return RoutingTable{1: {base}}, nil
	}

	if _, err := r.Routes(context.Background(), a, compute); err != nil {
		t.Fatalf("Routes failed: %v", err)
	}
	if _, err := r.Routes(context.Background(), b, compute); err != nil {
		t.Fatalf("Routes failed: %v", err)
	}

	if computeCalls != 1 {
		t.Errorf("compute called %d times, want 1", computeCalls)
	}
}

func TestRoutes_ComputeErrorPropagates(t *testing.T) {
	client := testRedis(t)
	r := NewRoutingCache(client, nil)

	scope := []int64{time.Now().UnixNano()}
	wantErr := errors.New("directory unavailable")

	_, err := r.Routes(context.Background(), scope, func(context.Context) (RoutingTable, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestRoutes_DistinctScopesDistinctEntries(t *testing.T) {
	client := testRedis(t)
	r := NewRoutingCache(client, nil)

	base := time.Now().UnixNano()
	computeCalls := 0
	compute := func(context.Context) (RoutingTable, error) {
		computeCalls++
		return RoutingTable{1: {1}}, nil
	}

	for i := int64(0); i < 2; i++ {
		if _, err := r.Routes(context.Background(), []int64{base + i}, compute); err != nil {
			t.Fatalf("Routes failed: %v", err)
		}
	}

	if computeCalls != 2 {
		t.Errorf("compute called %d times, want 2", computeCalls)
	}
}

func TestRoutingKeyStable(t *testing.T) {
	r := &RoutingCache{prefix: "hound:routing:"}

	a := r.key([]int64{5, 1, 3})
	b := r.key([]int64{1, 3, 5})
	if a != b {
		t.Errorf("key order-sensitive: %s vs %s", a, b)
	}

	c := r.key([]int64{1, 3})
	if a == c {
		t.Errorf("distinct scopes share key %s", a)
	}
}
