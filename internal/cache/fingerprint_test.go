package cache

import (
	"testing"

	"github.com/codehound/hound-search/internal/query"
)

func TestNewFingerprint_Deterministic(t *testing.T) {
	a := NewFingerprint("foo lang:go", []int64{1, 2, 3}, query.ModeExact, 0)
	b := NewFingerprint("foo lang:go", []int64{1, 2, 3}, query.ModeExact, 0)

	if a != b {
		t.Errorf("same inputs produced %s and %s", a, b)
	}
}

func TestNewFingerprint_ProjectOrderIgnored(t *testing.T) {
	a := NewFingerprint("foo", []int64{3, 1, 2}, query.ModeExact, 0)
	b := NewFingerprint("foo", []int64{1, 2, 3}, query.ModeExact, 0)

	if a != b {
		t.Errorf("project order changed the fingerprint: %s vs %s", a, b)
	}
}

func TestNewFingerprint_DistinctInputsDiffer(t *testing.T) {
	base := NewFingerprint("foo", []int64{1}, query.ModeExact, 0)

	variants := []Fingerprint{
		NewFingerprint("bar", []int64{1}, query.ModeExact, 0),
		NewFingerprint("foo", []int64{2}, query.ModeExact, 0),
		NewFingerprint("foo", []int64{1}, query.ModeRegex, 0),
		NewFingerprint("foo", []int64{1}, query.ModeExact, 3),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base fingerprint", i)
		}
	}
}

func TestNewFingerprint_MultiMatchOffSentinel(t *testing.T) {
	a := NewFingerprint("foo", []int64{1}, query.ModeExact, 0)
	b := NewFingerprint("foo", []int64{1}, query.ModeExact, -5)

	if a != b {
		t.Errorf("disabled multi-match values should share a fingerprint")
	}
}
