package schedule

import (
	"testing"
	"time"

	"github.com/nextlevelbuilder/tinystep/internal/outline"
)

// fixedRand forces one selection branch: f >= ExploreProb takes the LRU
// branch, f < ExploreProb explores with index n.
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) Intn(n int) int   { return r.n % n }

func node(path string, lastUsed *time.Time) *outline.Node {
	return &outline.Node{Path: path, Text: path, ListDepth: 1, LastUsedAt: lastUsed}
}

func TestPick_EmptySet(t *testing.T) {
	s := NewSelector(fixedRand{f: 1})
	if got := s.Pick(nil); got != nil {
		t.Errorf("Pick(empty) = %v, want nil", got)
	}
}

func TestPick_LRUPrefersNeverUsed(t *testing.T) {
	used := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eligible := []*outline.Node{
		node("A", nil),
		node("B", &used),
		node("C", nil),
	}

	s := NewSelector(fixedRand{f: 1}) // always LRU branch
	for i := 0; i < 10; i++ {
		got := s.Pick(eligible)
		if got.Path != "A" {
			t.Fatalf("Pick = %q, want never-used A (stable tiebreak)", got.Path)
		}
	}
}

func TestPick_LRUEarliestUse(t *testing.T) {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	eligible := []*outline.Node{
		node("fresh", &recent),
		node("stale", &old),
	}

	s := NewSelector(fixedRand{f: 1})
	if got := s.Pick(eligible); got.Path != "stale" {
		t.Errorf("Pick = %q, want least recently used", got.Path)
	}
}

func TestPick_ExploreBranch(t *testing.T) {
	eligible := []*outline.Node{node("A", nil), node("B", nil), node("C", nil)}

	s := NewSelector(fixedRand{f: 0, n: 2}) // always explore, index 2
	if got := s.Pick(eligible); got.Path != "C" {
		t.Errorf("Pick = %q, want C from forced explore", got.Path)
	}
}

func TestSetExploreProb_AppliesToLiveSelector(t *testing.T) {
	used := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eligible := []*outline.Node{node("used", &used), node("new", nil)}

	// 0.4 is above the default probability, so the selector starts on
	// the LRU branch and prefers the never-used goal.
	s := NewSelector(fixedRand{f: 0.4, n: 0})
	if got := s.Pick(eligible); got.Path != "new" {
		t.Fatalf("Pick = %q, want LRU pick before reconfiguration", got.Path)
	}

	// Raising the probability above 0.4 flips the same selector into
	// the explore branch, which picks index 0.
	s.SetExploreProb(1)
	if got := s.Pick(eligible); got.Path != "used" {
		t.Errorf("Pick = %q, want explore pick after SetExploreProb", got.Path)
	}
}

func TestSetExploreProb_IgnoresOutOfRange(t *testing.T) {
	used := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eligible := []*outline.Node{node("used", &used), node("new", nil)}

	s := NewSelector(fixedRand{f: 0.4, n: 0})
	s.SetExploreProb(0)
	s.SetExploreProb(-1)
	s.SetExploreProb(1.5)
	if got := s.Pick(eligible); got.Path != "new" {
		t.Errorf("Pick = %q, out-of-range values must not change the probability", got.Path)
	}
}

func TestPick_DoesNotMutateInput(t *testing.T) {
	used := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eligible := []*outline.Node{node("B", &used), node("A", nil)}

	s := NewSelector(fixedRand{f: 1})
	s.Pick(eligible)

	if eligible[0].Path != "B" || eligible[1].Path != "A" {
		t.Error("Pick reordered the caller's slice")
	}
	if eligible[1].LastUsedAt != nil {
		t.Error("Pick must not stamp LastUsedAt")
	}
}
