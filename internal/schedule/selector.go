package schedule

import (
	"sort"
	"sync"

	"github.com/nextlevelbuilder/tinystep/internal/outline"
)

// DefaultExploreProb is the chance of picking uniformly at random
// instead of by recency.
const DefaultExploreProb = 0.3

// Rand is the injected random source, satisfied by *math/rand.Rand.
// Tests substitute a fixed source to force either selection branch.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Selector picks one goal from the eligible set: with the configured
// explore probability a uniformly random one, otherwise the least
// recently used, preferring goals never used at all.
type Selector struct {
	mu          sync.Mutex
	exploreProb float64
	rand        Rand
}

// NewSelector creates a selector with the default explore probability.
func NewSelector(rnd Rand) *Selector {
	return &Selector{exploreProb: DefaultExploreProb, rand: rnd}
}

// SetExploreProb changes the explore probability on a live selector.
// Config hot reload calls this while Pick may be running on the cron
// loop. Values outside (0, 1] are ignored.
func (s *Selector) SetExploreProb(p float64) {
	if p <= 0 || p > 1 {
		return
	}
	s.mu.Lock()
	s.exploreProb = p
	s.mu.Unlock()
}

// Pick returns one node from eligible, or nil when the set is empty —
// an ordinary outcome, not an error. Pick never mutates LastUsedAt; the
// caller stamps it once the chosen goal has actually produced a task, so
// an aborted generation does not consume recency.
func (s *Selector) Pick(eligible []*outline.Node) *outline.Node {
	if len(eligible) == 0 {
		return nil
	}

	s.mu.Lock()
	explore := s.rand.Float64() < s.exploreProb
	var idx int
	if explore {
		idx = s.rand.Intn(len(eligible))
	}
	s.mu.Unlock()

	if explore {
		return eligible[idx]
	}

	// Least recently used. Never-used goals sort before any used one;
	// ties break on path so a mocked random source yields a stable pick.
	sorted := make([]*outline.Node, len(eligible))
	copy(sorted, eligible)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.LastUsedAt == nil && b.LastUsedAt == nil:
			return a.Path < b.Path
		case a.LastUsedAt == nil:
			return true
		case b.LastUsedAt == nil:
			return false
		case a.LastUsedAt.Equal(*b.LastUsedAt):
			return a.Path < b.Path
		default:
			return a.LastUsedAt.Before(*b.LastUsedAt)
		}
	})
	return sorted[0]
}
