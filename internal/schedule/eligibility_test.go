package schedule

import (
	"testing"
	"time"

	"github.com/nextlevelbuilder/tinystep/internal/outline"
)

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

const exampleDoc = `# This year
- Write a book
# Daily
- Exercise
`

func paths(nodes []*outline.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path
	}
	return out
}

func containsPath(nodes []*outline.Node, path string) bool {
	for _, n := range nodes {
		if n.Path == path {
			return true
		}
	}
	return false
}

func TestEligible_CategoriesNeverReturned(t *testing.T) {
	idx := outline.Parse(exampleDoc, testNow)
	for _, n := range Eligible(idx, testNow) {
		if !n.IsItem() {
			t.Errorf("category %q returned as eligible", n.Path)
		}
	}
}

func TestEligible_EndToEndOutline(t *testing.T) {
	// "Daily" resolves to a rule with an occurrence today; "This year"
	// stays unresolved. Both items are eligible.
	idx := outline.Parse(exampleDoc, testNow)
	idx["Daily"].RRule = "DTSTART:20240601T000000Z\nRRULE:FREQ=DAILY;COUNT=1"

	got := Eligible(idx, testNow)
	if !containsPath(got, "This year|Write a book") {
		t.Errorf("Write a book missing from eligible set: %v", paths(got))
	}
	if !containsPath(got, "Daily|Exercise") {
		t.Errorf("Exercise missing from eligible set: %v", paths(got))
	}
}

func TestEligible_DoneExcludedRegardlessOfRecurrence(t *testing.T) {
	idx := outline.Parse(exampleDoc, testNow)
	idx["Daily"].RRule = "DTSTART:20240601T000000Z\nRRULE:FREQ=DAILY;COUNT=1"
	done := testNow.Add(-time.Hour)
	idx["Daily|Exercise"].DoneAt = &done

	got := Eligible(idx, testNow)
	if containsPath(got, "Daily|Exercise") {
		t.Errorf("done goal still eligible: %v", paths(got))
	}
	if !containsPath(got, "This year|Write a book") {
		t.Errorf("unrelated goal lost: %v", paths(got))
	}
}

func TestEligible_ElapsedRuleExcludesDescendants(t *testing.T) {
	idx := outline.Parse(exampleDoc, testNow)
	// Window fully in the past: one occurrence before now, none at/after.
	idx["Daily"].RRule = "DTSTART:20240101T000000Z\nRRULE:FREQ=DAILY;COUNT=1"

	got := Eligible(idx, testNow)
	if containsPath(got, "Daily|Exercise") {
		t.Errorf("goal under an elapsed rule still eligible: %v", paths(got))
	}
}

func TestEligible_FutureRuleKeepsDescendants(t *testing.T) {
	idx := outline.Parse(exampleDoc, testNow)
	idx["Daily"].RRule = "DTSTART:20240610T000000Z\nRRULE:FREQ=DAILY;COUNT=3"

	got := Eligible(idx, testNow)
	if !containsPath(got, "Daily|Exercise") {
		t.Errorf("goal under a pending rule should be eligible: %v", paths(got))
	}
}

func TestEligible_RuleInheritedFromGrandparent(t *testing.T) {
	doc := `# Daily
## Morning
- Exercise
`
	idx := outline.Parse(doc, testNow)
	idx["Daily"].RRule = "DTSTART:20240101T000000Z\nRRULE:FREQ=DAILY;COUNT=1"

	got := Eligible(idx, testNow)
	if containsPath(got, "Daily|Morning|Exercise") {
		t.Errorf("elapsed grandparent rule should exclude leaf: %v", paths(got))
	}
}

func TestEligible_UnparseableStoredRuleIgnored(t *testing.T) {
	idx := outline.Parse(exampleDoc, testNow)
	idx["Daily"].RRule = "garbage"

	got := Eligible(idx, testNow)
	if !containsPath(got, "Daily|Exercise") {
		t.Errorf("unparseable stored rule should not hide goals: %v", paths(got))
	}
}

func TestEligible_Deterministic(t *testing.T) {
	idx := outline.Parse(exampleDoc, testNow)
	idx["Daily"].RRule = "DTSTART:20240601T000000Z\nRRULE:FREQ=DAILY;COUNT=1"

	a := paths(Eligible(idx, testNow))
	b := paths(Eligible(idx, testNow))
	if len(a) != len(b) {
		t.Fatalf("sizes differ: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("order differs at %d: %q vs %q", i, a[i], b[i])
		}
	}
}
