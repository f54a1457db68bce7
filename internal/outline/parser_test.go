package outline

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const exampleDoc = `# This year
- Write a book
- Build a rocket ship

# Daily
## Morning
- Meditate 5 minutes
- Exercise
## Evening
- Read a book
`

func TestParse_ExampleDoc(t *testing.T) {
	idx := Parse(exampleDoc, testNow)

	wantPaths := []string{
		"This year",
		"This year|Write a book",
		"This year|Build a rocket ship",
		"Daily",
		"Daily|Morning",
		"Daily|Morning|Meditate 5 minutes",
		"Daily|Morning|Exercise",
		"Daily|Evening",
		"Daily|Evening|Read a book",
	}
	if len(idx) != len(wantPaths) {
		t.Fatalf("index size = %d, want %d (paths: %v)", len(idx), len(wantPaths), idx.Paths())
	}
	for _, p := range wantPaths {
		if _, ok := idx[p]; !ok {
			t.Errorf("missing path %q", p)
		}
	}

	// Categories have no list depth.
	for _, p := range []string{"This year", "Daily", "Daily|Morning", "Daily|Evening"} {
		if idx[p].IsItem() {
			t.Errorf("%q should be a category, got listDepth=%d", p, idx[p].ListDepth)
		}
	}

	// Items carry both depths.
	ex := idx["Daily|Morning|Exercise"]
	if ex.CategoryDepth != 2 {
		t.Errorf("Exercise categoryDepth = %d, want 2", ex.CategoryDepth)
	}
	if ex.ListDepth != 1 {
		t.Errorf("Exercise listDepth = %d, want 1", ex.ListDepth)
	}
	if ex.Text != "Exercise" {
		t.Errorf("Exercise text = %q", ex.Text)
	}
	if !ex.Created.Equal(testNow) {
		t.Errorf("Created = %v, want %v", ex.Created, testNow)
	}
}

func TestParse_NestedLists(t *testing.T) {
	doc := `# Projects
- Garden
  - Plant tomatoes
  - Build trellis
    - Buy lumber
`
	idx := Parse(doc, testNow)

	lumber, ok := idx["Projects|Garden|Build trellis|Buy lumber"]
	if !ok {
		t.Fatalf("missing deeply nested item, got paths: %v", idx.Paths())
	}
	if lumber.ListDepth != 3 {
		t.Errorf("listDepth = %d, want 3", lumber.ListDepth)
	}
	if lumber.CategoryDepth != 1 {
		t.Errorf("categoryDepth = %d, want 1", lumber.CategoryDepth)
	}

	if idx["Projects|Garden"].ListDepth != 1 {
		t.Errorf("Garden listDepth = %d, want 1", idx["Projects|Garden"].ListDepth)
	}
}

func TestParse_HeadingTruncatesStack(t *testing.T) {
	doc := `# A
## B
- under b
# C
- under c
`
	idx := Parse(doc, testNow)

	if _, ok := idx["A|B|under b"]; !ok {
		t.Errorf("missing A|B|under b, paths: %v", idx.Paths())
	}
	// "# C" resets the stack to depth 1.
	if _, ok := idx["C|under c"]; !ok {
		t.Errorf("missing C|under c, paths: %v", idx.Paths())
	}
	if _, ok := idx["A|B|C"]; ok {
		t.Error("heading C should not nest under A|B")
	}
}

func TestParse_ItemsBeforeAnyHeading(t *testing.T) {
	idx := Parse("- loose item\n", testNow)
	n, ok := idx["loose item"]
	if !ok {
		t.Fatalf("missing top-level item, paths: %v", idx.Paths())
	}
	if n.CategoryDepth != 0 || n.ListDepth != 1 {
		t.Errorf("depths = (%d, %d), want (0, 1)", n.CategoryDepth, n.ListDepth)
	}
}

func TestParse_DuplicateLabelsLastWriteWins(t *testing.T) {
	doc := `# Daily
- Exercise
- Exercise
`
	idx := Parse(doc, testNow)
	if len(idx) != 2 {
		t.Errorf("index size = %d, want 2 (category + one item)", len(idx))
	}
	if _, ok := idx["Daily|Exercise"]; !ok {
		t.Error("missing Daily|Exercise")
	}
}

func TestParse_FirstLineOnly(t *testing.T) {
	doc := "# Daily\n- Exercise\n  with a second line\n"
	idx := Parse(doc, testNow)
	if _, ok := idx["Daily|Exercise"]; !ok {
		t.Fatalf("continuation line leaked into label, paths: %v", idx.Paths())
	}
}

func TestParse_PrefixClosure(t *testing.T) {
	idx := Parse(exampleDoc, testNow)
	for path := range idx {
		for p := ParentPath(path); p != ""; p = ParentPath(p) {
			if _, ok := idx[p]; !ok {
				t.Errorf("path %q has missing ancestor %q", path, p)
			}
		}
	}
}

func TestParse_Idempotent(t *testing.T) {
	a := Parse(exampleDoc, testNow)
	b := Parse(exampleDoc, testNow)

	if len(a) != len(b) {
		t.Fatalf("sizes differ: %d vs %d", len(a), len(b))
	}
	for path, na := range a {
		nb, ok := b[path]
		if !ok {
			t.Errorf("second parse missing %q", path)
			continue
		}
		if *na != *nb {
			t.Errorf("node %q differs: %+v vs %+v", path, na, nb)
		}
	}
}

func TestParentPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"a|b|c", "a|b"},
		{"a|b", "a"},
		{"a", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ParentPath(c.in); got != c.want {
			t.Errorf("ParentPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNearestRule(t *testing.T) {
	idx := Parse(exampleDoc, testNow)
	idx["Daily"].RRule = "DTSTART:20240601T000000Z\nRRULE:FREQ=DAILY"

	if got := idx.NearestRule("Daily|Morning|Exercise"); !strings.Contains(got, "FREQ=DAILY") {
		t.Errorf("NearestRule = %q, want inherited daily rule", got)
	}
	if got := idx.NearestRule("This year|Write a book"); got != "" {
		t.Errorf("NearestRule = %q, want empty", got)
	}
}

func TestCarryOver(t *testing.T) {
	prev := Parse(exampleDoc, testNow)
	done := testNow.Add(-time.Hour)
	prev["Daily|Morning|Exercise"].DoneAt = &done
	prev["Daily"].RRule = "DTSTART:20240601T000000Z\nRRULE:FREQ=DAILY"

	next := Parse(exampleDoc+"- New goal\n", testNow.Add(time.Minute))
	next.CarryOver(prev)

	if next["Daily|Morning|Exercise"].DoneAt == nil {
		t.Error("DoneAt not carried over for surviving path")
	}
	if next["Daily"].RRule == "" {
		t.Error("rrule not carried over for surviving path")
	}
	if next["Daily|Evening|Read a book|New goal"] != nil {
		t.Error("unexpected nesting for appended item")
	}
}
