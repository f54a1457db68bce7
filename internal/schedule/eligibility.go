// Package schedule decides which goals are actionable at a given instant
// and picks one of them under an explore/least-recently-used policy.
package schedule

import (
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/tinystep/internal/outline"
	"github.com/nextlevelbuilder/tinystep/internal/recurrence"
)

// Eligible returns the actionable goals at now, in lexical path order.
// A node qualifies iff it is a leaf item, not marked done, and its
// nearest enclosing recurrence rule — walking up by path truncation —
// is either absent or in season at now.
//
// The result is exactly reproducible for a fixed index and now.
func Eligible(idx outline.Index, now time.Time) []*outline.Node {
	var out []*outline.Node
	for _, path := range idx.Paths() {
		n := idx[path]
		if !n.IsItem() || n.DoneAt != nil {
			continue
		}

		rule := idx.NearestRule(path)
		if rule != "" {
			active, err := recurrence.Active(rule, now)
			if err != nil {
				// A stored rule that no longer parses is treated as no
				// constraint at all rather than silently hiding the goal.
				slog.Warn("stored recurrence rule unparseable", "path", path, "error", err)
			} else if !active {
				continue
			}
		}
		out = append(out, n)
	}
	return out
}
