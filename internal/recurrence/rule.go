// Package recurrence resolves and evaluates recurrence rules for goal
// categories. Time-frame headings ("Daily", "This year") are mapped to
// iCalendar RRULEs by an external text-generation collaborator; results
// are repaired into well-formed rules, validated, and cached globally
// by normalized text.
package recurrence

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const timeLayout = "20060102T150405Z"

// Candidate is the collaborator's verdict for one goal text.
type Candidate struct {
	IsTimeFrame bool   `json:"isTimeFrame"`
	IsRecurring bool   `json:"isRecurring"`
	DTStart     string `json:"dtstart"`
	Rule        string `json:"rule"`
}

var (
	wsRe       = regexp.MustCompile(`\s+`)
	bareYearRe = regexp.MustCompile(`^\d{4}$`)
)

// Normalize case-folds and whitespace-collapses a goal text so identical
// phrasing shares one cache entry regardless of owner or document.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(wsRe.ReplaceAllString(text, " ")))
}

// Repair turns a raw collaborator candidate into a validated rule string,
// or "" when the text carries no temporal constraint. Generated rules are
// often abbreviated: a missing DTSTART is synthesized from the returned
// anchor date (current day at midnight UTC when absent too), and bare-year
// range bounds expand to explicit start-of-year/end-of-year instants.
// A rule that still fails to parse is an error; callers drop the item
// rather than store it.
func Repair(c Candidate, now time.Time) (string, error) {
	rule := strings.TrimSpace(c.Rule)
	if !c.IsTimeFrame || rule == "" {
		return "", nil
	}

	dtstart, params := splitRule(rule)

	if v, rest, found := extractParam(params, "UNTIL"); found {
		params = rest + ";UNTIL=" + expandBound(v, false)
	}

	if dtstart == "" {
		dtstart = strings.TrimSpace(c.DTStart)
	}
	switch {
	case dtstart == "":
		dtstart = midnightUTC(now).Format(timeLayout)
	case bareYearRe.MatchString(dtstart):
		// Year-only shorthand bounds the whole year.
		if !strings.Contains(strings.ToUpper(params), "UNTIL=") {
			params += ";UNTIL=" + dtstart + "1231T235959Z"
		}
		dtstart = dtstart + "0101T000000Z"
	default:
		dtstart = expandBound(dtstart, true)
	}

	canonical := "DTSTART:" + dtstart + "\nRRULE:" + strings.Trim(params, ";")
	set, err := rrule.StrToRRuleSet(canonical)
	if err != nil {
		return "", fmt.Errorf("parse repaired rule %q: %w", canonical, err)
	}
	return set.String(), nil
}

// Active reports whether a validated rule is in season at now: no
// occurrence strictly before now and at least one occurrence at or after
// now. A rule whose most recent occurrence has already passed therefore
// reads as out of season, even if it recurs again later.
func Active(ruleStr string, now time.Time) (bool, error) {
	set, err := rrule.StrToRRuleSet(ruleStr)
	if err != nil {
		return false, fmt.Errorf("parse rule %q: %w", ruleStr, err)
	}
	before := set.Before(now, false)
	after := set.After(now, true)
	return before.IsZero() && !after.IsZero(), nil
}

// splitRule separates an embedded DTSTART from the RRULE parameter list.
// Accepts multi-line "DTSTART:...\nRRULE:...", the inline "DTSTART=...;"
// parameter some generators emit, and a bare parameter list.
func splitRule(rule string) (dtstart, params string) {
	for _, line := range strings.Split(rule, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "DTSTART"):
			if i := strings.IndexAny(line, ":="); i >= 0 {
				dtstart = strings.TrimSpace(line[i+1:])
			}
		case strings.HasPrefix(upper, "RRULE:"):
			params = strings.TrimSpace(line[len("RRULE:"):])
		case line != "":
			params = line
		}
	}
	if v, rest, found := extractParam(params, "DTSTART"); found {
		dtstart = v
		params = rest
	}
	return dtstart, params
}

// extractParam removes KEY=value from a semicolon-separated parameter
// list, returning the value and the remaining list.
func extractParam(params, key string) (value, rest string, found bool) {
	var kept []string
	for _, p := range strings.Split(params, ";") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if k, v, ok := strings.Cut(p, "="); ok && strings.EqualFold(strings.TrimSpace(k), key) {
			value = strings.TrimSpace(v)
			found = true
			continue
		}
		kept = append(kept, p)
	}
	return value, strings.Join(kept, ";"), found
}

// expandBound normalizes a date bound into the UTC rule time layout.
// Bare years expand to the start or end of that year.
func expandBound(v string, start bool) string {
	if bareYearRe.MatchString(v) {
		if start {
			return v + "0101T000000Z"
		}
		return v + "1231T235959Z"
	}
	for _, layout := range []string{timeLayout, "20060102", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC().Format(timeLayout)
		}
	}
	return v
}

func midnightUTC(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
