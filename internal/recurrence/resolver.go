package recurrence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/tinystep/internal/outline"
)

// Generator is the external text-generation collaborator. Given goal
// texts and a reference now, it returns one Candidate per input text,
// in order.
type Generator interface {
	GenerateRules(ctx context.Context, texts []string, now time.Time) ([]Candidate, error)
}

// Resolver fills missing rules on category nodes. Only categories are
// candidates; leaf items inherit rules from ancestors at evaluation
// time. Cache hits are applied directly; misses are batched into a
// single collaborator call, validated, and written through the cache.
type Resolver struct {
	gen     Generator
	cache   *Cache
	limiter *rate.Limiter
	sf      singleflight.Group
}

// NewResolver creates a resolver. rpm bounds collaborator calls per
// minute; rpm <= 0 disables the limit.
func NewResolver(gen Generator, cache *Cache, rpm int) *Resolver {
	r := &Resolver{gen: gen, cache: cache}
	if rpm > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	}
	return r
}

// Resolve populates missing rules on idx's category nodes. Resolution is
// best-effort per text: an invalid candidate is dropped without blocking
// the rest of the batch. A failed collaborator call fails the whole step
// and leaves every node untouched; callers retry on the next access.
//
// Within one call, all cache reads happen before the collaborator call
// and all cache writes happen after validation. Concurrent Resolve calls
// for the same set of unresolved texts collapse into one collaborator
// request.
func (r *Resolver) Resolve(ctx context.Context, idx outline.Index, now time.Time) error {
	var pending []*outline.Node
	for _, path := range idx.Paths() {
		n := idx[path]
		if !n.IsItem() && n.RRule == "" && strings.TrimSpace(n.Text) != "" {
			pending = append(pending, n)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	resolved := make(map[string]string)
	var missTexts []string
	seen := make(map[string]bool)

	for _, n := range pending {
		norm := Normalize(n.Text)
		if seen[norm] || resolved[norm] != "" {
			continue
		}
		rule, ok, err := r.cache.Get(ctx, n.Text)
		if err != nil {
			// A broken cache degrades to a miss; the collaborator result
			// still gets written back below.
			slog.Warn("recurrence cache read failed", "text", n.Text, "error", err)
		}
		if ok {
			resolved[norm] = rule
			continue
		}
		seen[norm] = true
		missTexts = append(missTexts, n.Text)
	}

	if len(missTexts) > 0 {
		generated, err := r.generate(ctx, missTexts, now)
		if err != nil {
			return err
		}
		for norm, rule := range generated {
			resolved[norm] = rule
		}
	}

	for _, n := range pending {
		if rule, ok := resolved[Normalize(n.Text)]; ok && rule != "" {
			n.RRule = rule
		}
	}
	return nil
}

// generate runs the batched collaborator call for cache misses and
// returns normalized text → validated rule for every text that survived
// repair. Results are written through the cache before returning.
func (r *Resolver) generate(ctx context.Context, texts []string, now time.Time) (map[string]string, error) {
	norms := make([]string, len(texts))
	for i, t := range texts {
		norms[i] = Normalize(t)
	}
	key := strings.Join(norms, "\n")

	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		candidates, err := r.gen.GenerateRules(ctx, texts, now)
		if err != nil {
			return nil, fmt.Errorf("generate rules: %w", err)
		}
		if len(candidates) != len(texts) {
			return nil, fmt.Errorf("rule generation returned %d results for %d texts", len(candidates), len(texts))
		}

		out := make(map[string]string)
		for i, c := range candidates {
			rule, err := Repair(c, now)
			if err != nil {
				slog.Warn("recurrence rule rejected", "text", texts[i], "error", err)
				continue
			}
			if rule == "" {
				continue
			}
			if err := r.cache.Set(ctx, texts[i], rule); err != nil {
				slog.Warn("recurrence cache write failed", "text", texts[i], "error", err)
			}
			out[norms[i]] = rule
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}
