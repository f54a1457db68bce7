// Package retrieval ranks past tasks against a query goal by embedding
// similarity and partitions them into exemplars that bias future task
// generation.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/tinystep/internal/store"
)

const (
	// DefaultLimit is the nearest-neighbor fetch size.
	DefaultLimit = 5

	// positiveSimilarity and negativeSimilarity split retrieved tasks
	// into exemplars; an explicit accept/reject reply overrides the
	// similarity band.
	positiveSimilarity = 0.8
	negativeSimilarity = 0.5

	// maxExemplars caps each partition to bound prompt size.
	maxExemplars = 3

	// exemplarSimilarity admits unreplied tasks as document exemplars.
	exemplarSimilarity = 0.7
)

// Retriever fetches nearest-neighbor past tasks for a query text,
// scoped to one user or to all users.
type Retriever struct {
	provider store.EmbeddingProvider
	tasks    store.TaskStore
}

// New creates a retriever over the given embedding provider and task store.
func New(provider store.EmbeddingProvider, tasks store.TaskStore) *Retriever {
	return &Retriever{provider: provider, tasks: tasks}
}

// SimilarTasks embeds the query and returns up to limit past tasks in
// descending similarity. userID "" widens the scope to all users.
// Embedding or store failures propagate; callers may degrade to an
// empty exemplar set instead of failing their overall flow.
func (r *Retriever) SimilarTasks(ctx context.Context, query, userID string, limit int) ([]store.ScoredTask, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	embeddings, err := r.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding provider %s returned no vectors", r.provider.Name())
	}

	results, err := r.tasks.NearestTasks(ctx, embeddings[0], userID, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest tasks: %w", err)
	}

	slog.Debug("similar tasks retrieved", "query_len", len(query), "user", userID, "results", len(results))
	return results, nil
}

// Partition splits retrieved tasks into positive and negative exemplars.
// Positive: similarity at or above the positive band, or an explicit
// accept reply. Negative: similarity at or below the negative band, or
// an explicit reject reply. Each side is capped to keep prompts small.
// Tasks in the middle band with no verdict are dropped.
func Partition(results []store.ScoredTask) (positive, negative []store.ScoredTask) {
	for _, st := range results {
		reply := st.Task.Reply
		switch {
		// An explicit verdict wins over the similarity band.
		case reply != nil && reply.Type == store.ReplyAccept:
			positive = append(positive, st)
		case reply != nil && reply.Type == store.ReplyReject:
			negative = append(negative, st)
		case st.Similarity >= positiveSimilarity:
			positive = append(positive, st)
		case st.Similarity <= negativeSimilarity:
			negative = append(negative, st)
		}
	}
	if len(positive) > maxExemplars {
		positive = positive[:maxExemplars]
	}
	if len(negative) > maxExemplars {
		negative = negative[:maxExemplars]
	}
	return positive, negative
}

// Exemplars keeps tasks the user accepted or that score close to the
// query, capped for prompt budget. Used when generating a starter goals
// document.
func Exemplars(results []store.ScoredTask) []store.ScoredTask {
	var out []store.ScoredTask
	for _, st := range results {
		accepted := st.Task.Reply != nil && st.Task.Reply.Type == store.ReplyAccept
		if accepted || st.Similarity >= exemplarSimilarity {
			out = append(out, st)
		}
		if len(out) == maxExemplars {
			break
		}
	}
	return out
}
