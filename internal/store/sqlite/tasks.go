// Package sqlite provides a single-node task vector store. Embeddings are
// stored as JSON and nearest-neighbor search runs in process, which is
// fine at the per-user scale this system operates at.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/tinystep/internal/store"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(path string) (*TaskStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS user_tasks (
			user_id    TEXT NOT NULL,
			task_uid   TEXT NOT NULL,
			task       TEXT NOT NULL,
			embedding  TEXT NOT NULL,
			PRIMARY KEY (user_id, task_uid)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &TaskStore{db: db}, nil
}

func (s *TaskStore) UpsertTaskVector(ctx context.Context, userID string, task store.Task, embedding []float32) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	vec, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_tasks (user_id, task_uid, task, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, task_uid)
		DO UPDATE SET task = excluded.task, embedding = excluded.embedding
	`, userID, task.UID, string(payload), string(vec))
	if err != nil {
		return fmt.Errorf("upsert task vector: %w", err)
	}
	return nil
}

func (s *TaskStore) NearestTasks(ctx context.Context, embedding []float32, userID string, limit int) ([]store.ScoredTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task, embedding FROM user_tasks
		WHERE (? = '' OR user_id = ?)
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var scored []store.ScoredTask
	for rows.Next() {
		var payload, vec string
		if err := rows.Scan(&payload, &vec); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		var st store.ScoredTask
		if err := json.Unmarshal([]byte(payload), &st.Task); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		var stored []float32
		if err := json.Unmarshal([]byte(vec), &stored); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
		st.Similarity = cosineSimilarity(embedding, stored)
		scored = append(scored, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *TaskStore) Close() error {
	return s.db.Close()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
