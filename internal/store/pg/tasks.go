package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/tinystep/internal/store"
)

// TaskStore persists task snapshots with their embeddings in Postgres
// and answers nearest-neighbor queries via pgvector.
type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(ctx context.Context, dsn string) (*TaskStore, error) {
	db, err := OpenDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &TaskStore{db: db}, nil
}

func (s *TaskStore) UpsertTaskVector(ctx context.Context, userID string, task store.Task, embedding []float32) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_tasks (user_id, task_uid, task, embedding)
		VALUES ($1, $2, $3, $4::vector)
		ON CONFLICT (user_id, task_uid)
		DO UPDATE SET task = EXCLUDED.task, embedding = EXCLUDED.embedding, updated_at = NOW()
	`, userID, task.UID, payload, vectorToString(embedding))
	if err != nil {
		return fmt.Errorf("upsert task vector: %w", err)
	}
	return nil
}

// NearestTasks returns up to limit tasks ordered by cosine similarity to
// the query embedding. An empty userID searches across all users.
func (s *TaskStore) NearestTasks(ctx context.Context, embedding []float32, userID string, limit int) ([]store.ScoredTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task, 1 - (embedding <=> $1::vector) AS similarity
		FROM user_tasks
		WHERE ($2 = '' OR user_id = $2)
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`, vectorToString(embedding), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest tasks query: %w", err)
	}
	defer rows.Close()

	var out []store.ScoredTask
	for rows.Next() {
		var payload []byte
		var st store.ScoredTask
		if err := rows.Scan(&payload, &st.Similarity); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		if err := json.Unmarshal(payload, &st.Task); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *TaskStore) Close() error {
	return s.db.Close()
}

// vectorToString formats an embedding as a pgvector literal: [0.1,0.2,...].
func vectorToString(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", f)
	}
	b.WriteByte(']')
	return b.String()
}
