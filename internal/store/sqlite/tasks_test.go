package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/tinystep/internal/store"
)

func newTestStore(t *testing.T) *TaskStore {
	t.Helper()
	s, err := NewTaskStore(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("NewTaskStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNearestTasks_OrdersBySimilarity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := map[string][]float32{
		"close":    {1, 0, 0},
		"mid":      {1, 1, 0},
		"far":      {0, 1, 0},
		"opposite": {-1, 0, 0},
	}
	for uid, vec := range seed {
		task := store.Task{UID: uid, Description: uid}
		if err := s.UpsertTaskVector(ctx, "u1", task, vec); err != nil {
			t.Fatalf("upsert %s: %v", uid, err)
		}
	}

	got, err := s.NearestTasks(ctx, []float32{1, 0, 0}, "u1", 3)
	if err != nil {
		t.Fatalf("NearestTasks: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	wantOrder := []string{"close", "mid", "far"}
	for i, w := range wantOrder {
		if got[i].Task.UID != w {
			t.Errorf("result[%d] = %s, want %s", i, got[i].Task.UID, w)
		}
	}
	if got[0].Similarity < 0.999 {
		t.Errorf("identical vector similarity = %f, want ~1", got[0].Similarity)
	}
}

func TestNearestTasks_ScopesToUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertTaskVector(ctx, "alice", store.Task{UID: "a"}, []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertTaskVector(ctx, "bob", store.Task{UID: "b"}, []float32{1, 0}); err != nil {
		t.Fatal(err)
	}

	got, err := s.NearestTasks(ctx, []float32{1, 0}, "alice", 10)
	if err != nil {
		t.Fatalf("NearestTasks: %v", err)
	}
	if len(got) != 1 || got[0].Task.UID != "a" {
		t.Errorf("scoped search returned %+v, want only alice's task", got)
	}

	all, err := s.NearestTasks(ctx, []float32{1, 0}, "", 10)
	if err != nil {
		t.Fatalf("NearestTasks all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("unscoped search returned %d tasks, want 2", len(all))
	}
}

func TestUpsert_ReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := store.Task{UID: "t1", Description: "old"}
	if err := s.UpsertTaskVector(ctx, "u1", task, []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	task.Description = "new"
	if err := s.UpsertTaskVector(ctx, "u1", task, []float32{0, 1}); err != nil {
		t.Fatal(err)
	}

	got, err := s.NearestTasks(ctx, []float32{0, 1}, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d tasks, want 1 after upsert", len(got))
	}
	if got[0].Task.Description != "new" {
		t.Errorf("description = %q, want %q", got[0].Task.Description, "new")
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{1, 0}, []float32{1, 0, 0}, 0}, // dimension mismatch
		{nil, nil, 0},
	}
	for _, c := range cases {
		if got := cosineSimilarity(c.a, c.b); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("cosineSimilarity(%v, %v) = %f, want %f", c.a, c.b, got, c.want)
		}
	}
}
