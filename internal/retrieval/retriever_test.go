package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/nextlevelbuilder/tinystep/internal/store"
)

type fakeProvider struct {
	err error
}

func (f fakeProvider) Name() string  { return "fake" }
func (f fakeProvider) Model() string { return "fake-embed" }

func (f fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeTaskStore struct {
	results   []store.ScoredTask
	err       error
	lastUser  string
	lastLimit int
}

func (f *fakeTaskStore) UpsertTaskVector(_ context.Context, _ string, _ store.Task, _ []float32) error {
	return nil
}

func (f *fakeTaskStore) NearestTasks(_ context.Context, _ []float32, userID string, limit int) ([]store.ScoredTask, error) {
	f.lastUser = userID
	f.lastLimit = limit
	return f.results, f.err
}

func (f *fakeTaskStore) Close() error { return nil }

func scored(desc string, sim float64, reply store.ReplyType) store.ScoredTask {
	st := store.ScoredTask{Task: store.Task{UID: desc, Description: desc}, Similarity: sim}
	if reply != "" {
		st.Task.Reply = &store.TaskReply{Type: reply}
	}
	return st
}

func TestSimilarTasks_ScopeAndLimit(t *testing.T) {
	ts := &fakeTaskStore{results: []store.ScoredTask{scored("a", 0.9, "")}}
	r := New(fakeProvider{}, ts)

	got, err := r.SimilarTasks(context.Background(), "write a book", "user-1", 0)
	if err != nil {
		t.Fatalf("SimilarTasks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}
	if ts.lastUser != "user-1" {
		t.Errorf("scope = %q, want user-1", ts.lastUser)
	}
	if ts.lastLimit != DefaultLimit {
		t.Errorf("limit = %d, want default %d", ts.lastLimit, DefaultLimit)
	}
}

func TestSimilarTasks_EmbedFailurePropagates(t *testing.T) {
	r := New(fakeProvider{err: fmt.Errorf("embedding down")}, &fakeTaskStore{})
	if _, err := r.SimilarTasks(context.Background(), "q", "", 5); err == nil {
		t.Fatal("expected embedding error to propagate")
	}
}

func TestSimilarTasks_StoreFailurePropagates(t *testing.T) {
	r := New(fakeProvider{}, &fakeTaskStore{err: fmt.Errorf("store down")})
	if _, err := r.SimilarTasks(context.Background(), "q", "", 5); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestPartition_SimilarityBands(t *testing.T) {
	pos, neg := Partition([]store.ScoredTask{
		scored("high", 0.95, ""),
		scored("mid", 0.65, ""),
		scored("low", 0.3, ""),
	})

	if len(pos) != 1 || pos[0].Task.UID != "high" {
		t.Errorf("positive = %v, want [high]", pos)
	}
	if len(neg) != 1 || neg[0].Task.UID != "low" {
		t.Errorf("negative = %v, want [low]", neg)
	}
}

func TestPartition_ExplicitRepliesOverrideBands(t *testing.T) {
	pos, neg := Partition([]store.ScoredTask{
		scored("rejected-but-similar", 0.95, store.ReplyReject),
		scored("accepted-but-distant", 0.2, store.ReplyAccept),
	})

	if len(pos) != 1 || pos[0].Task.UID != "accepted-but-distant" {
		t.Errorf("positive = %v, want explicit accept", pos)
	}
	if len(neg) != 1 || neg[0].Task.UID != "rejected-but-similar" {
		t.Errorf("negative = %v, want explicit reject", neg)
	}
}

func TestPartition_CapsEachSide(t *testing.T) {
	var in []store.ScoredTask
	for i := 0; i < 6; i++ {
		in = append(in, scored(fmt.Sprintf("p%d", i), 0.9, ""))
		in = append(in, scored(fmt.Sprintf("n%d", i), 0.1, ""))
	}

	pos, neg := Partition(in)
	if len(pos) != maxExemplars {
		t.Errorf("positive size = %d, want %d", len(pos), maxExemplars)
	}
	if len(neg) != maxExemplars {
		t.Errorf("negative size = %d, want %d", len(neg), maxExemplars)
	}
}

func TestPartition_MidBandDropped(t *testing.T) {
	pos, neg := Partition([]store.ScoredTask{scored("mid", 0.65, store.ReplyLater)})
	if len(pos) != 0 || len(neg) != 0 {
		t.Errorf("mid-band 'later' task should be dropped, got pos=%v neg=%v", pos, neg)
	}
}

func TestExemplars_AcceptOrCloseMatch(t *testing.T) {
	in := []store.ScoredTask{
		scored("close", 0.85, ""),
		scored("accepted-far", 0.2, store.ReplyAccept),
		scored("mid-no-reply", 0.6, ""),
		scored("rejected-close", 0.9, store.ReplyReject),
	}

	got := Exemplars(in)
	want := map[string]bool{"close": true, "accepted-far": true, "rejected-close": true}
	if len(got) != 3 {
		t.Fatalf("got %d exemplars, want 3", len(got))
	}
	for _, ex := range got {
		if !want[ex.Task.UID] {
			t.Errorf("unexpected exemplar %s", ex.Task.UID)
		}
	}
}

func TestExemplars_Caps(t *testing.T) {
	var in []store.ScoredTask
	for i := 0; i < 6; i++ {
		in = append(in, scored(fmt.Sprintf("e%d", i), 0.95, ""))
	}
	if got := Exemplars(in); len(got) != maxExemplars {
		t.Errorf("got %d exemplars, want %d", len(got), maxExemplars)
	}
}
