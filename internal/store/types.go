// Package store defines the persistence interfaces and shared models for
// tinystep. Standalone deployments use the file and sqlite backends;
// managed deployments use Postgres (pgvector) and Redis.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/tinystep/internal/outline"
)

// GenNewID generates a new UUID v7 (time-ordered).
func GenNewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// KV is a durable key-value store. Expected misses are ordinary return
// values (ok=false), not errors. Writes are idempotently overwritable;
// last write wins.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// EmbeddingProvider generates vector embeddings for text.
type EmbeddingProvider interface {
	Name() string
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ScoredTask is a past task paired with its similarity to a query.
type ScoredTask struct {
	Task       Task    `json:"task"`
	Similarity float64 `json:"similarity"`
}

// TaskStore persists generated tasks with their embeddings and serves
// nearest-neighbor lookups. userID "" in NearestTasks widens the scope
// to all users.
type TaskStore interface {
	UpsertTaskVector(ctx context.Context, userID string, task Task, embedding []float32) error
	NearestTasks(ctx context.Context, embedding []float32, userID string, limit int) ([]ScoredTask, error)
	Close() error
}

// UserStore persists user records keyed by their opaque token.
type UserStore interface {
	GetUser(ctx context.Context, uid string) (*User, error)
	SaveUser(ctx context.Context, u *User) error
}

// ReplyType is the user's verdict on a generated task.
type ReplyType string

const (
	ReplyAccept ReplyType = "accept"
	ReplyReject ReplyType = "reject"
	ReplyLater  ReplyType = "later"
)

// ValidReplyType reports whether t is one of the known reply types.
func ValidReplyType(t ReplyType) bool {
	switch t {
	case ReplyAccept, ReplyReject, ReplyLater:
		return true
	}
	return false
}

// TaskReply records the user's reaction to a task.
type TaskReply struct {
	Type    ReplyType `json:"type"`
	Comment string    `json:"comment,omitempty"`
	Created time.Time `json:"created"`
}

// Task is one generated suggestion tied to a goal.
type Task struct {
	UID         string        `json:"uid"`
	Goal        *outline.Node `json:"goal,omitempty"`
	Description string        `json:"description"`
	Tags        []string      `json:"tags"`
	Reply       *TaskReply    `json:"reply,omitempty"`
	Created     time.Time     `json:"created"`
}

// GoalsDoc is a user's goals document plus its rebuilt index.
type GoalsDoc struct {
	UID     string        `json:"uid"`
	Content string        `json:"content"`
	Index   outline.Index `json:"index,omitempty"`
	Created time.Time     `json:"created"`
	Updated time.Time     `json:"updated,omitzero"`
}

// User owns one goals document and a task history.
type User struct {
	UID      string    `json:"uid"`
	Timezone string    `json:"timezone,omitempty"`
	Doc      GoalsDoc  `json:"doc"`
	Tasks    []Task    `json:"tasks,omitempty"`
	Created  time.Time `json:"created"`
}

// CurrentTask returns the most recently generated task, or nil.
func (u *User) CurrentTask() *Task {
	if len(u.Tasks) == 0 {
		return nil
	}
	return &u.Tasks[len(u.Tasks)-1]
}

// FindTask returns the task with the given uid, or nil.
func (u *User) FindTask(uid string) *Task {
	for i := range u.Tasks {
		if u.Tasks[i].UID == uid {
			return &u.Tasks[i]
		}
	}
	return nil
}

// Location resolves the user's reported time zone, falling back to UTC
// when unset or unknown. All scheduling "now" values are zoned with it.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
