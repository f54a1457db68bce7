// Package tasks orchestrates the full flow: saving goal documents,
// resolving recurrence rules, picking an eligible goal, and generating
// and replying to tasks.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/tinystep/internal/outline"
	"github.com/nextlevelbuilder/tinystep/internal/providers"
	"github.com/nextlevelbuilder/tinystep/internal/retrieval"
	"github.com/nextlevelbuilder/tinystep/internal/schedule"
	"github.com/nextlevelbuilder/tinystep/internal/store"
)

// RuleResolver fills in recurrence rules for category nodes.
type RuleResolver interface {
	Resolve(ctx context.Context, idx outline.Index, now time.Time) error
}

// SimilarTaskFinder retrieves past tasks near a query text.
type SimilarTaskFinder interface {
	SimilarTasks(ctx context.Context, query, userID string, limit int) ([]store.ScoredTask, error)
}

// Generator produces task content and starter goal documents.
type Generator interface {
	GenerateTask(ctx context.Context, goal, category, note string, now time.Time, liked, disliked []store.ScoredTask) (*providers.GeneratedTask, error)
	GenerateGoalsDoc(ctx context.Context, persona string, examples []store.ScoredTask) (string, error)
}

// Service ties the stores, resolver, retriever, and generator together.
type Service struct {
	users     store.UserStore
	tasks     store.TaskStore
	provider  store.EmbeddingProvider
	resolver  RuleResolver
	retriever SimilarTaskFinder
	generator Generator
	selector  *schedule.Selector
	clock     func() time.Time
}

func NewService(users store.UserStore, tasks store.TaskStore, provider store.EmbeddingProvider, resolver RuleResolver, retriever SimilarTaskFinder, generator Generator, selector *schedule.Selector) *Service {
	return &Service{
		users:     users,
		tasks:     tasks,
		provider:  provider,
		resolver:  resolver,
		retriever: retriever,
		generator: generator,
		selector:  selector,
		clock:     time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(clock func() time.Time) { s.clock = clock }

// SetExploreProb adjusts the goal selector's explore probability on a
// running service. Config hot reload calls this; out-of-range values
// are ignored.
func (s *Service) SetExploreProb(p float64) { s.selector.SetExploreProb(p) }

// GetOrCreateUser loads a user, creating one with the starter goals
// document on first sight.
func (s *Service) GetOrCreateUser(ctx context.Context, userID, timezone string) (*store.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user != nil {
		return user, nil
	}

	now := s.clock().UTC()
	user = &store.User{
		UID:      userID,
		Timezone: timezone,
		Doc: store.GoalsDoc{
			UID:     store.GenNewID().String(),
			Content: StarterGoalsDoc,
			Created: now,
		},
		Created: now,
	}
	user.Doc.Index = outline.Parse(user.Doc.Content, now)
	if err := s.resolver.Resolve(ctx, user.Doc.Index, now); err != nil {
		return nil, fmt.Errorf("resolve rules for new user: %w", err)
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save new user: %w", err)
	}

	slog.Info("user created", "user", userID)
	return user, nil
}

// SaveDocument replaces the user's goals document: re-index, carry over
// node state from the previous index, and resolve recurrence rules. A
// resolution failure fails the save and leaves the stored document
// untouched.
func (s *Service) SaveDocument(ctx context.Context, userID, docUID, content string) (*store.GoalsDoc, error) {
	if content == "" || docUID == "" {
		return nil, fmt.Errorf("content and document uid are required")
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	if docUID != user.Doc.UID {
		return nil, fmt.Errorf("document uid mismatch")
	}

	now := s.clock().UTC()
	idx := outline.Parse(content, now)
	idx.CarryOver(user.Doc.Index)

	if err := s.resolver.Resolve(ctx, idx, now); err != nil {
		return nil, fmt.Errorf("resolve recurrence rules: %w", err)
	}

	user.Doc.Content = content
	user.Doc.Index = idx
	user.Doc.Updated = now
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	slog.Info("document saved", "user", userID, "nodes", len(idx))
	return &user.Doc, nil
}

// NextTask picks an eligible goal and generates a task for it. Returns
// (nil, nil) when no goal is currently eligible. Exemplar retrieval
// failures degrade to generation without exemplars; the generated task's
// vector upsert failure is logged but does not fail the operation.
func (s *Service) NextTask(ctx context.Context, userID, note string) (*store.Task, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userID)
	}

	now := s.clock().In(user.Location())
	eligible := schedule.Eligible(user.Doc.Index, now)
	goal := s.selector.Pick(eligible)
	if goal == nil {
		slog.Info("no eligible goal", "user", userID)
		return nil, nil
	}

	var liked, disliked []store.ScoredTask
	similar, err := s.retriever.SimilarTasks(ctx, goal.Text, user.UID, retrieval.DefaultLimit)
	if err != nil {
		slog.Warn("exemplar retrieval failed, generating without exemplars", "user", userID, "error", err)
	} else {
		liked, disliked = retrieval.Partition(similar)
	}

	gen, err := s.generator.GenerateTask(ctx, goal.Text, goal.Path, note, now, liked, disliked)
	if err != nil {
		return nil, fmt.Errorf("generate task: %w", err)
	}

	nowUTC := now.UTC()
	task := store.Task{
		UID:         store.GenNewID().String(),
		Goal:        goal,
		Description: gen.Description,
		Tags:        gen.Tags,
		Created:     nowUTC,
	}

	// Only on success: the goal is marked used and the task persisted.
	goal.LastUsedAt = &nowUTC
	user.Tasks = append(user.Tasks, task)
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	if err := s.upsertTaskVector(ctx, user.UID, task); err != nil {
		slog.Warn("task vector upsert failed", "user", userID, "task", task.UID, "error", err)
	}

	slog.Info("task generated", "user", userID, "goal", goal.Path, "task", task.UID)
	return &task, nil
}

// Reply records the user's verdict on a task and refreshes its stored
// vector so future retrieval reflects the feedback.
func (s *Service) Reply(ctx context.Context, userID, taskUID string, replyType store.ReplyType, comment string) (*store.TaskReply, error) {
	if !store.ValidReplyType(replyType) {
		return nil, fmt.Errorf("invalid reply type %q", replyType)
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userID)
	}

	task := user.FindTask(taskUID)
	if task == nil {
		return nil, fmt.Errorf("task %s not found", taskUID)
	}

	task.Reply = &store.TaskReply{
		Type:    replyType,
		Comment: comment,
		Created: s.clock().UTC(),
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	if err := s.upsertTaskVector(ctx, user.UID, *task); err != nil {
		return nil, fmt.Errorf("update task vector: %w", err)
	}

	slog.Info("task reply recorded", "user", userID, "task", taskUID, "type", replyType)
	return task.Reply, nil
}

// MarkDone stamps a goal node as completed so it is no longer eligible.
func (s *Service) MarkDone(ctx context.Context, userID, path string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}

	node, ok := user.Doc.Index[path]
	if !ok {
		return fmt.Errorf("goal %q not found", path)
	}
	if !node.IsItem() {
		return fmt.Errorf("goal %q is a category, not an item", path)
	}

	now := s.clock().UTC()
	node.DoneAt = &now
	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	slog.Info("goal marked done", "user", userID, "goal", path)
	return nil
}

// RandomizeDoc generates a fresh goals document for a random persona,
// steered by tasks the user previously accepted. The document is
// returned, not saved; the caller decides whether to adopt it.
func (s *Service) RandomizeDoc(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil {
		return "", fmt.Errorf("user %s not found", userID)
	}

	persona := providers.RandomPersona()

	var examples []store.ScoredTask
	similar, err := s.retriever.SimilarTasks(ctx, persona, user.UID, retrieval.DefaultLimit)
	if err != nil {
		slog.Warn("exemplar retrieval failed, generating without exemplars", "user", userID, "error", err)
	} else {
		examples = retrieval.Exemplars(similar)
	}

	content, err := s.generator.GenerateGoalsDoc(ctx, persona, examples)
	if err != nil {
		return "", fmt.Errorf("generate goals doc: %w", err)
	}
	return content, nil
}

// upsertTaskVector embeds the task's searchable text and writes it to
// the task vector store.
func (s *Service) upsertTaskVector(ctx context.Context, userID string, task store.Task) error {
	embeddings, err := s.provider.Embed(ctx, []string{taskEmbedText(task)})
	if err != nil {
		return fmt.Errorf("embed task: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("embedding provider %s returned no vectors", s.provider.Name())
	}
	return s.tasks.UpsertTaskVector(ctx, userID, task, embeddings[0])
}

// taskEmbedText builds the text that represents a task in vector
// search: its goal, description with tags, and any reply comment.
func taskEmbedText(task store.Task) string {
	goal := "N/A"
	if task.Goal != nil {
		goal = task.Goal.Text
	}
	comment := "N/A"
	if task.Reply != nil && task.Reply.Comment != "" {
		comment = task.Reply.Comment
	}

	var tags strings.Builder
	for i, t := range task.Tags {
		if i > 0 {
			tags.WriteByte(' ')
		}
		tags.WriteByte('#')
		tags.WriteString(t)
	}

	return fmt.Sprintf(
		"<goal>\n%s\n</goal>\n<task>\n%s\n%s\n</task>\n<user_reply_comment>\n%s\n</user_reply_comment>",
		goal, task.Description, tags.String(), comment,
	)
}
