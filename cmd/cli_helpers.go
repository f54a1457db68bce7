package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/nextlevelbuilder/tinystep/internal/config"
	"github.com/nextlevelbuilder/tinystep/internal/cron"
	"github.com/nextlevelbuilder/tinystep/internal/providers"
	"github.com/nextlevelbuilder/tinystep/internal/recurrence"
	"github.com/nextlevelbuilder/tinystep/internal/retrieval"
	"github.com/nextlevelbuilder/tinystep/internal/schedule"
	"github.com/nextlevelbuilder/tinystep/internal/store"
	"github.com/nextlevelbuilder/tinystep/internal/store/file"
	"github.com/nextlevelbuilder/tinystep/internal/store/pg"
	"github.com/nextlevelbuilder/tinystep/internal/store/rediskv"
	"github.com/nextlevelbuilder/tinystep/internal/store/sqlite"
	"github.com/nextlevelbuilder/tinystep/internal/tasks"
)

// app wires configuration, stores, and services for one CLI invocation.
type app struct {
	cfg     *config.Config
	svc     *tasks.Service
	closers []func() error
}

// buildApp assembles the service graph from config: file-backed users,
// Postgres or sqlite task vectors, Redis or file recurrence cache, and
// the OpenAI-compatible provider behind all generation.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	dataDir := cfg.ResolvedDataDir()

	users, err := file.NewUserStore(filepath.Join(dataDir, "users"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open user store: %w", err)
	}

	var taskStore store.TaskStore
	if cfg.Store.PostgresDSN != "" {
		taskStore, err = pg.NewTaskStore(ctx, cfg.Store.PostgresDSN)
	} else {
		taskStore, err = sqlite.NewTaskStore(filepath.Join(dataDir, "tasks.db"))
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open task store: %w", err)
	}
	a.closers = append(a.closers, taskStore.Close)

	var kv store.KV
	if cfg.Store.RedisAddr != "" {
		kv, err = rediskv.New(ctx, rediskv.Options{
			Addr: cfg.Store.RedisAddr,
			DB:   cfg.Store.RedisDB,
		})
	} else {
		kv, err = file.NewKV(filepath.Join(dataDir, "rrule-cache.json"))
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open recurrence cache: %w", err)
	}
	a.closers = append(a.closers, kv.Close)

	cache, err := recurrence.NewCache(kv, cfg.Schedule.CacheSize)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init recurrence cache: %w", err)
	}

	provider := providers.NewOpenAIProvider(providers.OpenAIConfig{
		APIKey:         cfg.Provider.APIKey,
		APIBase:        cfg.Provider.APIBase,
		Model:          cfg.Provider.Model,
		EmbeddingModel: cfg.Provider.EmbeddingModel,
		TimeoutMs:      cfg.Provider.TimeoutMs,
	})

	resolver := recurrence.NewResolver(providers.NewRuleGenerator(provider), cache, cfg.Schedule.RulesPerMinute)
	retriever := retrieval.New(provider, taskStore)
	generator := providers.NewTaskGenerator(provider)

	selector := schedule.NewSelector(rand.New(rand.NewSource(time.Now().UnixNano())))
	selector.SetExploreProb(cfg.Schedule.ExploreProb)

	a.svc = tasks.NewService(users, taskStore, provider, resolver, retriever, generator, selector)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// cronStorePath is where scheduled job state persists.
func (a *app) cronStorePath() string {
	return filepath.Join(a.cfg.ResolvedDataDir(), "cron", "jobs.json")
}

// newCronService returns the cron service wired to task generation.
func (a *app) newCronService(ctx context.Context) *cron.Service {
	return cron.NewService(a.cronStorePath(), func(job *cron.Job) (string, error) {
		task, err := a.svc.NextTask(ctx, job.Payload.UserID, job.Payload.Note)
		if err != nil {
			return "", err
		}
		if task == nil {
			return "no eligible goal", nil
		}
		return task.Description, nil
	})
}
