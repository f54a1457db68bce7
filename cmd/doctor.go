package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/tinystep/internal/config"
	"github.com/nextlevelbuilder/tinystep/internal/store/pg"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and backend health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.Context())
		},
	}
}

func runDoctor(ctx context.Context) {
	fmt.Println("tinystep doctor")
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Provider:")
	checkAPIKey("OpenAI", cfg.Provider.APIKey)
	fmt.Printf("    %-12s %s\n", "Model:", orDefault(cfg.Provider.Model, "gpt-4o-mini"))
	fmt.Printf("    %-12s %s\n", "Embeddings:", orDefault(cfg.Provider.EmbeddingModel, "text-embedding-3-small"))

	fmt.Println()
	ds := cfg.ResolvedDataDir()
	fmt.Printf("  Data dir: %s", ds)
	if _, err := os.Stat(ds); err != nil {
		fmt.Println(" (NOT FOUND, created on first use)")
	} else {
		fmt.Println(" (OK)")
	}

	// Backend connectivity, checked concurrently with a short timeout.
	fmt.Println()
	fmt.Println("  Backends:")
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var pgStatus, redisStatus string
	g, checkCtx := errgroup.WithContext(checkCtx)
	g.Go(func() error {
		pgStatus = checkPostgres(checkCtx, cfg.Store.PostgresDSN)
		return nil
	})
	g.Go(func() error {
		redisStatus = checkRedis(checkCtx, cfg.Store.RedisAddr, cfg.Store.RedisDB)
		return nil
	})
	g.Wait()

	fmt.Printf("    %-12s %s\n", "Postgres:", pgStatus)
	fmt.Printf("    %-12s %s\n", "Redis:", redisStatus)

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkAPIKey(name, apiKey string) {
	if len(apiKey) >= 8 {
		masked := apiKey[:4] + strings.Repeat("*", len(apiKey)-8) + apiKey[len(apiKey)-4:]
		fmt.Printf("    %-12s %s\n", name+":", masked)
	} else if apiKey != "" {
		fmt.Printf("    %-12s (set)\n", name+":")
	} else {
		fmt.Printf("    %-12s (not configured)\n", name+":")
	}
}

func checkPostgres(ctx context.Context, dsn string) string {
	if dsn == "" {
		return "not configured (using sqlite)"
	}
	db, err := pg.OpenDB(ctx, dsn)
	if err != nil {
		return "UNREACHABLE: " + err.Error()
	}
	db.Close()
	return "OK"
}

func checkRedis(ctx context.Context, addr string, db int) string {
	if addr == "" {
		return "not configured (using file cache)"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		return "UNREACHABLE: " + err.Error()
	}
	return "OK"
}

func orDefault(v, def string) string {
	if v == "" {
		return def + " (default)"
	}
	return v
}
