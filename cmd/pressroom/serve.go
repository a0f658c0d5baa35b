package main

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jonathan/pressroom/internal/config"
	"github.com/jonathan/pressroom/internal/db"
	"github.com/jonathan/pressroom/internal/governor"
	"github.com/jonathan/pressroom/internal/healing"
	"github.com/jonathan/pressroom/internal/idempotency"
	"github.com/jonathan/pressroom/internal/ledger"
	"github.com/jonathan/pressroom/internal/llm"
	"github.com/jonathan/pressroom/internal/observability"
	"github.com/jonathan/pressroom/internal/pipeline"
	"github.com/jonathan/pressroom/internal/publish"
	"github.com/jonathan/pressroom/internal/research"
	"github.com/jonathan/pressroom/internal/server"
	"github.com/jonathan/pressroom/internal/server/ratelimit"
	"github.com/jonathan/pressroom/internal/trigger"
)

// staleJobCutoff is how old a running checkpoint must be before the startup
// reconciler refunds it.
const staleJobCutoff = 10 * time.Minute

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and management API server",
	Long:  `Start the HTTP server that consumes scheduled trigger webhooks and exposes the management REST API.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Optional JSON config file; environment variables take precedence")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	log := observability.NewLoggerWithService("pressroom")

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	redisOpts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	redisClient := goredis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	receiver, err := trigger.NewReceiver(cfg.SigningKey, cfg.NextSigningKey)
	if err != nil {
		return err
	}

	llmClient, err := llm.NewClient(ctx, llm.ProviderGemini, cfg.GeminiKey)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	defer func() { _ = llmClient.Close() }()
	chains := llm.DefaultGeminiChains()
	healer := healing.NewHealer(llmClient, chains.Repair, log)

	var researcher pipeline.ResearchProvider
	if cfg.SearchAPIKey != "" && cfg.SearchCX != "" {
		r, err := research.NewResearcher(ctx, cfg.SearchAPIKey, cfg.SearchCX, log)
		if err != nil {
			return fmt.Errorf("failed to create researcher: %w", err)
		}
		researcher = r
	} else {
		log.Warn("search credentials not set, research stage disabled")
	}

	tokenLedger := ledger.New(database, log)
	orchestrator := pipeline.NewOrchestrator(llmClient, chains, healer, researcher, database, log)

	registry := publish.NewRegistry()
	if wpURL := os.Getenv("WORDPRESS_URL"); wpURL != "" {
		registry.Register("wordpress", publish.NewWordPress(
			wpURL, os.Getenv("WORDPRESS_USERNAME"), os.Getenv("WORDPRESS_APP_PASSWORD")))
	}
	coordinator := publish.NewCoordinator(registry, tokenLedger, database, log)

	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	passwords, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}

	srv := server.NewServer(cfg, server.Dependencies{
		Store:        database,
		Gate:         idempotency.New(redisClient),
		Governor:     governor.New(cfg.MaxConcurrent, cfg.AdmitWait, log),
		Ledger:       tokenLedger,
		Receiver:     receiver,
		Orchestrator: orchestrator,
		Coordinator:  coordinator,
		JWT:          server.NewJWTService(jwtCfg),
		Passwords:    passwords,
		Limiter:      ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Log:          log,
	})

	if _, err := srv.ReconcileStaleJobs(ctx, staleJobCutoff); err != nil {
		log.WithField("error", err.Error()).Warn("stale job reconciliation failed")
	}

	return srv.Start(ctx)
}
