package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/pulse/internal/api"
	"github.com/kalambet/pulse/internal/config"
	"github.com/kalambet/pulse/internal/discord"
	"github.com/kalambet/pulse/internal/gateway"
	"github.com/kalambet/pulse/internal/insights"
	"github.com/kalambet/pulse/internal/interactions"
	"github.com/kalambet/pulse/internal/llm"
	"github.com/kalambet/pulse/internal/normalize"
	"github.com/kalambet/pulse/internal/objstore"
	"github.com/kalambet/pulse/internal/search"
	"github.com/kalambet/pulse/internal/storage"
)

const (
	maxBackgroundTasks = 16
	drainTimeout       = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pulse server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pulse service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "pulse version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.LogLevel, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The bucket holds the canonical feedback records, so serving
	// without it is not an option.
	if cfg.S3Endpoint == "" {
		return fmt.Errorf("S3_ENDPOINT is required")
	}
	objects, err := objstore.New(objstore.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		return fmt.Errorf("configuring object store: %w", err)
	}
	if err := objects.Ping(ctx); err != nil {
		return fmt.Errorf("object store not reachable: %w", err)
	}

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Upstream model and search degrade per request instead of
	// blocking startup.
	llmClient := llm.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY not set; ingestion will fail until it is configured")
	} else if err := llmClient.Ping(ctx); err != nil {
		slog.Warn("model endpoint not reachable", "error", err)
	}

	searchClient := search.New(cfg.SearchBaseURL, cfg.SearchAPIKey, cfg.SearchIndex)
	if cfg.SearchBaseURL == "" {
		slog.Warn("SEARCH_BASE_URL not set; ask and digest summaries will fall back")
	} else if err := searchClient.Ping(ctx); err != nil {
		slog.Warn("search endpoint not reachable", "error", err)
	}

	gw := gateway.New(objects, store)
	normalizer := normalize.New(llmClient)
	ins := insights.New(searchClient, store)

	sessions := interactions.NewRegistry()
	runner := interactions.NewRunner(maxBackgroundTasks)
	interactionsHandler := interactions.NewHandler(ins, discord.NewClient(cfg.DiscordBotToken), sessions, runner)

	handler := api.NewHandler(api.Deps{
		Normalizer:       normalizer,
		Gateway:          gw,
		Insights:         ins,
		Interactions:     interactionsHandler,
		DiscordPublicKey: cfg.DiscordPublicKey,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("pulse listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// In-flight interaction edits get a bounded window to finish.
	if !runner.Drain(drainTimeout) {
		slog.Warn("background tasks still running at shutdown")
	}
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	base := os.Getenv("PULSE_URL")
	if base == "" {
		base = serverURL(cfg.Addr)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running at %s", base)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Model", "%s", cfg.OpenAIModel)
	if cfg.SearchBaseURL != "" {
		printStatus("Search", "%s (index %s)", cfg.SearchBaseURL, cfg.SearchIndex)
	} else {
		printStatus("Search", "not configured")
	}
	if cfg.S3Endpoint != "" {
		printStatus("Object store", "%s/%s", cfg.S3Endpoint, cfg.S3Bucket)
	} else {
		printStatus("Object store", "not configured")
	}
	printStatus("Data dir", "%s", cfg.DataDir)
	return nil
}
