// Drafter terminal client: connects to a proposal agent session, streams the
// conversation and applies document edits from the command line.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/drafter/pkg/config"
	"github.com/codeready-toolchain/drafter/pkg/connection"
	"github.com/codeready-toolchain/drafter/pkg/restapi"
	"github.com/codeready-toolchain/drafter/pkg/session"
	"github.com/codeready-toolchain/drafter/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	sessionID := flag.String("session", getEnv("DRAFTER_SESSION", ""), "Chat session to join")
	projectID := flag.String("project", getEnv("DRAFTER_PROJECT", ""), "Project owning the document")
	tokenFlag := flag.String("token", "", "Bearer token (defaults to the variable named by api.token_env)")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if *sessionID == "" {
		slog.Error("A session id is required (-session or DRAFTER_SESSION)")
		os.Exit(2)
	}
	token := *tokenFlag
	if token == "" {
		token = cfg.Token()
	}

	slog.Info("Starting drafter",
		"version", version.Full(),
		"session_id", *sessionID,
		"project_id", *projectID,
		"config_dir", cfg.ConfigDir())

	api := restapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout, token, cfg.API.HistoryCacheTTL)
	transport := connection.NewConnectionManager(cfg.ConnectionSettings(), nil)

	opts := session.DefaultOptions()
	opts.HydrateHistory = cfg.Editor.HydrateHistory
	opts.LoadDocumentOnStart = cfg.Editor.LoadDocumentOnStart
	opts.SelectableClass = cfg.Editor.SelectableClass
	opts.Markers = cfg.SectionMarkers()
	opts.FetchTimeout = cfg.API.Timeout

	controller := session.NewController(transport, session.Collaborators{
		History:   api,
		Documents: api,
		Edits:     api,
		Tokens:    api,
	}, opts)

	if err := controller.StartSession(ctx, *sessionID, *projectID, token); err != nil {
		slog.Error("Failed to start session", "session_id", *sessionID, "error", err)
		os.Exit(1)
	}

	out := newPrinter(os.Stdout)
	go func() {
		for range controller.Changes() {
			out.render(controller.Snapshot())
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	r := &repl{controller: controller, out: out}

loop:
	for {
		select {
		case sig := <-sigCh:
			slog.Info("Shutdown signal received", "signal", sig)
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if !r.handle(ctx, line) {
				break loop
			}
		}
	}

	controller.EndSession()
	slog.Info("Session ended", "session_id", *sessionID)
}
