// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/developer5167/chatspotWebservices/internal/api/ws"
	"github.com/developer5167/chatspotWebservices/internal/app/alert"
	"github.com/developer5167/chatspotWebservices/internal/app/reply"
	"github.com/developer5167/chatspotWebservices/internal/app/session"
	"github.com/developer5167/chatspotWebservices/internal/domain/profile"
	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
	"github.com/developer5167/chatspotWebservices/internal/infra/config"
	"github.com/developer5167/chatspotWebservices/internal/infra/logger"
	"github.com/developer5167/chatspotWebservices/internal/infra/ollama"
)

var (
	app        = kingpin.New("chatspot-server", "chatspot anonymous chat server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-replies command
	listRepliesCmd = app.Command("list-replies", "List available reply providers and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listRepliesCmd.FullCommand() {
		printReplyProviders()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Missing config file falls back to defaults so the server can
		// run from environment variables alone.
		if errors.Is(err, os.ErrNotExist) {
			zlog.Warn().Msgf("Config file not found, using defaults: path=%s", *configPath)
			cfg, err = config.Load("")
		}
		if err != nil {
			zlog.Fatal().Msgf("Failed to load config: %v", err)
		}
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Load virtual profiles
	profiles, err := loadProfiles(cfg)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	zlog.Info().Msgf("Loaded virtual profiles: count=%d", len(profiles))

	// The pool and the manager's components each own an independent
	// source; sharing one Rand across their locks would race.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pool := profile.NewPool(profiles, rand.New(rand.NewSource(rng.Int63())))

	// Create generative backend (optional)
	var backend reply.ChatBackend
	if len(cfg.Ollama.Hosts) > 0 {
		client, err := ollama.New(ollama.Config{
			Hosts:   cfg.Ollama.Hosts,
			Model:   cfg.Ollama.Model,
			Timeout: time.Duration(cfg.Ollama.TimeoutSec) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create ollama client: %w", err)
		}
		backend = client
		zlog.Info().Msgf("Generative backend enabled: hosts=%d model=%s", len(cfg.Ollama.Hosts), cfg.Ollama.Model)
	} else {
		zlog.Info().Msg("No ollama hosts configured, generative replies disabled")
	}

	// Create waiting-alert notifier
	var notifier alert.Notifier = alert.NopNotifier{}
	if cfg.Alert.WebhookURL != "" {
		wh, err := alert.NewWebhookNotifier(cfg.Alert.WebhookURL)
		if err != nil {
			return fmt.Errorf("failed to create webhook notifier: %w", err)
		}
		notifier = wh
		zlog.Info().Msg("Waiting-alert webhook enabled")
	}

	// Create session manager
	sessionMgr, err := session.NewManager(cfg, pool, backend, notifier, clock.Real(), rng)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "welcome to chatspot")
	})
	mux.Handle("/ws", ws.NewHandler(sessionMgr, cfg))

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	serverErrCh := make(chan error, 1)

	sessionMgr.Start()

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		sessionMgr.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessionMgr.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// loadProfiles loads virtual profiles from the configured file, falling
// back to the built-in set.
func loadProfiles(cfg *config.Config) ([]*profile.Profile, error) {
	if cfg.Fleet.ProfileFile == "" {
		return profile.Defaults(), nil
	}
	return profile.LoadFile(cfg.Fleet.ProfileFile)
}

// printReplyProviders prints available reply provider types.
func printReplyProviders() {
	fmt.Println("Available Reply Providers:")
	fmt.Printf("  %-12s - %s\n", "privacy", "Deflects requests for contact details or socials")
	fmt.Printf("  %-12s - %s\n", "patterns", "Intent-matched persona responses")
	fmt.Printf("  %-12s - %s\n", "generative", "Ollama-backed free-form replies")
	fmt.Printf("  %-12s - %s\n", "fallback", "Fixed rotating replies, always answers")
}
