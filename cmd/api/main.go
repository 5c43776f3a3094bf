package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitplan/internal/config"
	"fitplan/internal/database"
	"fitplan/internal/llm"
	"fitplan/internal/planner"
	"fitplan/internal/server"
	"fitplan/internal/session"
	"fitplan/internal/utility"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "fitplan",
	Short: "Personalized fitness and diet plan generator",
	Long: `fitplan serves a three-tab web app: Generate builds a 12-week fitness and
diet plan from your profile, Plan shows it, and Track records weekly progress and
unlocks a plan for the next 12 weeks.`,
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServe,
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load variables from this file instead of ./.env")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(promptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

func setupLogger(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight requests get 5 seconds to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")

	done <- true
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	setupLogger(cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	secret := cfg.SessionSecret
	if secret == "" {
		secret, err = utility.GenerateSecureToken(32)
		if err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		log.Warn().Msg("SESSION_SECRET is not set; using a random secret, sessions will not survive a restart")
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	chat := llm.NewChatClient(cfg.Chat)
	gemini, err := llm.NewGeminiClient(ctx, cfg.Gemini)
	if err != nil {
		return err
	}
	if cfg.Chat.APIKey == "" {
		log.Warn().Msg("LLAMA_API_KEY is not set; plan generation will fail")
	}
	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; follow-up plan generation will fail")
	}

	hub := utility.NewHub()
	plans := planner.New(store, chat, gemini, hub)
	apiServer := server.New(cfg, []byte(secret), store, plans, hub).HTTPServer()

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, done)

	log.Info().
		Int("port", cfg.Port).
		Str("env", cfg.AppEnv).
		Str("session_store", cfg.SessionStore).
		Str("plan_model", chat.Name()).
		Str("follow_up_model", gemini.Name()).
		Msg("Server starting")

	if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	log.Info().Msg("Graceful shutdown complete.")
	return nil
}

// buildStore returns the configured session store and a cleanup func.
func buildStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	if cfg.SessionStore != config.StorePostgres {
		return session.NewMemoryStore(cfg.SessionCacheSize, cfg.SessionTTL), func() {}, nil
	}

	db, err := database.NewService(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	store, err := session.NewPostgresStore(ctx, db, cfg.SessionTTL)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	go store.Janitor(ctx, 10*time.Minute)

	return store, db.Close, nil
}
