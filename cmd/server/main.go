package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/org/noderef/internal/api"
	"github.com/org/noderef/internal/crypto"
	"github.com/org/noderef/internal/storage"
)

type config struct {
	ListenAddr      string `yaml:"listen_addr"`
	TLSCertFile     string `yaml:"tls_cert"`
	TLSKeyFile      string `yaml:"tls_key"`
	DBUrl           string `yaml:"db_url"`
	MigrationsDir   string `yaml:"migrations_dir"`
	DataDir         string `yaml:"data_dir"`
	EnableAIConsole bool   `yaml:"enable_ai_console"`
	LogLevel        string `yaml:"log_level"`
}

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	cfgFile := "config.yaml"
	if v := os.Getenv("NODEREF_CONFIG"); v != "" {
		cfgFile = v
	}

	cfg := config{
		ListenAddr:    ":8777",
		MigrationsDir: "migrations",
		DataDir:       defaultDataDir(),
		LogLevel:      "info",
	}

	if data, err := os.ReadFile(cfgFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to parse config")
		}
	} else {
		log.Warn().Str("file", cfgFile).Msg("config file not found, using defaults")
	}

	// Env overrides
	if v := os.Getenv("NODEREF_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DBUrl = v
	}
	if v := os.Getenv("ENABLE_AI_CONSOLE"); v == "true" || v == "1" {
		cfg.EnableAIConsole = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.DBUrl == "" {
		log.Fatal().Msg("db_url must be configured (or DATABASE_URL env var)")
	}

	// Resolve the master key before touching the database: without it no
	// stored credential can be decrypted.
	masterKey, err := crypto.ResolveMasterKey(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve master key")
	}
	cipher := crypto.NewCipher(masterKey)

	ctx := context.Background()

	// Connect to database
	store, err := storage.NewPostgresBackend(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	// Run migrations
	if err := storage.RunMigrations(cfg.DBUrl, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("migrations applied")

	// Create server
	srv := api.NewServer(store, cipher, api.Config{
		ListenAddr:      cfg.ListenAddr,
		TLSCertFile:     cfg.TLSCertFile,
		TLSKeyFile:      cfg.TLSKeyFile,
		DBUrl:           cfg.DBUrl,
		MigrationsDir:   cfg.MigrationsDir,
		EnableAIConsole: cfg.EnableAIConsole,
	})

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Bool("ai_console", cfg.EnableAIConsole).Msg("server started")
	<-quit

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".noderef"
	}
	return home + "/.noderef"
}
