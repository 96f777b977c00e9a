package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/mfreile/supportchat/internal/api"
	"github.com/mfreile/supportchat/internal/config"
	"github.com/mfreile/supportchat/internal/database"
	"github.com/mfreile/supportchat/internal/server"
	"github.com/mfreile/supportchat/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	migrationsUrl  string
	presenceWindow time.Duration
	allowedOrigins stringSliceFlag
)

// envOr prefers the environment over a flag default, so a .env file can
// stand in for flags in development.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Println("load .env:", err)
	}

	flag.StringVar(&addr, "addr", envOr("SUPPORTCHAT_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("SUPPORTCHAT_DSN", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", envOr("SUPPORTCHAT_SIGNING_KEY", ""), "base64 encoded signing key")
	flag.StringVar(&migrationsUrl, "migrations", envOr("SUPPORTCHAT_MIGRATIONS", "file://migrations"), "migrations source url, empty to skip")
	flag.DurationVar(&presenceWindow, "presence-window", config.DefaultPresenceWindow, "how recent a heartbeat must be to count as online")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[supportchat] ", log.LstdFlags)

	if env := os.Getenv("SUPPORTCHAT_ALLOWED_ORIGINS"); env != "" && len(allowedOrigins) == 0 {
		allowedOrigins = strings.Split(env, ",")
	}

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.PresenceWindow = presenceWindow

	dbConn, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if migrationsUrl != "" {
		if err := dbConn.Migrate(migrationsUrl); err != nil {
			logger.Fatal("migrate:", err)
		}
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	hub := server.NewHub(logger, statsUpdater)

	srv := api.NewApp(mux, logger, hub, dbConn, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go hub.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down feed hub...")
	if err := hub.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("feed hub shutdown:", err)
	}

	logger.Println("shutdown complete")
}
