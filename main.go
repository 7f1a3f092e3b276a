package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"cinelist/config"
	"cinelist/handlers"
	"cinelist/internal/database"
	authsvc "cinelist/services/auth"
	"cinelist/services/tmdb"
	"cinelist/services/watchlist"
	"cinelist/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the settings file")
	flag.Parse()

	cfg := config.NewManager(*configPath)
	settings, err := cfg.Load()
	if err != nil {
		log.Fatalf("[main] load settings: %v", err)
	}

	setupLogging(settings)

	if err := run(cfg, settings); err != nil {
		log.Fatalf("[main] %v", err)
	}
}

func run(cfg *config.Manager, settings *config.Settings) error {
	// A missing TMDB credential is a configuration fault; fail before
	// opening anything else.
	gateway, err := tmdb.NewClient(settings.TMDB.APIKey)
	if err != nil {
		return err
	}

	db, err := database.NewDB(database.Config{DatabasePath: settings.Database.Path})
	if err != nil {
		return err
	}
	defer db.Close()

	secret, err := cfg.EnsureAuthSecret()
	if err != nil {
		return err
	}

	sessions, err := authsvc.NewService(db.Users, authsvc.Options{
		Secret:         secret,
		BaseURL:        settings.Server.BaseURL,
		TokenDuration:  time.Duration(settings.Auth.TokenMinutes) * time.Minute,
		CookieDuration: time.Duration(settings.Auth.CookieDays) * 24 * time.Hour,
		AvatarDir:      settings.Auth.AvatarDir,
	})
	if err != nil {
		return err
	}

	watchlistSvc := watchlist.NewService(db.Watchlist)

	router := utils.NewRouter()

	authRoutes, avatarRoutes := sessions.Handlers()
	router.PathPrefix("/auth").Handler(authRoutes)
	router.PathPrefix("/avatar").Handler(avatarRoutes)

	// Trace resolves the session when one is present but lets anonymous
	// requests through; each operation decides what no caller means.
	m := sessions.Middleware()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler { return m.Trace(next) })

	handlers.NewAccountsHandler(sessions).Register(api)
	handlers.NewWatchlistHandler(watchlistSvc, sessions).Register(api)

	movies := api.PathPrefix("/movies").Subrouter()
	movies.Use(utils.RateLimit(5, 10))
	handlers.NewMoviesHandler(gateway).Register(movies)

	server := &http.Server{
		Addr:         settings.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[main] listening on %s", settings.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Printf("[main] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}

// setupLogging points both slog and the classic log package at the same
// sink, rotated when a log file is configured.
func setupLogging(settings *config.Settings) {
	var sink io.Writer = os.Stdout
	if settings.Server.LogFile != "" {
		sink = &lumberjack.Logger{
			Filename:   settings.Server.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(sink, nil)))
	log.SetOutput(sink)
}
