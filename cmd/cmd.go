package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lovenest/internal/cache"
	"lovenest/internal/config"
	"lovenest/internal/handlers"
	"lovenest/internal/realtime"
	"lovenest/internal/repository"
	"lovenest/internal/services"
	"lovenest/internal/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	loc, err := cfg.Couple.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}

	// Backend client
	client, err := repository.NewClient(cfg.Backend.URL, cfg.Backend.AnonKey, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create backend client")
	}

	var objects repository.ObjectStore
	s3Store, err := repository.NewS3Store(context.Background(), repository.S3Config{
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("Object storage unavailable, uploads disabled")
	} else {
		objects = s3Store
	}

	relay := repository.NewPushRelay(client, cfg.Push.Function, cfg.Push.DefaultHeading, cfg.Push.PartnerPlayer)
	gateway := repository.NewGateway(client, objects, relay)

	listener, err := realtime.NewListener(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Realtime.Heartbeat)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create realtime listener")
	}

	// State store
	wsHub := services.NewWSHub()
	appStore := store.New(gateway,
		store.WithCache(cache.NewFileCache(cfg.Cache.Path)),
		store.WithObserver(wsHub),
		store.WithLocation(loc),
		store.WithAnniversary(cfg.Couple.AnniversaryDate()),
	)
	sessions := services.NewSessionService(appStore, services.ListenerFeed(listener))

	// Initialize handlers
	dispatcher := handlers.NewDispatcher()
	handler := newRouter(routes{
		identity: appStore,
		session:  handlers.NewSessionHandler(sessions, appStore),
		board:    handlers.NewBoardHandler(appStore, dispatcher),
		settings: handlers.NewSettingsHandler(appStore, dispatcher),
		gallery:  handlers.NewGalleryHandler(appStore, dispatcher),
		ws:       handlers.NewWebSocketHandler(wsHub, appStore),
	})

	// Restore the previous session, if any
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sessions.Resume(ctx); err != nil {
			log.Info().Err(err).Msg("No session to resume, login required")
		}
	}()

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting view bridge")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	wsHub.CloseAll()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	dispatcher.Wait()
	appStore.Detach()

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
