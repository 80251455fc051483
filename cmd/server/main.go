package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"homeservices/backend/internal/auth"
	"homeservices/backend/internal/config"
	"homeservices/backend/internal/db"
	"homeservices/backend/internal/events"
	"homeservices/backend/internal/handlers"
	"homeservices/backend/internal/logging"
	"homeservices/backend/internal/metrics"
	"homeservices/backend/internal/middleware"
	"homeservices/backend/internal/notify"
	"homeservices/backend/internal/presence"
	"homeservices/backend/internal/push"
	"homeservices/backend/internal/realtime"
	"homeservices/backend/internal/router"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.Development())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare schema")
	}

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init auth")
	}

	meterProvider, shutdownMetrics, err := metrics.NewProvider(ctx, cfg.OTELEndpoint, cfg.OTELServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init metrics export")
	}
	if cfg.OTELEndpoint == "" {
		log.Info().Msg("OTEL_EXPORTER_OTLP_ENDPOINT not set, metrics export disabled")
	}

	roster := presence.NewStore()
	recorder, err := metrics.NewRealtime(meterProvider.Meter(metrics.MeterName), roster)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}
	hub := realtime.NewHub(log, recorder)
	presenceSync := realtime.NewSynchronizer(hub, roster, authService, log)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var pushQueue notify.Enqueuer
	if cfg.RedisURL != "" {
		queue, err := push.NewQueue(cfg.RedisURL, cfg.PushQueueKey)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		defer queue.Close()
		if err := queue.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, push jobs will fail until it recovers")
		}
		pushQueue = queue
		sender := push.NewBreakerSender(push.NewLogSender(log), log)
		go push.NewWorker(queue, sender, log).Start(workerCtx)
	} else {
		log.Info().Msg("REDIS_URL not set, offline push disabled")
	}

	notifier := notify.New(roster, hub, pushQueue, log)

	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer nc.Close()
		subscriber := events.NewSubscriber(notifier, log)
		if err := subscriber.Subscribe(nc, cfg.BookingSubject); err != nil {
			log.Fatal().Err(err).Msg("failed to subscribe to booking events")
		}
		defer subscriber.Close()
	}

	api := handlers.NewAPI(store, authService, roster, notifier, log)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	}()
	rt := router.New(api, authService, limiter, cfg.FrontendOrigin, presenceSync, cfg.WSSendBuffer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rt,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	stopWorkers()
	hub.Close()
	roster.Clear()
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics shutdown error")
	}
	log.Info().Msg("server stopped")
}
