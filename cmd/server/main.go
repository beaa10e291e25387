// Command server runs the credential verification API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certiva/internal/business"
	businesshandler "certiva/internal/business/handler"
	"certiva/internal/dashboard"
	dashboardhandler "certiva/internal/dashboard/handler"
	"certiva/internal/identity"
	"certiva/internal/institution"
	institutionhandler "certiva/internal/institution/handler"
	"certiva/internal/notify"
	"certiva/internal/owner"
	ownerhandler "certiva/internal/owner/handler"
	"certiva/internal/platform/config"
	"certiva/internal/platform/httpserver"
	"certiva/internal/platform/logger"
	"certiva/internal/platform/metrics"
	"certiva/internal/platform/middleware"
	platformredis "certiva/internal/platform/redis"
	"certiva/internal/storage"
	"certiva/internal/verification"
	verificationhandler "certiva/internal/verification/handler"
	"certiva/pkg/platform/audit"
	auditpublisher "certiva/pkg/platform/audit/publisher"
	auditmemory "certiva/pkg/platform/audit/store/memory"
	auditpostgres "certiva/pkg/platform/audit/store/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	// Stores: postgres when a database is configured, in-memory otherwise.
	var (
		ownerStore    owner.Store
		instStore     institution.Store
		certStore     institution.CertificateStore
		businessStore business.Store
		requestStore  verification.Store
		auditStore    audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := storage.Apply(context.Background(), db); err != nil {
			log.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		ownerStore = owner.NewPostgres(db)
		instStore = institution.NewPostgres(db)
		certStore = institution.NewPostgresCertificates(db)
		businessStore = business.NewPostgres(db)
		requestStore = verification.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		log.Info("using postgres stores")
	} else {
		ownerStore = owner.NewInMemoryStore()
		instStore = institution.NewInMemoryStore()
		certStore = institution.NewInMemoryCertificateStore()
		businessStore = business.NewInMemoryStore()
		requestStore = verification.NewInMemoryStore()
		auditStore = auditmemory.New()
		log.Info("using in-memory stores")
	}

	// Optional Kafka audit fan-out.
	var publisher audit.Publisher
	kafka, err := auditpublisher.NewKafka(cfg.KafkaBrokers, cfg.KafkaAuditTopic, log)
	if err != nil {
		log.Error("failed to connect kafka audit publisher", "error", err)
		os.Exit(1)
	}
	if kafka != nil {
		defer kafka.Close()
		publisher = kafka
		log.Info("audit events published to kafka", "topic", cfg.KafkaAuditTopic)
	}
	recorder := audit.NewRecorder(auditStore, publisher, log)

	// Optional Redis-backed confirm-attempt throttle.
	var limiter verification.AttemptLimiter = verification.NopLimiter{}
	if cfg.MaxConfirmAttempts > 0 {
		redisClient, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		if redisClient != nil {
			defer redisClient.Close()
			limiter = verification.NewRedisLimiter(redisClient.Client, cfg.MaxConfirmAttempts, cfg.ConfirmAttemptsWindow)
		} else {
			limiter = verification.NewInMemoryLimiter(cfg.MaxConfirmAttempts, cfg.ConfirmAttemptsWindow)
		}
	}

	m := metrics.New()

	// OTP delivery: console always, email when SMTP is configured.
	dispatcher := notify.NewDispatcher(log,
		func(failed bool) {
			m.DeliveriesAttempted.Inc()
			if failed {
				m.DeliveriesFailed.Inc()
			}
		},
		notify.NewConsole(log),
		notify.NewSMTP(cfg.SMTPAddr, cfg.SMTPFrom),
	)

	ownerService := owner.NewService(ownerStore, certStore)
	institutionService := institution.NewService(instStore, certStore, ownerService, recorder)
	businessService := business.NewService(businessStore, recorder)
	verificationService := verification.NewService(
		requestStore, ownerService, businessService, institutionService,
		dispatcher, recorder, limiter, m, log,
	)

	dashboardService := dashboard.NewService(ownerStore, instStore, businessStore, requestStore)

	tokens := identity.NewTokenService(cfg.JWTSigningKey, cfg.JWTIssuer)

	dashboardHandler := dashboardhandler.New(dashboardService, log)
	ownerHandler := ownerhandler.New(ownerService, log)
	institutionHandler := institutionhandler.New(institutionService, log)
	businessHandler := businesshandler.New(businessService, log)
	verificationHandler := verificationhandler.New(verificationService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Anonymous owner surface: self-registration and OTP confirmation.
	r.Group(func(r chi.Router) {
		ownerHandler.RegisterPublic(r)
		verificationHandler.RegisterPublic(r)
	})

	// Dashboard: public counts, role flags for signed-in callers.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(tokens))
		dashboardHandler.Register(r)
	})

	// Everything else requires a bearer token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, log))
		ownerHandler.RegisterProtected(r)
		institutionHandler.Register(r)
		businessHandler.Register(r)
		verificationHandler.RegisterProtected(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}
}
