package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"nbtbook/internal/audit"
	"nbtbook/internal/booking"
	bookinghandler "nbtbook/internal/booking/handler"
	"nbtbook/internal/numbering"
	"nbtbook/internal/platform/config"
	"nbtbook/internal/platform/httpserver"
	"nbtbook/internal/platform/logger"
	"nbtbook/internal/platform/metrics"
	"nbtbook/internal/platform/middleware"
	"nbtbook/internal/platform/postgres"
	platformredis "nbtbook/internal/platform/redis"
	"nbtbook/internal/ratelimit"
	"nbtbook/internal/session"
	sessionhandler "nbtbook/internal/session/handler"
	"nbtbook/internal/staff"
	staffhandler "nbtbook/internal/staff/handler"
	"nbtbook/internal/stafftoken"
	"nbtbook/internal/student"
	studenthandler "nbtbook/internal/student/handler"
	"nbtbook/internal/venue"
	venuehandler "nbtbook/internal/venue/handler"
	dErrors "nbtbook/pkg/domain-errors"
)

// main wires stores, services and handlers, then runs the HTTP server until
// interrupted. Business rules live in the internal service packages; this
// file only connects them.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)
	m := metrics.New()

	ctx := context.Background()

	staffStore, studentStore, venueStore, sessionStore, bookingStore, db := buildStores(ctx, cfg, log)
	if db != nil {
		defer db.Close()
	}

	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		fatal(log, "redis connection failed", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	publisher, closeSink := buildAudit(cfg, log)
	defer closeSink()
	defer publisher.Close()

	tokens := stafftoken.New(cfg.JWTSigningKey, cfg.JWTIssuer)

	allocator := numbering.New(studentStore,
		numbering.WithRetryBudget(cfg.AllocatorRetryBudget),
		numbering.WithLogger(log),
		numbering.WithMetrics(m),
	)

	staffService := staff.NewService(staffStore, tokens,
		staff.WithLogger(log),
		staff.WithAudit(publisher),
	)
	bootstrapAdmin(ctx, cfg, staffService, log)
	studentService := student.NewService(studentStore, allocator,
		student.WithLogger(log),
		student.WithAudit(publisher),
		student.WithMetrics(m),
	)
	venueService := venue.NewService(venueStore,
		venue.WithLogger(log),
		venue.WithAudit(publisher),
	)
	sessionService := session.NewService(sessionStore, venueService,
		session.WithLogger(log),
		session.WithAudit(publisher),
		session.WithBookingCounter(bookingStore),
	)
	bookingService := booking.NewService(bookingStore, studentService, sessionService,
		booking.WithLogger(log),
		booking.WithAudit(publisher),
		booking.WithMetrics(m),
	)

	limiter := newPublicLimiter(rdb, cfg, log, m)

	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Timeout(30 * time.Second),
		middleware.ContentTypeJSON,
		middleware.Latency(m),
	)
	router.Get("/healthz", healthz(db, rdb))
	router.Handle("/metrics", promhttp.Handler())

	staffhandler.New(staffService, tokens, log).Register(router)
	studenthandler.New(studentService, tokens, log,
		studenthandler.WithPublicLimiter(limiter.Middleware),
	).Register(router)
	venuehandler.New(venueService, tokens, log).Register(router)
	sessionhandler.New(sessionService, tokens, log).Register(router)
	bookinghandler.New(bookingService, tokens, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting nbtbook", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal(log, "graceful shutdown failed", err)
	}
	log.Info("server stopped")
}

// buildStores returns the five domain stores, postgres-backed when a
// database URL is configured and in-memory otherwise. The in-memory stores
// keep local development and demos free of infrastructure.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (staff.Store, student.Store, venue.Store, session.Store, booking.Store, *sql.DB) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, using in-memory stores")
		return staff.NewInMemoryStore(),
			student.NewInMemoryStore(),
			venue.NewInMemoryStore(),
			session.NewInMemoryStore(),
			booking.NewInMemoryStore(),
			nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal(log, "database connection failed", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		fatal(log, "database migration failed", err)
	}
	return staff.NewPostgresStore(db),
		student.NewPostgresStore(db),
		venue.NewPostgresStore(db),
		session.NewPostgresStore(db),
		booking.NewPostgresStore(db),
		db
}

// buildAudit picks the audit sink: kafka when brokers are configured,
// in-memory otherwise. The returned closer releases the kafka client after
// the publisher has drained.
func buildAudit(cfg config.Config, log *slog.Logger) (*audit.Publisher, func()) {
	var sink audit.Sink = audit.NewInMemorySink()
	closer := func() {}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			fatal(log, "kafka audit sink failed", err)
		}
		sink = kafkaSink
		closer = kafkaSink.Close
		log.Info("audit events go to kafka", "topic", cfg.AuditTopic)
	} else {
		log.Warn("no kafka brokers configured, audit events stay in memory")
	}

	publisher := audit.NewPublisher(sink,
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	return publisher, closer
}

// newPublicLimiter throttles the unauthenticated validation endpoints. With
// no redis configured the limiter is a pass-through.
func newPublicLimiter(rdb *platformredis.Client, cfg config.Config, log *slog.Logger, m *metrics.Metrics) *ratelimit.Limiter {
	var client *goredis.Client
	if rdb != nil {
		client = rdb.Client
	}
	return ratelimit.New(client, cfg.PublicRateLimit,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(m),
	)
}

// bootstrapAdmin seeds the initial admin account so a fresh deployment can
// log in. An already-registered email is fine; any other failure is fatal
// because the operator asked for an account they will not get.
func bootstrapAdmin(ctx context.Context, cfg config.Config, staffService *staff.Service, log *slog.Logger) {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return
	}
	_, err := staffService.Create(ctx, cfg.BootstrapAdminEmail, "Bootstrap Admin", cfg.BootstrapAdminPassword, staff.RoleAdmin)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return
		}
		fatal(log, "bootstrap admin creation failed", err)
	}
	log.Info("bootstrap admin created", "email", cfg.BootstrapAdminEmail)
}

func healthz(db *sql.DB, rdb *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, `{"status":"database unavailable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				http.Error(w, `{"status":"redis unavailable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
