package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-badging/internal/analytics"
	analytics_api "ms-badging/internal/analytics/api"
	"ms-badging/internal/auth"
	"ms-badging/internal/badges/badge_api"
	badge_db "ms-badging/internal/badges/db"
	badgeredis "ms-badging/internal/badges/redis"
	"ms-badging/internal/badges/service"
	"ms-badging/internal/config"
	"ms-badging/internal/database/migrations"
	"ms-badging/internal/kafka"
	"ms-badging/internal/logger"
	"ms-badging/internal/models"
	"ms-badging/internal/sse"
	"ms-badging/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	if cfg.Driver == "sqlite" {
		sqldb, err := sql.Open("sqlite", cfg.DSN())
		if err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to open SQLite: %v", err))
		}
		sqldb.SetMaxOpenConns(1)
		bunDB := bun.NewDB(sqldb, sqlitedialect.New())
		if err := (&badge_db.DB{Bun: bunDB}).CreateSchema(ctx); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to create SQLite schema: %v", err))
		}
		log.Info("DATABASE", fmt.Sprintf("✅ SQLite ready at %s", cfg.SQLitePath))
		return bunDB
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN())
		if err == nil {
			err = sqldb.PingContext(ctx)
		}
		if err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	log.Info("DATABASE", "✅ PostgreSQL connection successful")

	if cfg.AutoMigrate {
		migrationDB, err := sql.Open("postgres", cfg.DSN())
		if err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Failed to open migration connection: %v", err))
		}
		runner := migrations.NewRunner(migrationDB, migrations.Options{SourceURL: cfg.Migrations}, log)
		if err := runner.Up(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		if err := runner.Close(); err != nil {
			log.Warn("MIGRATE", err.Error())
		}
	}

	return bun.NewDB(sqldb, pgdialect.New())
}

// newLocker prefers the shared Redis lock so several replicas serialize on the
// same badge. Without Redis only this process is serialized.
func newLocker(cfg *config.Config, log *logger.Logger) (service.Locker, *redis.Client) {
	if !cfg.Redis.Enabled {
		log.Warn("REDIS", "Redis disabled, using in-process badge locks")
		return service.NewKeyedMutex(), nil
	}
	client, err := badgeredis.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unavailable (%v), using in-process badge locks", err))
		return service.NewKeyedMutex(), nil
	}
	return badgeredis.NewBadgeLock(client, cfg.Badge.LockTTL, cfg.Badge.LockWait, log), client
}

func healthHandler(bunDB *bun.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"database": "ok"}
		status := http.StatusOK

		if err := bunDB.PingContext(r.Context()); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			checks["redis"] = "ok"
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				checks["redis"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		if status != http.StatusOK {
			resp := utils.ErrorResponse("Service unhealthy", "dependency check failed")
			resp.Data = checks
			utils.WriteJSON(w, status, resp)
			return
		}
		utils.WriteJSON(w, status, utils.SuccessResponse("OK", checks))
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(".env file not found, using environment variables")
	}
	cfg := config.Load()

	log, err := logger.New(logger.Options{
		Dir:        cfg.Log.Dir,
		FilePrefix: "badge-service",
		Terminal:   os.Stdout,
		MinLevel:   logger.ParseLevel(cfg.Log.Level),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", fmt.Sprintf("Starting Badge Service for %s", cfg.Event.Name))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB := openDatabase(ctx, cfg.Database, log)
	defer bunDB.Close()

	locker, redisClient := newLocker(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	emitter := sse.NewCheckInEventEmitter()

	badgeService := service.NewBadgeService(&badge_db.DB{Bun: bunDB, Logger: log}, locker, service.Config{
		IDPrefix:        cfg.Badge.IDPrefix,
		TeamCompany:     cfg.Badge.TeamCompany,
		DefaultLocation: cfg.Badge.DefaultLocation,
		QRSize:          cfg.Badge.QRSize,
		FontPath:        cfg.Badge.FontPath,
		Event:           cfg.Event,
	}, log)
	badgeService.Notifier = emitter

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		topics := kafka.Topics{
			BadgeIssued:      cfg.Kafka.Topics.BadgeIssued,
			CheckIns:         cfg.Kafka.Topics.CheckIns,
			BadgeDeactivated: cfg.Kafka.Topics.BadgeDeactivated,
			Registrations:    cfg.Kafka.Topics.Registrations,
		}
		required := topics.Produced()
		if cfg.Kafka.ConsumeTopics {
			required = append(required, topics.Registrations)
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, required, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, topics, log)
		defer producer.Close()
		badgeService.Publisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")

		if cfg.Kafka.ConsumeTopics {
			consumer = kafka.NewConsumer(cfg.Kafka.Brokers, topics.Registrations, cfg.Kafka.GroupID, log)
			defer consumer.Close()
			go func() {
				err := consumer.Start(ctx, func(ctx context.Context, reg models.RegistrationEvent) error {
					_, err := badgeService.IssueFromRegistration(ctx, reg)
					return err
				})
				if err != nil {
					log.Error("KAFKA", fmt.Sprintf("Registration consumer stopped: %v", err))
				}
			}()
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, badge events will not be published")
	}

	analyticsService := analytics.NewService(analytics.NewDB(bunDB))
	analyticsHandler := analytics_api.NewHandler(analyticsService, emitter, log)
	badgeHandler := badge_api.NewHandler(badgeService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(bunDB, redisClient))

	r.Group(func(r chi.Router) {
		if cfg.Auth.OIDCIssuer != "" {
			verify, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
			if err != nil {
				log.Fatal("AUTH", fmt.Sprintf("Failed to initialise OIDC verifier: %v", err))
			}
			r.Use(auth.Middleware(verify, log))
			log.Info("AUTH", "OIDC middleware applied to API routes")
		} else {
			log.Warn("AUTH", "OIDC_ISSUER not set, API routes are unauthenticated")
		}

		badgeHandler.RegisterRoutes(r)
		analyticsHandler.RegisterRoutes(r)
	})
	log.Info("ROUTER", "Badge, check-in and stats routes registered under /api")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Badge Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Badge Service shutdown complete")
	}
}
