package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicops/clinic-core/internal/access"
	"github.com/clinicops/clinic-core/internal/audit"
	"github.com/clinicops/clinic-core/internal/gate"
	"github.com/clinicops/clinic-core/internal/gateway"
	"github.com/clinicops/clinic-core/internal/identity"
	"github.com/clinicops/clinic-core/internal/scheduling"
	"github.com/clinicops/clinic-core/pkg/config"
	"github.com/clinicops/clinic-core/pkg/database"
	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/monitoring"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.LogLevel)

	// Tracing is optional
	tracing := monitoring.NewNoopTracingManager()
	if cfg.Tracing.Enabled {
		tracing, err = monitoring.NewTracingManager(&monitoring.TracingConfig{
			ServiceName:    cfg.Monitoring.ServiceName,
			ServiceVersion: cfg.Tracing.ServiceVersion,
			JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
			Environment:    cfg.Tracing.Environment,
			SamplingRate:   cfg.Tracing.SamplingRate,
		})
		if err != nil {
			appLogger.Fatalf("Failed to initialize tracing: %v", err)
		}
	}
	metrics := monitoring.NewMetricsCollector(cfg.Monitoring.ServiceName)
	health := monitoring.NewHealthManager(cfg.Monitoring.ServiceName, cfg.Tracing.ServiceVersion)

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.CreateSchema(ctx)
		cancel()
		if err != nil {
			appLogger.Fatalf("Failed to create schema: %v", err)
		}
	}
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))
	health.RegisterChecker("overlap_guards", monitoring.HealthCheckFunc(func(ctx context.Context) monitoring.HealthCheck {
		missing, err := db.MissingOverlapGuards(ctx)
		switch {
		case err != nil:
			return monitoring.HealthCheck{Status: monitoring.HealthStatusUnhealthy, Message: err.Error()}
		case len(missing) > 0:
			return monitoring.HealthCheck{
				Status:  monitoring.HealthStatusDegraded,
				Message: "appointment overlap constraints missing",
				Details: map[string]interface{}{"missing": missing},
			}
		}
		return monitoring.HealthCheck{Status: monitoring.HealthStatusHealthy}
	}))

	// Session store: Redis when configured, in-process otherwise
	var sessions identity.SessionStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer client.Close()
		sessions = identity.NewRedisSessionStore(client, cfg.Session.KeyPrefix)
		health.RegisterChecker("redis", monitoring.NewRedisHealthChecker(client))
	} else {
		appLogger.Warn("No Redis address configured; sessions will not survive a restart")
		sessions = identity.NewMemorySessionStore()
	}

	recorder := audit.NewRecorder(
		audit.NewMultiSink(audit.NewPostgresSink(db), audit.NewLogSink(appLogger)),
		appLogger,
		metrics,
	)

	users := identity.NewUserRepository(db, appLogger)
	identityService := identity.NewService(identity.Options{
		Users:      users,
		Sessions:   sessions,
		Tokens:     identity.NewTokenIssuer(cfg.Session.SecretKey, cfg.Session.Issuer),
		Passwords:  identity.NewPasswordManager(0),
		Recorder:   recorder,
		Metrics:    metrics,
		Logger:     appLogger,
		SessionTTL: cfg.Session.TTL,
	})
	roleGate := gate.New(identityService, identityService, users, recorder, metrics, appLogger)

	schedulingService := scheduling.NewService(scheduling.Options{
		Store:    scheduling.NewRepository(db, appLogger),
		Users:    users,
		Access:   access.NewEvaluator(access.NewRepository(db), metrics, appLogger),
		Recorder: recorder,
		Metrics:  metrics,
		Tracing:  tracing,
		Logger:   appLogger,
		Config:   cfg.Scheduling,
	})

	server := gateway.NewService(gateway.Options{
		Config:     cfg,
		Identity:   identityService,
		Gate:       roleGate,
		Users:      users,
		Scheduling: scheduling.NewHandler(schedulingService, appLogger),
		Health:     health,
		Metrics:    metrics,
		Tracing:    tracing,
		Logger:     appLogger,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down clinic-core...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		appLogger.Errorf("Error during shutdown: %v", err)
	}
	if err := tracing.Shutdown(ctx); err != nil {
		appLogger.Errorf("Failed to flush traces: %v", err)
	}
	appLogger.Info("clinic-core stopped")
}
