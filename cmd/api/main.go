package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/practice-api/internal/config"
	"github.com/jwalitptl/practice-api/internal/email"
	analyticsHandler "github.com/jwalitptl/practice-api/internal/handler/analytics"
	appointmentHandler "github.com/jwalitptl/practice-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/practice-api/internal/handler/auth"
	consultationHandler "github.com/jwalitptl/practice-api/internal/handler/consultation"
	"github.com/jwalitptl/practice-api/internal/handler/health"
	notificationHandler "github.com/jwalitptl/practice-api/internal/handler/notification"
	patientHandler "github.com/jwalitptl/practice-api/internal/handler/patient"
	profileHandler "github.com/jwalitptl/practice-api/internal/handler/profile"
	promHandler "github.com/jwalitptl/practice-api/internal/handler/prometheus"
	reportHandler "github.com/jwalitptl/practice-api/internal/handler/report"
	storageHandler "github.com/jwalitptl/practice-api/internal/handler/storage"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/repository/postgres"
	redisrepo "github.com/jwalitptl/practice-api/internal/repository/redis"
	"github.com/jwalitptl/practice-api/internal/router"
	analyticsService "github.com/jwalitptl/practice-api/internal/service/analytics"
	appointmentService "github.com/jwalitptl/practice-api/internal/service/appointment"
	authService "github.com/jwalitptl/practice-api/internal/service/auth"
	consultationService "github.com/jwalitptl/practice-api/internal/service/consultation"
	notificationService "github.com/jwalitptl/practice-api/internal/service/notification"
	patientService "github.com/jwalitptl/practice-api/internal/service/patient"
	profileService "github.com/jwalitptl/practice-api/internal/service/profile"
	reportService "github.com/jwalitptl/practice-api/internal/service/report"
	"github.com/jwalitptl/practice-api/internal/storage"
	"github.com/jwalitptl/practice-api/pkg/auth"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/messaging/redis"
	"github.com/jwalitptl/practice-api/pkg/metrics"
	"github.com/jwalitptl/practice-api/pkg/security"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "practice-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})
	zlog, err := logger.NewZap(cfg.Log.Level, cfg.Log.Format, cfg.App.Name)
	if err != nil {
		return fmt.Errorf("failed to build zap logger: %w", err)
	}
	defer zlog.Sync()

	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	broker := redis.NewRedisBroker(rdb, log.Zerolog())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry, "practice", "api")

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	consultationRepo := postgres.NewConsultationRepository(db)
	transcriptionRepo := postgres.NewTranscriptionRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	bucketRepo := postgres.NewBucketRepository(db)
	sessionRepo := redisrepo.NewSessionRepository(rdb)

	// Storage
	backend, err := storage.NewMinioBackend(cfg.Storage)
	if err != nil {
		return err
	}
	storageSvc := storage.NewService(backend, bucketRepo, m, log)
	if err := storageSvc.EnsureBuckets(ctx, storage.DefaultPolicies(cfg.Storage.AudioMaxBytes, cfg.Storage.ReportMaxBytes)); err != nil {
		return fmt.Errorf("failed to provision buckets: %w", err)
	}

	encryptor, err := security.NewAESEncryptorFromSecret(cfg.OAuth.StateSecret)
	if err != nil {
		return err
	}
	loc := cfg.App.Location()

	// Services
	notificationSvc := notificationService.NewService(notificationRepo, userRepo)
	authSvc := authService.NewService(authService.Config{
		PublicURL:     cfg.App.PublicURL,
		APIURL:        cfg.App.APIURL,
		MailViewerURL: cfg.App.MailViewerURL,
		Development:   cfg.App.IsDevelopment(),
	}, authService.Dependencies{
		Users:    userRepo,
		Profiles: profileRepo,
		Tokens:   tokenRepo,
		Sessions: sessionRepo,
		JWT: auth.NewJWTService(auth.Config{
			Secret:        cfg.JWT.Secret,
			Issuer:        cfg.JWT.Issuer,
			AccessExpiry:  cfg.JWT.AccessExpiry,
			RefreshExpiry: cfg.JWT.RefreshExpiry,
		}),
		Hasher:    security.NewBcryptHasher(bcrypt.DefaultCost),
		Encryptor: encryptor,
		Mailer: email.NewSMTPService(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, zlog),
		Broker:   broker,
		Notifier: notificationSvc,
		OAuth:    authService.NewGoogleProvider(cfg.OAuth, zlog),
		Logger:   log,
	})
	profileSvc := profileService.NewService(profileRepo)
	patientSvc := patientService.NewService(patientRepo, loc)
	appointmentSvc := appointmentService.NewService(appointmentRepo, patientRepo, outboxRepo, notificationSvc, log)
	consultationSvc := consultationService.NewService(consultationRepo, transcriptionRepo, patientRepo, appointmentRepo, storageSvc)
	reportSvc := reportService.NewService(reportService.Dependencies{
		Consultations:  consultationRepo,
		Patients:       patientRepo,
		Transcriptions: transcriptionRepo,
		Profiles:       profileRepo,
		Reports:        reportRepo,
		Store:          storageSvc,
		Metrics:        m,
		Logger:         log,
		Location:       loc,
	})
	analyticsSvc := analyticsService.NewService(analyticsService.Dependencies{
		Patients:      patientRepo,
		Appointments:  appointmentRepo,
		Consultations: consultationRepo,
		Reports:       reportRepo,
		Location:      loc,
	})

	engine, err := router.New(router.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      rate.Limit(cfg.Server.RateLimit),
		RateBurst:      cfg.Server.RateBurst,
		RequestTimeout: cfg.Server.RequestTimeout,
		UploadMaxBytes: cfg.Server.MaxBodyBytes,
		IdempotencyTTL: cfg.Server.IdempotencyTTL,
		Location:       loc,
	}, router.Handlers{
		Auth:         authHandler.NewHandler(authSvc, cfg.App.PublicURL),
		Profile:      profileHandler.NewHandler(profileSvc),
		Patient:      patientHandler.NewHandler(patientSvc),
		Appointment:  appointmentHandler.NewHandler(appointmentSvc),
		Consultation: consultationHandler.NewHandler(consultationSvc),
		Report:       reportHandler.NewHandler(reportSvc),
		Notification: notificationHandler.NewHandler(notificationSvc),
		Storage:      storageHandler.NewHandler(storageSvc),
		Analytics:    analyticsHandler.NewHandler(analyticsSvc),
		Health: health.NewHandler(map[string]health.Pinger{
			"database": db,
			"redis":    health.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		}),
		Metrics: promHandler.New(registry),
	}, middleware.NewAuthMiddleware(authSvc), rdb, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "environment", cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}
