package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/forgo/staffhub/internal/config"
	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/handler"
	"github.com/forgo/staffhub/internal/jobs"
	"github.com/forgo/staffhub/internal/middleware"
	"github.com/forgo/staffhub/internal/queue"
	"github.com/forgo/staffhub/internal/repository"
	"github.com/forgo/staffhub/internal/service"
	"github.com/forgo/staffhub/migrations"
	"github.com/forgo/staffhub/pkg/jwt"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logging
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
		SlowQuery: cfg.Database.SlowQuery,
		Logger:    logger,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Initialize JWT service
	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		PrivateKeyPEM:  cfg.JWT.PrivateKeyPEM,
		PublicKeyPEM:   cfg.JWT.PublicKeyPEM,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	jobRepo := repository.NewJobRepository(db)
	candidateRepo := repository.NewCandidateRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	placementRepo := repository.NewPlacementRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	gdprRepo := repository.NewGDPRRepository(db)
	migrationRepo := repository.NewMigrationRepository(db)

	// Initialize services
	auditService := service.NewAuditService(service.AuditServiceConfig{
		Repo:   auditRepo,
		Logger: logger,
	})

	tokenService := service.NewTokenService(service.TokenServiceConfig{
		JWTService:      jwtService,
		TokenRepo:       tokenRepo,
		RefreshDuration: cfg.JWT.RefreshDuration,
		Logger:          logger,
	})

	authService := service.NewAuthService(service.AuthServiceConfig{
		UserRepo:     userRepo,
		TokenService: tokenService,
		Auditor:      auditService,
	})

	accountService := service.NewAccountService(service.AccountServiceConfig{
		Repo:    accountRepo,
		Auditor: auditService,
	})

	jobService := service.NewJobService(service.JobServiceConfig{
		Repo:     jobRepo,
		Accounts: accountRepo,
		Auditor:  auditService,
	})

	// The classifier is optional; without an API key classify returns 503
	var classifier service.Classifier
	if cfg.Classifier.Enabled() {
		classifier = service.NewOpenAIClassifier(service.OpenAIClassifierConfig{
			Client: service.NewOpenAIClient(cfg.Classifier.APIKey, cfg.Classifier.BaseURL, cfg.Classifier.Timeout),
			Model:  cfg.Classifier.Model,
			Logger: logger,
		})
		slog.Info("resume classifier enabled", slog.String("model", cfg.Classifier.Model))
	}

	candidateService := service.NewCandidateService(service.CandidateServiceConfig{
		Repo:       candidateRepo,
		Classifier: classifier,
		Auditor:    auditService,
	})

	pipelineService := service.NewPipelineService(service.PipelineServiceConfig{
		Submissions: submissionRepo,
		Offers:      offerRepo,
		Placements:  placementRepo,
		Jobs:        jobRepo,
		Candidates:  candidateRepo,
		Auditor:     auditService,
	})

	academyService := service.NewAcademyService(service.AcademyServiceConfig{
		Courses:     courseRepo,
		Enrollments: enrollmentRepo,
		Auditor:     auditService,
	})

	quizService := service.NewQuizService(service.QuizServiceConfig{
		Quizzes: quizRepo,
		Academy: academyService,
		Auditor: auditService,
	})

	// Outreach goes to RabbitMQ when configured, otherwise it is only logged
	var dispatcher service.Dispatcher = queue.NewLogDispatcher(logger)
	if cfg.Queue.URL != "" {
		amqpDispatcher, err := queue.Dial(queue.Config{
			URL:    cfg.Queue.URL,
			Queue:  cfg.Queue.Name,
			Logger: logger,
		})
		if err != nil {
			slog.Error("failed to connect to message broker, outreach will only be logged", slog.String("error", err.Error()))
		} else {
			defer func() { _ = amqpDispatcher.Close() }()
			dispatcher = amqpDispatcher
			slog.Info("connected to message broker", slog.String("queue", cfg.Queue.Name))
		}
	}

	campaignService := service.NewCampaignService(service.CampaignServiceConfig{
		Repo:        campaignRepo,
		Candidates:  candidateRepo,
		Jobs:        jobRepo,
		Dispatcher:  dispatcher,
		Auditor:     auditService,
		Logger:      logger,
		BatchSize:   cfg.Campaign.BatchSize,
		Concurrency: cfg.Campaign.Concurrency,
	})

	gdprService := service.NewGDPRService(service.GDPRServiceConfig{
		Repo:    gdprRepo,
		Auditor: auditService,
		Logger:  logger,
	})

	importService := service.NewImportService(service.ImportServiceConfig{
		Candidates: candidateRepo,
		Jobs:       jobService,
		Accounts:   accountService,
		Auditor:    auditService,
		Logger:     logger,
		MaxRows:    cfg.Import.MaxRows,
	})

	embedded, err := migrations.Load()
	if err != nil {
		slog.Error("failed to load migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	migrationService := service.NewMigrationService(service.MigrationServiceConfig{
		Repo:       migrationRepo,
		Migrations: embedded,
		Auditor:    auditService,
		Logger:     logger,
	})

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RPS:   cfg.RateLimit.RPS,
		Burst: cfg.RateLimit.Burst,
	})
	defer rateLimiter.Stop()

	// Initialize idempotency store
	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{
		TTL:     cfg.Server.IdempotencyTTL,
		Cleanup: time.Hour,
		MaxBody: cfg.Import.MaxBodyBytes,
	})
	defer idempotencyStore.Stop()

	// Background jobs
	if cfg.Campaign.Enabled {
		campaignRunner := jobs.NewCampaignRunner(jobs.CampaignRunnerConfig{
			Engine:   campaignService,
			Interval: cfg.Campaign.Tick,
			Logger:   logger,
		})
		campaignRunner.Start()
		defer campaignRunner.Stop()
	}

	tokenCleanup := jobs.NewTokenCleanup(tokenService, time.Hour, logger)
	tokenCleanup.Start()
	defer tokenCleanup.Stop()

	// Initialize handlers
	h := handlers{
		health:     handler.NewHealthHandler(db, version),
		auth:       handler.NewAuthHandler(authService),
		adminUsers: handler.NewAdminUsersHandler(authService),
		accounts:   handler.NewAccountHandler(accountService),
		jobs:       handler.NewJobHandler(jobService),
		candidates: handler.NewCandidateHandler(candidateService),
		pipeline:   handler.NewPipelineHandler(pipelineService),
		academy:    handler.NewAcademyHandler(academyService),
		quizzes:    handler.NewQuizHandler(quizService),
		campaigns:  handler.NewCampaignHandler(campaignService),
		gdpr:       handler.NewGDPRHandler(gdprService),
		imports: handler.NewImportHandler(handler.ImportHandlerConfig{
			Importer:     importService,
			MaxBodyBytes: cfg.Import.MaxBodyBytes,
		}),
		adminOps: handler.NewAdminOpsHandler(handler.AdminOpsHandlerConfig{
			Migrations: migrationService,
			Audit:      auditService,
		}),
	}

	// Create router and register routes
	mux := http.NewServeMux()
	registerRoutes(mux, h, middleware.Auth(authService))

	// Apply global middleware
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = rateLimiter
	}
	wrapped := middleware.Chain(mux, globalMiddleware(logger, authService, cfg.Server.AllowedOrigins, limiter, idempotencyStore)...)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
