package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-od-api/internal/handler"
	"github.com/noah-isme/campus-od-api/internal/models"
	"github.com/noah-isme/campus-od-api/internal/repository"
	"github.com/noah-isme/campus-od-api/internal/service"
	"github.com/noah-isme/campus-od-api/pkg/cache"
	"github.com/noah-isme/campus-od-api/pkg/config"
	"github.com/noah-isme/campus-od-api/pkg/database"
	"github.com/noah-isme/campus-od-api/pkg/jobs"
	"github.com/noah-isme/campus-od-api/pkg/logger"
	"github.com/noah-isme/campus-od-api/pkg/mailer"
	"github.com/noah-isme/campus-od-api/pkg/validation"
)

// @title Campus OD API
// @version 1.0.0
// @description On-duty request submission and faculty review
// @BasePath /
// @schemes http

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		err = serve(cfg, logr)
	case "create-faculty":
		err = runCreateFaculty(cfg, os.Args[2:])
	case "-h", "--help", "help":
		printUsage(os.Stdout)
		return
	default:
		printUsage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		logr.Fatal("command failed", zap.String("command", command), zap.Error(err))
	}
}

func runCreateFaculty(cfg *config.Config, args []string) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	users := service.NewUserService(repository.NewUserRepository(db), validation.New(cfg.OD.EmailDomain), nil)
	cli := &commandLine{users: users, out: os.Stdout}
	return cli.createFaculty(ctx, args)
}

func serve(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, od list cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validator := validation.New(cfg.OD.EmailDomain)

	userRepo := repository.NewUserRepository(db)
	odRepo := repository.NewODRequestRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.OD.CacheTTL, logr, cfg.OD.CacheEnabled && redisClient != nil)

	var sender mailer.Sender
	if cfg.SMTP.Enabled {
		sender = mailer.NewSMTPSender(cfg.SMTP)
	}
	notifier := service.NewNotificationService(sender, metrics, logr, jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.Retries,
		RetryDelay: cfg.Notify.RetryDelay,
	})
	notifier.Start(ctx)
	defer notifier.Stop()

	authSvc := service.NewAuthService(userRepo, validator, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	odSvc := service.NewODRequestService(odRepo, userRepo, logr,
		service.WithODValidator(validator),
		service.WithODCache(cacheSvc, cfg.OD.CacheTTL),
		service.WithODNotifier(notifier),
		service.WithODMetrics(metrics),
		service.WithTransitionPolicy(models.PolicyFor(cfg.OD.StrictTransitions)),
	)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = redisPinger{redisClient}
	}

	router := newRouter(routerDeps{
		cfg:     cfg,
		logger:  logr,
		metrics: metrics,
		tokens:  authSvc,
		audit:   userRepo,
		auth:    handler.NewAuthHandler(authSvc),
		od:      handler.NewODHandler(odSvc),
		users:   handler.NewUserHandler(service.NewUserService(userRepo, validator, logr)),
		ops:     handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("transition_policy", string(odSvc.Policy())),
			zap.Bool("cache", cacheSvc.Enabled()),
			zap.Bool("notifications", sender != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
