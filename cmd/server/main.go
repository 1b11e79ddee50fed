// Package main is the entry point for the APU Code Collab API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/apu-code-collab/apcc-api/internal/api/v1"
	"github.com/apu-code-collab/apcc-api/internal/auth"
	"github.com/apu-code-collab/apcc-api/internal/config"
	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/github"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/service"
	"github.com/apu-code-collab/apcc-api/internal/utils"
	"github.com/apu-code-collab/apcc-api/internal/worker"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	// Initialize structured logger
	utils.InitLogger(cfg.Environment, v1.ServiceName)

	metricsCollector := utils.NewMetricsCollector()

	// Tracing is exported only when a collector is configured.
	ctx := context.Background()
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := utils.InitTracer(ctx, v1.ServiceName, version, cfg.OTLPEndpoint)
		if err != nil {
			utils.Error("failed to initialize tracer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdownTracer()
	}

	// Initialize database connection
	connectCtx, cancelConnect := context.WithTimeout(ctx, 10*time.Second)
	db, err := repository.Connect(connectCtx, cfg.DatabaseURL)
	cancelConnect()
	if err != nil {
		utils.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(ctx, time.Minute)
	err = db.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		utils.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Redis is optional: without it caching is skipped and rate limits fail open.
	var redisClient *repository.RedisClient
	if cfg.RedisAddr != "" {
		redisClient, err = repository.NewRedisClient(repository.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			utils.Warn("failed to connect to Redis, running without cache", slog.String("error", err.Error()))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	repos := repository.NewRepositories(db)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, v1.ServiceName, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())

	githubFactory := github.NewFactory(github.Options{Metrics: metricsCollector})
	githubOAuth := github.NewOAuth(github.OAuthConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubCallbackURL,
	})
	if !githubOAuth.Configured() {
		utils.Warn("GitHub OAuth credentials are not set, account linking will fail")
	}

	services := buildServices(repos, jwtManager, githubFactory, githubOAuth)

	if redisClient != nil {
		cacheService := service.NewCacheService(redisClient, metricsCollector)
		services.Cache = cacheService

		// Inject cache service into existing services
		if userSvc, ok := services.Users.(*service.UserServiceImpl); ok {
			userSvc.SetCacheService(cacheService)
		}
		if ghSvc, ok := services.GitHubAuth.(*service.GitHubAuthServiceImpl); ok {
			ghSvc.SetCacheService(cacheService)
		}
		if repoSvc, ok := services.Repositories.(*service.RepositoryServiceImpl); ok {
			repoSvc.SetCacheService(cacheService)
		}
	}

	tokenCleanup := worker.NewTokenCleanupWorker(repos.RefreshTokens, metricsCollector)
	profileSync := worker.NewProfileSyncWorker(repos.Users, services.GitHubAuth)

	server := &http.Server{
		Addr:              cfg.GetAddr(),
		Handler:           v1.NewRouter(services, cfg, metricsCollector, db).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	tokenCleanup.Start(true)
	profileSync.Start(false)

	go func() {
		utils.Info("server starting",
			slog.String("addr", cfg.GetAddr()),
			slog.String("env", cfg.Environment),
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Error("server failed to start", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-quit
	utils.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	if err := tokenCleanup.Stop(shutdownCtx); err != nil {
		utils.Error("token cleanup shutdown error", slog.String("error", err.Error()))
	}
	if err := profileSync.Stop(shutdownCtx); err != nil {
		utils.Error("profile sync shutdown error", slog.String("error", err.Error()))
	}

	utils.Info("server stopped gracefully")
}

// buildServices wires every service onto repos.
func buildServices(repos *repository.Repositories, jwtManager *auth.JWTManager, factory *github.Factory, oauth *github.OAuth) *service.Services {
	clients := service.GitHubClientsFrom(factory)
	authSvc := service.NewAuthService(repos, jwtManager)

	return &service.Services{
		Auth:                 authSvc,
		Users:                service.NewUserService(repos),
		GitHubAuth:           service.NewGitHubAuthService(repos, oauth, clients, authSvc),
		Frameworks:           service.NewCatalogService[domain.Framework](repos.Frameworks, repos.Audit),
		ProgrammingLanguages: service.NewCatalogService[domain.ProgrammingLanguage](repos.ProgrammingLanguages, repos.Audit),
		Courses:              service.NewCourseService(repos.Courses),
		Repositories:         service.NewRepositoryService(repos, clients),
		Seeder:               service.NewSeeder(repos),
	}
}
