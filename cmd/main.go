package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/data/progress"
	"github.com/studylane/studylane-backend/internal/data/repos"
	"github.com/studylane/studylane-backend/internal/handlers"
	"github.com/studylane/studylane-backend/internal/middleware"
	"github.com/studylane/studylane-backend/internal/observability"
	"github.com/studylane/studylane-backend/internal/platform/envutil"
	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/platform/neo4jdb"
	"github.com/studylane/studylane-backend/internal/platform/pgdb"
	"github.com/studylane/studylane-backend/internal/platform/redisdb"
	"github.com/studylane/studylane-backend/internal/server"
	"github.com/studylane/studylane-backend/internal/services/auth"
	"github.com/studylane/studylane-backend/internal/services/cascade"
	"github.com/studylane/studylane-backend/internal/services/comments"
	"github.com/studylane/studylane-backend/internal/services/progresssync"
	"github.com/studylane/studylane-backend/internal/services/rating"
	"github.com/studylane/studylane-backend/internal/services/structure"
	"github.com/studylane/studylane-backend/internal/services/users"
)

func main() {
	// Logger
	logMode := envutil.Str("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := envutil.Str("JWT_SECRET_KEY", "defaultsecret")
	accessTokenTTL := envutil.Int("ACCESS_TOKEN_TTL", 3600)
	httpPort := envutil.Str("HTTP_PORT", "8080")
	allowOrigins := strings.Split(envutil.Str("CORS_ALLOW_ORIGINS", "http://localhost:3000"), ",")
	serviceName := envutil.Str("OTEL_SERVICE_NAME", "studylane-backend")

	// Tracing
	shutdownCtx := context.Background()
	otelShutdown := observability.InitOTel(shutdownCtx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: logMode,
	})

	// Postgres
	postgresService, err := pgdb.NewFromEnv(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis
	redisClient, err := redisdb.NewFromEnv(log)
	if err != nil {
		log.Error("Redis init failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Neo4j
	neo4jClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Error("Neo4j init failed", "error", err)
		os.Exit(1)
	}
	defer neo4jClient.Close(shutdownCtx)

	// Repos
	log.Info("Setting up Repos from main...")
	courseRepo := repos.NewCourseRepo(thePG, log)
	unitRepo := repos.NewUnitRepo(thePG, log)
	classRepo := repos.NewClassRepo(thePG, log)
	enrollmentRepo := repos.NewEnrollmentRepo(thePG, log)

	// Stores
	progressStore := progress.NewStore(redisClient.RDB, log)
	graphStore := graph.NewNeo4jStore(neo4jClient, log)
	if err := graphStore.EnsureSchema(shutdownCtx); err != nil {
		log.Warn("Graph schema init failed", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	authService := auth.NewService(jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, log)
	syncEngine := progresssync.NewEngine(progressStore, courseRepo, classRepo, log)
	ratingService := rating.NewService(graphStore, log)
	commentService := comments.NewService(graphStore, log)
	cascadeCoordinator := cascade.NewCoordinator(
		thePG,
		progressStore,
		graphStore,
		courseRepo,
		unitRepo,
		classRepo,
		enrollmentRepo,
		log,
	)
	userService := users.NewService(progressStore, graphStore, cascadeCoordinator, log)
	structureService := structure.NewService(
		courseRepo,
		unitRepo,
		classRepo,
		enrollmentRepo,
		progressStore,
		graphStore,
		log,
	)

	// Handlers
	log.Info("Setting up Handlers from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)
	router := server.NewRouter(server.RouterConfig{
		ServiceName:     serviceName,
		AllowOrigins:    allowOrigins,
		AuthMiddleware:  authMiddleware,
		AuthHandler:     handlers.NewAuthHandler(log, userService, authService),
		UserHandler:     handlers.NewUserHandler(log, userService),
		CourseHandler:   handlers.NewCourseHandler(log, structureService, cascadeCoordinator),
		UnitHandler:     handlers.NewUnitHandler(log, structureService),
		ClassHandler:    handlers.NewClassHandler(log, structureService),
		ProgressHandler: handlers.NewProgressHandler(log, syncEngine),
		RatingHandler:   handlers.NewRatingHandler(log, ratingService),
		CommentHandler:  handlers.NewCommentHandler(log, commentService),
	})

	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(shutdownCtx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("HTTP shutdown failed", "error", err)
	}
	if otelShutdown != nil {
		if err := otelShutdown(ctx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}
}
