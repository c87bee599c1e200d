package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/studylane/studylane-backend/internal/handlers"
	"github.com/studylane/studylane-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName    string
	AllowOrigins   []string
	AuthMiddleware *middleware.AuthMiddleware

	AuthHandler     *handlers.AuthHandler
	UserHandler     *handlers.UserHandler
	CourseHandler   *handlers.CourseHandler
	UnitHandler     *handlers.UnitHandler
	ClassHandler    *handlers.ClassHandler
	ProgressHandler *handlers.ProgressHandler
	RatingHandler   *handlers.RatingHandler
	CommentHandler  *handlers.CommentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/health", handlers.HealthCheck)
	router.POST("/api/auth/register", cfg.AuthHandler.Register)
	router.POST("/api/auth/login", cfg.AuthHandler.Login)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Users
	api.GET("/me", cfg.UserHandler.GetMe)
	api.PUT("/me/password", cfg.UserHandler.ChangePassword)
	api.GET("/users", cfg.UserHandler.List)
	api.GET("/users/:id", cfg.UserHandler.GetByID)
	api.DELETE("/users/:id", cfg.UserHandler.Delete)

	// Courses
	api.POST("/courses", cfg.CourseHandler.Create)
	api.GET("/courses", cfg.CourseHandler.List)
	api.GET("/courses/:id", cfg.CourseHandler.Get)
	api.PUT("/courses/:id", cfg.CourseHandler.Update)
	api.DELETE("/courses/:id", cfg.CourseHandler.Delete)
	api.POST("/courses/:id/enroll", cfg.CourseHandler.Enroll)
	api.DELETE("/courses/:id/enroll", cfg.CourseHandler.Unenroll)
	api.PUT("/courses/:id/instructor", cfg.CourseHandler.AssignInstructor)
	api.POST("/courses/:id/units", cfg.UnitHandler.Create)
	api.GET("/courses/:id/units", cfg.UnitHandler.ListByCourse)
	api.GET("/courses/:id/comments", cfg.CommentHandler.ListByCourse)
	api.GET("/courses/:id/comments/top", cfg.CommentHandler.TopByCourse)

	// Units
	api.GET("/units/:id", cfg.UnitHandler.Get)
	api.PUT("/units/:id", cfg.UnitHandler.Update)
	api.DELETE("/units/:id", cfg.UnitHandler.Delete)
	api.POST("/units/:id/classes", cfg.ClassHandler.Create)

	// Classes
	api.GET("/classes/:id", cfg.ClassHandler.Get)
	api.PUT("/classes/:id", cfg.ClassHandler.Update)
	api.DELETE("/classes/:id", cfg.ClassHandler.Delete)
	api.POST("/classes/:id/publish", cfg.ClassHandler.Publish)
	api.POST("/classes/:id/unpublish", cfg.ClassHandler.Unpublish)
	api.POST("/classes/:id/materials", cfg.ClassHandler.AddMaterial)
	api.DELETE("/classes/:id/materials", cfg.ClassHandler.RemoveMaterial)

	// Progress
	api.POST("/progress/sync", cfg.ProgressHandler.SyncAll)
	api.GET("/progress/courses/:courseId", cfg.ProgressHandler.Sync)
	api.POST("/progress/courses/:courseId/items/:itemId", cfg.ProgressHandler.MarkItemCompleted)
	api.POST("/progress/courses/:courseId/reset", cfg.ProgressHandler.Reset)

	// Ratings
	api.POST("/ratings/:courseId", cfg.RatingHandler.Rate)
	api.PUT("/ratings/:courseId", cfg.RatingHandler.Update)
	api.DELETE("/ratings/:courseId", cfg.RatingHandler.Remove)
	api.GET("/ratings/:courseId", cfg.RatingHandler.Stats)
	api.GET("/ratings/:courseId/me", cfg.RatingHandler.GetMine)
	api.GET("/ratings/:courseId/all", cfg.RatingHandler.List)

	// Comments
	api.POST("/comments", cfg.CommentHandler.Create)
	api.GET("/comments", cfg.CommentHandler.List)
	api.GET("/comments/:id", cfg.CommentHandler.Get)
	api.PUT("/comments/:id", cfg.CommentHandler.Update)
	api.DELETE("/comments/:id", cfg.CommentHandler.Delete)
	api.POST("/comments/:id/react", cfg.CommentHandler.React)

	return router
}
