// Package server provides HTTP server setup and configuration.
package server

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/greencoach/greencoach-service/internal/auth"
	"github.com/greencoach/greencoach-service/internal/catalog"
	"github.com/greencoach/greencoach-service/internal/config"
	"github.com/greencoach/greencoach-service/internal/email"
	"github.com/greencoach/greencoach-service/internal/events"
	"github.com/greencoach/greencoach-service/internal/handlers"
	"github.com/greencoach/greencoach-service/internal/logging"
	"github.com/greencoach/greencoach-service/internal/middleware"
	"github.com/greencoach/greencoach-service/internal/repository"
)

// Dependencies holds all dependencies needed to create a server
type Dependencies struct {
	Config *config.Config

	// DB is pinged by the health check; nil skips the ping
	DB handlers.Pinger

	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	ResetCodeRepo    repository.ResetCodeRepository
	PostRepo         repository.PostRepository
	CommentRepo      repository.CommentRepository
	NotificationRepo repository.NotificationRepository

	EmailService email.Service // Optional: nil disables password reset
	Catalog      *catalog.Catalog
	CO2          handlers.CO2Source
	News         handlers.NewsSource
	Publisher    events.Publisher // Optional: nil drops community events

	// Redis shares rate limit counters across instances; nil keeps them in memory
	Redis *redis.Client
}

func (d *Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("server: config is required")
	case d.UserRepo == nil || d.RefreshTokenRepo == nil || d.ResetCodeRepo == nil:
		return errors.New("server: account repositories are required")
	case d.PostRepo == nil || d.CommentRepo == nil || d.NotificationRepo == nil:
		return errors.New("server: community repositories are required")
	case d.Catalog == nil || d.CO2 == nil || d.News == nil:
		return errors.New("server: catalog, CO2 and news sources are required")
	}
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Encoding", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// New creates a new Gin router with all routes configured
func New(deps *Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	generalLimiter, err := middleware.NewRateLimiter(cfg.RateLimit.General, "general", deps.Redis)
	if err != nil {
		return nil, err
	}
	authLimiter, err := middleware.NewRateLimiter(cfg.RateLimit.Auth, "auth", deps.Redis)
	if err != nil {
		return nil, err
	}

	// gin.New instead of gin.Default: access logs go through zap
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Route not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method_not_allowed", "message": "Method not allowed"})
	})

	router.Use(middleware.RequestID())
	router.Use(logging.Middleware())
	router.Use(logging.Recovery())
	router.Use(cors.New(corsConfig(cfg.Server.CORSAllowedOrigins)))
	// The greeting body is served byte for byte, never compressed
	router.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithDecompressFn(gzip.DefaultDecompressHandle),
		gzip.WithExcludedPaths([]string{"/api/hello"}),
	))

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTokenTTL, cfg.Auth.JWTRefreshTokenTTL)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	authHandler := handlers.NewAuthHandler(deps.UserRepo, deps.RefreshTokenRepo, deps.ResetCodeRepo, jwtService).
		WithResetCodeTTL(cfg.Auth.ResetCodeTTL)
	userHandler := handlers.NewUserHandler(deps.UserRepo, deps.RefreshTokenRepo)
	if deps.EmailService != nil {
		authHandler = authHandler.WithEmailService(deps.EmailService)
		userHandler = userHandler.WithEmailService(deps.EmailService)
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
	co2Handler := handlers.NewCO2Handler(deps.CO2)
	newsHandler := handlers.NewNewsHandler(deps.News)

	notifier := handlers.NewNotifier(deps.NotificationRepo, deps.Publisher)
	postHandler := handlers.NewPostHandler(deps.PostRepo, deps.UserRepo, notifier)
	commentHandler := handlers.NewCommentHandler(deps.PostRepo, deps.CommentRepo, deps.UserRepo, notifier)
	notificationHandler := handlers.NewNotificationHandler(deps.NotificationRepo)

	api := router.Group("/api")
	{
		// Not rate limited
		api.GET("/hello", handlers.GreetingHandler)
		api.GET("/health", healthHandler.Health)

		limited := api.Group("", generalLimiter)
		limited.GET("/categories", catalogHandler.ListCategories)
		limited.GET("/categories/:name/sub", catalogHandler.ListSubcategories)
		limited.GET("/subcategories/search", catalogHandler.Search)
		limited.GET("/subcategories/:key/detail", catalogHandler.Detail)
		limited.GET("/co2/world", co2Handler.World)
		limited.GET("/co2/korea", co2Handler.Korea)
		limited.GET("/news", newsHandler.Search)
	}

	authGroup := router.Group("/auth", authLimiter)
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/nickname/check", authHandler.CheckNickname)
		authGroup.POST("/refresh", authHandler.RefreshToken)
		authGroup.POST("/logout", authMiddleware.Required(), authHandler.Logout)
		authGroup.POST("/forgot", authHandler.ForgotPassword)
		authGroup.POST("/verify", authHandler.VerifyCode)
		authGroup.POST("/reset", authHandler.ResetPassword)
	}

	users := router.Group("/users", generalLimiter, authMiddleware.Required())
	{
		users.GET("/me", userHandler.GetProfile)
		users.PATCH("/me", userHandler.UpdateProfile)
		users.POST("/me/change-password", userHandler.ChangePassword)
	}

	community := router.Group("/community", generalLimiter)
	{
		community.GET("/feed", authMiddleware.Optional(), postHandler.Feed)
		community.GET("/posts/:postId/comments", authMiddleware.Optional(), commentHandler.ListComments)

		member := community.Group("", authMiddleware.Required())
		member.POST("/posts", postHandler.CreatePost)
		member.POST("/posts/:postId/like", postHandler.LikePost)
		member.POST("/posts/:postId/comments", commentHandler.CreateComment)
		member.POST("/comments/:commentId/like", commentHandler.LikeComment)
		member.DELETE("/comments/:commentId", commentHandler.DeleteComment)

		member.GET("/notifications", notificationHandler.List)
		member.GET("/notifications/meta", notificationHandler.Meta)
		member.POST("/notifications/read-all", notificationHandler.ReadAll)
		member.POST("/notifications/read", notificationHandler.Read)
		member.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	return router, nil
}
