package router

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/handlers"
	"github.com/socialgraph/backend/internal/metrics"
	"github.com/socialgraph/backend/internal/middleware"
	"github.com/socialgraph/backend/internal/repositories"
	"github.com/socialgraph/backend/internal/services"
	"github.com/socialgraph/backend/internal/storage"
	"github.com/socialgraph/backend/internal/validators"
)

// Repositories are the storage dependencies of the services.
type Repositories struct {
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Comments      repositories.CommentRepository
	Notifications repositories.NotificationRepository
	Fanout        services.FanoutEnqueuer
}

// Services groups the application services shared by the HTTP layer, the
// fan-out worker and the maintenance commands.
type Services struct {
	Users         *services.UserService
	Graph         *services.GraphService
	Posts         *services.PostService
	Feed          *services.FeedService
	Notifications *services.NotificationService
}

func NewServices(repos Repositories, m *metrics.Metrics, logger *slog.Logger) *Services {
	notifications := services.NewNotificationService(repos.Notifications, repos.Users, m, logger)
	return &Services{
		Users:         services.NewUserService(repos.Users, logger),
		Graph:         services.NewGraphService(repos.Users, notifications, logger),
		Posts:         services.NewPostService(repos.Posts, repos.Comments, repos.Users, notifications, repos.Fanout, logger),
		Feed:          services.NewFeedService(repos.Users, repos.Posts, m, logger),
		Notifications: notifications,
	}
}

// Options configures the HTTP surface.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	Media     storage.Store
	// Firebase enables POST /auth/firebase when set.
	Firebase middleware.IDTokenVerifier
	// UploadDir is served at /uploads when set.
	UploadDir string
	Logger    *slog.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, svc *Services, opts Options) {
	e.Validator = validators.NewValidator()

	e.GET("/health", handlers.HealthCheck)
	if opts.UploadDir != "" {
		e.Static("/uploads", opts.UploadDir)
	}

	auth := middleware.JWTAuth(opts.JWTSecret)
	var firebaseAuth echo.MiddlewareFunc
	if opts.Firebase != nil {
		firebaseAuth = middleware.FirebaseAuth(opts.Firebase)
	}

	g := e.Group("")

	handlers.NewAuthHandler(svc.Users, opts.JWTSecret, opts.TokenTTL, opts.Logger).RegisterAuthRoutes(g, firebaseAuth)
	handlers.NewUserHandler(svc.Users, svc.Posts, opts.Media).RegisterUserRoutes(g, auth)
	handlers.NewFollowHandler(svc.Graph).RegisterFollowRoutes(g, auth)
	handlers.NewPostHandler(svc.Posts, opts.Media).RegisterPostRoutes(g, auth)
	handlers.NewLikeHandler(svc.Posts).RegisterLikeRoutes(g, auth)
	handlers.NewCommentHandler(svc.Posts).RegisterCommentRoutes(g, auth)
	handlers.NewFeedHandler(svc.Feed).RegisterFeedRoutes(g, auth)
	handlers.NewNotificationHandler(svc.Notifications).RegisterNotificationRoutes(g, auth)

	opts.Logger.Info("routes configured", "routes", len(e.Routes()), "firebase_login", opts.Firebase != nil)
}
