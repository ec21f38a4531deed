package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/http/handlers"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/config"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Blog           *handlers.BlogHandler
	Comments       *handlers.CommentHandler
	Subscription   *handlers.SubscriptionHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimit      config.RateLimitConfig
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	requireAuth := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth", RateLimitMiddleware(cfg.RateLimit.AuthPerSecond, cfg.RateLimit.AuthBurst))
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/guest", cfg.Auth.Guest)

	// Static segments go first so they are not captured by /:id.
	blog := api.Group("/blog", requireAuth)
	blog.Get("/total", cfg.Blog.Total)
	blog.Get("/search/:term", cfg.Blog.Search)
	blog.Get("/tag/:name", cfg.Blog.ByTag)
	blog.Get("/:page/:pageSize", cfg.Blog.List)
	blog.Get("/:id", cfg.Blog.Get)
	blog.Post("/", cfg.Blog.Create)
	blog.Put("/:id", cfg.Blog.Update)
	blog.Delete("/:id", cfg.Blog.Delete)
	blog.Post("/:id/tags", cfg.Blog.AddTag)

	comments := api.Group("/comment", requireAuth)
	comments.Get("/:blogId", cfg.Comments.List)
	comments.Post("/:blogId", cfg.Comments.Create)
	comments.Put("/:blogId/:id", cfg.Comments.Update)

	// The webhook is called by the processor and authenticates by signature.
	api.Post("/subscription/webhook", cfg.Subscription.Webhook)

	subscription := api.Group("/subscription", requireAuth)
	subscription.Get("/check", cfg.Subscription.Check)
	subscription.Post("/create-session", cfg.Subscription.CreateSession)
	subscription.Get("/bitcoin/info", cfg.Subscription.BitcoinInfo)
	subscription.Post("/bitcoin/verify", cfg.Subscription.VerifyBitcoin)
}
