package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/blog-service/internal/api/http"
	"github.com/spec-kit/blog-service/internal/api/http/handlers"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/entitlement"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/lock"
	"github.com/spec-kit/blog-service/internal/observability"
	"github.com/spec-kit/blog-service/internal/payment"
	"github.com/spec-kit/blog-service/internal/persistence"
	"github.com/spec-kit/blog-service/internal/repository"
	"github.com/spec-kit/blog-service/internal/service"
	"github.com/spec-kit/blog-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics("blog")
	probes := map[string]handlers.Pinger{}

	var redisConn *persistence.Redis
	if cfg.Storage.Driver == config.StorageRedis || cfg.Lock.Backend == config.LockRedis {
		redisConn = persistence.NewRedis(cfg.Redis, logger)
		defer redisConn.Close()
		probes["redis"] = redisConn
	}

	var repos stores
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		probes["postgres"] = pg

		pool := pg.PoolHandle()
		repos = stores{
			users:    repository.NewUserRepository(pool),
			posts:    repository.NewPostRepository(pool),
			comments: repository.NewCommentRepository(pool),
		}
	default:
		repos = stores{
			users:    repository.NewRedisUserRepository(redisConn.Client),
			posts:    repository.NewRedisPostRepository(redisConn.Client),
			comments: repository.NewRedisCommentRepository(redisConn.Client),
		}
	}
	logger.Info("storage selected", zap.String("driver", cfg.Storage.Driver), zap.String("lock", cfg.Lock.Backend))

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Lock.Backend == config.LockRedis {
		locker = lock.NewRedisLocker(redisConn.Client, cfg.Lock.TTL, cfg.Lock.RetryPeriod, logger)
	}

	dispatcher := events.NewInMemoryDispatcher()
	var forwarder service.Forwarder
	if cfg.Broker.URL != "" {
		publisher, err := events.DialAMQP(cfg.Broker.URL, cfg.Broker.Exchange, 5, 2*time.Second)
		if err != nil {
			logger.Fatal("failed to connect amqp", zap.Error(err))
		}
		defer publisher.Close() //nolint:errcheck

		forwarding := worker.NewForwardingWorker(publisher, 0, logger)
		forwarding.Start(ctx)
		defer forwarding.Wait()
		forwarder = forwarding
	}
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, forwarder))

	evaluator := entitlement.NewEvaluator(cfg.Entitlement.FreeDailyPosts)
	gate := payment.NewGate(payment.GateDependencies{
		Users:      repos.users,
		Locker:     locker,
		Verifier:   payment.NewReferencePolicy(cfg.Bitcoin.MinReferenceLength),
		Logger:     logger,
		OnActivate: service.NewActivationListener(dispatcher, metrics, logger),
	})

	var checkout service.CheckoutProvider
	if cfg.Stripe.SecretKey != "" {
		checkout = payment.NewStripeCheckout(payment.StripeConfig{
			SecretKey:     cfg.Stripe.SecretKey,
			PriceID:       cfg.Stripe.PriceID,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			AppURL:        cfg.Stripe.AppURL,
		})
	} else {
		logger.Warn("STRIPE_SECRET_KEY not provided; card payments disabled")
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: repos.users, Logger: logger})
	postService := service.NewPostService(service.PostDependencies{
		UserRepo:    repos.users,
		PostRepo:    repos.posts,
		CommentRepo: repos.comments,
		Locker:      locker,
		Evaluator:   evaluator,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		PostRepo:    repos.posts,
		CommentRepo: repos.comments,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	subscriptionService := service.NewSubscriptionService(service.SubscriptionDependencies{
		UserRepo:  repos.users,
		Evaluator: evaluator,
		Gate:      gate,
		Checkout:  checkout,
		Bitcoin:   cfg.Bitcoin,
		Logger:    logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Blog:           handlers.NewBlogHandler(postService),
		Comments:       handlers.NewCommentHandler(commentService),
		Subscription:   handlers.NewSubscriptionHandler(subscriptionService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users),
		RateLimit:      cfg.RateLimit,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
