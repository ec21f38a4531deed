package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/api/http/handlers"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/entitlement"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/lock"
	"github.com/spec-kit/blog-service/internal/observability"
	"github.com/spec-kit/blog-service/internal/payment"
	"github.com/spec-kit/blog-service/internal/repository"
	"github.com/spec-kit/blog-service/internal/service"
)

type errorBody struct {
	Message string `json:"message"`
	Error   struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestApp(t *testing.T, rl config.RateLimitConfig) *fiber.App {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			Issuer:                "blog-test",
			AccessTokenTTLMinutes: 30,
			BcryptCost:            4,
		},
		Bitcoin: config.BitcoinConfig{Address: "bc1qtest", Price: 0.001, MinReferenceLength: 10},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics("blog_test")

	users := repository.NewRedisUserRepository(client)
	posts := repository.NewRedisPostRepository(client)
	comments := repository.NewRedisCommentRepository(client)
	locker := lock.NewKeyedMutex()
	evaluator := entitlement.NewEvaluator(1)
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: users, Logger: logger})
	postService := service.NewPostService(service.PostDependencies{
		UserRepo:    users,
		PostRepo:    posts,
		CommentRepo: comments,
		Locker:      locker,
		Evaluator:   evaluator,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		PostRepo:    posts,
		CommentRepo: comments,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	gate := payment.NewGate(payment.GateDependencies{
		Users:      users,
		Locker:     locker,
		Verifier:   payment.NewReferencePolicy(cfg.Bitcoin.MinReferenceLength),
		Logger:     logger,
		OnActivate: service.NewActivationListener(dispatcher, metrics, logger),
	})
	subscriptionService := service.NewSubscriptionService(service.SubscriptionDependencies{
		UserRepo:  users,
		Evaluator: evaluator,
		Gate:      gate,
		Bitcoin:   cfg.Bitcoin,
		Logger:    logger,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("blog-test", "test", map[string]handlers.Pinger{}, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Blog:           handlers.NewBlogHandler(postService),
		Comments:       handlers.NewCommentHandler(commentService),
		Subscription:   handlers.NewSubscriptionHandler(subscriptionService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users),
		RateLimit:      rl,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func register(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	var resp struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	status := call(t, app, fiber.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": username, "password": "secret123", "firstname": "Test", "lastname": "User",
	}, &resp)
	require.Equal(t, fiber.StatusCreated, status)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, username, resp.Username)
	return resp.Token
}

func newPost(title string, tags ...string) fiber.Map {
	tagList := make([]fiber.Map, 0, len(tags))
	for _, tag := range tags {
		tagList = append(tagList, fiber.Map{"name": tag})
	}
	return fiber.Map{"name": title, "content": "body of " + title, "tags": tagList}
}

func TestAuthEndpoints(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{})
	register(t, app, "alice")

	var dup errorBody
	status := call(t, app, fiber.MethodPost, "/api/auth/register", "", fiber.Map{"username": "ALICE", "password": "secret123"}, &dup)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "USERNAME_TAKEN", dup.Error.Code)
	assert.Equal(t, "Username already exists", dup.Message)

	var login map[string]string
	status = call(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{"username": "alice", "password": "secret123"}, &login)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, login["token"])

	var bad errorBody
	status = call(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{"username": "alice", "password": "nope"}, &bad)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", bad.Error.Code)

	var guest map[string]string
	status = call(t, app, fiber.MethodPost, "/api/auth/guest", "", nil, &guest)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, guest["token"])
	assert.NotEmpty(t, guest["username"])
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{})

	var body errorBody
	status := call(t, app, fiber.MethodPost, "/api/auth/register", "", fiber.Map{"username": "  ", "password": "x"}, &body)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Contains(t, body.Error.Details, "username")
	assert.Contains(t, body.Error.Details, "password")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{})

	for _, path := range []string{"/api/blog/1/10", "/api/subscription/check", "/api/comment/abc"} {
		var body errorBody
		status := call(t, app, fiber.MethodGet, path, "", nil, &body)
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
		assert.Equal(t, "UNAUTHORIZED", body.Error.Code, path)
	}
}

func TestDailyLimitAndBitcoinUpgrade(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{})
	token := register(t, app, "bob")

	var created map[string]any
	status := call(t, app, fiber.MethodPost, "/api/blog", token, newPost("First"), &created)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "First", created["name"])
	assert.Equal(t, "bob", created["user"])

	var rejected errorBody
	status = call(t, app, fiber.MethodPost, "/api/blog", token, newPost("Second"), &rejected)
	assert.Equal(t, fiber.StatusPaymentRequired, status)
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", rejected.Error.Code)

	var check map[string]bool
	status = call(t, app, fiber.MethodGet, "/api/subscription/check", token, nil, &check)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, check["limitReached"])
	assert.False(t, check["subscriptionActive"])

	var missing errorBody
	status = call(t, app, fiber.MethodPost, "/api/subscription/bitcoin/verify", token, fiber.Map{"transactionId": ""}, &missing)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "TRANSACTION_ID_REQUIRED", missing.Error.Code)
	assert.Equal(t, "Transaction ID is required", missing.Message)

	var short errorBody
	status = call(t, app, fiber.MethodPost, "/api/subscription/bitcoin/verify", token, fiber.Map{"transactionId": "abc"}, &short)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REFERENCE", short.Error.Code)

	var verified map[string]any
	status = call(t, app, fiber.MethodPost, "/api/subscription/bitcoin/verify", token, fiber.Map{"transactionId": "abcdef1234567890"}, &verified)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, verified["subscriptionActive"])

	var again errorBody
	status = call(t, app, fiber.MethodPost, "/api/subscription/bitcoin/verify", token, fiber.Map{"transactionId": "abcdef1234567890"}, &again)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ALREADY_SUBSCRIBED", again.Error.Code)

	for _, title := range []string{"Second", "Third"} {
		status = call(t, app, fiber.MethodPost, "/api/blog", token, newPost(title), nil)
		assert.Equal(t, fiber.StatusCreated, status, title)
	}
}

func TestBlogQueries(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{})
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")

	var post map[string]any
	require.Equal(t, fiber.StatusCreated, call(t, app, fiber.MethodPost, "/api/blog", alice, newPost("Go Tips", "Go", "backend"), &post))
	require.Equal(t, fiber.StatusCreated, call(t, app, fiber.MethodPost, "/api/blog", bob, newPost("Rust notes", "rust"), nil))
	id := post["id"].(string)

	var total map[string]int
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodGet, "/api/blog/total", alice, nil, &total))
	assert.Equal(t, 2, total["total"])

	var page []map[string]any
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodGet, "/api/blog/1/10", alice, nil, &page))
	assert.Len(t, page, 2)

	var found []map[string]any
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodGet, "/api/blog/search/tips", alice, nil, &found))
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0]["id"])

	var tagged []map[string]any
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodGet, "/api/blog/tag/GO", alice, nil, &tagged))
	require.Len(t, tagged, 1)
	assert.Equal(t, []any{map[string]any{"name": "backend"}, map[string]any{"name": "go"}}, tagged[0]["tags"])

	var badPage errorBody
	assert.Equal(t, fiber.StatusBadRequest, call(t, app, fiber.MethodGet, "/api/blog/0/10", alice, nil, &badPage))
	assert.Equal(t, "VALIDATION_FAILED", badPage.Error.Code)
	assert.Equal(t, fiber.StatusBadRequest, call(t, app, fiber.MethodGet, "/api/blog/x/10", alice, nil, nil))

	var notMine errorBody
	assert.Equal(t, fiber.StatusNotFound, call(t, app, fiber.MethodPut, "/api/blog/"+id, bob, newPost("Hijack"), &notMine))
	assert.Equal(t, "POST_NOT_FOUND", notMine.Error.Code)

	var tags map[string][]map[string]string
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodPost, "/api/blog/"+id+"/tags", alice, fiber.Map{"name": "Web"}, &tags))
	assert.Len(t, tags["tags"], 3)

	var updated map[string]any
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodPut, "/api/blog/"+id, alice, newPost("Go Tricks"), &updated))
	assert.Equal(t, "Go Tricks", updated["name"])
	assert.NotNil(t, updated["updatedAt"])

	assert.Equal(t, fiber.StatusNoContent, call(t, app, fiber.MethodDelete, "/api/blog/"+id, alice, nil, nil))
	assert.Equal(t, fiber.StatusNotFound, call(t, app, fiber.MethodGet, "/api/blog/"+id, alice, nil, nil))
}

func TestCommentThread(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{})
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")

	var post map[string]any
	require.Equal(t, fiber.StatusCreated, call(t, app, fiber.MethodPost, "/api/blog", alice, newPost("Threads"), &post))
	postID := post["id"].(string)

	var root map[string]any
	require.Equal(t, fiber.StatusCreated, call(t, app, fiber.MethodPost, "/api/comment/"+postID, bob, fiber.Map{"content": "first!"}, &root))
	assert.Equal(t, "bob", root["username"])
	assert.Equal(t, false, root["isEdited"])
	rootID := root["id"].(string)

	require.Equal(t, fiber.StatusCreated, call(t, app, fiber.MethodPost, "/api/comment/"+postID, alice, fiber.Map{"content": "thanks", "parentId": rootID}, nil))

	var edited map[string]any
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodPut, "/api/comment/"+postID+"/"+rootID, bob, fiber.Map{"content": "first! (edited)"}, &edited))
	assert.Equal(t, true, edited["isEdited"])
	assert.Equal(t, fiber.StatusNotFound, call(t, app, fiber.MethodPut, "/api/comment/"+postID+"/"+rootID, alice, fiber.Map{"content": "mine now"}, nil))

	var thread []map[string]any
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodGet, "/api/comment/"+postID, alice, nil, &thread))
	require.Len(t, thread, 1)
	replies := thread[0]["replies"].([]any)
	require.Len(t, replies, 1)
	assert.Equal(t, "thanks", replies[0].(map[string]any)["content"])

	var detail map[string]any
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodGet, "/api/blog/"+postID, alice, nil, &detail))
	assert.Len(t, detail["comments"], 1)

	assert.Equal(t, fiber.StatusNotFound, call(t, app, fiber.MethodPost, "/api/comment/missing", bob, fiber.Map{"content": "hello"}, nil))
}

func TestCardPaymentsDisabledWithoutProcessor(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{})
	token := register(t, app, "carol")

	var session errorBody
	assert.Equal(t, fiber.StatusServiceUnavailable, call(t, app, fiber.MethodPost, "/api/subscription/create-session", token, nil, &session))
	assert.Equal(t, "CARD_PAYMENTS_DISABLED", session.Error.Code)

	var webhook errorBody
	assert.Equal(t, fiber.StatusServiceUnavailable, call(t, app, fiber.MethodPost, "/api/subscription/webhook", "", fiber.Map{"type": "checkout.session.completed"}, &webhook))
	assert.Equal(t, "CARD_PAYMENTS_DISABLED", webhook.Error.Code)

	var info map[string]any
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodGet, "/api/subscription/bitcoin/info", token, nil, &info))
	assert.Equal(t, "bc1qtest", info["address"])
	assert.Equal(t, "BTC", info["currency"])
}

func TestAuthRateLimit(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{AuthPerSecond: 0.001, AuthBurst: 1})

	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodPost, "/api/auth/guest", "", nil, nil))

	var limited errorBody
	assert.Equal(t, fiber.StatusTooManyRequests, call(t, app, fiber.MethodPost, "/api/auth/guest", "", nil, &limited))
	assert.Equal(t, "RATE_LIMITED", limited.Error.Code)
}

func TestUnknownRouteAndProbes(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{})

	var missing errorBody
	assert.Equal(t, fiber.StatusNotFound, call(t, app, fiber.MethodGet, "/nope", "", nil, &missing))
	assert.Equal(t, "NOT_FOUND", missing.Error.Code)

	var live map[string]string
	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodGet, "/health/live", "", nil, &live))
	assert.Equal(t, "alive", live["status"])

	assert.Equal(t, fiber.StatusOK, call(t, app, fiber.MethodGet, "/health/ready", "", nil, nil))

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "blog_test_")
}

func TestIPRateLimiterEvictsIdleVisitors(t *testing.T) {
	l := newIPRateLimiter(1, 1)
	now := l.now()
	l.now = func() time.Time { return now }
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	now = now.Add(limiterIdleTTL + time.Second)
	assert.True(t, l.allow("10.0.0.2"))
	assert.Len(t, l.visitors, 1)
}
