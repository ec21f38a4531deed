package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/entitlement"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/lock"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util/errorutil"
)

// MaxPageSize caps list requests.
const MaxPageSize = 100

// PostMetrics receives entitlement outcomes.
type PostMetrics interface {
	PostAccepted()
	PostRejected()
}

// PostService coordinates blog post workflows.
type PostService struct {
	users      repository.UserRepository
	posts      repository.PostRepository
	comments   repository.CommentRepository
	locker     lock.Locker
	evaluator  *entitlement.Evaluator
	dispatcher events.Dispatcher
	metrics    PostMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// PostDependencies bundles collaborators for the post service.
type PostDependencies struct {
	UserRepo    repository.UserRepository
	PostRepo    repository.PostRepository
	CommentRepo repository.CommentRepository
	Locker      lock.Locker
	Evaluator   *entitlement.Evaluator
	Dispatcher  events.Dispatcher
	Metrics     PostMetrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// PostInput describes post creation and update payloads.
type PostInput struct {
	Title   string
	Content string
	Tags    []string
}

// PostDetail is a post with its comment thread.
type PostDetail struct {
	Post     domain.Post
	Comments []*CommentNode
}

// NewPostService constructs the service.
func NewPostService(deps PostDependencies) *PostService {
	s := &PostService{
		users:      deps.UserRepo,
		posts:      deps.PostRepo,
		comments:   deps.CommentRepo,
		locker:     deps.Locker,
		evaluator:  deps.Evaluator,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.evaluator == nil {
		s.evaluator = entitlement.NewEvaluator(entitlement.DefaultDailyPosts)
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create publishes a post for userID if the daily allowance permits. The
// user read, the entitlement decision and the write happen under the user's lock.
func (s *PostService) Create(ctx context.Context, userID string, input PostInput) (*domain.Post, error) {
	unlock, err := s.locker.Lock(ctx, lock.UserKey(userID))
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", userID, err)
	}
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated, err := s.evaluator.Evaluate(*user, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrDailyLimitExceeded) {
			s.metrics.PostRejected()
			s.logger.Info("post rejected by daily limit", zap.String("user_id", userID))
			s.publishEvent(ctx, events.New(events.EventPostLimitReached, userID, "",
				events.PostLimitReachedPayload{PostCount: user.PostCount}))
		}
		return nil, err
	}

	post := &domain.Post{
		AuthorID:       user.ID,
		AuthorUsername: user.Username,
		Title:          strings.TrimSpace(input.Title),
		Content:        input.Content,
		Tags:           NormalizeTags(input.Tags),
	}
	if err := s.posts.CreateWithAuthor(ctx, post, &updated); err != nil {
		return nil, err
	}

	s.metrics.PostAccepted()
	s.publishEvent(ctx, events.New(events.EventPostCreated, userID, post.ID,
		events.PostCreatedPayload{Title: post.Title, Tags: post.Tags}))
	return post, nil
}

// List returns a 1-indexed page of posts, newest first.
func (s *PostService) List(ctx context.Context, page, pageSize int) ([]domain.Post, error) {
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, apperrors.NewValidationError("invalid pagination", map[string]any{
			"page": page, "pageSize": pageSize, "maxPageSize": MaxPageSize,
		})
	}
	return s.posts.ListPage(ctx, page, pageSize)
}

// Total returns the number of posts.
func (s *PostService) Total(ctx context.Context) (int, error) {
	return s.posts.Count(ctx)
}

// Search finds posts whose title contains term, ignoring case.
func (s *PostService) Search(ctx context.Context, term string) ([]domain.Post, error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperrors.NewValidationError("search term is required", nil)
	}
	return s.posts.SearchByTitle(ctx, term)
}

// ByTag lists posts carrying tag.
func (s *PostService) ByTag(ctx context.Context, tag string) ([]domain.Post, error) {
	normalized := NormalizeTags([]string{tag})
	if len(normalized) == 0 {
		return nil, apperrors.NewValidationError("tag is required", nil)
	}
	return s.posts.ListByTag(ctx, normalized[0])
}

// Get returns a post with its threaded comments.
func (s *PostService) Get(ctx context.Context, id string) (*PostDetail, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: *post, Comments: BuildThread(comments)}, nil
}

// Update changes title and content. Posts owned by someone else are reported as missing.
func (s *PostService) Update(ctx context.Context, userID, id string, input PostInput) (*domain.Post, error) {
	post, err := s.ownedPost(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	post.Title = strings.TrimSpace(input.Title)
	post.Content = input.Content
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes an owned post together with its comments and unused tags.
func (s *PostService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.ownedPost(ctx, userID, id); err != nil {
		return err
	}
	if err := s.comments.DeleteByPost(ctx, id); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.publishEvent(ctx, events.New(events.EventPostDeleted, userID, id, nil))
	return nil
}

// AddTag attaches a tag to an owned post and returns the post's tags.
func (s *PostService) AddTag(ctx context.Context, userID, id, tag string) ([]string, error) {
	normalized := NormalizeTags([]string{tag})
	if len(normalized) == 0 {
		return nil, apperrors.NewValidationError("tag is required", nil)
	}
	if _, err := s.ownedPost(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.posts.AddTag(ctx, id, normalized[0]); err != nil {
		return nil, err
	}
	return s.posts.TagsForPost(ctx, id)
}

func (s *PostService) ownedPost(ctx context.Context, userID, id string) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, domain.ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// NormalizeTags trims, lowercases and de-duplicates names, dropping empty ones.
func NormalizeTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	tags := make([]string, 0, len(names))
	for _, name := range names {
		tag := strings.ToLower(strings.TrimSpace(name))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

type noopMetrics struct{}

func (noopMetrics) PostAccepted() {}
func (noopMetrics) PostRejected() {}
func (noopMetrics) SubscriptionActivated(domain.PaymentSource) {}
