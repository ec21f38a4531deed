package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util/errorutil"
)

// CommentNode is a comment with its direct replies.
type CommentNode struct {
	domain.Comment
	Replies []*CommentNode
}

// BuildThread nests comments under their parents, keeping the input order at
// every level. Replies whose parent is absent are promoted to the top level.
func BuildThread(comments []domain.Comment) []*CommentNode {
	nodes := make(map[string]*CommentNode, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = &CommentNode{Comment: comments[i], Replies: []*CommentNode{}}
	}

	roots := make([]*CommentNode, 0, len(comments))
	for i := range comments {
		node := nodes[comments[i].ID]
		if parentID := comments[i].ParentID; parentID != nil {
			if parent, ok := nodes[*parentID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// CommentService manages comments on posts.
type CommentService struct {
	posts      repository.PostRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	PostRepo    repository.PostRepository
	CommentRepo repository.CommentRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		posts:      deps.PostRepo,
		comments:   deps.CommentRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Thread returns the comments of postID as a tree, newest first at each level.
func (s *CommentService) Thread(ctx context.Context, postID string) ([]*CommentNode, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return BuildThread(comments), nil
}

// Add creates a comment by author on postID, optionally replying to parentID.
func (s *CommentService) Add(ctx context.Context, author *domain.User, postID, content string, parentID *string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	if parentID != nil && strings.TrimSpace(*parentID) == "" {
		parentID = nil
	}
	if parentID != nil {
		parent, err := s.comments.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, apperrors.NewValidationError("parent comment belongs to another post",
				map[string]any{"parentId": *parentID})
		}
	}

	comment := &domain.Comment{
		PostID:         postID,
		ParentID:       parentID,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Content:        content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		preview := []rune(content)
		if len(preview) > 80 {
			preview = preview[:80]
		}
		event := events.New(events.EventCommentAdded, author.ID, postID, events.CommentAddedPayload{
			CommentID: comment.ID, ParentID: parentID, Preview: string(preview),
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return comment, nil
}

// Edit rewrites a comment owned by userID. Foreign or mismatched comments are reported as missing.
func (s *CommentService) Edit(ctx context.Context, userID, postID, commentID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != postID || comment.AuthorID != userID {
		return nil, domain.ErrCommentNotFound
	}
	comment.Content = content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}
