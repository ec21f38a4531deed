package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-service/internal/domain"
	apperrors "github.com/spec-kit/blog-service/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func TestBuildThread(t *testing.T) {
	comments := []domain.Comment{
		{ID: "c4", ParentID: strPtr("c1")},
		{ID: "c3"},
		{ID: "c2", ParentID: strPtr("c1")},
		{ID: "c1"},
		{ID: "c5", ParentID: strPtr("gone")},
	}

	roots := BuildThread(comments)
	require.Len(t, roots, 3)
	assert.Equal(t, "c3", roots[0].ID)
	assert.Equal(t, "c1", roots[1].ID)
	assert.Equal(t, "c5", roots[2].ID)

	require.Len(t, roots[1].Replies, 2)
	assert.Equal(t, "c4", roots[1].Replies[0].ID)
	assert.Equal(t, "c2", roots[1].Replies[1].ID)
	assert.Empty(t, roots[0].Replies)
}

func TestCommentServiceFlow(t *testing.T) {
	store := newMemStore()
	users := memUsers{store}
	posts := memPosts{store}
	ctx := context.Background()

	author := &domain.User{Username: "writer"}
	require.NoError(t, users.Create(ctx, author))
	reader := &domain.User{Username: "reader"}
	require.NoError(t, users.Create(ctx, reader))

	first := &domain.Post{AuthorID: author.ID, Title: "one"}
	require.NoError(t, posts.CreateWithAuthor(ctx, first, author))
	second := &domain.Post{AuthorID: author.ID, Title: "two"}
	require.NoError(t, posts.CreateWithAuthor(ctx, second, author))

	svc := NewCommentService(CommentDependencies{PostRepo: posts, CommentRepo: memComments{store}})

	root, err := svc.Add(ctx, reader, first.ID, "  great post ", nil)
	require.NoError(t, err)
	assert.Equal(t, "great post", root.Content)
	assert.Equal(t, "reader", root.AuthorUsername)

	reply, err := svc.Add(ctx, author, first.ID, "thanks", &root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, *reply.ParentID)

	_, err = svc.Add(ctx, author, second.ID, "wrong thread", &root.ID)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	_, err = svc.Add(ctx, author, first.ID, "dangling", strPtr("missing"))
	assert.ErrorIs(t, err, domain.ErrCommentNotFound)

	_, err = svc.Add(ctx, author, "nope", "x", nil)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)

	_, err = svc.Add(ctx, author, first.ID, "   ", nil)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	thread, err := svc.Thread(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	require.Len(t, thread[0].Replies, 1)
	assert.Equal(t, "thanks", thread[0].Replies[0].Content)

	_, err = svc.Edit(ctx, author.ID, first.ID, root.ID, "not yours")
	assert.ErrorIs(t, err, domain.ErrCommentNotFound)
	_, err = svc.Edit(ctx, reader.ID, second.ID, root.ID, "wrong post")
	assert.ErrorIs(t, err, domain.ErrCommentNotFound)

	edited, err := svc.Edit(ctx, reader.ID, first.ID, root.ID, "great post!")
	require.NoError(t, err)
	assert.True(t, edited.Edited())

	_, err = svc.Thread(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}
