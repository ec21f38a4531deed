package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/service"
)

// CommentHandler exposes comment endpoints nested under a post.
type CommentHandler struct {
	comments *service.CommentService
}

// NewCommentHandler constructs handler.
func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// List handles GET /api/comment/:blogId.
func (h *CommentHandler) List(c *fiber.Ctx) error {
	thread, err := h.comments.Thread(c.UserContext(), c.Params("blogId"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCommentThread(thread))
}

// Create handles POST /api/comment/:blogId.
func (h *CommentHandler) Create(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CommentCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.Add(c.UserContext(), principal.User, c.Params("blogId"), req.Content, req.ParentID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewCommentResponse(*comment))
}

// Update handles PUT /api/comment/:blogId/:id.
func (h *CommentHandler) Update(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CommentCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.Edit(c.UserContext(), principal.UserID(), c.Params("blogId"), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCommentResponse(*comment))
}
