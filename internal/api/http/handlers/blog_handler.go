package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/service"
	apperrors "github.com/spec-kit/blog-service/pkg/util/errorutil"
)

// BlogHandler exposes post endpoints.
type BlogHandler struct {
	posts *service.PostService
}

// NewBlogHandler constructs handler.
func NewBlogHandler(posts *service.PostService) *BlogHandler {
	return &BlogHandler{posts: posts}
}

// List handles GET /api/blog/:page/:pageSize.
func (h *BlogHandler) List(c *fiber.Ctx) error {
	page, err := pathInt(c, "page")
	if err != nil {
		return err
	}
	pageSize, err := pathInt(c, "pageSize")
	if err != nil {
		return err
	}

	posts, err := h.posts.List(c.UserContext(), page, pageSize)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPostList(posts))
}

// Total handles GET /api/blog/total.
func (h *BlogHandler) Total(c *fiber.Ctx) error {
	total, err := h.posts.Total(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.TotalResponse{Total: total})
}

// Search handles GET /api/blog/search/:term.
func (h *BlogHandler) Search(c *fiber.Ctx) error {
	posts, err := h.posts.Search(c.UserContext(), c.Params("term"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPostList(posts))
}

// ByTag handles GET /api/blog/tag/:name.
func (h *BlogHandler) ByTag(c *fiber.Ctx) error {
	posts, err := h.posts.ByTag(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPostList(posts))
}

// Get handles GET /api/blog/:id.
func (h *BlogHandler) Get(c *fiber.Ctx) error {
	detail, err := h.posts.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPostDetail(detail))
}

// Create handles POST /api/blog.
func (h *BlogHandler) Create(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PostCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	post, err := h.posts.Create(c.UserContext(), principal.UserID(), req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewPostResponse(*post))
}

// Update handles PUT /api/blog/:id.
func (h *BlogHandler) Update(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PostCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	post, err := h.posts.Update(c.UserContext(), principal.UserID(), c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPostResponse(*post))
}

// Delete handles DELETE /api/blog/:id.
func (h *BlogHandler) Delete(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.posts.Delete(c.UserContext(), principal.UserID(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddTag handles POST /api/blog/:id/tags.
func (h *BlogHandler) AddTag(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AddTagRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	tags, err := h.posts.AddTag(c.UserContext(), principal.UserID(), c.Params("id"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tags": dto.NewTagList(tags)})
}

func pathInt(c *fiber.Ctx, name string) (int, error) {
	v, err := strconv.Atoi(c.Params(name))
	if err != nil {
		return 0, apperrors.NewValidationError(name+" must be an integer", map[string]any{name: c.Params(name)})
	}
	return v, nil
}
