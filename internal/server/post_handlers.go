package server

import (
	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/post/create
// @Summary Create a post
// @Tags post
// @Accept json
// @Produce json
// @Param request body object{title=string,caption=string,location=string} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /post/create [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title    string `json:"title"`
		Caption  string `json:"caption"`
		Location string `json:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:   userID,
		Title:    req.Title,
		Caption:  req.Caption,
		Location: req.Location,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetAllPosts handles GET /api/post/all
// @Summary List all posts, newest first
// @Tags post
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /post/all [get]
func (s *Server) GetAllPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page := parsePagination(c, 20)

	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Limit:         page.Limit,
		Offset:        page.Offset,
		CurrentUserID: userID,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(posts)
}

// GetMyPosts handles GET /api/post/user/posts
// @Summary List the caller's posts
// @Tags post
// @Produce json
// @Success 200 {array} models.Post
// @Router /post/user/posts [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page := parsePagination(c, 20)

	posts, err := s.postService.GetUserPosts(c.UserContext(), userID, page.Limit, page.Offset, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(posts)
}

// ToggleLike handles POST /api/post/:postId/:username/like
// @Summary Toggle a like on a post
// @Description The username segment must match the authenticated caller
// @Tags post
// @Produce json
// @Param postId path int true "Post ID"
// @Param username path string true "Caller's username"
// @Success 200 {object} models.Post
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{postId}/{username}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	username, _ := c.Locals("username").(string)
	if username == "" || c.Params("username") != username {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Username does not match the authenticated user"))
	}

	post, err := s.postService.ToggleLike(c.UserContext(), userID, postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(post)
}

// DeletePost handles POST /api/post/:postId/delete
// @Summary Delete a post with its comments, likes and image
// @Description Posts owned by other users respond 404, never 401
// @Tags post
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{postId}/delete [post]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: userID,
		PostID: postID,
	}); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Post deleted"})
}
