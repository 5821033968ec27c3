package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newPostTestServer wires a Server with mock repositories behind real services.
func newPostTestServer(postRepo *MockPostRepository, imageRepo *MockImageRepository) *Server {
	s := &Server{postRepo: postRepo, imageRepo: imageRepo}
	s.postService = service.NewPostService(postRepo, imageRepo, newMemBlobStore(), nil)
	return s
}

func authApp(userID uint, username string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		c.Locals("username", username)
		return c.Next()
	})
	return app
}

func TestToggleLike(t *testing.T) {
	postRepo := new(MockPostRepository)
	imageRepo := new(MockImageRepository)
	s := newPostTestServer(postRepo, imageRepo)

	app := authApp(1, "alice")
	app.Post("/post/:postId/:username/like", s.ToggleLike)

	t.Run("Username mismatch is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/post/5/bob/like", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Success", func(t *testing.T) {
		postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
			Return(&models.Post{ID: 5, Title: "hello"}, nil).Once()
		postRepo.On("ToggleLike", mock.Anything, uint(1), uint(5)).
			Return(true, nil).Once()
		postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
			Return(&models.Post{ID: 5, Title: "hello", Liked: true, LikesCount: 1}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/post/5/alice/like", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Unknown post", func(t *testing.T) {
		postRepo.On("GetByID", mock.Anything, uint(99), uint(1)).
			Return(nil, models.NewNotFoundError("Post", 99)).Once()

		req := httptest.NewRequest(http.MethodPost, "/post/99/alice/like", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	postRepo.AssertExpectations(t)
}

func TestDeletePost(t *testing.T) {
	t.Run("Owner deletes post and image", func(t *testing.T) {
		postRepo := new(MockPostRepository)
		imageRepo := new(MockImageRepository)
		s := newPostTestServer(postRepo, imageRepo)

		app := authApp(1, "alice")
		app.Post("/post/:postId/delete", s.DeletePost)

		postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
			Return(&models.Post{ID: 5, UserID: 1}, nil).Once()
		imageRepo.On("GetByPostID", mock.Anything, uint(5)).
			Return(&models.Image{ID: 3, Key: "post-images/5/cat.webp"}, nil).Once()
		imageRepo.On("Delete", mock.Anything, uint(3)).Return(nil).Once()
		postRepo.On("Delete", mock.Anything, uint(5)).Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/post/5/delete", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		postRepo.AssertExpectations(t)
		imageRepo.AssertExpectations(t)
	})

	t.Run("Non-owner gets not found", func(t *testing.T) {
		postRepo := new(MockPostRepository)
		imageRepo := new(MockImageRepository)
		s := newPostTestServer(postRepo, imageRepo)

		app := authApp(2, "bob")
		app.Post("/post/:postId/delete", s.DeletePost)

		postRepo.On("GetByID", mock.Anything, uint(5), uint(2)).
			Return(&models.Post{ID: 5, UserID: 1}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/post/5/delete", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Invalid post ID", func(t *testing.T) {
		postRepo := new(MockPostRepository)
		imageRepo := new(MockImageRepository)
		s := newPostTestServer(postRepo, imageRepo)

		app := authApp(1, "alice")
		app.Post("/post/:postId/delete", s.DeletePost)

		req := httptest.NewRequest(http.MethodPost, "/post/abc/delete", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCreatePost_Validation(t *testing.T) {
	postRepo := new(MockPostRepository)
	imageRepo := new(MockImageRepository)
	s := newPostTestServer(postRepo, imageRepo)

	app := authApp(1, "alice")
	app.Post("/post/create", s.CreatePost)

	t.Run("Missing title", func(t *testing.T) {
		resp := postJSON(t, app, "/post/create", map[string]string{"caption": "no title"})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Success returns the re-read post", func(t *testing.T) {
		postRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
			return p.UserID == 1 && p.Title == "sunset"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Post).ID = 7
		}).Return(nil).Once()
		postRepo.On("GetByID", mock.Anything, uint(7), uint(1)).
			Return(&models.Post{ID: 7, Title: "sunset", UserID: 1}, nil).Once()

		resp := postJSON(t, app, "/post/create", map[string]string{
			"title":    "sunset",
			"caption":  "golden hour",
			"location": "pier",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var created models.Post
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		assert.Equal(t, uint(7), created.ID)
	})

	postRepo.AssertExpectations(t)
}
