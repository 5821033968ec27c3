// Package test contains end-to-end tests that exercise the full HTTP
// stack against an in-memory database and Redis.
package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"snapgram/internal/config"
	"snapgram/internal/models"
	"snapgram/internal/server"
	"snapgram/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type authUser struct {
	ID       uint
	Username string
	Token    string
}

// newTestApp wires a real server against sqlite, miniredis and a
// temp-dir blob store, and returns the fiber app for in-process requests.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Post{}, &models.Like{}, &models.Comment{},
		&models.Image{}, &models.Conversation{}, &models.Message{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	blobs, err := storage.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	cfg := &config.Config{
		JWTSecret: "e2e-test-secret",
		Env:       "test",
	}
	srv, err := server.NewServerWithDeps(cfg, db, redisClient, blobs)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	app := fiber.New()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func doMultipart(t *testing.T, app *fiber.App, path, token, field, filename string, content []byte) *http.Response {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// signupUser registers a fresh user and returns its ID and token.
func signupUser(t *testing.T, app *fiber.App, prefix string) authUser {
	t.Helper()

	username := prefix + "_" + uuid.NewString()[:8]
	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "TestPass123!@#",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup %s: status %d", username, resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, resp, &body)
	if body.Token == "" {
		t.Fatalf("signup %s: empty token", username)
	}
	return authUser{ID: body.User.ID, Username: username, Token: body.Token}
}
