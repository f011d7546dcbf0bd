package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	*Server
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{
		Env:                     "test",
		Port:                    "0",
		JWTSecret:               "test-secret-that-is-at-least-32-chars",
		PostsAllowDirectPublish: true,
		DefaultPageSize:         20,
		MaxPageSize:             100,
		ImageUploadDir:          t.TempDir(),
		ImageMaxUploadSizeMB:    1,
	}
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.NewTestDB(t)
	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	return &testServer{Server: s, app: s.App(), db: db}
}

func (ts *testServer) token(t *testing.T, profileID uint) string {
	t.Helper()
	tok, err := ts.Authenticator().SignToken(profileID, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a request and returns the response with its body read.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealthChecks(t *testing.T) {
	ts := newTestServer(t)

	resp, data := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", decode[map[string]any](t, data)["status"])

	resp, data = ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, data)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]any{"database": "healthy", "redis": "unavailable"}, body["checks"])
}

func TestAuth_RequiredAndOptional(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := ts.do(t, http.MethodGet, "/api/bookmarks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeUnauthenticated, decode[models.ErrorResponse](t, data).Code)

	resp, _ = ts.do(t, http.MethodGet, "/api/bookmarks", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// An invalid token on an optional route degrades to anonymous.
	resp, _ = ts.do(t, http.MethodGet, "/api/posts", "not-a-token", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidIDParam(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/posts/abc", "/api/posts/0", "/api/profiles/-3"} {
		resp, data := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Equal(t, "Invalid ID", decode[models.ErrorResponse](t, data).Error, path)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewNotFoundError("Post", 1), http.StatusNotFound},
		{models.NewForbiddenError("no"), http.StatusForbidden},
		{models.NewUnauthenticatedError("who"), http.StatusUnauthorized},
		{models.NewConflictError("dup"), http.StatusConflict},
		{models.NewValidationError("bad"), http.StatusBadRequest},
		{models.NewInternalError(fmt.Errorf("boom")), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", models.NewConflictError("dup")), http.StatusConflict},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), tt.err.Error())
	}
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "post ID", humanizeParam("postId"))
	assert.Equal(t, "picture image ID", humanizeParam("pictureImageId"))
	assert.Equal(t, "username", humanizeParam("username"))
}

func TestQueryList(t *testing.T) {
	app := fiber.New()
	var got []string
	app.Get("/", func(c *fiber.Ctx) error {
		got = queryList(c, "tags")
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/?tags=go,%20web&tags=&tags=db", nil)
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "web", "db"}, got)
}
