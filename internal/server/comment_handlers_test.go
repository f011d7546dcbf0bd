package server

import (
	"fmt"
	"net/http"
	"testing"

	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateProfile(t, ts.db, "alice")
	bob := testutil.CreateProfile(t, ts.db, "bob")
	post := testutil.CreatePost(t, ts.db, alice.ID, "Discuss", "", false)
	path := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	resp, data := ts.do(t, http.MethodPost, path, ts.token(t, bob.ID), map[string]any{"content": "Nice post"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	comment := decode[models.Comment](t, data)
	require.NotNil(t, comment.AuthorProfileID)
	assert.Equal(t, bob.ID, *comment.AuthorProfileID)

	resp, data = ts.do(t, http.MethodPost, path, ts.token(t, bob.ID), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "content is required", decode[models.ErrorResponse](t, data).Error)

	_, data = ts.do(t, http.MethodGet, path, "", nil)
	assert.Len(t, decode[[]models.Comment](t, data), 1)

	commentPath := fmt.Sprintf("/api/comments/%d", comment.ID)
	resp, data = ts.do(t, http.MethodPatch, commentPath, ts.token(t, alice.ID), map[string]any{"content": "edited"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "You can only edit your own comments", decode[models.ErrorResponse](t, data).Error)

	resp, data = ts.do(t, http.MethodPatch, commentPath, ts.token(t, bob.ID), map[string]any{"content": "edited"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "edited", decode[models.Comment](t, data).Content)

	resp, _ = ts.do(t, http.MethodDelete, commentPath, ts.token(t, bob.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, data = ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, "[]", string(data))
}

func TestComments_AnonymousPolicy(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		ts := newTestServer(t)
		alice := testutil.CreateProfile(t, ts.db, "alice")
		post := testutil.CreatePost(t, ts.db, alice.ID, "Discuss", "", false)

		resp, _ := ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), "",
			map[string]any{"content": "hi", "author_name": "guest"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("enabled", func(t *testing.T) {
		ts := newTestServer(t, func(c *config.Config) { c.CommentsAllowAnonymous = true })
		alice := testutil.CreateProfile(t, ts.db, "alice")
		post := testutil.CreatePost(t, ts.db, alice.ID, "Discuss", "", false)
		path := fmt.Sprintf("/api/posts/%d/comments", post.ID)

		resp, _ := ts.do(t, http.MethodPost, path, "", map[string]any{"content": "hi"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, data := ts.do(t, http.MethodPost, path, "", map[string]any{"content": "hi", "author_name": "guest"})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
		comment := decode[models.Comment](t, data)
		assert.Nil(t, comment.AuthorProfileID)
		assert.Equal(t, "guest", comment.AuthorName)

		resp, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", comment.ID), ts.token(t, alice.ID), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestComments_DraftHidden(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateProfile(t, ts.db, "alice")
	bob := testutil.CreateProfile(t, ts.db, "bob")
	draft := testutil.CreatePost(t, ts.db, alice.ID, "WIP", "", true)
	path := fmt.Sprintf("/api/posts/%d/comments", draft.ID)

	resp, _ := ts.do(t, http.MethodGet, path, ts.token(t, bob.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, path, ts.token(t, alice.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
