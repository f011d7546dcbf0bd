package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/storage"
	"quill/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	Type      string
	PostID    uint
	ProfileID uint
}

// eventRecorder is a notifications.Publisher that keeps what it is given.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Publish(_ context.Context, eventType string, postID, profileID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, PostID: postID, ProfileID: profileID})
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db         *gorm.DB
	mr         *miniredis.Miniredis
	events     *eventRecorder
	posts      *PostService
	engagement *EngagementService
	query      *QueryService
	comments   *CommentService
	profiles   *ProfileService
	images     *ImageService
	tags       *TagRegistry
}

type envOption func(*envConfig)

type envConfig struct {
	allowDirectPublish bool
	allowAnonymous     bool
}

func withDirectPublish(allow bool) envOption {
	return func(c *envConfig) { c.allowDirectPublish = allow }
}

func withAnonymousComments() envOption {
	return func(c *envConfig) { c.allowAnonymous = true }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := envConfig{allowDirectPublish: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := testutil.NewTestDB(t)
	rdb, mr := testutil.NewTestRedis(t)
	c := cache.New(rdb)
	events := &eventRecorder{}

	blobs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	postRepo := repository.NewPostRepository(db)
	imageRepo := repository.NewImageRepository(db)
	tags := NewTagRegistry(db, repository.NewTagRepository(db))

	return &testEnv{
		db:         db,
		mr:         mr,
		events:     events,
		tags:       tags,
		posts:      NewPostService(db, postRepo, imageRepo, tags, c, events, cfg.allowDirectPublish),
		engagement: NewEngagementService(db, postRepo, repository.NewLikeRepository(db), repository.NewBookmarkRepository(db), c, events),
		query:      NewQueryService(postRepo, c, DefaultPageSize, MaxPageSize),
		comments:   NewCommentService(db, repository.NewCommentRepository(db), postRepo, cfg.allowAnonymous),
		profiles:   NewProfileService(db, repository.NewProfileRepository(db), postRepo, imageRepo, c),
		images:     NewImageService(imageRepo, blobs, 1),
	}
}

func (e *testEnv) profile(t *testing.T, username string) uint {
	t.Helper()
	return testutil.CreateProfile(t, e.db, username).ID
}

func assertCode(t *testing.T, code string, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, models.CodeValidation, err)
}

func ptr[T any](v T) *T {
	return &v
}
