// Package testutil provides shared fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"quill/internal/database"
	"quill/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewTestDB returns a migrated, private in-memory SQLite database.
// A single connection is used so concurrent callers serialize the way they
// would on row locks.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:quill_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewTestRedis starts a miniredis server and returns a client connected to it.
func NewTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// CreateProfile inserts a profile with username.
func CreateProfile(t *testing.T, db *gorm.DB, username string) *models.Profile {
	t.Helper()

	p := &models.Profile{Username: username}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreatePost inserts a post owned by profileID with the given tag values.
func CreatePost(t *testing.T, db *gorm.DB, profileID uint, title, body string, draft bool, tags ...string) *models.Post {
	t.Helper()

	p := &models.Post{ProfileID: profileID, Title: title, Body: body, IsDraft: draft}
	require.NoError(t, db.Omit("Tags").Create(p).Error)
	for _, v := range tags {
		tag := models.Tag{Value: v}
		require.NoError(t, db.Where(models.Tag{Value: v}).FirstOrCreate(&tag).Error)
		require.NoError(t, db.Create(&models.PostTag{PostID: p.ID, TagID: tag.ID}).Error)
	}
	return p
}

// Like records a like from profileID on postID.
func Like(t *testing.T, db *gorm.DB, profileID, postID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Like{PostID: postID, ProfileID: profileID}).Error)
}
