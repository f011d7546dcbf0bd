package service

import (
	"context"
	"testing"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_EnsureProfileIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, created, err := env.profiles.EnsureProfile(ctx, " writer ")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "writer", p.Username)

	again, created, err := env.profiles.EnsureProfile(ctx, "writer")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)

	_, _, err = env.profiles.EnsureProfile(ctx, "  ")
	assertValidationError(t, err)
}

func TestProfileService_GetIncludesPublishedPostsOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.profile(t, "Alice")
	published := testutil.CreatePost(t, env.db, alice, "pub", "", false)
	testutil.CreatePost(t, env.db, alice, "draft", "", true)

	p, err := env.profiles.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint{published.ID}, p.PostIDs)

	byName, err := env.profiles.GetProfileByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice, byName.ID)

	_, err = env.profiles.GetProfile(ctx, 404)
	assertCode(t, models.CodeNotFound, err)
}

func TestProfileService_UpdateMyProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.profile(t, "alice")
	bob := env.profile(t, "bob")

	mine := &models.Image{ProfileID: alice, Format: models.ImageFormatPNG, StorageKey: "a", SizeBytes: 1}
	theirs := &models.Image{ProfileID: bob, Format: models.ImageFormatPNG, StorageKey: "b", SizeBytes: 1}
	require.NoError(t, env.db.Create(mine).Error)
	require.NoError(t, env.db.Create(theirs).Error)

	p, err := env.profiles.UpdateMyProfile(ctx, alice, ProfilePatch{Biography: ptr("hello"), PictureImageID: &mine.ID})
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Biography)
	require.NotNil(t, p.PictureImageID)

	_, err = env.profiles.UpdateMyProfile(ctx, alice, ProfilePatch{PictureImageID: &theirs.ID})
	assertCode(t, models.CodeForbidden, err)

	_, err = env.profiles.UpdateMyProfile(ctx, alice, ProfilePatch{PictureImageID: ptr(uint(999))})
	assertValidationError(t, err)

	p, err = env.profiles.UpdateMyProfile(ctx, alice, ProfilePatch{ClearPicture: true})
	require.NoError(t, err)
	assert.Nil(t, p.PictureImageID)
	assert.Equal(t, "hello", p.Biography)

	_, err = env.profiles.UpdateMyProfile(ctx, 0, ProfilePatch{Biography: ptr("x")})
	assertCode(t, models.CodeUnauthenticated, err)
}

func TestProfileService_UpdateRefreshesCachedPosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.profile(t, "author")
	post := testutil.CreatePost(t, env.db, author, "Cached", "", false)

	before, err := env.posts.GetPost(ctx, 0, post.ID)
	require.NoError(t, err)
	require.NotNil(t, before.Profile)
	assert.Empty(t, before.Profile.Biography)
	assert.True(t, env.mr.Exists(cache.PostKey(post.ID)))

	_, err = env.profiles.UpdateMyProfile(ctx, author, ProfilePatch{Biography: ptr("Now with a bio")})
	require.NoError(t, err)
	assert.False(t, env.mr.Exists(cache.PostKey(post.ID)))

	after, err := env.posts.GetPost(ctx, 0, post.ID)
	require.NoError(t, err)
	require.NotNil(t, after.Profile)
	assert.Equal(t, "Now with a bio", after.Profile.Biography)
}
