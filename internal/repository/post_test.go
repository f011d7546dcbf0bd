package repository

import (
	"context"
	"testing"

	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_GetByID_LoadsDetails(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateProfile(t, db, "alice")
	fan := testutil.CreateProfile(t, db, "bob")
	post := testutil.CreatePost(t, db, author.ID, "Hello", "World", false, "go", "db")
	testutil.Like(t, db, fan.ID, post.ID)
	testutil.Like(t, db, author.ID, post.ID)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, 2, got.LikesCount)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "alice", got.Profile.Username)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "go", got.Tags[0].Value)
	assert.Equal(t, "db", got.Tags[1].Value)
}

func TestPostRepository_GetByID_NotFound(t *testing.T) {
	repo := NewPostRepository(testutil.NewTestDB(t))

	_, err := repo.GetByID(context.Background(), 404)
	assert.True(t, models.IsNotFound(err))
}

func TestPostRepository_GetPublishedByIDs_KeepsOrderAndSkipsDrafts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateProfile(t, db, "alice")

	p1 := testutil.CreatePost(t, db, author.ID, "one", "", false)
	p2 := testutil.CreatePost(t, db, author.ID, "two", "", false)
	draft := testutil.CreatePost(t, db, author.ID, "draft", "", true)

	posts, err := repo.GetPublishedByIDs(context.Background(), []uint{p2.ID, draft.ID, 999, p1.ID})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, p2.ID, posts[0].ID)
	assert.Equal(t, p1.ID, posts[1].ID)

	empty, err := repo.GetPublishedByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostRepository_Update(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateProfile(t, db, "alice")
	post := testutil.CreatePost(t, db, author.ID, "", "", true)

	post.Title = "Hello"
	post.IsDraft = false
	require.NoError(t, repo.Update(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.True(t, got.IsDraft, "Update must not change draft state")

	missing := &models.Post{ID: 999, Title: "x"}
	assert.True(t, models.IsNotFound(repo.Update(ctx, missing)))
}

func TestPostRepository_MarkPublished(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateProfile(t, db, "alice")
	draft := testutil.CreatePost(t, db, author.ID, "Ready", "", true)
	untitled := testutil.CreatePost(t, db, author.ID, "  ", "", true)

	changed, err := repo.MarkPublished(ctx, draft.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkPublished(ctx, draft.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.MarkPublished(ctx, untitled.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDraft)
	got, err = repo.GetByID(ctx, untitled.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDraft)
}

func TestPostRepository_GetByIDForUpdate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateProfile(t, db, "alice")
	post := testutil.CreatePost(t, db, author.ID, "Locked", "", false, "go")

	err := database.RunInTransaction(context.Background(), db, func(ctx context.Context) error {
		got, err := repo.GetByIDForUpdate(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Locked", got.Title)
		assert.Len(t, got.Tags, 1)

		_, err = repo.GetByIDForUpdate(ctx, 999)
		assert.True(t, models.IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

func TestPostRepository_ReplaceTags(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateProfile(t, db, "alice")
	post := testutil.CreatePost(t, db, author.ID, "t", "b", false, "old")

	a := models.Tag{Value: "a"}
	b := models.Tag{Value: "b"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	require.NoError(t, repo.ReplaceTags(ctx, post.ID, []uint{b.ID, a.ID, b.ID}))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	values := []string{}
	for _, tag := range got.Tags {
		values = append(values, tag.Value)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, values)

	require.NoError(t, repo.ReplaceTags(ctx, post.ID, nil))
	got, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestPostRepository_Delete_Cascades(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateProfile(t, db, "alice")
	fan := testutil.CreateProfile(t, db, "bob")
	post := testutil.CreatePost(t, db, author.ID, "t", "b", false, "go")
	other := testutil.CreatePost(t, db, author.ID, "keep", "b", false, "go")

	testutil.Like(t, db, fan.ID, post.ID)
	testutil.Like(t, db, fan.ID, other.ID)
	require.NoError(t, db.Create(&models.Bookmark{PostID: post.ID, ProfileID: fan.ID, Title: "later"}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorProfileID: &fan.ID, Content: "nice"}).Error)

	require.NoError(t, repo.Delete(ctx, post.ID))

	for _, model := range []interface{}{&models.Like{}, &models.Bookmark{}, &models.Comment{}, &models.PostTag{}} {
		var count int64
		require.NoError(t, db.Model(model).Where("post_id = ?", post.ID).Count(&count).Error)
		assert.Zero(t, count)
	}

	_, err := repo.GetByID(ctx, post.ID)
	assert.True(t, models.IsNotFound(err))

	kept, err := repo.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, kept.LikesCount)
	assert.Len(t, kept.Tags, 1)

	assert.True(t, models.IsNotFound(repo.Delete(ctx, post.ID)))
}

func TestPostRepository_ListByProfile(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := testutil.CreateProfile(t, db, "alice")
	bob := testutil.CreateProfile(t, db, "bob")

	d1 := testutil.CreatePost(t, db, alice.ID, "d1", "", true)
	p1 := testutil.CreatePost(t, db, alice.ID, "p1", "", false)
	d2 := testutil.CreatePost(t, db, alice.ID, "d2", "", true)
	testutil.CreatePost(t, db, bob.ID, "bob draft", "", true)

	drafts, err := repo.ListDraftIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{d2.ID, d1.ID}, drafts)

	published, err := repo.ListPublishedIDsByProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{p1.ID}, published)

	none, err := repo.ListDraftIDs(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}
