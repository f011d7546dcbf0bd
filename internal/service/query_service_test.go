package service

import (
	"context"
	"math"
	"testing"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    repository.PostSort
		wantErr bool
	}{
		{"", repository.SortDate, false},
		{"date", repository.SortDate, false},
		{" Likes ", repository.SortLikes, false},
		{"LIKES", repository.SortLikes, false},
		{"popularity", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSort(tt.in)
		if tt.wantErr {
			assertValidationError(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestQueryService_TagsLikesScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.profile(t, "author")

	p1, err := env.posts.CreatePost(ctx, author, CreatePostInput{Title: "P1", Tags: []string{"api", "backend"}})
	require.NoError(t, err)
	p2, err := env.posts.CreatePost(ctx, author, CreatePostInput{Title: "P2", Tags: []string{"api"}})
	require.NoError(t, err)
	p3, err := env.posts.CreateDraft(ctx, author)
	require.NoError(t, err)
	_, err = env.posts.UpdatePost(ctx, author, p3.ID, PostPatch{Tags: &[]string{"api"}})
	require.NoError(t, err)

	for _, name := range []string{"a", "b", "c"} {
		_, err := env.engagement.SetLiked(ctx, env.profile(t, name), p2.ID)
		require.NoError(t, err)
	}

	page, err := env.query.ListPosts(ctx, ListPostsInput{Filter: PostFilter{Tags: []string{"API"}, SortBy: "likes"}})
	require.NoError(t, err)
	assert.Equal(t, []uint{p2.ID, p1.ID}, page.IDs)
	assert.Equal(t, int64(2), page.Total)
	assert.False(t, page.HasNext)
}

func TestQueryService_Pagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.profile(t, "author")
	for i := 0; i < 3; i++ {
		testutil.CreatePost(t, env.db, author, "p", "", false)
	}

	page, err := env.query.ListPosts(ctx, ListPostsInput{Page: 0, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Len(t, page.IDs, 2)
	assert.True(t, page.HasNext)

	page, err = env.query.ListPosts(ctx, ListPostsInput{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.IDs, 1)
	assert.False(t, page.HasNext)

	page, err = env.query.ListPosts(ctx, ListPostsInput{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)

	page, err = env.query.ListPosts(ctx, ListPostsInput{PageSize: -5})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)
}

func TestQueryService_HugePageIsEmptyAndLast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.profile(t, "author")
	testutil.CreatePost(t, env.db, author, "only", "", false)

	for _, pageNum := range []int{math.MaxInt/20 + 2, math.MaxInt} {
		page, err := env.query.ListPosts(ctx, ListPostsInput{Page: pageNum, PageSize: 20})
		require.NoError(t, err)
		assert.Empty(t, page.IDs)
		assert.False(t, page.HasNext)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, math.MaxInt/20, page.Page)
	}
}

func TestQueryService_BlankTermsIgnored(t *testing.T) {
	env := newTestEnv(t)
	author := env.profile(t, "author")
	post := testutil.CreatePost(t, env.db, author, "p", "", false)

	page, err := env.query.ListPosts(context.Background(), ListPostsInput{Filter: PostFilter{
		Tags:     []string{" ", "#"},
		Keywords: []string{"", "  "},
	}})
	require.NoError(t, err)
	assert.Equal(t, []uint{post.ID}, page.IDs)
}

func TestQueryService_UnknownSortRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.query.ListPosts(context.Background(), ListPostsInput{Filter: PostFilter{SortBy: "random"}})
	assertValidationError(t, err)
}

func TestQueryService_CachedListRefreshesAfterMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.profile(t, "author")

	first, err := env.posts.CreatePost(ctx, author, CreatePostInput{Title: "one"})
	require.NoError(t, err)
	page, err := env.query.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID}, page.IDs)

	// Rows written behind the service's back stay invisible until a
	// mutation bumps the list version.
	hidden := testutil.CreatePost(t, env.db, author, "direct", "", false)
	page, err = env.query.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID}, page.IDs)

	second, err := env.posts.CreatePost(ctx, author, CreatePostInput{Title: "two"})
	require.NoError(t, err)
	page, err = env.query.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	assert.Equal(t, []uint{second.ID, hidden.ID, first.ID}, page.IDs)
}

func TestQueryService_LikesSortNonIncreasing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.profile(t, "author")
	fans := []uint{env.profile(t, "f1"), env.profile(t, "f2"), env.profile(t, "f3")}

	likes := []int{1, 3, 0, 2}
	for _, n := range likes {
		post := testutil.CreatePost(t, env.db, author, "p", "", false)
		for i := 0; i < n; i++ {
			testutil.Like(t, env.db, fans[i], post.ID)
		}
	}

	page, err := env.query.ListPosts(ctx, ListPostsInput{Filter: PostFilter{SortBy: "LIKES"}})
	require.NoError(t, err)
	posts, err := env.query.Hydrate(ctx, page.IDs)
	require.NoError(t, err)
	require.Len(t, posts, len(likes))
	for i := 1; i < len(posts); i++ {
		assert.GreaterOrEqual(t, posts[i-1].LikesCount, posts[i].LikesCount)
	}
	assert.Equal(t, 3, posts[0].LikesCount)
}

func TestQueryService_AuthorFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.profile(t, "Alice")
	bob := env.profile(t, "bob")
	a := testutil.CreatePost(t, env.db, alice, "a", "", false)
	testutil.CreatePost(t, env.db, bob, "b", "", false)

	page, err := env.query.ListPosts(ctx, ListPostsInput{Filter: PostFilter{AuthorName: " alice "}})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, page.IDs)

	page, err = env.query.ListPosts(ctx, ListPostsInput{Filter: PostFilter{AuthorID: &alice}})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, page.IDs)
	assert.IsType(t, &models.PostPage{}, page)
}
