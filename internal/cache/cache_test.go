package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listParams struct {
	Tags []string
	Page int
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestAside_MissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]uint) func() error {
		return func() error {
			calls++
			*dest = []uint{3, 2, 1}
			return nil
		}
	}

	var first []uint
	require.NoError(t, c.Aside(ctx, "posts", "k", &first, ListTTL, fetch(&first)))
	var second []uint
	require.NoError(t, c.Aside(ctx, "posts", "k", &second, ListTTL, fetch(&second)))

	assert.Equal(t, []uint{3, 2, 1}, second)
	assert.Equal(t, 1, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var dest []uint
	err := c.Aside(ctx, "posts", "k", &dest, ListTTL, func() error { return errors.New("db down") })
	assert.Error(t, err)
	assert.False(t, mr.Exists("k"))
}

func TestAside_DisabledCacheAlwaysFetches(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	calls := 0
	for i := 0; i < 2; i++ {
		var dest int
		require.NoError(t, c.Aside(ctx, "posts", "k", &dest, ListTTL, func() error {
			calls++
			dest = 7
			return nil
		}))
		assert.Equal(t, 7, dest)
	}
	assert.Equal(t, 2, calls)
	assert.False(t, c.Enabled())
}

func TestPostsListKey_ChangesWhenInvalidated(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	params := listParams{Tags: []string{"go"}, Page: 1}

	before, err := c.PostsListKey(ctx, params)
	require.NoError(t, err)
	same, err := c.PostsListKey(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, before, same)

	other, err := c.PostsListKey(ctx, listParams{Tags: []string{"go"}, Page: 2})
	require.NoError(t, err)
	assert.NotEqual(t, before, other)

	c.InvalidatePostsList(ctx)
	after, err := c.PostsListKey(ctx, params)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestInvalidatePost(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, PostKey(5), map[string]int{"id": 5}, PostTTL))
	require.True(t, mr.Exists(PostKey(5)))

	c.InvalidatePost(ctx, 5)
	assert.False(t, mr.Exists(PostKey(5)))
	assert.Equal(t, int64(1), c.listVersion(ctx))
}
