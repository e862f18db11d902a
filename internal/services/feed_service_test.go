package services

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineFollowedAuthorsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "u")
	x, y, z := env.createUser(t, "x"), env.createUser(t, "y"), env.createUser(t, "z")

	for _, target := range []string{x.ID.Hex(), y.ID.Hex()} {
		_, err := env.graph.Follow(ctx, u.ID.Hex(), target)
		require.NoError(t, err)
	}

	p3 := env.createPost(t, y, "P3")
	env.createPost(t, z, "P2")
	p1 := env.createPost(t, x, "P1")

	posts, err := env.feed.GetTimeline(ctx, u.ID.Hex(), NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, p1.ID, posts[0].ID)
	assert.Equal(t, p3.ID, posts[1].ID)
}

func TestTimelineIncludesOwnPosts(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "u")
	own := env.createPost(t, u, "mine")

	posts, err := env.feed.GetTimeline(context.Background(), u.ID.Hex(), NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, own.ID, posts[0].ID)
}

func TestTimelineSkipsMalformedFollowing(t *testing.T) {
	env := newTestEnv(t)
	u, x := env.createUser(t, "u"), env.createUser(t, "x")
	env.createPost(t, x, "P1")

	broken := env.reload(t, u)
	broken.Following = []string{"garbage", x.ID.Hex(), ""}
	env.users.Put(broken)

	posts, err := env.feed.GetTimeline(context.Background(), u.ID.Hex(), NewPage(1, 10))
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.FeedDroppedIdentifiers))
}

func TestTimelinePagination(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "u")
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		env.createPost(t, u, title)
	}

	page, err := env.feed.GetTimeline(context.Background(), u.ID.Hex(), NewPage(2, 2))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].Title)
	assert.Equal(t, "b", page[1].Title)
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		page, limit int
		want        Page
		skip        int64
	}{
		{0, 0, Page{Number: 1, Limit: DefaultPageLimit}, 0},
		{3, 5, Page{Number: 3, Limit: 5}, 10},
		{-1, 500, Page{Number: 1, Limit: MaxPageLimit}, 0},
		{math.MaxInt, 50, Page{Number: MaxPageNumber, Limit: MaxPageLimit}, int64(MaxPageNumber-1) * MaxPageLimit},
	}
	for _, tt := range tests {
		got := NewPage(tt.page, tt.limit)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.skip, got.Skip())
		assert.Less(t, got.Skip(), int64(math.MaxInt32))
	}
}
