//go:build integration

package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/testdb"
)

func seedChannels(t *testing.T) *ChannelRepo {
	t.Helper()
	db := testdb.Open(t)
	testdb.Exec(t, db,
		`INSERT INTO users (id, username, email, fullname, password_hash, avatar_url) VALUES
			('u-alice', 'alice', 'alice@example.com', 'Alice', 'h', 'https://cdn/alice.png'),
			('u-bob', 'bob', 'bob@example.com', 'Bob', 'h', 'https://cdn/bob.png'),
			('u-carol', 'carol', 'carol@example.com', 'Carol', 'h', 'https://cdn/carol.png')`,
		`INSERT INTO subscriptions (subscriber_id, channel_id) VALUES
			('u-bob', 'u-alice'),
			('u-carol', 'u-alice'),
			('u-alice', 'u-bob')`,
		`INSERT INTO videos (id, owner_id, video_file_url, thumbnail_url, title) VALUES
			('v-1', 'u-bob', 'https://cdn/v1.mp4', 'https://cdn/v1.jpg', 'first'),
			('v-2', 'u-carol', 'https://cdn/v2.mp4', 'https://cdn/v2.jpg', 'second'),
			('v-3', NULL, 'https://cdn/v3.mp4', 'https://cdn/v3.jpg', 'orphan')`,
	)
	return NewChannelRepo(db)
}

func TestChannelProfile_Postgres(t *testing.T) {
	repo := seedChannels(t)
	ctx := context.Background()

	v, err := repo.ChannelProfile(ctx, "alice", "u-bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.SubscribersCount)
	assert.Equal(t, int64(1), v.ChannelsSubscribedTo)
	assert.True(t, v.IsSubscribed)
	assert.Equal(t, "https://cdn/alice.png", v.Avatar)

	v, err = repo.ChannelProfile(ctx, "alice", "u-alice")
	require.NoError(t, err)
	assert.False(t, v.IsSubscribed, "a channel does not subscribe to itself")

	v, err = repo.ChannelProfile(ctx, "alice", "")
	require.NoError(t, err)
	assert.False(t, v.IsSubscribed)
	assert.Equal(t, int64(2), v.SubscribersCount)

	v, err = repo.ChannelProfile(ctx, "carol", "u-bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.SubscribersCount)
	assert.Equal(t, int64(1), v.ChannelsSubscribedTo)
	assert.False(t, v.IsSubscribed)

	_, err = repo.ChannelProfile(ctx, "ghost", "u-bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWatchHistory_Postgres(t *testing.T) {
	repo := seedChannels(t)
	ctx := context.Background()

	empty, err := repo.WatchHistory(ctx, "u-alice")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, id := range []string{"v-2", "v-1", "v-3", "v-2"} {
		require.NoError(t, repo.AppendWatchHistory(ctx, "u-alice", id))
	}
	require.NoError(t, repo.AppendWatchHistory(ctx, "u-bob", "v-1"))
	assert.ErrorIs(t, repo.AppendWatchHistory(ctx, "u-alice", "v-missing"), ErrVideoNotFound)

	got, err := repo.WatchHistory(ctx, "u-alice")
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, v := range got {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"v-2", "v-1", "v-3", "v-2"}, ids, "stored order, repeats kept")

	require.NotNil(t, got[0].Owner)
	assert.Equal(t, "carol", got[0].Owner.Username)
	assert.Equal(t, "Carol", got[0].Owner.Fullname)
	assert.Equal(t, "https://cdn/carol.png", got[0].Owner.Avatar)
	require.NotNil(t, got[1].Owner)
	assert.Equal(t, "bob", got[1].Owner.Username)
	assert.Nil(t, got[2].Owner, "video without an owner")
}
