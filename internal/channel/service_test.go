package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/channel/entity"
	channelrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/channel/repo"
)

type fakeRepo struct {
	channels map[string]entity.ChannelView
	history  map[string][]entity.VideoView
	err      error

	gotUsername string
	gotViewer   string
}

func (f *fakeRepo) ChannelProfile(_ context.Context, username, viewerID string) (*entity.ChannelView, error) {
	f.gotUsername, f.gotViewer = username, viewerID
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.channels[username]
	if !ok {
		return nil, channelrepo.ErrNotFound
	}
	return &v, nil
}

func (f *fakeRepo) WatchHistory(_ context.Context, userID string) ([]entity.VideoView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history[userID], nil
}

func (f *fakeRepo) AppendWatchHistory(_ context.Context, userID, videoID string) error {
	if f.err != nil {
		return f.err
	}
	if videoID == "gone" {
		return channelrepo.ErrVideoNotFound
	}
	if f.history == nil {
		f.history = map[string][]entity.VideoView{}
	}
	f.history[userID] = append(f.history[userID], entity.VideoView{ID: videoID})
	return nil
}

func aliceChannel() entity.ChannelView {
	return entity.ChannelView{
		Username: "alice", Fullname: "Alice", Email: "alice@example.com",
		SubscribersCount: 2, ChannelsSubscribedTo: 1, IsSubscribed: true,
	}
}

func TestGetChannelProfile(t *testing.T) {
	repo := &fakeRepo{channels: map[string]entity.ChannelView{"alice": aliceChannel()}}
	svc := NewService(repo, nil)

	got, err := svc.GetChannelProfile(context.Background(), "  Alice ", "bob-id")
	require.NoError(t, err)
	if diff := cmp.Diff(aliceChannel(), *got); diff != "" {
		t.Errorf("channel mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "alice", repo.gotUsername)
	assert.Equal(t, "bob-id", repo.gotViewer)
}

func TestGetChannelProfile_Errors(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)

	_, err := svc.GetChannelProfile(context.Background(), "   ", "bob-id")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "username is missing", apperr.Message(err))

	_, err = svc.GetChannelProfile(context.Background(), "ghost", "bob-id")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Channel does not exist", apperr.Message(err))

	svc = NewService(&fakeRepo{err: errors.New("db down")}, nil)
	_, err = svc.GetChannelProfile(context.Background(), "alice", "bob-id")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestGetWatchHistory_EmptyIsNotNil(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)

	got, err := svc.GetWatchHistory(context.Background(), "1001")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecordWatch_AppendsInOrder(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.RecordWatch(ctx, "1001", "v1"))
	require.NoError(t, svc.RecordWatch(ctx, "1001", "v2"))
	require.NoError(t, svc.RecordWatch(ctx, "1001", "v1"))

	got, err := svc.GetWatchHistory(ctx, "1001")
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, v := range got {
		ids = append(ids, v.ID)
	}
	if diff := cmp.Diff([]string{"v1", "v2", "v1"}, ids); diff != "" {
		t.Errorf("history order mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(svc.RecordWatch(ctx, "1001", " ")))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.RecordWatch(ctx, "1001", "gone")))
}
