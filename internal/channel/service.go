package channel

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/channel/entity"
	channelrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/channel/repo"
)

type Repository interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (*entity.ChannelView, error)
	WatchHistory(ctx context.Context, userID string) ([]entity.VideoView, error)
	AppendWatchHistory(ctx context.Context, userID, videoID string) error
}

// Service computes the channel profile and watch history views.
type Service struct {
	repo   Repository
	logger *zap.SugaredLogger
}

func NewService(repo Repository, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetChannelProfile(ctx context.Context, username, viewerID string) (*entity.ChannelView, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperr.Validation("username is missing")
	}
	v, err := s.repo.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, channelrepo.ErrNotFound) {
			return nil, apperr.NotFound("Channel does not exist")
		}
		return nil, apperr.Internal("Something went wrong while fetching the channel", err)
	}
	return v, nil
}

// GetWatchHistory never returns nil so the JSON body is always an array.
func (s *Service) GetWatchHistory(ctx context.Context, viewerID string) ([]entity.VideoView, error) {
	videos, err := s.repo.WatchHistory(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while fetching watch history", err)
	}
	if videos == nil {
		videos = []entity.VideoView{}
	}
	return videos, nil
}

// RecordWatch appends videoID to the viewer's history.
func (s *Service) RecordWatch(ctx context.Context, viewerID, videoID string) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return apperr.Validation("video id is missing")
	}
	if err := s.repo.AppendWatchHistory(ctx, viewerID, videoID); err != nil {
		if errors.Is(err, channelrepo.ErrVideoNotFound) {
			return apperr.NotFound("Video does not exist")
		}
		return apperr.Internal("Something went wrong while updating watch history", err)
	}
	s.logger.Debugw("watch recorded", "user_id", viewerID, "video_id", videoID)
	return nil
}
