package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/channel/entity"
)

var (
	ErrNotFound      = errors.New("channel not found")
	ErrVideoNotFound = errors.New("video not found")
)

// pq error code for foreign_key_violation.
const foreignKeyViolation = "23503"

// ChannelRepo runs the read-side joins over users, subscriptions, videos and watch_history.
type ChannelRepo struct {
	db *sqlx.DB
}

func NewChannelRepo(db *sqlx.DB) *ChannelRepo { return &ChannelRepo{db: db} }

// ChannelProfile returns the channel with its subscription counts. viewerID
// may be empty, in which case IsSubscribed is false.
func (r *ChannelRepo) ChannelProfile(ctx context.Context, username, viewerID string) (*entity.ChannelView, error) {
	const q = `SELECT u.username, u.fullname, u.email, u.avatar_url, u.cover_image_url,
		COALESCE(subs.n, 0) AS subscribers_count,
		COALESCE(subd.n, 0) AS channels_subscribed_to,
		(viewer.subscriber_id IS NOT NULL) AS is_subscribed
	FROM users u
	LEFT JOIN (SELECT channel_id, COUNT(*) AS n FROM subscriptions GROUP BY channel_id) subs
		ON subs.channel_id = u.id
	LEFT JOIN (SELECT subscriber_id, COUNT(*) AS n FROM subscriptions GROUP BY subscriber_id) subd
		ON subd.subscriber_id = u.id
	LEFT JOIN subscriptions viewer
		ON viewer.channel_id = u.id AND viewer.subscriber_id = $2
	WHERE u.username = $1`

	var v entity.ChannelView
	if err := r.db.GetContext(ctx, &v, q, username, nullable(viewerID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("channel profile: %w", err)
	}
	return &v, nil
}

type historyRow struct {
	ID            string         `db:"id"`
	VideoFile     string         `db:"video_file_url"`
	Thumbnail     string         `db:"thumbnail_url"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	Duration      float64        `db:"duration"`
	Views         int64          `db:"views"`
	IsPublished   bool           `db:"is_published"`
	CreatedAt     time.Time      `db:"created_at"`
	OwnerFullname sql.NullString `db:"owner_fullname"`
	OwnerUsername sql.NullString `db:"owner_username"`
	OwnerAvatar   sql.NullString `db:"owner_avatar"`
}

// WatchHistory resolves the user's watched videos in stored order, each with
// its owner's summary. Videos that no longer exist are skipped.
func (r *ChannelRepo) WatchHistory(ctx context.Context, userID string) ([]entity.VideoView, error) {
	const q = `SELECT v.id, v.video_file_url, v.thumbnail_url, v.title, v.description,
		v.duration, v.views, v.is_published, v.created_at,
		o.fullname AS owner_fullname, o.username AS owner_username, o.avatar_url AS owner_avatar
	FROM watch_history wh
	JOIN videos v ON v.id = wh.video_id
	LEFT JOIN users o ON o.id = v.owner_id
	WHERE wh.user_id = $1
	ORDER BY wh.position ASC`

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("watch history: %w", err)
	}
	out := make([]entity.VideoView, 0, len(rows))
	for _, row := range rows {
		v := entity.VideoView{
			ID:          row.ID,
			VideoFile:   row.VideoFile,
			Thumbnail:   row.Thumbnail,
			Title:       row.Title,
			Description: row.Description,
			Duration:    row.Duration,
			Views:       row.Views,
			IsPublished: row.IsPublished,
			CreatedAt:   row.CreatedAt,
		}
		if row.OwnerUsername.Valid {
			v.Owner = &entity.OwnerSummary{
				Fullname: row.OwnerFullname.String,
				Username: row.OwnerUsername.String,
				Avatar:   row.OwnerAvatar.String,
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// AppendWatchHistory records that userID watched videoID. Entries are never
// reordered, so the history is append-only.
func (r *ChannelRepo) AppendWatchHistory(ctx context.Context, userID, videoID string) error {
	const q = `INSERT INTO watch_history (user_id, video_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, q, userID, videoID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return ErrVideoNotFound
		}
		return fmt.Errorf("append watch history: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
