package entity

import "time"

// Subscription is a directed edge subscriber -> channel between two users.
type Subscription struct {
	SubscriberID string    `db:"subscriber_id" json:"subscriber"`
	ChannelID    string    `db:"channel_id" json:"channel"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// ChannelView is a user seen as a channel, with subscription counts relative to a viewer.
type ChannelView struct {
	Username             string `db:"username" json:"username"`
	Fullname             string `db:"fullname" json:"fullname"`
	Email                string `db:"email" json:"email"`
	Avatar               string `db:"avatar_url" json:"avatar"`
	CoverImage           string `db:"cover_image_url" json:"coverImage"`
	SubscribersCount     int64  `db:"subscribers_count" json:"subscribersCount"`
	ChannelsSubscribedTo int64  `db:"channels_subscribed_to" json:"channelsSubscribedTo"`
	IsSubscribed         bool   `db:"is_subscribed" json:"isSubscribed"`
}

// OwnerSummary is the public part of a video owner's profile.
type OwnerSummary struct {
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// VideoView is one watch-history entry.
type VideoView struct {
	ID          string        `json:"id"`
	VideoFile   string        `json:"videoFile"`
	Thumbnail   string        `json:"thumbnail"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	Views       int64         `json:"views"`
	IsPublished bool          `json:"isPublished"`
	CreatedAt   time.Time     `json:"createdAt"`
	Owner       *OwnerSummary `json:"owner"`
}
