package types

import (
	"time"
)

// AnalyticsRecord is one poll of a published short's public metrics.
type AnalyticsRecord struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	ShortID      string    `gorm:"column:short_id;index;not null" json:"short_id"`
	UID          string    `gorm:"column:uid;index" json:"uid"`
	TikTokLink   string    `gorm:"column:tiktok_link" json:"tiktok_link"`
	Views        int       `gorm:"column:views" json:"views"`
	Likes        int       `gorm:"column:likes" json:"likes"`
	Shares       int       `gorm:"column:shares" json:"shares"`
	CommentCount int       `gorm:"column:comment_count" json:"comment_count"`
	PolledAt     time.Time `gorm:"column:polled_at" json:"polled_at"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AnalyticsRecord) TableName() string { return "analytics" }

// Comment is an upserted public comment, keyed by the platform's comment id.
type Comment struct {
	ID         string    `gorm:"primaryKey" json:"id"` // external comment id
	ShortID    string    `gorm:"column:short_id;index;not null" json:"short_id"`
	Author     string    `gorm:"column:author" json:"author"`
	Text       string    `gorm:"column:text" json:"text"`
	Likes      int       `gorm:"column:likes" json:"likes"`
	PostedAt   time.Time `gorm:"column:posted_at" json:"posted_at"`
	FetchedAt  time.Time `gorm:"column:fetched_at" json:"fetched_at"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }
