package types

import (
	"time"
)

// User holds ownership and credit balance; stages debit CreditsCurrent
// best-effort on success.
type User struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"column:email;index" json:"email"`
	DisplayName    string    `gorm:"column:display_name" json:"display_name"`
	CreditsCurrent int       `gorm:"column:credits_current" json:"credits_current"`
	CreditsTotal   int       `gorm:"column:credits_total" json:"credits_total"`
	PrimaryColor   string    `gorm:"column:primary_color" json:"primary_color"`
	SecondaryColor string    `gorm:"column:secondary_color" json:"secondary_color"`
	ChannelName    string    `gorm:"column:channel_name" json:"channel_name"`
	LogoPath       string    `gorm:"column:logo_path" json:"logo_path"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Channel is a tracked source channel for link ingest.
type Channel struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	UID           string    `gorm:"column:uid;index" json:"uid"`
	ChannelURL    string    `gorm:"column:channel_url" json:"channel_url"`
	ChannelName   string    `gorm:"column:channel_name" json:"channel_name"`
	LastPublished time.Time `gorm:"column:last_published" json:"last_published"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Channel) TableName() string { return "channels" }

// StockAudio is a licensed background-music asset referenced by id from a
// short's background_audio field.
type StockAudio struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"column:title" json:"title"`
	AudioPath string    `gorm:"column:audio_path;not null" json:"audio_path"`
	Mood      string    `gorm:"column:mood" json:"mood"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (StockAudio) TableName() string { return "stock_audio" }
