package types

import (
	"time"

	"gorm.io/datatypes"
)

// Video is a raw source upload (or link ingest). Document ids are opaque
// strings carried over from the original document-store layout.
type Video struct {
	ID                 string         `gorm:"primaryKey" json:"id"`
	UID                string         `gorm:"column:uid;index" json:"uid"`
	ChannelID          string         `gorm:"column:channel_id;index" json:"channel_id,omitempty"`
	OriginalFileName   string         `gorm:"column:original_file_name" json:"original_file_name"`
	VideoPath          string         `gorm:"column:video_path" json:"video_path"`
	AudioPath          string         `gorm:"column:audio_path" json:"audio_path"`
	Link               string         `gorm:"column:link" json:"link,omitempty"`
	Status             string         `gorm:"column:status" json:"status"`
	PreviousStatus     string         `gorm:"column:previous_status" json:"previous_status"`
	ProcessingProgress int            `gorm:"column:processing_progress" json:"processing_progress"`
	ProgressMessage    string         `gorm:"column:progress_message" json:"progress_message"`
	UploadTimestamp    time.Time      `gorm:"column:upload_timestamp" json:"upload_timestamp"`
	BackendStatus      BackendStatus  `gorm:"column:backend_status;default:'Pending'" json:"backend_status"`
	Error              bool           `gorm:"column:error" json:"error"`
	ErrorMessage       string         `gorm:"column:error_message" json:"error_message,omitempty"`
	Extra              datatypes.JSON `gorm:"column:extra;type:jsonb" json:"extra,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Video) TableName() string { return "videos" }
