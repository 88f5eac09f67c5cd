package types

import (
	"time"

	"gorm.io/datatypes"
)

// Transcript is one utterance of a video's transcription, ordered by Index.
type Transcript struct {
	ID                string         `gorm:"primaryKey" json:"id"`
	VideoID           string         `gorm:"column:video_id;index;not null" json:"video_id"`
	Index             int            `gorm:"column:index;not null" json:"index"`
	Transcript        string         `gorm:"column:transcript" json:"transcript"`
	Confidence        float64        `gorm:"column:confidence" json:"confidence"`
	EarliestStartTime float64        `gorm:"column:earliest_start_time" json:"earliest_start_time"`
	LatestEndTime     float64        `gorm:"column:latest_end_time" json:"latest_end_time"`
	LanguageCode      string         `gorm:"column:language_code" json:"language_code"`
	Words             datatypes.JSON `gorm:"column:words;type:jsonb" json:"words"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Transcript) TableName() string { return "transcriptions" }

func (t *Transcript) DecodeWords() ([]Word, error) {
	return ParseWordList(t.Words)
}
