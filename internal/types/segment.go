package types

import (
	"time"

	"gorm.io/datatypes"
)

// TopicalSegment is a contiguous span of a video's transcript words, tagged
// with a title and summary by the upstream segmentation step.
type TopicalSegment struct {
	ID                   string         `gorm:"primaryKey" json:"id"`
	VideoID              string         `gorm:"column:video_id;index;not null" json:"video_id"`
	UID                  string         `gorm:"column:uid;index" json:"uid"`
	Index                int            `gorm:"column:index;not null" json:"index"`
	StartIndex           int            `gorm:"column:start_index" json:"start_index"`
	EndIndex             int            `gorm:"column:end_index" json:"end_index"`
	EarliestStartTime    float64        `gorm:"column:earliest_start_time" json:"earliest_start_time"`
	LatestEndTime        float64        `gorm:"column:latest_end_time" json:"latest_end_time"`
	Transcript           string         `gorm:"column:transcript" json:"transcript"`
	Words                datatypes.JSON `gorm:"column:words;type:jsonb" json:"words"`
	SegmentSummary       string         `gorm:"column:segment_summary" json:"segment_summary"`
	SegmentTitle         string         `gorm:"column:segment_title" json:"segment_title"`
	Flagged              bool           `gorm:"column:flagged" json:"flagged"`
	HarassmentFlag       bool           `gorm:"column:harassment" json:"harassment"`
	HateSpeechFlag       bool           `gorm:"column:hate_speech" json:"hate_speech"`
	SegmentStatus        string         `gorm:"column:segment_status" json:"segment_status"`
	VideoSegmentLocation string         `gorm:"column:video_segment_location" json:"video_segment_location"`
	BackendStatus        BackendStatus  `gorm:"column:backend_status;default:'Pending'" json:"backend_status"`
	Error                bool           `gorm:"column:error" json:"error"`
	ErrorMessage         string         `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (TopicalSegment) TableName() string { return "topical_segments" }

func (s *TopicalSegment) DecodeWords() ([]Word, error) {
	return ParseWordList(s.Words)
}
