package types

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Short is the production unit the pipeline drives; §4 stages read and write
// it exclusively while holding BackendStatus = Processing. Nested structures
// live in JSONB columns with typed decode helpers below.
type Short struct {
	ID                   string         `gorm:"primaryKey" json:"id"`
	SegmentID            string         `gorm:"column:segment_id;index;not null" json:"segment_id"`
	VideoID              string         `gorm:"column:video_id;index;not null" json:"video_id"`
	UID                  string         `gorm:"column:uid;index" json:"uid"`
	ShortIdea            string         `gorm:"column:short_idea" json:"short_idea"`
	ShortIdeaExplanation string         `gorm:"column:short_idea_explanation" json:"short_idea_explanation"`
	ShortTitleTop        string         `gorm:"column:short_title_top" json:"short_title_top"`
	ShortTitleBottom     string         `gorm:"column:short_title_bottom" json:"short_title_bottom"`
	Transcript           string         `gorm:"column:transcript" json:"transcript"`
	Logs                 datatypes.JSON `gorm:"column:logs;type:jsonb" json:"logs"`
	Lines                datatypes.JSON `gorm:"column:lines;type:jsonb" json:"lines"`
	HookStart            int            `gorm:"column:hook_start;default:-1" json:"hook_start"`
	HookEnd              int            `gorm:"column:hook_end;default:-1" json:"hook_end"`
	IntroAudioPath       string         `gorm:"column:intro_audio_path" json:"intro_audio_path"`
	IntroVideoPath       string         `gorm:"column:intro_video_path" json:"intro_video_path"`
	ShortClippedVideo    string         `gorm:"column:short_clipped_video" json:"short_clipped_video"`
	ShortVideoSaliency   string         `gorm:"column:short_video_saliency" json:"short_video_saliency"`
	Cuts                 datatypes.JSON `gorm:"column:cuts;type:jsonb" json:"cuts"`
	TotalFrameCount      int            `gorm:"column:total_frame_count" json:"total_frame_count"`
	FPS                  float64        `gorm:"column:fps" json:"fps"`
	Height               int            `gorm:"column:height" json:"height"`
	Width                int            `gorm:"column:width" json:"width"`
	VisualDifference     datatypes.JSON `gorm:"column:visual_difference;type:jsonb" json:"visual_difference"`
	BoundingBoxes        datatypes.JSON `gorm:"column:bounding_boxes;type:jsonb" json:"bounding_boxes"`
	SaliencyValues       datatypes.JSON `gorm:"column:saliency_values;type:jsonb" json:"saliency_values"`
	BoxType              datatypes.JSON `gorm:"column:box_type;type:jsonb" json:"box_type"`
	ShortARoll           string         `gorm:"column:short_a_roll" json:"short_a_roll"`
	ShortBRoll           string         `gorm:"column:short_b_roll" json:"short_b_roll"`
	BRollTracks          datatypes.JSON `gorm:"column:b_roll_tracks;type:jsonb" json:"b_roll_tracks"`
	FinishedShortLocation string        `gorm:"column:finished_short_location" json:"finished_short_location"`
	BackgroundAudio      string         `gorm:"column:background_audio" json:"background_audio"`
	BackgroundPercentage float64        `gorm:"column:background_percentage" json:"background_percentage"`
	TempAudioFile        string         `gorm:"column:temp_audio_file" json:"temp_audio_file"`
	UpdateProgress       int            `gorm:"column:update_progress" json:"update_progress"`
	ProgressMessage      string         `gorm:"column:progress_message" json:"progress_message"`
	PendingOperation     bool           `gorm:"column:pending_operation" json:"pending_operation"`
	AutoGenerate         bool           `gorm:"column:auto_generate" json:"auto_generate"`
	ShortStatus          string         `gorm:"column:short_status" json:"short_status"`
	PreviousShortStatus  string         `gorm:"column:previous_short_status" json:"previous_short_status"`
	BackendStatus        BackendStatus  `gorm:"column:backend_status;default:'Pending'" json:"backend_status"`
	Error                bool           `gorm:"column:error" json:"error"`
	ErrorMessage         string         `gorm:"column:error_message" json:"error_message,omitempty"`
	TikTokLink           string         `gorm:"column:tiktok_link" json:"tiktok_link,omitempty"`
	LatestViews          int            `gorm:"column:latest_views" json:"latest_views"`
	LatestLikes          int            `gorm:"column:latest_likes" json:"latest_likes"`
	LatestShares         int            `gorm:"column:latest_shares" json:"latest_shares"`
	LatestComments       int            `gorm:"column:latest_comments" json:"latest_comments"`
	CreatedAt            time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Short) TableName() string { return "shorts" }

func (s *Short) DecodeLogs() ([]EditLog, error) {
	if len(s.Logs) == 0 {
		return nil, nil
	}
	var logs []EditLog
	if err := json.Unmarshal(s.Logs, &logs); err != nil {
		return nil, fmt.Errorf("parse short logs: %w", err)
	}
	return logs, nil
}

func (s *Short) DecodeLines() ([]Line, error) {
	if len(s.Lines) == 0 {
		return nil, nil
	}
	var lines []Line
	if err := json.Unmarshal(s.Lines, &lines); err != nil {
		return nil, fmt.Errorf("parse short lines: %w", err)
	}
	return lines, nil
}

func (s *Short) DecodeCuts() ([]int, error) {
	if len(s.Cuts) == 0 {
		return nil, nil
	}
	var cuts []int
	if err := json.Unmarshal(s.Cuts, &cuts); err != nil {
		return nil, fmt.Errorf("parse short cuts: %w", err)
	}
	return cuts, nil
}

func (s *Short) DecodeBoundingBoxes() (*BoundingBoxes, error) {
	if len(s.BoundingBoxes) == 0 {
		return nil, nil
	}
	var bb BoundingBoxes
	if err := json.Unmarshal(s.BoundingBoxes, &bb); err != nil {
		return nil, fmt.Errorf("parse bounding boxes: %w", err)
	}
	return &bb, nil
}

func (s *Short) DecodeBoxTypes() ([]string, error) {
	if len(s.BoxType) == 0 {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(s.BoxType, &tags); err != nil {
		return nil, fmt.Errorf("parse box types: %w", err)
	}
	return tags, nil
}

func (s *Short) DecodeBRollTracks() ([]BRollTrack, error) {
	if len(s.BRollTracks) == 0 {
		return nil, nil
	}
	var tracks []BRollTrack
	if err := json.Unmarshal(s.BRollTracks, &tracks); err != nil {
		return nil, fmt.Errorf("parse b-roll tracks: %w", err)
	}
	return tracks, nil
}

// MustJSON marshals v for storage in a JSONB column. The nested types here
// marshal without error by construction.
func MustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal jsonb value: %v", err))
	}
	return datatypes.JSON(raw)
}
