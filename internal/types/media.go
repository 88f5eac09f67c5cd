package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Word is one transcript word with absolute timestamps in seconds. Index is
// the word's position label; the transcript editor marks deleted words by
// setting Index to -1 instead of compacting the list.
type Word struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Confidence float64 `json:"confidence,omitempty"`
	Language   string  `json:"language,omitempty"`
	GroupIndex int     `json:"group_index,omitempty"`
	Index      int     `json:"index"`
}

// EditLog is one append-only editorial operation on a short. Delete/undelete
// logs carry a closed index range [StartIndex, EndIndex] into the segment's
// word list.
type EditLog struct {
	Type       string    `json:"type"` // message | delete | undelete | success | error
	Message    string    `json:"message"`
	StartIndex int       `json:"start_index,omitempty"`
	EndIndex   int       `json:"end_index,omitempty"`
	Time       time.Time `json:"time"`
}

const (
	LogTypeMessage  = "message"
	LogTypeDelete   = "delete"
	LogTypeUndelete = "undelete"
	LogTypeSuccess  = "success"
	LogTypeError    = "error"
)

// Line is one rendered caption line on the adjusted (gapless) timeline.
type Line struct {
	Words     []Word  `json:"words"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	YPosition int     `json:"y_position"`
}

// Box is a pixel rectangle on a source frame.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TwoBox carries both halves of the two-box layout for one frame.
type TwoBox struct {
	Top    Box `json:"top"`
	Bottom Box `json:"bottom"`
}

// Layout names, used as keys in the persisted bounding_boxes map and as
// per-frame box_type tags.
const (
	LayoutStandardTikTok   = "standard_tiktok"
	LayoutTwoBoxes         = "two_boxes"
	LayoutTwoBoxesReversed = "two_boxes_reversed"
	LayoutReactionBox      = "reaction_box"
	LayoutHalfScreenBox    = "half_screen_box"
	LayoutPictureInPicture = "picture_in_picture"
)

// BoundingBoxes is the persisted per-layout per-frame track.
type BoundingBoxes struct {
	Standard   []Box    `json:"standard_tiktok"`
	TwoBox     []TwoBox `json:"two_boxes"`
	Reaction   []Box    `json:"reaction_box"`
	HalfScreen []Box    `json:"half_screen_box"`
}

// BRollItem is one overlaid asset occurrence; Start/End are frame indices at
// the short's fps.
type BRollItem struct {
	ObjectMetadata BRollObject `json:"object_metadata"`
	Start          int         `json:"start"`
	End            int         `json:"end"`
}

type BRollObject struct {
	Src        string  `json:"src"`
	UploadType string  `json:"uploadType"` // upload | link
	Type       string  `json:"type"`       // image | video
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Offset     float64 `json:"offset,omitempty"`
}

type BRollTrack struct {
	Items []BRollItem `json:"items"`
}

// ParseWordList accepts both storage forms of a serialized word list: a raw
// JSON array, and the legacy quoted-JSON-inside-string form (the array
// marshalled, then stored as a JSON string). New writes use the raw form.
func ParseWordList(raw []byte) ([]Word, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			// Some legacy rows carry bare escaped text without valid outer
			// quoting; strip and unescape by hand before giving up.
			unq, uerr := strconv.Unquote(trimmed)
			if uerr != nil {
				return nil, fmt.Errorf("unwrap legacy word list: %w", err)
			}
			inner = unq
		}
		trimmed = strings.TrimSpace(inner)
	}
	var words []Word
	if err := json.Unmarshal([]byte(trimmed), &words); err != nil {
		return nil, fmt.Errorf("parse word list: %w", err)
	}
	return words, nil
}

// KeptWords applies the logs' delete/undelete mask to words and returns the
// surviving words in original order. Ranges are closed on both ends and index
// the words' Index labels, not slice positions.
func KeptWords(words []Word, logs []EditLog) []Word {
	deleted := make(map[int]bool)
	for _, lg := range logs {
		switch lg.Type {
		case LogTypeDelete:
			for i := lg.StartIndex; i <= lg.EndIndex; i++ {
				deleted[i] = true
			}
		case LogTypeUndelete:
			for i := lg.StartIndex; i <= lg.EndIndex; i++ {
				deleted[i] = false
			}
		}
	}
	kept := make([]Word, 0, len(words))
	for _, w := range words {
		if w.Index < 0 {
			continue
		}
		if !deleted[w.Index] {
			kept = append(kept, w)
		}
	}
	return kept
}
