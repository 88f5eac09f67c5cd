package stages

import (
	"context"
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/media/overlay"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/apify"
	"github.com/yungbote/clipforge-backend/internal/platform/elevenlabs"
	"github.com/yungbote/clipforge-backend/internal/platform/ffmpegx"
	"github.com/yungbote/clipforge-backend/internal/platform/gcp"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/platform/openai"
	"github.com/yungbote/clipforge-backend/internal/platform/saliency"
	"github.com/yungbote/clipforge-backend/internal/repos"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// Deps bundles the services stage handlers draw from. One instance is shared
// by every stage; all fields are read-only after construction.
type Deps struct {
	Log       *logger.Logger
	Shorts    repos.ShortRepo
	Videos    repos.VideoRepo
	Segments  repos.SegmentRepo
	Users     repos.UserRepo
	Stock     repos.StockAudioRepo
	Analytics repos.AnalyticsRepo
	Bucket    gcp.BucketService
	FF        ffmpegx.Tools
	Ledger    *pipeline.Ledger
	LLM       openai.Client
	TTS       elevenlabs.Client
	Saliency  saliency.Client
	Apify     apify.Client
	Overlay   *overlay.Service
}

// progress mirrors stage progress onto the request and, when present, the
// short the user is watching.
func (d *Deps) progress(ctx context.Context, sc *pipeline.StageContext, pct int, message string) {
	d.Ledger.Progress(ctx, sc.Request.ID, pct)
	if message != "" {
		d.Ledger.Log(ctx, sc.Request.ID, message)
	}
	if sc.Short != nil {
		err := d.Shorts.UpdateFields(ctx, nil, sc.Short.ID, map[string]any{
			"update_progress":  pct,
			"progress_message": message,
		})
		if err != nil {
			d.Log.Warn("Short progress update failed", "short_id", sc.Short.ID, "error", err)
		}
	}
}

// advanceShortStatus moves the short one step along the production chain.
func (d *Deps) advanceShortStatus(ctx context.Context, short *types.Short) error {
	next := pipeline.NextShortStatus(short.ShortStatus)
	if next == "" {
		return nil
	}
	return d.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
		"previous_short_status": short.ShortStatus,
		"short_status":          next,
	})
}

// segmentForShort loads the short's parent segment.
func (d *Deps) segmentForShort(ctx context.Context, short *types.Short) (*types.TopicalSegment, error) {
	segment, err := d.Segments.GetByID(ctx, nil, short.SegmentID)
	if err != nil {
		return nil, fmt.Errorf("load segment %s: %w", short.SegmentID, err)
	}
	if segment == nil {
		return nil, fmt.Errorf("short %s references missing segment %s", short.ID, short.SegmentID)
	}
	return segment, nil
}

// keptWordsForShort applies the short's logs to its segment's words.
func (d *Deps) keptWordsForShort(ctx context.Context, short *types.Short) ([]types.Word, error) {
	segment, err := d.segmentForShort(ctx, short)
	if err != nil {
		return nil, err
	}
	words, err := segment.DecodeWords()
	if err != nil {
		return nil, err
	}
	labelWords(words)
	logs, err := short.DecodeLogs()
	if err != nil {
		return nil, err
	}
	return types.KeptWords(words, logs), nil
}

// labelWords assigns positional index labels to a pristine segment word list.
// Already-labelled lists (any nonzero index) are left alone.
func labelWords(words []types.Word) {
	for i := 1; i < len(words); i++ {
		if words[i].Index != 0 {
			return
		}
	}
	for i := range words {
		words[i].Index = i
	}
}
