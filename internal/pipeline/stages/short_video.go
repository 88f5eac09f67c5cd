package stages

import (
	"context"
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/ffmpegx"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// ShortVideoCreator cuts the short's kept span out of the segment's video:
// from the first kept word's start to the last kept word's end, in the
// segment clip's local timeline.
type ShortVideoCreator struct {
	log  *logger.Logger
	deps *Deps
}

func NewShortVideoCreator(deps *Deps) *ShortVideoCreator {
	return &ShortVideoCreator{log: deps.Log.With("stage", "ShortVideoCreator"), deps: deps}
}

func (s *ShortVideoCreator) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("short video creator requires a short")
	}
	segment, err := s.deps.segmentForShort(ctx, short)
	if err != nil {
		return err
	}
	if segment.VideoSegmentLocation == "" {
		return fmt.Errorf("segment %s has no clipped video", segment.ID)
	}
	kept, err := s.deps.keptWordsForShort(ctx, short)
	if err != nil {
		return err
	}
	if len(kept) == 0 {
		return fmt.Errorf("short %s keeps no words", short.ID)
	}

	// Word times are absolute against the source video; the segment clip's
	// own timeline starts at the segment's earliest word.
	start := kept[0].StartTime - segment.EarliestStartTime
	end := kept[len(kept)-1].EndTime - segment.EarliestStartTime
	if start < 0 {
		start = 0
	}
	if end <= start {
		return fmt.Errorf("short %s has an empty kept span", short.ID)
	}

	s.deps.progress(ctx, sc, 20, "Downloading segment video")
	segPath, cleanup, err := s.deps.Bucket.DownloadToTemp(ctx, segment.VideoSegmentLocation)
	if err != nil {
		return fmt.Errorf("download segment video: %w", err)
	}
	defer cleanup()

	info, err := s.deps.FF.Probe(ctx, segPath)
	if err != nil {
		return fmt.Errorf("probe segment video: %w", err)
	}
	outPath, outCleanup, err := s.deps.FF.TempPath("short-*.mp4")
	if err != nil {
		return err
	}
	defer outCleanup()

	s.deps.progress(ctx, sc, 50, "Clipping short span")
	spec := ffmpegx.CropScaleSpec{
		X: 0, Y: 0,
		W: info.Width, H: info.Height,
		OutW: info.Width, OutH: info.Height,
		Start: start, End: end,
	}
	if err := s.deps.FF.SubclipCropScale(ctx, segPath, outPath, spec); err != nil {
		return fmt.Errorf("clip short span: %w", err)
	}

	key := fmt.Sprintf("short-video/%s-clip.mp4", short.ID)
	s.deps.progress(ctx, sc, 80, "Uploading short clip")
	if err := s.deps.Bucket.UploadFromFile(ctx, outPath, key); err != nil {
		return fmt.Errorf("upload short clip: %w", err)
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
		"short_clipped_video": key,
	}); err != nil {
		return fmt.Errorf("persist short clip key: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, "Short clip ready")
	return nil
}
