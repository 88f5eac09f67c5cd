package stages

import (
	"context"
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/ffmpegx"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// SegmentCropper cuts a topical segment's span out of the raw source video
// and stores it as the segment's own clip, the input every downstream short
// of that segment starts from.
type SegmentCropper struct {
	log  *logger.Logger
	deps *Deps
}

func NewSegmentCropper(deps *Deps) *SegmentCropper {
	return &SegmentCropper{log: deps.Log.With("stage", "SegmentCropper"), deps: deps}
}

func (s *SegmentCropper) Run(ctx context.Context, sc *pipeline.StageContext) error {
	segment := sc.Segment
	if segment == nil {
		return fmt.Errorf("segment cropper requires a segment")
	}
	video, err := s.deps.Videos.GetByID(ctx, nil, segment.VideoID)
	if err != nil {
		return fmt.Errorf("load video %s: %w", segment.VideoID, err)
	}
	if video == nil || video.VideoPath == "" {
		return fmt.Errorf("segment %s has no source video blob", segment.ID)
	}
	if segment.LatestEndTime <= segment.EarliestStartTime {
		return fmt.Errorf("segment %s has an empty time span", segment.ID)
	}

	s.deps.progress(ctx, sc, 20, "Downloading source video")
	srcPath, cleanup, err := s.deps.Bucket.DownloadToTemp(ctx, video.VideoPath)
	if err != nil {
		return fmt.Errorf("download source video: %w", err)
	}
	defer cleanup()

	info, err := s.deps.FF.Probe(ctx, srcPath)
	if err != nil {
		return fmt.Errorf("probe source video: %w", err)
	}
	outPath, outCleanup, err := s.deps.FF.TempPath("segment-*.mp4")
	if err != nil {
		return err
	}
	defer outCleanup()

	s.deps.progress(ctx, sc, 50, "Clipping segment span")
	spec := ffmpegx.CropScaleSpec{
		X: 0, Y: 0,
		W: info.Width, H: info.Height,
		OutW: info.Width, OutH: info.Height,
		Start: segment.EarliestStartTime, End: segment.LatestEndTime,
	}
	if err := s.deps.FF.SubclipCropScale(ctx, srcPath, outPath, spec); err != nil {
		return fmt.Errorf("clip segment span: %w", err)
	}

	key := fmt.Sprintf("segments-video/%s-segment.mp4", segment.ID)
	s.deps.progress(ctx, sc, 80, "Uploading segment clip")
	if err := s.deps.Bucket.UploadFromFile(ctx, outPath, key); err != nil {
		return fmt.Errorf("upload segment clip: %w", err)
	}
	if err := s.deps.Segments.UpdateFields(ctx, nil, segment.ID, map[string]any{
		"video_segment_location": key,
	}); err != nil {
		return fmt.Errorf("persist segment clip key: %w", err)
	}
	s.deps.progress(ctx, sc, 95, "Segment clip ready")
	return nil
}
