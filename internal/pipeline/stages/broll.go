package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// placeholderColor fills in for B-roll assets that fail to load.
const placeholderColor = "0x3A3A3A"

// brollInput is one resolved overlay source: an ffmpeg input argument list
// plus the overlay geometry and time window.
type brollInput struct {
	args    []string
	item    types.BRollItem
	cleanup func()
}

// BRollCompositor overlays the short's B-roll tracks onto the A-roll with a
// single ffmpeg filter graph. A failing asset becomes a small solid
// placeholder of the same duration rather than failing the stage.
type BRollCompositor struct {
	log  *logger.Logger
	deps *Deps
}

func NewBRollCompositor(deps *Deps) *BRollCompositor {
	return &BRollCompositor{log: deps.Log.With("stage", "BRollCompositor"), deps: deps}
}

func (s *BRollCompositor) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("b-roll compositor requires a short")
	}
	if short.ShortARoll == "" {
		return fmt.Errorf("short %s has no a-roll", short.ID)
	}
	tracks, err := short.DecodeBRollTracks()
	if err != nil {
		return err
	}
	fps := short.FPS
	if fps <= 0 {
		fps = 30
	}

	s.deps.progress(ctx, sc, 10, "Downloading A-roll")
	arollPath, cleanup, err := s.deps.Bucket.DownloadToTemp(ctx, short.ShortARoll)
	if err != nil {
		return fmt.Errorf("download a-roll: %w", err)
	}
	defer cleanup()

	var items []types.BRollItem
	for _, track := range tracks {
		items = append(items, track.Items...)
	}
	if len(items) == 0 {
		// Nothing to overlay; the A-roll stands in for the B-roll.
		return s.finish(ctx, sc, short, arollPath)
	}

	s.deps.progress(ctx, sc, 30, "Resolving B-roll assets")
	inputs := make([]brollInput, 0, len(items))
	for _, item := range items {
		in := s.resolveItem(ctx, item, fps)
		if in.cleanup != nil {
			defer in.cleanup()
		}
		inputs = append(inputs, in)
	}

	outPath, outCleanup, err := s.deps.FF.TempPath("broll-*.mp4")
	if err != nil {
		return err
	}
	defer outCleanup()

	s.deps.progress(ctx, sc, 55, "Compositing overlays")
	args := []string{"-i", arollPath}
	for _, in := range inputs {
		args = append(args, in.args...)
	}
	args = append(args,
		"-filter_complex", buildOverlayGraph(inputs, fps),
		"-map", "[vout]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-r", fmt.Sprintf("%f", fps),
		"-c:a", "aac",
		"-movflags", "+faststart",
		outPath,
	)
	if err := s.deps.FF.Run(ctx, args...); err != nil {
		return fmt.Errorf("composite b-roll: %w", err)
	}
	return s.finish(ctx, sc, short, outPath)
}

// resolveItem produces the ffmpeg input for one overlay item, substituting
// the placeholder when the asset cannot be fetched.
func (s *BRollCompositor) resolveItem(ctx context.Context, item types.BRollItem, fps float64) brollInput {
	duration := float64(item.End-item.Start) / fps
	if duration <= 0 {
		duration = 1 / fps
	}

	src := item.ObjectMetadata.Src
	var localPath string
	var cleanup func()
	switch item.ObjectMetadata.UploadType {
	case "link":
		// ffmpeg reads the URL directly.
		localPath = src
	default:
		var err error
		localPath, cleanup, err = s.deps.Bucket.DownloadToTemp(ctx, src)
		if err != nil {
			s.log.Warn("B-roll asset fetch failed", "src", src, "error", err)
			return placeholderInput(item, duration, cleanup)
		}
	}

	switch item.ObjectMetadata.Type {
	case "image":
		return brollInput{
			args:    []string{"-loop", "1", "-t", fmt.Sprintf("%f", duration), "-i", localPath},
			item:    item,
			cleanup: cleanup,
		}
	default: // video
		info, err := s.deps.FF.Probe(ctx, localPath)
		if err != nil {
			s.log.Warn("B-roll asset probe failed", "src", src, "error", err)
			return placeholderInput(item, duration, cleanup)
		}
		offset := item.ObjectMetadata.Offset
		available := info.DurationSeconds - offset
		if available <= 0 {
			s.log.Warn("B-roll offset past end of asset", "src", src, "offset", offset)
			return placeholderInput(item, duration, cleanup)
		}
		// A shorter asset ends early rather than freezing.
		if available < duration {
			duration = available
		}
		return brollInput{
			args: []string{
				"-ss", fmt.Sprintf("%f", offset),
				"-t", fmt.Sprintf("%f", duration),
				"-i", localPath,
			},
			item:    item,
			cleanup: cleanup,
		}
	}
}

func placeholderInput(item types.BRollItem, duration float64, cleanup func()) brollInput {
	return brollInput{
		args: []string{
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=%s:s=100x100:d=%f", placeholderColor, duration),
		},
		item:    item,
		cleanup: cleanup,
	}
}

// buildOverlayGraph chains scale+overlay filters, one per input, each enabled
// only inside its item's frame window.
func buildOverlayGraph(inputs []brollInput, fps float64) string {
	var b strings.Builder
	prev := "[0:v]"
	for i, in := range inputs {
		meta := in.item.ObjectMetadata
		start := float64(in.item.Start) / fps
		end := float64(in.item.End) / fps
		scaled := fmt.Sprintf("[ov%d]", i)
		out := fmt.Sprintf("[v%d]", i)
		fmt.Fprintf(&b, "[%d:v]scale=%d:%d,setpts=PTS-STARTPTS+%f/TB%s;", i+1, meta.Width, meta.Height, start, scaled)
		fmt.Fprintf(&b, "%s%soverlay=%d:%d:enable='between(t,%f,%f)'%s;", prev, scaled, meta.X, meta.Y, start, end, out)
		prev = out
	}
	graph := b.String()
	graph = strings.TrimSuffix(graph, ";")
	// Rename the final label to the mapped output.
	return strings.TrimSuffix(graph, prev) + "[vout]"
}

func (s *BRollCompositor) finish(ctx context.Context, sc *pipeline.StageContext, short *types.Short, path string) error {
	key := fmt.Sprintf("shorts/%s/b_roll.mp4", short.ID)
	s.deps.progress(ctx, sc, 85, "Uploading B-roll")
	if err := s.deps.Bucket.UploadFromFile(ctx, path, key); err != nil {
		return fmt.Errorf("upload b-roll: %w", err)
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
		"short_b_roll": key,
	}); err != nil {
		return fmt.Errorf("persist b-roll key: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, "B-roll ready")
	return nil
}
