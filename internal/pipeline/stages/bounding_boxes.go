package stages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/clipforge-backend/internal/media/frames"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// frameResult holds the layout rectangles picked for one processed frame.
type frameResult struct {
	standard   types.Box
	twoBox     types.TwoBox
	reaction   types.Box
	halfScreen types.Box
	// meanSaliency is the average saliency inside the standard box.
	meanSaliency float64
}

// BoundingBoxGenerator sweeps the four crop layouts over the subsampled
// saliency frames, then lifts the per-layout tracks to full frame rate with
// cut-aware interpolation and smoothing.
type BoundingBoxGenerator struct {
	log  *logger.Logger
	deps *Deps
}

func NewBoundingBoxGenerator(deps *Deps) *BoundingBoxGenerator {
	return &BoundingBoxGenerator{log: deps.Log.With("stage", "BoundingBoxGenerator"), deps: deps}
}

func (s *BoundingBoxGenerator) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("bounding box generator requires a short")
	}
	if short.ShortVideoSaliency == "" {
		return fmt.Errorf("short %s has no saliency video", short.ID)
	}
	cuts, err := short.DecodeCuts()
	if err != nil {
		return err
	}

	s.deps.progress(ctx, sc, 10, "Downloading saliency video")
	salPath, cleanup, err := s.deps.Bucket.DownloadToTemp(ctx, short.ShortVideoSaliency)
	if err != nil {
		return fmt.Errorf("download saliency video: %w", err)
	}
	defer cleanup()

	info, err := s.deps.FF.Probe(ctx, salPath)
	if err != nil {
		return fmt.Errorf("probe saliency video: %w", err)
	}

	s.deps.progress(ctx, sc, 25, "Reading saliency frames")
	raw, err := readGrayFrames(ctx, salPath, info.Width, info.Height, frameStride)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("saliency video %s decoded no frames", short.ShortVideoSaliency)
	}

	s.deps.progress(ctx, sc, 45, "Sweeping layouts")
	results := make([]frameResult, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range raw {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			ii := frames.NewIntegral(raw[i], info.Width, info.Height)
			std, score := bestStandardBox(ii, info.Width, info.Height, sweepStep)
			area := float64(std.Width * std.Height)
			var mean float64
			if area > 0 {
				mean = float64(score) / area
			}
			results[i] = frameResult{
				standard:     std,
				twoBox:       bestTwoBox(ii, info.Width, info.Height, sweepStep),
				reaction:     bestReactionBox(ii, info.Width, info.Height, sweepStep),
				halfScreen:   bestHalfScreenBox(ii, info.Width, info.Height, sweepStep),
				meanSaliency: mean,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("layout sweep: %w", err)
	}

	// The saliency render may be spatially downscaled from the source clip;
	// rectangles are mapped back into source pixels before persisting.
	sx, sy := 1.0, 1.0
	if short.Width > 0 && info.Width > 0 {
		sx = float64(short.Width) / float64(info.Width)
	}
	if short.Height > 0 && info.Height > 0 {
		sy = float64(short.Height) / float64(info.Height)
	}

	total := short.TotalFrameCount
	standards := make([]types.Box, len(results))
	twoBoxes := make([]types.TwoBox, len(results))
	reactions := make([]types.Box, len(results))
	halfScreens := make([]types.Box, len(results))
	values := make([]float64, len(results))
	for i, r := range results {
		standards[i] = scaleBox(r.standard, sx, sy)
		twoBoxes[i] = types.TwoBox{Top: scaleBox(r.twoBox.Top, sx, sy), Bottom: scaleBox(r.twoBox.Bottom, sx, sy)}
		reactions[i] = scaleBox(r.reaction, sx, sy)
		halfScreens[i] = scaleBox(r.halfScreen, sx, sy)
		values[i] = r.meanSaliency
	}

	s.deps.progress(ctx, sc, 70, "Interpolating and smoothing tracks")
	bb := types.BoundingBoxes{
		Standard:   smoothBoxTrack(expandBoxTrack(standards, frameStride, cuts, total), cuts),
		TwoBox:     smoothTwoBoxTrack(expandTwoBoxTrack(twoBoxes, frameStride, cuts, total), cuts),
		Reaction:   smoothBoxTrack(expandBoxTrack(reactions, frameStride, cuts, total), cuts),
		HalfScreen: smoothBoxTrack(expandBoxTrack(halfScreens, frameStride, cuts, total), cuts),
	}
	saliencyValues := expandValueTrack(values, frameStride, cuts, total)

	updates := map[string]any{
		"bounding_boxes":  types.MustJSON(bb),
		"saliency_values": types.MustJSON(saliencyValues),
	}
	tags, err := short.DecodeBoxTypes()
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		tags = make([]string, len(bb.Standard))
		for i := range tags {
			tags[i] = types.LayoutStandardTikTok
		}
		updates["box_type"] = types.MustJSON(tags)
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, updates); err != nil {
		return fmt.Errorf("persist bounding boxes: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, "Bounding boxes ready")
	return nil
}

func scaleBox(b types.Box, sx, sy float64) types.Box {
	return types.Box{
		X:      int(math.Round(float64(b.X) * sx)),
		Y:      int(math.Round(float64(b.Y) * sy)),
		Width:  int(math.Round(float64(b.Width) * sx)),
		Height: int(math.Round(float64(b.Height) * sy)),
	}
}

// readGrayFrames pulls every stride-th grayscale frame into memory.
func readGrayFrames(ctx context.Context, path string, width, height, stride int) ([][]byte, error) {
	reader, err := frames.NewGrayReader(ctx, path, width, height, stride)
	if err != nil {
		return nil, fmt.Errorf("open gray frame reader: %w", err)
	}
	defer reader.Close()
	var out [][]byte
	for {
		frame, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("decode saliency frame %d: %w", len(out), err)
		}
		out = append(out, frame)
	}
}
