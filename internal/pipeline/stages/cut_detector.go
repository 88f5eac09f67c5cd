package stages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/yungbote/clipforge-backend/internal/media/frames"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// pixelDeltaThreshold is the per-pixel grayscale change that counts toward a
// frame's difference score.
const pixelDeltaThreshold = 50

// CutDetector finds camera cuts in the short's clipped video by scoring
// adjacent grayscale frames and thresholding the score series at mean plus
// five standard deviations.
type CutDetector struct {
	log  *logger.Logger
	deps *Deps
}

func NewCutDetector(deps *Deps) *CutDetector {
	return &CutDetector{log: deps.Log.With("stage", "CutDetector"), deps: deps}
}

func (s *CutDetector) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("cut detector requires a short")
	}
	if short.ShortClippedVideo == "" {
		return fmt.Errorf("short %s has no clipped video", short.ID)
	}

	s.deps.progress(ctx, sc, 10, "Downloading clipped video")
	videoPath, cleanup, err := s.deps.Bucket.DownloadToTemp(ctx, short.ShortClippedVideo)
	if err != nil {
		return fmt.Errorf("download clipped video: %w", err)
	}
	defer cleanup()

	info, err := s.deps.FF.Probe(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("probe clipped video: %w", err)
	}

	s.deps.progress(ctx, sc, 30, "Scoring frame differences")
	diffs, frameCount, err := s.frameDifferences(ctx, videoPath, info.Width, info.Height)
	if err != nil {
		return err
	}
	cuts := DetectCuts(diffs)

	s.deps.progress(ctx, sc, 80, "Persisting cuts")
	updates := map[string]any{
		"cuts":              types.MustJSON(cuts),
		"visual_difference": types.MustJSON(diffs),
		"total_frame_count": frameCount,
		"fps":               info.FPS,
		"width":             info.Width,
		"height":            info.Height,
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, updates); err != nil {
		return fmt.Errorf("persist cuts: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, fmt.Sprintf("Found %d cuts", len(cuts)))
	return nil
}

// frameDifferences streams grayscale frames and counts, per adjacent pair,
// the pixels whose value changes by more than pixelDeltaThreshold.
func (s *CutDetector) frameDifferences(ctx context.Context, videoPath string, width, height int) ([]int, int, error) {
	reader, err := frames.NewGrayReader(ctx, videoPath, width, height, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("open gray frame reader: %w", err)
	}
	defer reader.Close()

	var diffs []int
	var prev []byte
	curr := make([]byte, width*height)
	count := 0
	for {
		if err := reader.NextInto(curr); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("decode frame %d: %w", count, err)
		}
		if prev != nil {
			changed := 0
			for i := range curr {
				d := int(curr[i]) - int(prev[i])
				if d < 0 {
					d = -d
				}
				if d > pixelDeltaThreshold {
					changed++
				}
			}
			diffs = append(diffs, changed)
		} else {
			prev = make([]byte, width*height)
		}
		prev, curr = curr, prev
		count++
	}
	return diffs, count, nil
}

// DetectCuts returns the indices whose difference score exceeds the series
// mean plus five standard deviations, in increasing order.
func DetectCuts(diffs []int) []int {
	cuts := []int{}
	if len(diffs) == 0 {
		return cuts
	}
	mean := 0.0
	for _, d := range diffs {
		mean += float64(d)
	}
	mean /= float64(len(diffs))
	variance := 0.0
	for _, d := range diffs {
		delta := float64(d) - mean
		variance += delta * delta
	}
	variance /= float64(len(diffs))
	threshold := mean + 5*math.Sqrt(variance)
	for i, d := range diffs {
		if float64(d) > threshold {
			cuts = append(cuts, i)
		}
	}
	return cuts
}
