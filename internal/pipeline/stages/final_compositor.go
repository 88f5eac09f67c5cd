package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/clipforge-backend/internal/media/overlay"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// captionBaseY is where captions sit on the 1080x1920 canvas.
const captionBaseY = 1450

// FinalCompositor produces the finished short: captions burned onto the
// B-roll (or A-roll when no B-roll exists), the intro clip concatenated in
// front when one was rendered.
type FinalCompositor struct {
	log  *logger.Logger
	deps *Deps
}

func NewFinalCompositor(deps *Deps) *FinalCompositor {
	return &FinalCompositor{log: deps.Log.With("stage", "FinalCompositor"), deps: deps}
}

func (s *FinalCompositor) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("final compositor requires a short")
	}
	baseKey := short.ShortBRoll
	if baseKey == "" {
		baseKey = short.ShortARoll
	}
	if baseKey == "" {
		return fmt.Errorf("short %s has no rendered video", short.ID)
	}

	s.deps.progress(ctx, sc, 10, "Downloading rendered video")
	basePath, cleanup, err := s.deps.Bucket.DownloadToTemp(ctx, baseKey)
	if err != nil {
		return fmt.Errorf("download rendered video: %w", err)
	}
	defer cleanup()

	s.deps.progress(ctx, sc, 35, "Burning captions")
	captionedPath, capCleanup, err := s.deps.FF.TempPath("captioned-*.mp4")
	if err != nil {
		return err
	}
	defer capCleanup()
	texts, err := s.captionAdditions(short)
	if err != nil {
		return err
	}
	if len(texts) > 0 {
		if err := s.deps.Overlay.Render(ctx, basePath, captionedPath, texts, nil); err != nil {
			return fmt.Errorf("burn captions: %w", err)
		}
	} else {
		captionedPath = basePath
	}

	finalPath := captionedPath
	if short.IntroVideoPath != "" {
		s.deps.progress(ctx, sc, 65, "Prepending intro")
		introPath, introCleanup, err := s.deps.Bucket.DownloadToTemp(ctx, short.IntroVideoPath)
		if err != nil {
			return fmt.Errorf("download intro video: %w", err)
		}
		defer introCleanup()
		joined, joinCleanup, err := s.deps.FF.TempPath("final-*.mp4")
		if err != nil {
			return err
		}
		defer joinCleanup()
		if err := s.deps.FF.ConcatMP4(ctx, []string{introPath, captionedPath}, joined); err != nil {
			return fmt.Errorf("concat intro: %w", err)
		}
		finalPath = joined
	}

	key := fmt.Sprintf("finished-short/%s-final.mp4", short.ID)
	s.deps.progress(ctx, sc, 90, "Uploading finished short")
	if err := s.deps.Bucket.UploadFromFile(ctx, finalPath, key); err != nil {
		return fmt.Errorf("upload finished short: %w", err)
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
		"finished_short_location": key,
	}); err != nil {
		return fmt.Errorf("persist finished short key: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, "Finished short ready")
	return nil
}

// captionAdditions turns the short's rendered lines into timed text overlays
// on the gapless playback timeline.
func (s *FinalCompositor) captionAdditions(short *types.Short) ([]overlay.TextAddition, error) {
	lines, err := short.DecodeLines()
	if err != nil {
		return nil, err
	}
	texts := make([]overlay.TextAddition, 0, len(lines))
	for _, line := range lines {
		var b strings.Builder
		for _, w := range line.Words {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(w.Word)
		}
		if b.Len() == 0 {
			continue
		}
		start := line.StartTime
		end := line.EndTime
		texts = append(texts, overlay.TextAddition{
			Text:             b.String(),
			FontScale:        3,
			Thickness:        "Bold",
			Color:            "#FFFFFF",
			Outline:          true,
			OutlineColor:     "#000000",
			OutlineThickness: 3,
			OffsetX:          80,
			OffsetY:          captionBaseY,
			StartSeconds:     &start,
			EndSeconds:       &end,
		})
	}
	return texts, nil
}
