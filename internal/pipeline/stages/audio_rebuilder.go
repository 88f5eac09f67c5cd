package stages

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/ffmpegx"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// AudioRebuilder reassembles the short's audio from the source recording:
// the kept words' original time spans are sliced out of the video's audio
// blob and concatenated into a gapless track.
type AudioRebuilder struct {
	log  *logger.Logger
	deps *Deps
}

func NewAudioRebuilder(deps *Deps) *AudioRebuilder {
	return &AudioRebuilder{log: deps.Log.With("stage", "AudioRebuilder"), deps: deps}
}

func (s *AudioRebuilder) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("audio rebuilder requires a short")
	}
	video, err := s.deps.Videos.GetByID(ctx, nil, short.VideoID)
	if err != nil {
		return fmt.Errorf("load video %s: %w", short.VideoID, err)
	}
	if video == nil || video.AudioPath == "" {
		return fmt.Errorf("short %s has no source audio blob", short.ID)
	}

	kept, err := s.deps.keptWordsForShort(ctx, short)
	if err != nil {
		return err
	}
	if len(kept) == 0 {
		return fmt.Errorf("short %s keeps no words", short.ID)
	}
	slices := WordSlices(kept)

	s.deps.progress(ctx, sc, 20, "Downloading source audio")
	audioPath, cleanup, err := s.deps.Bucket.DownloadToTemp(ctx, video.AudioPath)
	if err != nil {
		return fmt.Errorf("download source audio: %w", err)
	}
	defer cleanup()

	outPath, outCleanup, err := s.deps.FF.TempPath("rebuilt-*.mp4")
	if err != nil {
		return err
	}
	defer outCleanup()

	s.deps.progress(ctx, sc, 50, "Rebuilding audio")
	if err := s.deps.FF.ConcatAudioSlices(ctx, audioPath, slices, outPath); err != nil {
		return fmt.Errorf("concat audio slices: %w", err)
	}
	if fi, err := os.Stat(outPath); err != nil || fi.Size() == 0 {
		return fmt.Errorf("rebuilt audio is empty")
	}

	key := fmt.Sprintf("temp-audio/%s_output.mp4", short.ID)
	s.deps.progress(ctx, sc, 80, "Uploading rebuilt audio")
	if err := s.deps.Bucket.UploadFromFile(ctx, outPath, key); err != nil {
		return fmt.Errorf("upload rebuilt audio: %w", err)
	}

	updates := map[string]any{"temp_audio_file": key}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, updates); err != nil {
		return fmt.Errorf("persist temp audio key: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, "Audio ready")
	return nil
}

// WordSlices turns kept words into non-overlapping source-time slices: each
// word's end is clamped to the next word's start so slices never overlap.
func WordSlices(kept []types.Word) []ffmpegx.Slice {
	slices := make([]ffmpegx.Slice, 0, len(kept))
	for i, w := range kept {
		end := w.EndTime
		if i+1 < len(kept) && kept[i+1].StartTime < end {
			end = kept[i+1].StartTime
		}
		if end <= w.StartTime {
			continue
		}
		slices = append(slices, ffmpegx.Slice{Start: w.StartTime, End: end})
	}
	return slices
}
