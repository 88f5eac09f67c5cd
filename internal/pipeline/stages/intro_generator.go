package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// IntroGenerator decides whether the short needs a spoken context intro and,
// if so, synthesizes it and stores the audio blob.
type IntroGenerator struct {
	log    *logger.Logger
	deps   *Deps
	oracle TranscriptOracle
}

func NewIntroGenerator(deps *Deps, oracle TranscriptOracle) *IntroGenerator {
	return &IntroGenerator{log: deps.Log.With("stage", "IntroGenerator"), deps: deps, oracle: oracle}
}

func (s *IntroGenerator) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("intro generator requires a short")
	}
	lines, err := short.DecodeLines()
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, line := range lines {
		for _, w := range line.Words {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(w.Word)
		}
	}
	idea := short.ShortIdea
	if short.ShortIdeaExplanation != "" {
		idea = idea + " — " + short.ShortIdeaExplanation
	}

	s.deps.progress(ctx, sc, 20, "Deciding on intro")
	needs, transcript, err := s.oracle.IntroDecision(ctx, b.String(), idea)
	if err != nil {
		return fmt.Errorf("intro decision: %w", err)
	}
	if !needs || transcript == "" {
		s.log.Info("No intro needed", "short_id", short.ID)
		if err := s.deps.advanceShortStatus(ctx, short); err != nil {
			return err
		}
		s.deps.progress(ctx, sc, 95, "No intro needed")
		return nil
	}

	s.deps.progress(ctx, sc, 50, "Synthesizing intro audio")
	audio, err := s.deps.TTS.Synthesize(ctx, transcript)
	if err != nil {
		return fmt.Errorf("synthesize intro: %w", err)
	}
	key := fmt.Sprintf("intro_audio/%s/intro_audio.mp3", short.ID)
	if err := s.deps.Bucket.UploadBytes(ctx, audio, key); err != nil {
		return fmt.Errorf("upload intro audio: %w", err)
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
		"intro_audio_path": key,
	}); err != nil {
		return fmt.Errorf("persist intro audio key: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, "Intro audio ready")
	return nil
}
