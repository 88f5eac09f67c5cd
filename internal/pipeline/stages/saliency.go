package stages

import (
	"context"
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// SaliencyStage asks the external saliency service to render the per-pixel
// saliency video for the short. The service writes the blob and records its
// key on the short document; this stage only triggers and advances.
type SaliencyStage struct {
	log  *logger.Logger
	deps *Deps
}

func NewSaliencyStage(deps *Deps) *SaliencyStage {
	return &SaliencyStage{log: deps.Log.With("stage", "Saliency"), deps: deps}
}

func (s *SaliencyStage) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("saliency stage requires a short")
	}
	if short.ShortClippedVideo == "" {
		return fmt.Errorf("short %s has no clipped video", short.ID)
	}
	s.deps.progress(ctx, sc, 20, "Requesting saliency render")
	if err := s.deps.Saliency.GenerateForShort(ctx, short.ID); err != nil {
		return fmt.Errorf("saliency render: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, "Saliency ready")
	return nil
}
