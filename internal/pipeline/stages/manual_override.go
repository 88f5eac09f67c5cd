package stages

import (
	"context"
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// ManualOverride recomputes the caption lines after a user edits the short's
// logs directly: the stored delete/undelete ranges are reapplied to the
// segment words and line generation runs again.
type ManualOverride struct {
	log  *logger.Logger
	deps *Deps
}

func NewManualOverride(deps *Deps) *ManualOverride {
	return &ManualOverride{log: deps.Log.With("stage", "ManualOverride"), deps: deps}
}

func (s *ManualOverride) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("manual override requires a short")
	}
	kept, err := s.deps.keptWordsForShort(ctx, short)
	if err != nil {
		return err
	}
	if len(kept) == 0 {
		return fmt.Errorf("short %s keeps no words after override", short.ID)
	}
	s.deps.progress(ctx, sc, 40, "Rebuilding caption lines")
	lines := buildLines(adjustTimeline(kept))
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
		"lines": types.MustJSON(lines),
	}); err != nil {
		return fmt.Errorf("persist rebuilt lines: %w", err)
	}
	s.deps.progress(ctx, sc, 95, "Transcript override applied")
	return nil
}
