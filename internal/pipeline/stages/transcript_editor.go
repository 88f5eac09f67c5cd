package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/envutil"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

const (
	// maxEditErrors bounds editorial retries before the short is failed.
	maxEditErrors = 5
	// minKeptWords stops the legacy loop from trimming below a usable floor.
	minKeptWords = 70
)

// TranscriptEditor trims a segment's transcript down to the short, producing
// delete logs, the hook span, and the rendered caption lines on the adjusted
// timeline. Two algorithms exist: the legacy crop loop and the three-pass
// deterministic editor; TRANSCRIPT_EDITOR_MODE selects between them.
type TranscriptEditor struct {
	log    *logger.Logger
	deps   *Deps
	oracle TranscriptOracle
	legacy bool
}

func NewTranscriptEditor(deps *Deps, oracle TranscriptOracle) *TranscriptEditor {
	log := deps.Log.With("stage", "TranscriptEditor")
	mode := envutil.GetEnv("TRANSCRIPT_EDITOR_MODE", "deterministic", log)
	return &TranscriptEditor{
		log:    log,
		deps:   deps,
		oracle: oracle,
		legacy: mode == "legacy",
	}
}

func (s *TranscriptEditor) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("transcript editor requires a short")
	}
	segment, err := s.deps.segmentForShort(ctx, short)
	if err != nil {
		return err
	}
	words, err := segment.DecodeWords()
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("segment %s has no words", segment.ID)
	}
	labelWords(words)
	logs, err := short.DecodeLogs()
	if err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 10, "Editing transcript")

	if s.legacy {
		logs, err = s.runLegacy(ctx, sc, words, logs)
	} else {
		logs, err = s.runDeterministic(ctx, sc, words, logs)
	}
	if err != nil {
		// Editorial exhaustion is terminal for the short, not just the request.
		uerr := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
			"short_status": types.ShortStatusClippingFailed,
		})
		if uerr != nil {
			s.log.Error("Clipping-failed status write failed", "short_id", short.ID, "error", uerr)
		}
		return err
	}

	kept := types.KeptWords(words, logs)
	adjusted := adjustTimeline(kept)
	lines := buildLines(adjusted)

	s.deps.progress(ctx, sc, 80, "Rendering caption lines")
	updates := map[string]any{
		"logs":  types.MustJSON(logs),
		"lines": types.MustJSON(lines),
	}
	if !s.legacy {
		hook, err := s.oracle.Hook(ctx, indexedTranscript(reindexed(adjusted)), short.ShortIdea)
		if err != nil {
			return fmt.Errorf("hook selection: %w", err)
		}
		updates["hook_start"] = clampIndex(hook.Start, len(adjusted))
		updates["hook_end"] = clampIndex(hook.End, len(adjusted))
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, updates); err != nil {
		return fmt.Errorf("persist transcript edit: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, "Transcript ready")
	return nil
}

// runLegacy iterates crop decisions until the model is satisfied, the kept
// count hits the floor, or errors exhaust the budget.
func (s *TranscriptEditor) runLegacy(ctx context.Context, sc *pipeline.StageContext, words []types.Word, logs []types.EditLog) ([]types.EditLog, error) {
	errCount := 0
	for {
		kept := types.KeptWords(words, logs)
		if len(kept) <= minKeptWords {
			s.log.Info("Kept-word floor reached", "short_id", sc.Short.ID, "kept", len(kept))
			return logs, nil
		}
		transcript := indexedTranscript(kept)
		needs, err := s.oracle.NeedsCropping(ctx, transcript, sc.Short.ShortIdea)
		if err == nil && !needs {
			return logs, nil
		}
		var op IndexRange
		if err == nil {
			op, err = s.oracle.DeleteRange(ctx, transcript, sc.Short.ShortIdea)
		}
		if err != nil {
			errCount++
			s.log.Warn("Crop iteration failed", "short_id", sc.Short.ID, "attempt", errCount, "error", err)
			if errCount >= maxEditErrors {
				return nil, fmt.Errorf("transcript editing exhausted after %d errors: %w", errCount, err)
			}
			continue
		}
		logs = append(logs, deleteLog(op))
	}
}

// runDeterministic runs the boundary and filler passes once each; the hook
// pass runs later against the kept stream.
func (s *TranscriptEditor) runDeterministic(ctx context.Context, sc *pipeline.StageContext, words []types.Word, logs []types.EditLog) ([]types.EditLog, error) {
	transcript := indexedTranscript(types.KeptWords(words, logs))
	bounds, err := s.oracle.Boundaries(ctx, transcript, sc.Short.ShortIdea)
	if err != nil {
		return nil, fmt.Errorf("boundary selection: %w", err)
	}
	last := len(words) - 1
	start := clampIndex(bounds.Start, len(words))
	end := clampIndex(bounds.End, len(words))
	if start > 0 {
		logs = append(logs, deleteLog(IndexRange{Start: 0, End: start - 1, Explanation: bounds.Explanation}))
	}
	if end < last {
		logs = append(logs, deleteLog(IndexRange{Start: end + 1, End: last, Explanation: bounds.Explanation}))
	}

	s.deps.progress(ctx, sc, 40, "Removing filler")
	transcript = indexedTranscript(types.KeptWords(words, logs))
	ranges, err := s.oracle.Unnecessary(ctx, transcript, sc.Short.ShortIdea)
	if err != nil {
		return nil, fmt.Errorf("filler selection: %w", err)
	}
	for _, r := range ranges {
		logs = append(logs, deleteLog(r))
	}
	return logs, nil
}

func deleteLog(r IndexRange) types.EditLog {
	return types.EditLog{
		Type:       types.LogTypeDelete,
		Message:    r.Explanation,
		StartIndex: r.Start,
		EndIndex:   r.End,
		Time:       time.Now(),
	}
}

// reindexed relabels a kept stream 0..n-1 so hook indices land in the stream
// the viewer actually hears.
func reindexed(words []types.Word) []types.Word {
	out := make([]types.Word, len(words))
	copy(out, words)
	for i := range out {
		out[i].Index = i
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
