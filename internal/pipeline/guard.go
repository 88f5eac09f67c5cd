package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/repos"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// ErrAlreadyProcessing is returned when an entity's Processing lock is held by
// another in-flight handler. Callers map it to a 400 "already processing"
// response; the request is not considered failed.
var ErrAlreadyProcessing = errors.New("task already processing for this entity")

// ErrNotFound is returned when the routed request or entity does not exist.
var ErrNotFound = errors.New("entity not found")

// Guard performs per-entity admission: a compare-and-set on backend_status
// that refuses entry while another handler holds Processing, and clears the
// lock on exit.
type Guard struct {
	log      *logger.Logger
	shorts   repos.ShortRepo
	videos   repos.VideoRepo
	segments repos.SegmentRepo
}

func NewGuard(log *logger.Logger, shorts repos.ShortRepo, videos repos.VideoRepo, segments repos.SegmentRepo) *Guard {
	return &Guard{
		log:      log.With("service", "Guard"),
		shorts:   shorts,
		videos:   videos,
		segments: segments,
	}
}

// Admission is a held entity lock plus the snapshot taken under it. Exactly
// one of the Release methods must be called once the stage returns.
type Admission struct {
	guard   *Guard
	binding Binding
	id      string

	Short   *types.Short
	Video   *types.Video
	Segment *types.TopicalSegment
}

// Admit claims the entity named by (binding, id). On success the returned
// Admission carries a fresh snapshot read after the claim, so the handler sees
// the state no other handler can be mutating.
func (g *Guard) Admit(ctx context.Context, binding Binding, id string) (*Admission, error) {
	adm := &Admission{guard: g, binding: binding, id: id}
	var (
		won bool
		err error
	)
	switch binding {
	case BindVideo:
		won, err = g.videos.TryClaim(ctx, nil, id)
	case BindSegment:
		won, err = g.segments.TryClaim(ctx, nil, id)
	default:
		won, err = g.shorts.TryClaim(ctx, nil, id)
	}
	if err != nil {
		return nil, fmt.Errorf("admission claim on %s: %w", id, err)
	}
	if !won {
		return nil, ErrAlreadyProcessing
	}

	switch binding {
	case BindVideo:
		adm.Video, err = g.videos.GetByID(ctx, nil, id)
		if err == nil && adm.Video == nil {
			err = ErrNotFound
		}
	case BindSegment:
		adm.Segment, err = g.segments.GetByID(ctx, nil, id)
		if err == nil && adm.Segment == nil {
			err = ErrNotFound
		}
	default:
		adm.Short, err = g.shorts.GetByID(ctx, nil, id)
		if err == nil && adm.Short == nil {
			err = ErrNotFound
		}
	}
	if err != nil {
		adm.release(ctx, nil)
		return nil, err
	}
	return adm, nil
}

// ReleaseSuccess clears the lock after a successful stage.
func (a *Admission) ReleaseSuccess(ctx context.Context) {
	a.release(ctx, nil)
}

// ReleaseFailure clears the lock and marks the entity failed: auto-generate is
// switched off so the chain stops, and the error surfaces to the user.
func (a *Admission) ReleaseFailure(ctx context.Context, cause error) {
	extra := map[string]any{
		"error":         true,
		"error_message": cause.Error(),
	}
	if a.binding != BindVideo && a.binding != BindSegment {
		extra["auto_generate"] = false
	}
	a.release(ctx, extra)
}

func (a *Admission) release(ctx context.Context, extra map[string]any) {
	var err error
	switch a.binding {
	case BindVideo:
		err = a.guard.videos.Release(ctx, nil, a.id, extra)
	case BindSegment:
		err = a.guard.segments.Release(ctx, nil, a.id, extra)
	default:
		err = a.guard.shorts.Release(ctx, nil, a.id, extra)
	}
	if err != nil {
		a.guard.log.Error("Lock release failed", "entity_id", a.id, "error", err)
	}
}
