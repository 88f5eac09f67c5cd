package pipeline

import (
	"context"
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/repos"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// Controller is the request-driven reactor: it resolves the routed request
// and entity, admits under the per-entity lock, runs the stage handler, closes
// the ledger, and chains the next stage when auto-generate is on.
//
// The controller itself is stateless across requests; all state lives in the
// document store and the blob store.
type Controller struct {
	log      *logger.Logger
	requests repos.RequestRepo
	shorts   repos.ShortRepo
	videos   repos.VideoRepo
	segments repos.SegmentRepo
	users    repos.UserRepo
	router   *Router
	ledger   *Ledger
	guard    *Guard
	chain    *Chain
	costs    *StageCosts
}

func NewController(
	log *logger.Logger,
	requests repos.RequestRepo,
	shorts repos.ShortRepo,
	videos repos.VideoRepo,
	segments repos.SegmentRepo,
	users repos.UserRepo,
	router *Router,
	ledger *Ledger,
	guard *Guard,
	chain *Chain,
	costs *StageCosts,
) *Controller {
	return &Controller{
		log:      log.With("service", "PipelineController"),
		requests: requests,
		shorts:   shorts,
		videos:   videos,
		segments: segments,
		users:    users,
		router:   router,
		ledger:   ledger,
		guard:    guard,
		chain:    chain,
		costs:    costs,
	}
}

// Result is what a completed stage reports back to the HTTP surface.
type Result struct {
	RequestID string
	EntityID  string
	Message   string
}

// Process runs one stage invocation end to end. routeID names a request for
// request-bound endpoints and the entity itself otherwise.
func (c *Controller) Process(ctx context.Context, endpoint, routeID string) (*Result, error) {
	binding, ok := BindingFor(endpoint)
	if !ok {
		return nil, fmt.Errorf("unknown pipeline endpoint %q", endpoint)
	}

	req, entityID, err := c.resolveRequest(ctx, endpoint, binding, routeID)
	if err != nil {
		return nil, err
	}

	// Admission first: the losing caller must leave no trace on its request.
	adm, err := c.guard.Admit(ctx, binding, entityID)
	if err != nil {
		return nil, err
	}

	won, err := c.ledger.Start(ctx, req.ID)
	if err != nil {
		adm.ReleaseSuccess(ctx)
		return nil, fmt.Errorf("start request %s: %w", req.ID, err)
	}
	if !won {
		// Duplicate dispatch of an already-started request.
		adm.ReleaseSuccess(ctx)
		return nil, ErrAlreadyProcessing
	}

	handler, err := c.router.Resolve(endpoint)
	if err != nil {
		adm.ReleaseFailure(ctx, err)
		if ferr := c.ledger.FinishFailure(ctx, req, err); ferr != nil {
			c.log.Error("Ledger failure close failed", "request_id", req.ID, "error", ferr)
		}
		return nil, err
	}

	sc := &StageContext{
		Request: req,
		Short:   adm.Short,
		Video:   adm.Video,
		Segment: adm.Segment,
	}
	c.log.Info("Stage start", "endpoint", endpoint, "request_id", req.ID, "entity_id", entityID)
	runErr := c.runHandler(ctx, handler, sc)
	if runErr != nil {
		c.log.Error("Stage failed", "endpoint", endpoint, "request_id", req.ID, "error", runErr)
		adm.ReleaseFailure(ctx, runErr)
		if ferr := c.ledger.FinishFailure(ctx, req, runErr); ferr != nil {
			c.log.Error("Ledger failure close failed", "request_id", req.ID, "error", ferr)
		}
		return nil, runErr
	}

	adm.ReleaseSuccess(ctx)

	// Chain gating reads the balance before this stage's debit, so a stage
	// whose own cost drains the account can still fund its successor.
	balance := c.userBalance(ctx, req.UID)
	if err := c.ledger.FinishSuccess(ctx, req); err != nil {
		c.log.Error("Ledger success close failed", "request_id", req.ID, "error", err)
	}
	if adm.Short != nil {
		if err := c.chain.Advance(ctx, adm.Short.ID, balance); err != nil {
			c.log.Error("Chain advance failed", "short_id", adm.Short.ID, "error", err)
		}
	}
	c.log.Info("Stage complete", "endpoint", endpoint, "request_id", req.ID, "entity_id", entityID)
	return &Result{
		RequestID: req.ID,
		EntityID:  entityID,
		Message:   fmt.Sprintf("Completed %s", endpoint),
	}, nil
}

// runHandler isolates a stage panic so the lock and ledger still close.
func (c *Controller) runHandler(ctx context.Context, handler StageHandler, sc *StageContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panic: %v", r)
		}
	}()
	return handler.Run(ctx, sc)
}

// resolveRequest finds or opens the ledger request for this invocation. For
// entity-bound endpoints an externally-dispatched call may arrive without a
// pending request; one is opened so every run is accounted for.
func (c *Controller) resolveRequest(ctx context.Context, endpoint string, binding Binding, routeID string) (*types.Request, string, error) {
	if binding == BindRequest {
		req, err := c.requests.GetByID(ctx, nil, routeID)
		if err != nil {
			return nil, "", fmt.Errorf("lookup request %s: %w", routeID, err)
		}
		if req == nil {
			return nil, "", fmt.Errorf("request %s: %w", routeID, ErrNotFound)
		}
		entityID := req.EntityID()
		if entityID == "" {
			return nil, "", fmt.Errorf("request %s names no entity", routeID)
		}
		return req, entityID, nil
	}

	req, err := c.requests.FindOpen(ctx, nil, endpoint, operandFor(binding), routeID)
	if err != nil {
		return nil, "", fmt.Errorf("find open request for %s/%s: %w", endpoint, routeID, err)
	}
	if req != nil {
		return req, routeID, nil
	}
	uid, err := c.entityUID(ctx, binding, routeID)
	if err != nil {
		return nil, "", err
	}
	req, err = c.ledger.CreateForEntity(ctx, endpoint, binding, routeID, uid, c.costs.Cost(endpoint))
	if err != nil {
		return nil, "", err
	}
	return req, routeID, nil
}

func (c *Controller) entityUID(ctx context.Context, binding Binding, id string) (string, error) {
	switch binding {
	case BindVideo:
		video, err := c.videos.GetByID(ctx, nil, id)
		if err != nil {
			return "", fmt.Errorf("lookup video %s: %w", id, err)
		}
		if video == nil {
			return "", fmt.Errorf("video %s: %w", id, ErrNotFound)
		}
		return video.UID, nil
	case BindSegment:
		segment, err := c.segments.GetByID(ctx, nil, id)
		if err != nil {
			return "", fmt.Errorf("lookup segment %s: %w", id, err)
		}
		if segment == nil {
			return "", fmt.Errorf("segment %s: %w", id, ErrNotFound)
		}
		return segment.UID, nil
	default:
		short, err := c.shorts.GetByID(ctx, nil, id)
		if err != nil {
			return "", fmt.Errorf("lookup short %s: %w", id, err)
		}
		if short == nil {
			return "", fmt.Errorf("short %s: %w", id, ErrNotFound)
		}
		return short.UID, nil
	}
}

func (c *Controller) userBalance(ctx context.Context, uid string) int {
	if uid == "" {
		return 0
	}
	user, err := c.users.GetByID(ctx, nil, uid)
	if err != nil || user == nil {
		if err != nil {
			c.log.Warn("User balance read failed", "uid", uid, "error", err)
		}
		return 0
	}
	return user.CreditsCurrent
}
