package pipeline

import (
	"context"
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/dispatch"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/repos"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// shortStageEndpoints maps a short's current status to the endpoint that
// performs it. Absence means the chain is terminal for that status.
var shortStageEndpoints = map[string]string{
	types.ShortStatusEditTranscript:   EndpointTemporalSegmentation,
	types.ShortStatusGenerateAudio:    EndpointGenerateTestAudio,
	types.ShortStatusGenerateIntro:    EndpointGenerateIntro,
	types.ShortStatusCreateShortVideo: EndpointCreateShortVideo,
	types.ShortStatusGenerateSaliency: EndpointGetSaliency,
	types.ShortStatusDetermineBounds:  EndpointDetermineBoundaries,
	types.ShortStatusGetBoundingBoxes: EndpointGetBoundingBoxes,
	types.ShortStatusGenerateARoll:    EndpointGenerateARoll,
	types.ShortStatusGenerateBRoll:    EndpointGenerateBRoll,
	types.ShortStatusPreviewVideo:     EndpointCreateCroppedVideo,
}

// NextShortStatus returns the status a short moves to once the stage for its
// current status succeeds, or "" when the chain ends.
func NextShortStatus(current string) string {
	order := []string{
		types.ShortStatusEditTranscript,
		types.ShortStatusGenerateAudio,
		types.ShortStatusGenerateIntro,
		types.ShortStatusCreateShortVideo,
		types.ShortStatusGenerateSaliency,
		types.ShortStatusDetermineBounds,
		types.ShortStatusGetBoundingBoxes,
		types.ShortStatusGenerateARoll,
		types.ShortStatusGenerateBRoll,
		types.ShortStatusPreviewVideo,
	}
	for i, status := range order {
		if status == current {
			if i == len(order)-1 {
				return types.ShortStatusFinished
			}
			return order[i+1]
		}
	}
	return ""
}

// Chain creates the follow-up request when a short has auto-generate on. The
// next stage's cost is checked against the balance the caller observed before
// the completed stage's debit; an unaffordable stage clears auto_generate and
// stops the chain.
type Chain struct {
	log        *logger.Logger
	shorts     repos.ShortRepo
	ledger     *Ledger
	costs      *StageCosts
	dispatcher dispatch.Dispatcher
}

func NewChain(log *logger.Logger, shorts repos.ShortRepo, ledger *Ledger, costs *StageCosts, dispatcher dispatch.Dispatcher) *Chain {
	return &Chain{
		log:        log.With("service", "StageChain"),
		shorts:     shorts,
		ledger:     ledger,
		costs:      costs,
		dispatcher: dispatcher,
	}
}

// Advance reloads the short (the finished handler moved short_status forward)
// and enqueues the request for its current status.
func (c *Chain) Advance(ctx context.Context, shortID string, balance int) error {
	short, err := c.shorts.GetByID(ctx, nil, shortID)
	if err != nil {
		return fmt.Errorf("chain reload short %s: %w", shortID, err)
	}
	if short == nil || !short.AutoGenerate {
		return nil
	}
	endpoint, ok := shortStageEndpoints[short.ShortStatus]
	if !ok {
		c.log.Info("Chain terminal", "short_id", shortID, "short_status", short.ShortStatus)
		return nil
	}
	cost := c.costs.Cost(endpoint)
	if cost > balance {
		c.log.Info("Chain stopped on credit check",
			"short_id", shortID, "endpoint", endpoint, "cost", cost, "balance", balance)
		return c.shorts.UpdateFields(ctx, nil, shortID, map[string]any{"auto_generate": false})
	}

	binding, _ := BindingFor(endpoint)
	req, err := c.ledger.CreateForEntity(ctx, endpoint, binding, shortID, short.UID, cost)
	if err != nil {
		return fmt.Errorf("chain create request for %s: %w", endpoint, err)
	}
	routeID := shortID
	if binding == BindRequest {
		routeID = req.ID
	}
	if err := c.dispatcher.Enqueue(ctx, endpoint, routeID, 0); err != nil {
		return fmt.Errorf("chain enqueue %s/%s: %w", endpoint, routeID, err)
	}
	c.log.Info("Chained next stage", "short_id", shortID, "endpoint", endpoint, "request_id", req.ID)
	return nil
}
