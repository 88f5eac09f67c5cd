package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/repos"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// Ledger owns the request lifecycle: creation, acknowledgement, start/finish
// stamping, log append, progress, and the credit debit on success.
type Ledger struct {
	log      *logger.Logger
	requests repos.RequestRepo
	users    repos.UserRepo
}

func NewLedger(log *logger.Logger, requests repos.RequestRepo, users repos.UserRepo) *Ledger {
	return &Ledger{
		log:      log.With("service", "RequestLedger"),
		requests: requests,
		users:    users,
	}
}

// CreateForEntity opens a pending request against one entity.
func (l *Ledger) CreateForEntity(ctx context.Context, endpoint string, binding Binding, entityID, uid string, creditCost int) (*types.Request, error) {
	req := &types.Request{
		ID:              uuid.NewString(),
		RequestOperand:  operandFor(binding),
		RequestEndpoint: endpoint,
		UID:             uid,
		CreditCost:      creditCost,
		Status:          types.RequestStatusPending,
		RequestCreated:  time.Now(),
	}
	switch binding {
	case BindVideo:
		req.VideoID = entityID
	case BindSegment:
		req.SegmentID = entityID
	default:
		req.ShortID = entityID
	}
	if err := l.requests.Create(ctx, nil, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// Start stamps server_started_timestamp exactly once; the bool reports whether
// this caller won the stamp.
func (l *Ledger) Start(ctx context.Context, requestID string) (bool, error) {
	return l.requests.MarkStarted(ctx, nil, requestID, time.Now())
}

func (l *Ledger) Acknowledge(ctx context.Context, requestID string) error {
	return l.requests.MarkAcknowledged(ctx, nil, requestID, time.Now())
}

// Log appends one entry to the request; failures are logged and swallowed so
// a log write never fails a stage.
func (l *Ledger) Log(ctx context.Context, requestID, message string) {
	err := l.requests.AppendLog(ctx, nil, requestID, types.RequestLog{Message: message, Timestamp: time.Now()})
	if err != nil {
		l.log.Warn("Request log append failed", "request_id", requestID, "error", err)
	}
}

func (l *Ledger) Progress(ctx context.Context, requestID string, progress int) {
	if err := l.requests.SetProgress(ctx, nil, requestID, progress); err != nil {
		l.log.Warn("Request progress update failed", "request_id", requestID, "error", err)
	}
}

// FinishSuccess closes the request completed and debits the stage's credit
// cost from the user. The debit is best-effort: a failed write is logged and
// never retried within the request.
func (l *Ledger) FinishSuccess(ctx context.Context, req *types.Request) error {
	now := time.Now()
	err := l.requests.UpdateFields(ctx, nil, req.ID, map[string]any{
		"status":                     types.RequestStatusCompleted,
		"progress":                   100,
		"server_completed_timestamp": now,
	})
	if err != nil {
		return fmt.Errorf("finish request %s: %w", req.ID, err)
	}
	if req.UID != "" && req.CreditCost > 0 {
		if err := l.users.DebitCredits(ctx, nil, req.UID, req.CreditCost); err != nil {
			l.log.Error("Credit debit failed", "request_id", req.ID, "uid", req.UID, "error", err)
		}
	}
	return nil
}

// FinishFailure closes the request failed with no charge.
func (l *Ledger) FinishFailure(ctx context.Context, req *types.Request, cause error) error {
	l.Log(ctx, req.ID, fmt.Sprintf("Stage failed: %v", cause))
	now := time.Now()
	err := l.requests.UpdateFields(ctx, nil, req.ID, map[string]any{
		"status":                     types.RequestStatusFailed,
		"progress":                   100,
		"credit_cost":                0,
		"server_completed_timestamp": now,
	})
	if err != nil {
		return fmt.Errorf("fail request %s: %w", req.ID, err)
	}
	return nil
}
