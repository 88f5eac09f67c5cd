package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

type RequestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, req *types.Request) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Request, error)
	// FindOpen returns the newest pending request for an endpoint and entity,
	// or nil when none exists.
	FindOpen(ctx context.Context, tx *gorm.DB, endpoint, operand, entityID string) (*types.Request, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error
	AppendLog(ctx context.Context, tx *gorm.DB, id string, entry types.RequestLog) error
	// MarkStarted stamps server_started_timestamp only if it is unset; the
	// returned bool reports whether this call won the stamp.
	MarkStarted(ctx context.Context, tx *gorm.DB, id string, at time.Time) (bool, error)
	MarkAcknowledged(ctx context.Context, tx *gorm.DB, id string, at time.Time) error
	SetProgress(ctx context.Context, tx *gorm.DB, id string, progress int) error
}

type requestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
	return &requestRepo{db: db, log: baseLog.With("repo", "RequestRepo")}
}

func (r *requestRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *requestRepo) Create(ctx context.Context, tx *gorm.DB, req *types.Request) error {
	if req == nil || req.ID == "" {
		return fmt.Errorf("request requires an id")
	}
	if req.RequestCreated.IsZero() {
		req.RequestCreated = time.Now()
	}
	if req.Status == "" {
		req.Status = types.RequestStatusPending
	}
	return r.conn(tx).WithContext(ctx).Create(req).Error
}

func (r *requestRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Request, error) {
	var req types.Request
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepo) FindOpen(ctx context.Context, tx *gorm.DB, endpoint, operand, entityID string) (*types.Request, error) {
	query := r.conn(tx).WithContext(ctx).
		Where("request_endpoint = ? AND request_operand = ? AND status = ?", endpoint, operand, types.RequestStatusPending)
	switch operand {
	case types.OperandShort:
		query = query.Where("short_id = ?", entityID)
	case types.OperandVideo:
		query = query.Where("video_id = ?", entityID)
	case types.OperandSegment:
		query = query.Where("segment_id = ?", entityID)
	default:
		return nil, fmt.Errorf("unsupported request operand %q", operand)
	}
	var req types.Request
	err := query.Order("request_created DESC").First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.conn(tx).WithContext(ctx).
		Model(&types.Request{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *requestRepo) AppendLog(ctx context.Context, tx *gorm.DB, id string, entry types.RequestLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return r.conn(tx).WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var req types.Request
		if err := txx.Where("id = ?", id).First(&req).Error; err != nil {
			return err
		}
		logs, err := req.DecodeLogs()
		if err != nil {
			return err
		}
		logs = append(logs, entry)
		raw, err := json.Marshal(logs)
		if err != nil {
			return fmt.Errorf("marshal request logs: %w", err)
		}
		return txx.Model(&types.Request{}).
			Where("id = ?", id).
			Updates(map[string]any{"logs": raw, "updated_at": time.Now()}).Error
	})
}

func (r *requestRepo) MarkStarted(ctx context.Context, tx *gorm.DB, id string, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&types.Request{}).
		Where("id = ? AND server_started_timestamp IS NULL", id).
		Updates(map[string]any{
			"server_started_timestamp": at,
			"status":                   types.RequestStatusProcessing,
			"updated_at":               time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *requestRepo) MarkAcknowledged(ctx context.Context, tx *gorm.DB, id string, at time.Time) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Request{}).
		Where("id = ? AND request_acknowledged_timestamp IS NULL", id).
		Updates(map[string]any{"request_acknowledged_timestamp": at, "updated_at": time.Now()}).Error
}

// SetProgress is monotone: writes never move progress backwards, so retries
// and out-of-order updates keep the reported sequence non-decreasing.
func (r *requestRepo) SetProgress(ctx context.Context, tx *gorm.DB, id string, progress int) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Request{}).
		Where("id = ? AND progress <= ?", id, progress).
		Updates(map[string]any{"progress": progress, "updated_at": time.Now()}).Error
}
