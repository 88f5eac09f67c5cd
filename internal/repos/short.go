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

type ShortRepo interface {
	Create(ctx context.Context, tx *gorm.DB, short *types.Short) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Short, error)
	GetBySegment(ctx context.Context, tx *gorm.DB, segmentID string) ([]*types.Short, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error
	AppendLogs(ctx context.Context, tx *gorm.DB, id string, entries []types.EditLog) error
	// TryClaim is the admission CAS: it moves backend_status to Processing only
	// if no other handler holds it, and reports whether the claim won.
	TryClaim(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	Release(ctx context.Context, tx *gorm.DB, id string, extra map[string]any) error
}

type shortRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShortRepo(db *gorm.DB, baseLog *logger.Logger) ShortRepo {
	return &shortRepo{db: db, log: baseLog.With("repo", "ShortRepo")}
}

func (r *shortRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *shortRepo) Create(ctx context.Context, tx *gorm.DB, short *types.Short) error {
	if short == nil || short.ID == "" {
		return fmt.Errorf("short requires an id")
	}
	return r.conn(tx).WithContext(ctx).Create(short).Error
}

func (r *shortRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Short, error) {
	var short types.Short
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&short).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &short, nil
}

func (r *shortRepo) GetBySegment(ctx context.Context, tx *gorm.DB, segmentID string) ([]*types.Short, error) {
	var out []*types.Short
	err := r.conn(tx).WithContext(ctx).
		Where("segment_id = ?", segmentID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *shortRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.conn(tx).WithContext(ctx).
		Model(&types.Short{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// AppendLogs rewrites the logs column with the entries appended. The caller
// holds the entity's Processing lock, so the read-modify-write is
// single-writer; the transaction only protects against partial writes.
func (r *shortRepo) AppendLogs(ctx context.Context, tx *gorm.DB, id string, entries []types.EditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var short types.Short
		if err := txx.Where("id = ?", id).First(&short).Error; err != nil {
			return err
		}
		logs, err := short.DecodeLogs()
		if err != nil {
			return err
		}
		logs = append(logs, entries...)
		raw, err := json.Marshal(logs)
		if err != nil {
			return fmt.Errorf("marshal logs: %w", err)
		}
		return txx.Model(&types.Short{}).
			Where("id = ?", id).
			Updates(map[string]any{"logs": raw, "updated_at": time.Now()}).Error
	})
}

func (r *shortRepo) TryClaim(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&types.Short{}).
		Where("id = ? AND backend_status <> ?", id, types.BackendProcessing).
		Updates(map[string]any{
			"backend_status":    types.BackendProcessing,
			"pending_operation": true,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *shortRepo) Release(ctx context.Context, tx *gorm.DB, id string, extra map[string]any) error {
	updates := map[string]any{
		"backend_status":    types.BackendCompleted,
		"pending_operation": false,
		"updated_at":        time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	return r.conn(tx).WithContext(ctx).
		Model(&types.Short{}).
		Where("id = ?", id).
		Updates(updates).Error
}
