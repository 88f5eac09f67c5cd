package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

type SegmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, segment *types.TopicalSegment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.TopicalSegment, error)
	GetByVideo(ctx context.Context, tx *gorm.DB, videoID string) ([]*types.TopicalSegment, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error
	TryClaim(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	Release(ctx context.Context, tx *gorm.DB, id string, extra map[string]any) error
}

type segmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
	return &segmentRepo{db: db, log: baseLog.With("repo", "SegmentRepo")}
}

func (r *segmentRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *segmentRepo) Create(ctx context.Context, tx *gorm.DB, segment *types.TopicalSegment) error {
	if segment == nil || segment.ID == "" {
		return fmt.Errorf("segment requires an id")
	}
	return r.conn(tx).WithContext(ctx).Create(segment).Error
}

func (r *segmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.TopicalSegment, error) {
	var segment types.TopicalSegment
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&segment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &segment, nil
}

func (r *segmentRepo) GetByVideo(ctx context.Context, tx *gorm.DB, videoID string) ([]*types.TopicalSegment, error) {
	var out []*types.TopicalSegment
	err := r.conn(tx).WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("index ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *segmentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.conn(tx).WithContext(ctx).
		Model(&types.TopicalSegment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *segmentRepo) TryClaim(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&types.TopicalSegment{}).
		Where("id = ? AND backend_status <> ?", id, types.BackendProcessing).
		Updates(map[string]any{"backend_status": types.BackendProcessing, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *segmentRepo) Release(ctx context.Context, tx *gorm.DB, id string, extra map[string]any) error {
	updates := map[string]any{
		"backend_status": types.BackendCompleted,
		"updated_at":     time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	return r.conn(tx).WithContext(ctx).
		Model(&types.TopicalSegment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
