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

type VideoRepo interface {
	Create(ctx context.Context, tx *gorm.DB, video *types.Video) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Video, error)
	GetByLink(ctx context.Context, tx *gorm.DB, link string) (*types.Video, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error
	TryClaim(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	Release(ctx context.Context, tx *gorm.DB, id string, extra map[string]any) error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{db: db, log: baseLog.With("repo", "VideoRepo")}
}

func (r *videoRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *videoRepo) Create(ctx context.Context, tx *gorm.DB, video *types.Video) error {
	if video == nil || video.ID == "" {
		return fmt.Errorf("video requires an id")
	}
	return r.conn(tx).WithContext(ctx).Create(video).Error
}

func (r *videoRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Video, error) {
	var video types.Video
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *videoRepo) GetByLink(ctx context.Context, tx *gorm.DB, link string) (*types.Video, error) {
	if link == "" {
		return nil, nil
	}
	var video types.Video
	err := r.conn(tx).WithContext(ctx).Where("link = ?", link).First(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *videoRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.conn(tx).WithContext(ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *videoRepo) TryClaim(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&types.Video{}).
		Where("id = ? AND backend_status <> ?", id, types.BackendProcessing).
		Updates(map[string]any{"backend_status": types.BackendProcessing, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *videoRepo) Release(ctx context.Context, tx *gorm.DB, id string, extra map[string]any) error {
	updates := map[string]any{
		"backend_status": types.BackendCompleted,
		"updated_at":     time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	return r.conn(tx).WithContext(ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(updates).Error
}
