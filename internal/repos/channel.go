package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

type ChannelRepo interface {
	// GetByID looks a channel up by its external channel id.
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Channel, error)
	SetLastPublished(ctx context.Context, tx *gorm.DB, id string, at time.Time) error
}

type channelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChannelRepo(db *gorm.DB, baseLog *logger.Logger) ChannelRepo {
	return &channelRepo{db: db, log: baseLog.With("repo", "ChannelRepo")}
}

func (r *channelRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *channelRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Channel, error) {
	var channel types.Channel
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepo) SetLastPublished(ctx context.Context, tx *gorm.DB, id string, at time.Time) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Channel{}).
		Where("id = ?", id).
		Update("last_published", at).Error
}
