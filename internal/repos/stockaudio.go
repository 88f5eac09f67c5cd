package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

type StockAudioRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.StockAudio, error)
}

type stockAudioRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStockAudioRepo(db *gorm.DB, baseLog *logger.Logger) StockAudioRepo {
	return &stockAudioRepo{db: db, log: baseLog.With("repo", "StockAudioRepo")}
}

func (r *stockAudioRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.StockAudio, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	var audio types.StockAudio
	err := conn.WithContext(ctx).Where("id = ?", id).First(&audio).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &audio, nil
}
