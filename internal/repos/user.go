package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

type UserRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.User, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error
	// DebitCredits clamps at zero; over-refund is preferred to over-charge.
	DebitCredits(ctx context.Context, tx *gorm.DB, id string, amount int) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.User, error) {
	var user types.User
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *userRepo) DebitCredits(ctx context.Context, tx *gorm.DB, id string, amount int) error {
	if amount <= 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var user types.User
		if err := txx.Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}
		next := user.CreditsCurrent - amount
		if next < 0 {
			next = 0
		}
		return txx.Model(&types.User{}).
			Where("id = ?", id).
			Updates(map[string]any{"credits_current": next, "updated_at": time.Now()}).Error
	})
}
