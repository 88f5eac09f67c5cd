package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

type AnalyticsRepo interface {
	CreateRecord(ctx context.Context, tx *gorm.DB, rec *types.AnalyticsRecord) error
	ListByShort(ctx context.Context, tx *gorm.DB, shortID string) ([]*types.AnalyticsRecord, error)
	// UpsertComment inserts or, when the external comment id already exists,
	// refreshes the mutable fields.
	UpsertComment(ctx context.Context, tx *gorm.DB, comment *types.Comment) error
}

type analyticsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) AnalyticsRepo {
	return &analyticsRepo{db: db, log: baseLog.With("repo", "AnalyticsRepo")}
}

func (r *analyticsRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *analyticsRepo) CreateRecord(ctx context.Context, tx *gorm.DB, rec *types.AnalyticsRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("analytics record requires an id")
	}
	return r.conn(tx).WithContext(ctx).Create(rec).Error
}

func (r *analyticsRepo) ListByShort(ctx context.Context, tx *gorm.DB, shortID string) ([]*types.AnalyticsRecord, error) {
	var out []*types.AnalyticsRecord
	err := r.conn(tx).WithContext(ctx).
		Where("short_id = ?", shortID).
		Order("polled_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *analyticsRepo) UpsertComment(ctx context.Context, tx *gorm.DB, comment *types.Comment) error {
	if comment == nil || comment.ID == "" {
		return fmt.Errorf("comment requires an external id")
	}
	err := r.conn(tx).WithContext(ctx).Create(comment).Error
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}
	return r.conn(tx).WithContext(ctx).
		Model(&types.Comment{}).
		Where("id = ?", comment.ID).
		Updates(map[string]any{
			"text":       comment.Text,
			"likes":      comment.Likes,
			"fetched_at": comment.FetchedAt,
			"updated_at": time.Now(),
		}).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// The sqlite driver used in tests reports the same condition as a string.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
