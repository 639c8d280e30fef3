package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/dialogue-verify/internal/domain/entity"
	"github.com/yourusername/dialogue-verify/internal/domain/repository"
	apperrors "github.com/yourusername/dialogue-verify/internal/pkg/errors"
	"gorm.io/gorm"
)

type VerificationRepo struct {
	db *gorm.DB
}

func NewVerificationRepo(db *gorm.DB) *VerificationRepo {
	return &VerificationRepo{db: db}
}

func (r *VerificationRepo) Create(record *entity.VerificationRecord) error {
	return r.db.Create(record).Error
}

func (r *VerificationRepo) GetLatest(identifier, channel string) (*entity.VerificationRecord, error) {
	var record entity.VerificationRecord
	err := r.db.
		Where("identifier = ? AND channel = ?", identifier, channel).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest verification record: %w", err)
	}
	return &record, nil
}

// MarkUsed transitions a record to used only if it is not used yet.
// Zero affected rows means a concurrent request won the race (or the id
// is gone), reported as ErrNotFound so the caller treats the code as
// already consumed.
func (r *VerificationRepo) MarkUsed(id uint) error {
	res := r.db.Model(&entity.VerificationRecord{}).
		Where("id = ? AND is_used = ?", id, false).
		Update("is_used", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark verification record used: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *VerificationRepo) IncrementAttempts(id uint) error {
	return r.db.Model(&entity.VerificationRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (r *VerificationRepo) Delete(id uint) error {
	return r.db.Where("id = ?", id).Delete(&entity.VerificationRecord{}).Error
}

func (r *VerificationRepo) DeleteByIdentifier(identifier, channel string) error {
	return r.db.
		Where("identifier = ? AND channel = ?", identifier, channel).
		Delete(&entity.VerificationRecord{}).Error
}

func (r *VerificationRepo) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", now).Delete(&entity.VerificationRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired verification records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *VerificationRepo) CountCreatedSince(identifier, channel string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&entity.VerificationRecord{}).
		Where("identifier = ? AND channel = ? AND created_at > ?", identifier, channel, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count verification records: %w", err)
	}
	return count, nil
}

func (r *VerificationRepo) GetStats(now time.Time) (*repository.VerificationStats, error) {
	stats := &repository.VerificationStats{}

	if err := r.db.Model(&entity.VerificationRecord{}).
		Count(&stats.TotalSent).Error; err != nil {
		return nil, fmt.Errorf("failed to count total records: %w", err)
	}

	if err := r.db.Model(&entity.VerificationRecord{}).
		Where("is_used = ?", true).
		Count(&stats.TotalVerified).Error; err != nil {
		return nil, fmt.Errorf("failed to count verified records: %w", err)
	}

	if err := r.db.Model(&entity.VerificationRecord{}).
		Where("created_at > ?", now.Add(-24*time.Hour)).
		Count(&stats.RecentRequests).Error; err != nil {
		return nil, fmt.Errorf("failed to count recent records: %w", err)
	}

	stats.SuccessRate = repository.SuccessRate(stats.TotalSent, stats.TotalVerified)
	return stats, nil
}
