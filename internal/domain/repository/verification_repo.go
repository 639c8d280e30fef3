package repository

import (
	"math"
	"time"

	"github.com/yourusername/dialogue-verify/internal/domain/entity"
)

// VerificationStats aggregates issuance/verification counters for reporting.
type VerificationStats struct {
	TotalSent      int64 `json:"totalSent"`
	TotalVerified  int64 `json:"totalVerified"`
	SuccessRate    int   `json:"successRate"`
	RecentRequests int64 `json:"recentRequests"`
}

// SuccessRate returns verified/sent as a rounded percentage in [0, 100].
// An empty store reports 0, not NaN.
func SuccessRate(sent, verified int64) int {
	if sent <= 0 {
		return 0
	}
	return int(math.Round(float64(verified) / float64(sent) * 100))
}

// VerificationRepository persists one-time code records.
//
// GetLatest returns the most recently created record for the pair, used
// or not; the verifier inspects is_used and expiry itself so it can
// answer "already used" instead of "not found" for consumed codes.
//
// MarkUsed must be a conditional update (only records with is_used=false
// transition) so that two concurrent verifications of the same record
// cannot both succeed; it returns apperrors.ErrNotFound when no row moved.
// IncrementAttempts must be an atomic in-database increment.
type VerificationRepository interface {
	Create(record *entity.VerificationRecord) error
	GetLatest(identifier, channel string) (*entity.VerificationRecord, error)
	MarkUsed(id uint) error
	IncrementAttempts(id uint) error
	Delete(id uint) error
	DeleteByIdentifier(identifier, channel string) error
	DeleteExpired(now time.Time) (int64, error)
	CountCreatedSince(identifier, channel string, since time.Time) (int64, error)
	GetStats(now time.Time) (*VerificationStats, error)
}
