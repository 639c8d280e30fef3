package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/dialogue-verify/internal/domain/entity"
	"github.com/yourusername/dialogue-verify/internal/domain/repository"
	apperrors "github.com/yourusername/dialogue-verify/internal/pkg/errors"
)

// StorageMode controls whether the plaintext code is retained alongside
// its digest. Production deployments must use StorageModeDigestOnly;
// PlaintextAndDigest exists for local development, and verification
// accepts either representation so switching modes does not strand
// records issued under the other one.
type StorageMode int

const (
	StorageModeDigestOnly StorageMode = iota
	StorageModePlaintextAndDigest
)

// IssueResult is returned on successful code issuance.
type IssueResult struct {
	ExpiresAt        time.Time `json:"expiresAt"`
	ExpiresInMinutes int       `json:"expiresInMinutes"`
}

// VerifyResult is returned on successful code verification.
type VerifyResult struct {
	Identifier string    `json:"identifier"`
	Channel    string    `json:"type"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// OTPService issues and verifies one-time codes for citizen identifiers.
type OTPService struct {
	verificationDB repository.VerificationRepository
	smsSender      SMSSender
	emailSender    EmailSender
	ttl            time.Duration
	maxAttempts    int
	rateWindow     time.Duration
	rateMax        int
	storageMode    StorageMode
}

func NewOTPService(
	verificationDB repository.VerificationRepository,
	smsSender SMSSender,
	emailSender EmailSender,
	ttl time.Duration,
	maxAttempts int,
	rateWindow time.Duration,
	rateMax int,
	storageMode StorageMode,
) (*OTPService, error) {
	if verificationDB == nil {
		return nil, fmt.Errorf("verification repository is required")
	}
	if smsSender == nil {
		return nil, fmt.Errorf("sms sender is required")
	}
	if emailSender == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if rateWindow <= 0 {
		rateWindow = 60 * time.Second
	}
	if rateMax <= 0 {
		rateMax = 3
	}

	return &OTPService{
		verificationDB: verificationDB,
		smsSender:      smsSender,
		emailSender:    emailSender,
		ttl:            ttl,
		maxAttempts:    maxAttempts,
		rateWindow:     rateWindow,
		rateMax:        rateMax,
		storageMode:    storageMode,
	}, nil
}

// RequestCode issues a fresh code for an identifier+channel pair and
// dispatches it. A record created but not delivered is rolled back so no
// unsendable code is left active.
func (s *OTPService) RequestCode(ctx context.Context, identifier, channel string) (*IssueResult, error) {
	if err := ValidateIdentifier(identifier, channel); err != nil {
		return nil, err
	}

	now := time.Now()

	// Opportunistic sweep keeps store growth bounded without a hard
	// dependency on the periodic cleanup loop.
	if deleted, err := s.verificationDB.DeleteExpired(now); err != nil {
		log.Printf("[OTPService] expired sweep failed: %v", err)
	} else if deleted > 0 {
		log.Printf("[OTPService] expired sweep removed %d records", deleted)
	}

	// Sliding lookback over persisted creation timestamps. Checked
	// before any code material is generated.
	count, err := s.verificationDB.CountCreatedSince(identifier, channel, now.Add(-s.rateWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to check request rate: %w", err)
	}
	if count >= int64(s.rateMax) {
		return nil, ErrRateLimited
	}

	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	record := &entity.VerificationRecord{
		Identifier: identifier,
		Channel:    channel,
		CodeDigest: hashOTPCode(code),
		Attempts:   0,
		IsUsed:     false,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}
	if s.storageMode == StorageModePlaintextAndDigest {
		record.PlainCode = code
	}
	if err := s.verificationDB.Create(record); err != nil {
		return nil, fmt.Errorf("failed to create verification record: %w", err)
	}

	expiryMinutes := int(s.ttl.Minutes())
	if err := s.dispatch(ctx, record, code, expiryMinutes); err != nil {
		if delErr := s.verificationDB.Delete(record.ID); delErr != nil {
			log.Printf("[OTPService] rollback of record %d after dispatch failure failed: %v", record.ID, delErr)
		}
		return nil, err
	}

	return &IssueResult{
		ExpiresAt:        record.ExpiresAt,
		ExpiresInMinutes: expiryMinutes,
	}, nil
}

func (s *OTPService) dispatch(ctx context.Context, record *entity.VerificationRecord, code string, expiryMinutes int) error {
	switch record.Channel {
	case entity.ChannelSMS:
		return s.smsSender.SendVerificationCode(ctx, record.Identifier, code, expiryMinutes)
	case entity.ChannelEmail:
		idempotencyKey := fmt.Sprintf("otp-verify:%d:%s", record.ID, uuid.NewString())
		return s.emailSender.SendVerificationCode(ctx, record.Identifier, code, idempotencyKey, expiryMinutes)
	}
	return fmt.Errorf("%w: unknown verification type %q", apperrors.ErrValidation, record.Channel)
}

// VerifyCode checks a submitted code against the latest active record for
// the identifier+channel pair and consumes it on a match.
func (s *OTPService) VerifyCode(ctx context.Context, identifier, channel, submittedCode string) (*VerifyResult, error) {
	if err := ValidateIdentifier(identifier, channel); err != nil {
		return nil, err
	}
	submittedCode = strings.TrimSpace(submittedCode)
	if submittedCode == "" {
		return nil, fmt.Errorf("%w: empty verification code", apperrors.ErrValidation)
	}

	record, err := s.verificationDB.GetLatest(identifier, channel)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	now := time.Now()
	if record.IsUsed {
		return nil, ErrCodeAlreadyUsed
	}
	if record.IsExpired(now) {
		if delErr := s.verificationDB.Delete(record.ID); delErr != nil {
			log.Printf("[OTPService] failed to delete expired record %d: %v", record.ID, delErr)
		}
		return nil, ErrCodeExpired
	}
	if record.Attempts >= s.maxAttempts {
		if delErr := s.verificationDB.Delete(record.ID); delErr != nil {
			log.Printf("[OTPService] failed to delete exhausted record %d: %v", record.ID, delErr)
		}
		return nil, ErrTooManyAttempts
	}

	if !s.codeMatches(record, submittedCode) {
		if err := s.verificationDB.IncrementAttempts(record.ID); err != nil {
			log.Printf("[OTPService] failed to increment attempts for record %d: %v", record.ID, err)
		}
		remaining := s.maxAttempts - (record.Attempts + 1)
		if remaining <= 0 {
			if delErr := s.verificationDB.Delete(record.ID); delErr != nil {
				log.Printf("[OTPService] failed to delete exhausted record %d: %v", record.ID, delErr)
			}
			return nil, ErrTooManyAttempts
		}
		return nil, fmt.Errorf("%w, %d %s remaining", ErrCodeMismatch, remaining, pluralAttempts(remaining))
	}

	// Conditional update in the store; if a concurrent request consumed
	// the record first, surface it as already used.
	if err := s.verificationDB.MarkUsed(record.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrCodeAlreadyUsed
		}
		return nil, fmt.Errorf("failed to mark verification record used: %w", err)
	}

	return &VerifyResult{
		Identifier: identifier,
		Channel:    channel,
		VerifiedAt: now,
	}, nil
}

func (s *OTPService) codeMatches(record *entity.VerificationRecord, submittedCode string) bool {
	if record.PlainCode != "" {
		return subtle.ConstantTimeCompare([]byte(record.PlainCode), []byte(submittedCode)) == 1
	}
	submittedDigest := hashOTPCode(submittedCode)
	return subtle.ConstantTimeCompare([]byte(record.CodeDigest), []byte(submittedDigest)) == 1
}

// Stats reports aggregate issuance/verification counters.
func (s *OTPService) Stats(ctx context.Context) (*repository.VerificationStats, error) {
	return s.verificationDB.GetStats(time.Now())
}

// StartCleanupLoop runs a periodic expired-record sweep until ctx is
// cancelled, decoupling cleanup cost from issuance latency.
func (s *OTPService) StartCleanupLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.verificationDB.DeleteExpired(time.Now())
				if err != nil {
					log.Printf("[OTPService] periodic expired sweep failed: %v", err)
					continue
				}
				if deleted > 0 {
					log.Printf("[OTPService] periodic expired sweep removed %d records", deleted)
				}
			}
		}
	}()
}

func pluralAttempts(n int) string {
	if n == 1 {
		return "attempt"
	}
	return "attempts"
}

// generateOTPCode returns a uniformly random 6-digit code in
// [100000, 999999]. The no-leading-zero range is a compatibility
// constraint for existing clients.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

func hashOTPCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
