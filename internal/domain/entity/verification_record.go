package entity

import "time"

// Delivery channels for one-time codes.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// VerificationRecord stores a pending one-time code for an identifier
// (phone number or email address). The digest is always persisted; the
// plaintext code is retained only when the service runs in development
// storage mode.
type VerificationRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Identifier string    `gorm:"size:100;not null;index:idx_verification_identifier_channel" json:"identifier"`
	Channel    string    `gorm:"size:10;not null;index:idx_verification_identifier_channel" json:"channel"`
	PlainCode  string    `gorm:"size:6" json:"-"`
	CodeDigest string    `gorm:"size:64;not null" json:"-"`
	Attempts   int       `gorm:"not null;default:0" json:"attempts"`
	IsUsed     bool      `gorm:"not null;default:false" json:"is_used"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (VerificationRecord) TableName() string {
	return "verification_records"
}

func (r *VerificationRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
