package service

import (
	"fmt"
	"regexp"

	"github.com/yourusername/dialogue-verify/internal/domain/entity"
	apperrors "github.com/yourusername/dialogue-verify/internal/pkg/errors"
)

var (
	// E.164-like: leading +, first digit 1-9, 2-15 digits total.
	phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{1,14}$`)

	// Permissive local@domain.tld shape; real deliverability is the
	// provider's problem.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateIdentifier checks the shape of an identifier for the given
// channel. It must run before any stateful work so malformed input never
// touches the rate limiter or the store.
func ValidateIdentifier(identifier, channel string) error {
	switch channel {
	case entity.ChannelSMS:
		if !phonePattern.MatchString(identifier) {
			return ErrInvalidPhone
		}
	case entity.ChannelEmail:
		if !emailPattern.MatchString(identifier) {
			return ErrInvalidEmail
		}
	default:
		return fmt.Errorf("%w: unknown verification type %q", apperrors.ErrValidation, channel)
	}
	return nil
}
