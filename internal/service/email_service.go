package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailSender delivers one-time codes over email.
type EmailSender interface {
	SendVerificationCode(ctx context.Context, toEmail, code, idempotencyKey string, expiryMinutes int) error
}

// DisabledEmailSender is used when Resend credentials are not configured.
type DisabledEmailSender struct{}

func (s *DisabledEmailSender) SendVerificationCode(ctx context.Context, toEmail, code, idempotencyKey string, expiryMinutes int) error {
	log.Printf("[EmailSender] email channel disabled, refusing send to=%s", toEmail)
	return fmt.Errorf("%w: email", ErrChannelNotConfigured)
}

// ResendEmailSender sends codes via the Resend REST API.
type ResendEmailSender struct {
	from   string
	client *resend.Client
}

func NewResendEmailSender(apiKey, from string) (*ResendEmailSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailSender{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailSender) SendVerificationCode(ctx context.Context, toEmail, code, idempotencyKey string, expiryMinutes int) error {
	if toEmail == "" || code == "" {
		return fmt.Errorf("toEmail and code are required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Your verification code",
		Text:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, expiryMinutes),
		Html:    fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>", code, expiryMinutes),
	}

	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return classifyResendError(err)
	}

	return fmt.Errorf("%w: resend send failed after retries: %v", ErrDeliveryFailed, lastErr)
}

func classifyResendError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not verified") || strings.Contains(msg, "verify a domain"):
		return fmt.Errorf("%w: %v", ErrUnverifiedSender, err)
	case strings.Contains(msg, "invalid `to`") || strings.Contains(msg, "invalid to"):
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
