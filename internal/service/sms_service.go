package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSSender delivers one-time codes over SMS.
type SMSSender interface {
	SendVerificationCode(ctx context.Context, toNumber, code string, expiryMinutes int) error
}

// DisabledSMSSender is used when Twilio credentials are not configured.
// Requests for the SMS channel fail with a clear error instead of a crash.
type DisabledSMSSender struct{}

func (s *DisabledSMSSender) SendVerificationCode(ctx context.Context, toNumber, code string, expiryMinutes int) error {
	log.Printf("[SMSSender] sms channel disabled, refusing send to=%s", toNumber)
	return fmt.Errorf("%w: SMS", ErrChannelNotConfigured)
}

// TwilioSMSSender delivers codes via the Twilio Messages API.
type TwilioSMSSender struct {
	from   string
	client *twilio.RestClient
}

func NewTwilioSMSSender(accountSID, authToken, from string) (*TwilioSMSSender, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio account sid and auth token are required")
	}
	if from == "" {
		return nil, fmt.Errorf("twilio from number is required")
	}
	return &TwilioSMSSender{
		from: from,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}, nil
}

func (s *TwilioSMSSender) SendVerificationCode(ctx context.Context, toNumber, code string, expiryMinutes int) error {
	if toNumber == "" || code == "" {
		return fmt.Errorf("toNumber and code are required")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(s.from)
	params.SetBody(fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, expiryMinutes))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return classifyTwilioError(err)
	}
	return nil
}

// Twilio error codes that map to user-facing categories. 21211 is an
// invalid 'To' number; 21606/21608 cover from-numbers that are not
// SMS-capable or not verified on trial accounts.
func classifyTwilioError(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		switch restErr.Code {
		case 21211, 21614:
			return fmt.Errorf("%w: %s", ErrInvalidRecipient, restErr.Message)
		case 21606, 21608:
			return fmt.Errorf("%w: %s", ErrUnverifiedSender, restErr.Message)
		}
		return fmt.Errorf("%w: twilio error %d: %s", ErrDeliveryFailed, restErr.Code, restErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
}
