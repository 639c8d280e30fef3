package service

import "errors"

// OTP flow specific errors. Handlers rely on these sentinels for stable
// user-facing messages, so wrap rather than replace them.
var (
	ErrInvalidPhone         = errors.New("invalid phone number format, use international format e.g. +27821234567")
	ErrInvalidEmail         = errors.New("invalid email address format")
	ErrRateLimited          = errors.New("too many OTP requests, please wait a minute before trying again")
	ErrChannelNotConfigured = errors.New("this verification service is not configured")

	// Delivery errors, classified from provider responses.
	ErrInvalidRecipient = errors.New("the destination number or address was rejected by the provider")
	ErrUnverifiedSender = errors.New("the sending identity is not verified with the provider")
	ErrDeliveryFailed   = errors.New("failed to deliver the verification code")

	// Verification state errors.
	ErrCodeNotFound    = errors.New("no verification code found, please request a new one")
	ErrCodeAlreadyUsed = errors.New("this code has already been used, please request a new one")
	ErrCodeExpired     = errors.New("this code has expired, please request a new one")
	ErrTooManyAttempts = errors.New("too many failed attempts, please request a new code")
	ErrCodeMismatch    = errors.New("incorrect code")
)
