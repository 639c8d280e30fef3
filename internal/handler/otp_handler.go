package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/dialogue-verify/internal/pkg/errors"
	"github.com/yourusername/dialogue-verify/internal/service"
)

// OTPHandler handles one-time code issuance and verification requests.
type OTPHandler struct {
	otpService *service.OTPService
}

func NewOTPHandler(otpService *service.OTPService) *OTPHandler {
	return &OTPHandler{otpService: otpService}
}

// RequestOTPRequest is the body of POST /otp/request.
type RequestOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Type       string `json:"type" binding:"required,oneof=sms email"`
}

// VerifyOTPRequest is the body of POST /otp/verify.
type VerifyOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Code       string `json:"code" binding:"required,len=6,numeric"`
	Type       string `json:"type" binding:"required,oneof=sms email"`
}

// RequestCode issues a fresh code and dispatches it over the requested channel.
func (h *OTPHandler) RequestCode(c *gin.Context) {
	var req RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "identifier and type (sms or email) are required",
		})
		return
	}

	result, err := h.otpService.RequestCode(c.Request.Context(), req.Identifier, req.Type)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Verification code sent",
		"data": gin.H{
			"expiresAt":        result.ExpiresAt.Format(time.RFC3339),
			"expiresInMinutes": result.ExpiresInMinutes,
		},
	})
}

// VerifyCode validates a submitted code and consumes the matching record.
func (h *OTPHandler) VerifyCode(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "identifier, a 6-digit code and type (sms or email) are required",
		})
		return
	}

	result, err := h.otpService.VerifyCode(c.Request.Context(), req.Identifier, req.Type, req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Verification successful",
		"data": gin.H{
			"identifier": result.Identifier,
			"type":       result.Channel,
			"verifiedAt": result.VerifiedAt.Format(time.RFC3339),
		},
	})
}

// Stats returns aggregate issuance/verification counters. Admin only.
func (h *OTPHandler) Stats(c *gin.Context) {
	stats, err := h.otpService.Stats(c.Request.Context())
	if err != nil {
		log.Printf("[OTPHandler] failed to load stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to load verification stats",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalSent":      stats.TotalSent,
		"totalVerified":  stats.TotalVerified,
		"successRate":    stats.SuccessRate,
		"recentRequests": stats.RecentRequests,
	})
}

// respondError maps service errors onto the response envelope. Every
// domain error is a 400 with the sentinel's user-facing message; only
// unexpected store failures surface as 500.
func (h *OTPHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrRateLimited),
		errors.Is(err, service.ErrChannelNotConfigured),
		errors.Is(err, service.ErrInvalidRecipient),
		errors.Is(err, service.ErrUnverifiedSender),
		errors.Is(err, service.ErrDeliveryFailed),
		errors.Is(err, service.ErrCodeNotFound),
		errors.Is(err, service.ErrCodeAlreadyUsed),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrTooManyAttempts),
		errors.Is(err, service.ErrCodeMismatch),
		errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		log.Printf("[OTPHandler] internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}
