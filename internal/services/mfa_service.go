package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/davidmarsh/reelhaven/internal/models"
	"github.com/davidmarsh/reelhaven/internal/security"
	pkglogger "github.com/davidmarsh/reelhaven/pkg/logger"
)

// CodeSender delivers a security code over the secondary channel
type CodeSender interface {
	SendSecurityCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// MFAQuotas holds the issuance budgets. Hourly and daily are independent
// buckets; both must pass for a code to be sent.
type MFAQuotas struct {
	Hourly security.Quota
	Daily  security.Quota
}

// DefaultMFAQuotas builds the issuance budgets from the configured counts
func DefaultMFAQuotas(hourlyQuota, dailyQuota int) MFAQuotas {
	return MFAQuotas{
		Hourly: security.Quota{Capacity: hourlyQuota, RefillCount: hourlyQuota, RefillPeriod: time.Hour},
		Daily:  security.Quota{Capacity: dailyQuota, RefillCount: dailyQuota, RefillPeriod: 24 * time.Hour},
	}
}

// MFAService issues and verifies secondary-channel codes, gating issuance
// behind the rate limiter and clearing attempt state on a verified code
type MFAService struct {
	codes       *security.MultiFactorCodeService
	limiter     *security.TokenBucketLimiter
	tracker     *security.LoginAttemptTracker
	sender      CodeSender
	quotas      MFAQuotas
	codeTTL     time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewMFAService creates a new MFAService
func NewMFAService(
	codes *security.MultiFactorCodeService,
	limiter *security.TokenBucketLimiter,
	tracker *security.LoginAttemptTracker,
	sender CodeSender,
	quotas MFAQuotas,
	codeTTL time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *MFAService {
	return &MFAService{
		codes:       codes,
		limiter:     limiter,
		tracker:     tracker,
		sender:      sender,
		quotas:      quotas,
		codeTTL:     codeTTL,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RequestCode issues a fresh code for the email and delivers it. Issuance is
// charged against the hourly bucket first, then the daily one; either refusal
// throttles the request.
func (s *MFAService) RequestCode(ctx context.Context, email, origin string) error {
	if !s.limiter.TryConsume("code:hour:"+email, s.quotas.Hourly) {
		s.auditLogger.LogSecurityEscalation("code_request_throttled", email, origin, map[string]string{
			"quota": "hourly",
		})
		return models.ErrThrottled
	}
	if !s.limiter.TryConsume("code:day:"+email, s.quotas.Daily) {
		s.auditLogger.LogSecurityEscalation("code_request_throttled", email, origin, map[string]string{
			"quota": "daily",
		})
		return models.ErrThrottled
	}

	code, err := s.codes.Issue(email)
	if err != nil {
		s.logger.Error("failed to issue verification code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.sender.SendSecurityCode(ctx, email, code, time.Now().Add(s.codeTTL)); err != nil {
		s.logger.Error("failed to deliver verification code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("verification code sent", slog.String("email", pkglogger.MaskEmail(email)))
	return nil
}

// VerifyCode checks the submitted code. A verified code is consumed and
// clears the email's attempt state for the submitting origin; any failure is
// reported uniformly without revealing whether the code expired or mismatched.
func (s *MFAService) VerifyCode(ctx context.Context, email, origin, submitted string) bool {
	if !s.codes.Verify(email, submitted) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "mfa_verify_failed",
			Email:         email,
			Origin:        origin,
			FailureReason: "invalid_code",
		})
		return false
	}

	s.tracker.ResetAttempts(email, origin)

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "mfa_verify_success",
		Email:     email,
		Origin:    origin,
		Success:   true,
	})
	return true
}
