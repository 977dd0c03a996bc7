package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmarsh/reelhaven/internal/models"
	"github.com/davidmarsh/reelhaven/internal/security"
	pkglogger "github.com/davidmarsh/reelhaven/pkg/logger"
)

type fakeCodeSender struct {
	sent []string
	err  error
}

func (s *fakeCodeSender) SendSecurityCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, code)
	return nil
}

type mfaFixture struct {
	service *MFAService
	sender  *fakeCodeSender
	tracker *security.LoginAttemptTracker
}

func newMFAFixture(t *testing.T, hourly, daily int) *mfaFixture {
	t.Helper()

	logger := discardLogger()
	sender := &fakeCodeSender{}
	tracker := security.NewLoginAttemptTracker(security.AttemptTrackerConfig{
		MaxAttempts:                3,
		AttemptWindow:              15 * time.Minute,
		LockoutDuration:            15 * time.Minute,
		DistributedAttackThreshold: 5,
		ResetClearsGlobal:          true,
	}, logger)

	service := NewMFAService(
		security.NewMultiFactorCodeService(10*time.Minute, logger),
		security.NewTokenBucketLimiter(logger),
		tracker,
		sender,
		DefaultMFAQuotas(hourly, daily),
		10*time.Minute,
		logger,
		pkglogger.NewAuditLogger(logger),
	)

	return &mfaFixture{service: service, sender: sender, tracker: tracker}
}

func TestMFAService_RequestAndVerify(t *testing.T) {
	f := newMFAFixture(t, 3, 10)

	err := f.service.RequestCode(context.Background(), "alice@example.com", "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 1)

	code := f.sender.sent[0]
	assert.Len(t, code, 6)

	assert.True(t, f.service.VerifyCode(context.Background(), "alice@example.com", "10.0.0.1", code))

	// Single use: the same code is dead after verification
	assert.False(t, f.service.VerifyCode(context.Background(), "alice@example.com", "10.0.0.1", code))
}

func TestMFAService_VerifyWrongCodeFails(t *testing.T) {
	f := newMFAFixture(t, 3, 10)

	err := f.service.RequestCode(context.Background(), "alice@example.com", "10.0.0.1")
	require.NoError(t, err)

	assert.False(t, f.service.VerifyCode(context.Background(), "alice@example.com", "10.0.0.1", "000000"))
	assert.False(t, f.service.VerifyCode(context.Background(), "nobody@example.com", "10.0.0.1", f.sender.sent[0]))
}

func TestMFAService_HourlyQuotaThrottles(t *testing.T) {
	f := newMFAFixture(t, 2, 10)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.service.RequestCode(context.Background(), "alice@example.com", "10.0.0.1"))
	}

	err := f.service.RequestCode(context.Background(), "alice@example.com", "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrThrottled)
	assert.Len(t, f.sender.sent, 2)
}

func TestMFAService_QuotasArePerIdentity(t *testing.T) {
	f := newMFAFixture(t, 1, 10)

	require.NoError(t, f.service.RequestCode(context.Background(), "alice@example.com", "10.0.0.1"))
	assert.ErrorIs(t, f.service.RequestCode(context.Background(), "alice@example.com", "10.0.0.1"), models.ErrThrottled)

	// A different identity has its own untouched buckets
	require.NoError(t, f.service.RequestCode(context.Background(), "bob@example.com", "10.0.0.1"))
}

func TestMFAService_VerifiedCodeClearsAttemptState(t *testing.T) {
	f := newMFAFixture(t, 3, 10)

	f.tracker.RecordFailedAttempt("alice@example.com", "10.0.0.1")
	f.tracker.RecordFailedAttempt("alice@example.com", "10.0.0.1")
	require.Equal(t, 1, f.tracker.GetRemainingAttempts("alice@example.com", "10.0.0.1"))

	require.NoError(t, f.service.RequestCode(context.Background(), "alice@example.com", "10.0.0.1"))
	require.True(t, f.service.VerifyCode(context.Background(), "alice@example.com", "10.0.0.1", f.sender.sent[0]))

	assert.Equal(t, 3, f.tracker.GetRemainingAttempts("alice@example.com", "10.0.0.1"))
}
