package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/davidmarsh/reelhaven/internal/models"
	"github.com/davidmarsh/reelhaven/internal/security"
	pkglogger "github.com/davidmarsh/reelhaven/pkg/logger"
)

// UserRepository defines the account-store collaborator, reachable by id or email
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// ValidationError carries the full violation list for UI display
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "password validation failed"
}

// LoginOutcome is the caller-visible result of a login attempt
type LoginOutcome struct {
	Allowed                 bool          `json:"allowed"`
	Locked                  bool          `json:"locked"`
	LockoutSecondsRemaining int           `json:"lockout_seconds_remaining"`
	RemainingAttempts       int           `json:"remaining_attempts"`
	SecondFactorRequired    bool          `json:"second_factor_required"`
	User                    *UserResponse `json:"user,omitempty"`
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// AuthService runs the account-security login flow: throttle, lockout check,
// credential verification, then failure accounting or reset.
type AuthService struct {
	users       UserRepository
	limiter     *security.TokenBucketLimiter
	tracker     *security.LoginAttemptTracker
	passwords   *security.PasswordEngine
	loginQuota  security.Quota
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserRepository,
	limiter *security.TokenBucketLimiter,
	tracker *security.LoginAttemptTracker,
	passwords *security.PasswordEngine,
	loginQuota security.Quota,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		users:       users,
		limiter:     limiter,
		tracker:     tracker,
		passwords:   passwords,
		loginQuota:  loginQuota,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Login authenticates a user. The rate limiter rejects first, then the
// lockout state, then the credential check. Failures are recorded against
// both the (email, origin) pair and the email's cross-origin counter; a
// success resets them.
func (s *AuthService) Login(ctx context.Context, email, password, origin string) (*LoginOutcome, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.ErrUnauthorized
	}

	if !s.limiter.TryConsume("login:"+origin+":"+email, s.loginQuota) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_throttled",
			Email:         email,
			Origin:        origin,
			FailureReason: "rate_limited",
		})
		return nil, models.ErrThrottled
	}

	if s.tracker.IsLocked(email, origin) {
		lockout := s.tracker.GetLockoutTime(email, origin)
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_rejected",
			Email:         email,
			Origin:        origin,
			FailureReason: "locked_out",
		})
		return &LoginOutcome{
			Locked:                  true,
			LockoutSecondsRemaining: int(lockout.Seconds()),
		}, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown accounts still consume attempts so probing an email
			// behaves exactly like a wrong password
			return s.recordFailure(email, origin, "invalid_credentials"), nil
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive() {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_rejected",
			UserID:        user.ID,
			Email:         email,
			Origin:        origin,
			FailureReason: "account_" + user.Status,
		})
		return nil, models.ErrAccountDisabled
	}

	if !s.passwords.VerifyPassword(password, user.PasswordHash) {
		return s.recordFailure(email, origin, "invalid_credentials"), nil
	}

	s.tracker.ResetAttempts(email, origin)

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Email:     email,
		Origin:    origin,
		Success:   true,
	})

	return &LoginOutcome{
		Allowed:           true,
		RemainingAttempts: s.tracker.GetRemainingAttempts(email, origin),
		User:              userModelToResponse(user),
	}, nil
}

// recordFailure books the failed attempt and derives the outcome the caller
// reports back: lockout state, remaining attempts, and whether the email's
// cross-origin failure pattern warrants forcing a second factor.
func (s *AuthService) recordFailure(email, origin, reason string) *LoginOutcome {
	s.tracker.RecordFailedAttempt(email, origin)

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		Email:         email,
		Origin:        origin,
		FailureReason: reason,
	})

	outcome := &LoginOutcome{
		RemainingAttempts: s.tracker.GetRemainingAttempts(email, origin),
	}

	if lockout := s.tracker.GetLockoutTime(email, origin); lockout > 0 {
		outcome.Locked = true
		outcome.LockoutSecondsRemaining = int(lockout.Seconds())
	}

	if s.tracker.IsDistributedAttack(email) {
		outcome.SecondFactorRequired = true
		s.auditLogger.LogSecurityEscalation("distributed_attack_detected", email, origin, map[string]string{
			"global_attempts": fmt.Sprintf("%d", s.tracker.GetGlobalAttemptsForEmail(email)),
		})
	}

	return outcome
}

// Register creates a new account after running the full password pipeline
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*UserResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	violations, err := s.passwords.ValidatePassword(ctx, password, email, firstName, lastName)
	if err != nil {
		s.logger.Error("password validation failed", slog.Any("error", err))
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := s.passwords.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         "user",
	}

	createdUser, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID, "", nil)

	return userModelToResponse(createdUser), nil
}

// ChangePassword verifies the current password, runs the pipeline on the new
// one, and stores the new hash
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, origin string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !s.passwords.VerifyPassword(currentPassword, user.PasswordHash) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "password_change_failed",
			UserID:        user.ID,
			Origin:        origin,
			FailureReason: "invalid_credentials",
		})
		return models.ErrUnauthorized
	}

	violations, err := s.passwords.ValidatePassword(ctx, newPassword, user.Email, user.FirstName, user.LastName)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	hashedPassword, err := s.passwords.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, hashedPassword); err != nil {
		s.logger.Error("failed to update password hash", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_changed", userID, origin, nil)
	return nil
}

// userModelToResponse converts a user model to response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
