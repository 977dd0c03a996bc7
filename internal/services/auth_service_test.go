package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/davidmarsh/reelhaven/internal/models"
	"github.com/davidmarsh/reelhaven/internal/security"
	pkglogger "github.com/davidmarsh/reelhaven/pkg/logger"
)

type fakeUserRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[string]*models.User
	created      []*models.User
	updatedHash  map[string]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[string]*models.User),
		updatedHash:  make(map[string]string),
	}
}

func (r *fakeUserRepo) add(user *models.User) {
	r.usersByEmail[user.Email] = user
	r.usersByID[user.ID] = user
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := r.usersByID[id]; ok {
		return user, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := r.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = fmt.Sprintf("user-%d", len(r.created)+1)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.Status = "active"
	r.created = append(r.created, user)
	r.add(user)
	return user, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if _, ok := r.usersByID[id]; !ok {
		return nil, models.ErrNotFound
	}
	r.usersByID[id] = user
	return user, nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if _, ok := r.usersByID[id]; !ok {
		return models.ErrNotFound
	}
	r.updatedHash[id] = passwordHash
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.usersByID[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.usersByID, id)
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users := make([]*models.User, 0, len(r.usersByID))
	for _, user := range r.usersByID {
		users = append(users, user)
	}
	return users, nil
}

type stubBreach struct {
	breached map[string]bool
	err      error
}

func (s *stubBreach) IsPasswordPwned(ctx context.Context, password string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.breached[password], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authFixture struct {
	service *AuthService
	repo    *fakeUserRepo
	tracker *security.LoginAttemptTracker
	engine  *security.PasswordEngine
}

func newAuthFixture(t *testing.T, loginCapacity int) *authFixture {
	t.Helper()

	logger := discardLogger()
	repo := newFakeUserRepo()
	limiter := security.NewTokenBucketLimiter(logger)
	tracker := security.NewLoginAttemptTracker(security.AttemptTrackerConfig{
		MaxAttempts:                3,
		AttemptWindow:              15 * time.Minute,
		LockoutDuration:            15 * time.Minute,
		DistributedAttackThreshold: 5,
		ResetClearsGlobal:          true,
	}, logger)
	engine := security.NewPasswordEngine(security.PasswordPolicy{
		Pepper:              "test-pepper-0123456789abcdef",
		BcryptCost:          bcrypt.MinCost,
		BreachCheckFailOpen: true,
	}, &stubBreach{}, logger)

	service := NewAuthService(
		repo, limiter, tracker, engine,
		security.LoginQuota(loginCapacity, 5*time.Minute),
		logger, pkglogger.NewAuditLogger(logger),
	)

	return &authFixture{service: service, repo: repo, tracker: tracker, engine: engine}
}

func (f *authFixture) seedUser(t *testing.T, email, password string) *models.User {
	t.Helper()

	hash, err := f.engine.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         "user",
		Status:       "active",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.repo.add(user)
	return user
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t, 10)
	f.seedUser(t, "alice@example.com", "Valid#Pass9")

	outcome, err := f.service.Login(context.Background(), "alice@example.com", "Valid#Pass9", "10.0.0.1")

	require.NoError(t, err)
	assert.True(t, outcome.Allowed)
	assert.False(t, outcome.Locked)
	require.NotNil(t, outcome.User)
	assert.Equal(t, "alice@example.com", outcome.User.Email)
}

func TestAuthService_Login_WrongPasswordCountsDown(t *testing.T) {
	f := newAuthFixture(t, 10)
	f.seedUser(t, "alice@example.com", "Valid#Pass9")

	outcome, err := f.service.Login(context.Background(), "alice@example.com", "wrong", "10.0.0.1")

	require.NoError(t, err)
	assert.False(t, outcome.Allowed)
	assert.False(t, outcome.Locked)
	assert.Equal(t, 2, outcome.RemainingAttempts)
}

func TestAuthService_Login_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	f := newAuthFixture(t, 10)

	outcome, err := f.service.Login(context.Background(), "ghost@example.com", "whatever", "10.0.0.1")

	require.NoError(t, err)
	assert.False(t, outcome.Allowed)
	assert.Equal(t, 2, outcome.RemainingAttempts)
}

func TestAuthService_Login_LockoutAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture(t, 10)
	f.seedUser(t, "alice@example.com", "Valid#Pass9")

	var outcome *LoginOutcome
	var err error
	for i := 0; i < 3; i++ {
		outcome, err = f.service.Login(context.Background(), "alice@example.com", "wrong", "10.0.0.1")
		require.NoError(t, err)
	}

	assert.True(t, outcome.Locked)
	assert.Greater(t, outcome.LockoutSecondsRemaining, 0)

	// The right password does not break through the lockout
	outcome, err = f.service.Login(context.Background(), "alice@example.com", "Valid#Pass9", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, outcome.Allowed)
	assert.True(t, outcome.Locked)
}

func TestAuthService_Login_SuccessResetsAttempts(t *testing.T) {
	f := newAuthFixture(t, 10)
	f.seedUser(t, "alice@example.com", "Valid#Pass9")

	_, err := f.service.Login(context.Background(), "alice@example.com", "wrong", "10.0.0.1")
	require.NoError(t, err)

	outcome, err := f.service.Login(context.Background(), "alice@example.com", "Valid#Pass9", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, outcome.Allowed)

	assert.Equal(t, 3, f.tracker.GetRemainingAttempts("alice@example.com", "10.0.0.1"))
}

func TestAuthService_Login_ThrottledWhenBucketEmpty(t *testing.T) {
	f := newAuthFixture(t, 2)
	f.seedUser(t, "alice@example.com", "Valid#Pass9")

	for i := 0; i < 2; i++ {
		_, err := f.service.Login(context.Background(), "alice@example.com", "wrong", "10.0.0.1")
		require.NoError(t, err)
	}

	_, err := f.service.Login(context.Background(), "alice@example.com", "Valid#Pass9", "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrThrottled)
}

func TestAuthService_Login_DistributedAttackForcesSecondFactor(t *testing.T) {
	f := newAuthFixture(t, 10)
	f.seedUser(t, "alice@example.com", "Valid#Pass9")

	// Spread failures across origins: no single pair reaches lockout but the
	// per-email total crosses the threshold of 5
	var outcome *LoginOutcome
	var err error
	for i := 0; i < 5; i++ {
		origin := fmt.Sprintf("10.0.0.%d", i+1)
		outcome, err = f.service.Login(context.Background(), "alice@example.com", "wrong", origin)
		require.NoError(t, err)
	}

	assert.False(t, outcome.Locked)
	assert.True(t, outcome.SecondFactorRequired)
}

func TestAuthService_Login_DisabledAccountRejected(t *testing.T) {
	f := newAuthFixture(t, 10)
	user := f.seedUser(t, "alice@example.com", "Valid#Pass9")
	user.Status = "suspended"

	_, err := f.service.Login(context.Background(), "alice@example.com", "Valid#Pass9", "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrAccountDisabled)
}

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture(t, 10)

	resp, err := f.service.Register(context.Background(), "Bob@Example.com", "Str0ng!Password", "Bob", "Smith")

	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", resp.Email)
	require.Len(t, f.repo.created, 1)
	assert.NotEqual(t, "Str0ng!Password", f.repo.created[0].PasswordHash)
}

func TestAuthService_Register_WeakPasswordReturnsViolations(t *testing.T) {
	f := newAuthFixture(t, 10)

	_, err := f.service.Register(context.Background(), "bob@example.com", "weak", "Bob", "Smith")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.NotEmpty(t, validationErr.Violations)
}

func TestAuthService_Register_PasswordContainingNameRejected(t *testing.T) {
	f := newAuthFixture(t, 10)

	_, err := f.service.Register(context.Background(), "bob@example.com", "Bob#Secret99", "Bob", "Smith")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Violations, "must not contain your first name")
}

func TestAuthService_Register_DuplicateEmailConflicts(t *testing.T) {
	f := newAuthFixture(t, 10)
	f.seedUser(t, "bob@example.com", "Valid#Pass9")

	_, err := f.service.Register(context.Background(), "bob@example.com", "Str0ng!Password", "Bob", "Smith")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t, 10)
	user := f.seedUser(t, "alice@example.com", "Valid#Pass9")

	err := f.service.ChangePassword(context.Background(), user.ID, "Valid#Pass9", "N3w!Passw0rd", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, f.repo.updatedHash[user.ID])

	err = f.service.ChangePassword(context.Background(), user.ID, "wrong-current", "N3w!Passw0rd", "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
