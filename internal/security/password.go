package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/davidmarsh/reelhaven/internal/models"
)

const (
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// BreachChecker reports whether a password has appeared in a known breach.
// Implementations typically call out over the network and may fail.
type BreachChecker interface {
	IsPasswordPwned(ctx context.Context, password string) (bool, error)
}

// PasswordPolicy holds the hashing and validation policy
type PasswordPolicy struct {
	Pepper     string
	BcryptCost int

	// BreachCheckFailOpen accepts passwords (with a logged warning) when the
	// breach lookup errors. Fail-closed rejects them with
	// models.ErrBreachCheckUnavailable instead.
	BreachCheckFailOpen bool
}

// PasswordEngine hashes, verifies, and validates passwords. It holds no
// mutable state beyond its immutable policy and is safe for concurrent use.
type PasswordEngine struct {
	policy PasswordPolicy
	breach BreachChecker
	logger *slog.Logger
}

// NewPasswordEngine creates a password engine with the given policy
func NewPasswordEngine(policy PasswordPolicy, breach BreachChecker, logger *slog.Logger) *PasswordEngine {
	return &PasswordEngine{
		policy: policy,
		breach: breach,
		logger: logger,
	}
}

// HashPassword mixes the process-wide pepper into the password, normalizes
// length with a SHA-256 pre-hash, and runs bcrypt over the digest. Only the
// final bcrypt hash is stored.
func (e *PasswordEngine) HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hashed, err := bcrypt.GenerateFromPassword(e.pepperedDigest(password), e.policy.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword recomputes the peppered digest and compares it against the
// stored hash using bcrypt's constant-time comparison
func (e *PasswordEngine) VerifyPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), e.pepperedDigest(password)) == nil
}

// pepperedDigest pre-hashes password+pepper. Hex encoding keeps the digest
// printable and well under bcrypt's 72-byte input limit.
func (e *PasswordEngine) pepperedDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password + e.policy.Pepper))
	digest := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(digest, sum[:])
	return digest
}

// ValidatePassword runs the layered acceptance pipeline: breach lookup first
// (a hit is fatal and returns a single violation), then personal-information
// leakage, then complexity. The returned slice is empty iff the password
// passed every check; non-empty means rejection with messages for the user.
func (e *PasswordEngine) ValidatePassword(ctx context.Context, password, email, firstName, lastName string, extra ...string) ([]string, error) {
	pwned, err := e.breach.IsPasswordPwned(ctx, password)
	if err != nil {
		if !e.policy.BreachCheckFailOpen {
			return nil, fmt.Errorf("%w: %v", models.ErrBreachCheckUnavailable, err)
		}
		e.logger.Warn("breach lookup failed, continuing without it", slog.Any("error", err))
	} else if pwned {
		return []string{"has appeared in a known data breach, please choose a different password"}, nil
	}

	violations := make([]string, 0)
	lower := strings.ToLower(password)

	if local := emailLocalPart(email); containsToken(lower, local) {
		violations = append(violations, "must not contain your email address")
	}
	if containsToken(lower, firstName) {
		violations = append(violations, "must not contain your first name")
	}
	if containsToken(lower, lastName) {
		violations = append(violations, "must not contain your last name")
	}
	for _, token := range extra {
		if containsToken(lower, token) {
			violations = append(violations, "must not contain personal information")
			break
		}
	}

	violations = append(violations, complexityViolations(password)...)

	return violations, nil
}

// complexityViolations checks length bounds and character-class requirements
func complexityViolations(password string) []string {
	violations := make([]string, 0)

	if len(password) < MinPasswordLen {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		violations = append(violations, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		violations = append(violations, "must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "must contain at least one digit")
	}
	if !hasSpecial {
		violations = append(violations, "must contain at least one special character")
	}

	return violations
}

// containsToken reports a case-insensitive substring match. Tokens shorter
// than two characters are skipped, a single letter matches almost anything.
func containsToken(lowerPassword, token string) bool {
	token = strings.TrimSpace(strings.ToLower(token))
	if len(token) < 2 {
		return false
	}
	return strings.Contains(lowerPassword, token)
}

// emailLocalPart returns the part before '@', or "" for a malformed address
func emailLocalPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return ""
}
