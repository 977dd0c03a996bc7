package security

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"
)

const codeDigits = 6

var codeSpace = big.NewInt(1_000_000)

type issuedCode struct {
	code      string
	issuedAt  time.Time
	expiresAt time.Time
}

// MultiFactorCodeService issues and verifies short-lived numeric codes for a
// secondary verification channel. At most one code is live per identity;
// issuing a new one overwrites the previous. Delivery and issuance throttling
// are the caller's concern.
type MultiFactorCodeService struct {
	mu     sync.Mutex
	codes  map[string]issuedCode
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewMultiFactorCodeService creates a code service with the given code lifetime
func NewMultiFactorCodeService(ttl time.Duration, logger *slog.Logger) *MultiFactorCodeService {
	return &MultiFactorCodeService{
		codes:  make(map[string]issuedCode),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Issue generates a uniformly random 6-digit code for the identity,
// replacing any previously issued code
func (s *MultiFactorCodeService) Issue(identity string) (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	code := fmt.Sprintf("%0*d", codeDigits, n)

	now := s.now()

	s.mu.Lock()
	s.codes[identity] = issuedCode{
		code:      code,
		issuedAt:  now,
		expiresAt: now.Add(s.ttl),
	}
	s.mu.Unlock()

	s.logger.Info("verification code issued", slog.String("identity", identity))
	return code, nil
}

// Verify reports whether a live code exists for the identity and matches the
// submission exactly. A match consumes the code. Expiry, mismatch, and
// absence all return the same false, nothing is revealed about which failed.
func (s *MultiFactorCodeService) Verify(identity, submitted string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	issued, ok := s.codes[identity]
	if !ok {
		return false
	}

	if !issued.expiresAt.After(now) {
		delete(s.codes, identity)
		return false
	}

	if subtle.ConstantTimeCompare([]byte(issued.code), []byte(submitted)) != 1 {
		return false
	}

	// Single use
	delete(s.codes, identity)
	return true
}

// PurgeStale removes expired codes that were never verified
func (s *MultiFactorCodeService) PurgeStale() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for identity, issued := range s.codes {
		if !issued.expiresAt.After(now) {
			delete(s.codes, identity)
			removed++
		}
	}
	return removed
}
