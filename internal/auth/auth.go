// Package auth consumes opaque bearer tokens issued by the credential
// collaborator. Tokens are never parsed here; verification is a lookup.
package auth

import (
	"errors"
	"sync"
	"time"
)

var ErrUnauthenticated = errors.New("missing or unknown credential")
var ErrCredentialExpired = errors.New("credential expired")

type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

type Verifier interface {
	Verify(token string) (Claims, error)
}

// StaticVerifier holds registered tokens in memory. It stands in for the
// external credential collaborator in dev and tests.
type StaticVerifier struct {
	mu     sync.RWMutex
	tokens map[string]Claims
	now    func() time.Time
}

func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{
		tokens: make(map[string]Claims),
		now:    time.Now,
	}
}

func (v *StaticVerifier) Register(token, userID string, expiresAt time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = Claims{UserID: userID, ExpiresAt: expiresAt}
}

func (v *StaticVerifier) Verify(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrUnauthenticated
	}
	v.mu.RLock()
	claims, ok := v.tokens[token]
	v.mu.RUnlock()
	if !ok {
		return Claims{}, ErrUnauthenticated
	}
	if !claims.ExpiresAt.IsZero() && !v.now().Before(claims.ExpiresAt) {
		return Claims{}, ErrCredentialExpired
	}
	return claims, nil
}

// Token is the client-side view of a credential: the opaque value plus the
// expiry the collaborator handed out alongside it.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the token should not be presented anymore. A zero
// expiry means the collaborator gave no bound.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
