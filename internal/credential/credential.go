package credential

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Credential is the short-lived access credential attached to an approved
// visit: a rotating 6-digit numeric code plus a stable QR token.
//
// Invariants:
// - Code is always 6 digits, drawn uniformly from [100000, 999999].
// - UsesRemaining is in {0, 1, 2}; it resets to 2 only on a fresh Issue.
// - QRToken is unique per issuance and survives code rotation.
type Credential struct {
	Code          string    `json:"validation_code"`
	ExpiresAt     time.Time `json:"validation_expires_at"`
	UsesRemaining int       `json:"uses_remaining"`
	QRToken       string    `json:"qr_token"`
}

// Expired reports whether the code window has closed at the given instant.
func (c Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Exhausted reports whether both permitted uses are spent.
func (c Credential) Exhausted() bool {
	return c.UsesRemaining <= 0
}

// Lookup failure reasons. LookupByCode callers must be able to tell a
// wrong code apart from a stale or spent one for correct user messaging.
var (
	ErrCodeNotFound  = errors.New("credential: code not found")
	ErrCodeExpired   = errors.New("credential: code expired")
	ErrCodeExhausted = errors.New("credential: code uses exhausted")
)

const maxUses = 2

// Issuer mints and rotates credentials. The clock and random source are
// injectable for deterministic tests.
//
// Codes are not checked for cross-visit collisions; in a 6-digit space
// with a handful of live visits the collision odds are negligible, but
// LookupByCode resolution would be ambiguous if it ever happened. Known
// gap, accepted.
type Issuer struct {
	ttl     time.Duration
	clock   func() time.Time
	randInt func(n int) int
}

// NewIssuer returns an Issuer whose codes live for ttl after issuance.
func NewIssuer(ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Issuer{
		ttl:     ttl,
		clock:   time.Now,
		randInt: rand.IntN,
	}
}

// Issue mints a fresh credential for a visit transitioning into approved:
// new code, new expiry window, uses reset, new QR token.
func (i *Issuer) Issue(visitID string) Credential {
	return Credential{
		Code:          i.newCode(),
		ExpiresAt:     i.clock().Add(i.ttl),
		UsesRemaining: maxUses,
		QRToken:       fmt.Sprintf("QR-%s-%s", visitID, uuid.NewString()),
	}
}

// Refresh replaces the code and expiry window, leaving the QR token and
// uses counter untouched. Callers must not refresh exhausted credentials;
// their codes are allowed to go stale.
func (i *Issuer) Refresh(c Credential) Credential {
	c.Code = i.newCode()
	c.ExpiresAt = i.clock().Add(i.ttl)
	return c
}

// Consume spends one use, floored at zero.
func Consume(c Credential) Credential {
	if c.UsesRemaining > 0 {
		c.UsesRemaining--
	}
	return c
}

// Check validates a submitted code against a credential at the given
// instant, distinguishing the three failure modes.
func Check(c Credential, code string, now time.Time) error {
	if c.Code == "" || c.Code != code {
		return ErrCodeNotFound
	}
	if c.Exhausted() {
		return ErrCodeExhausted
	}
	if c.Expired(now) {
		return ErrCodeExpired
	}
	return nil
}

func (i *Issuer) newCode() string {
	return fmt.Sprintf("%06d", 100000+i.randInt(900000))
}
