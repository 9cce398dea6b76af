// Package otp issues and verifies stateless one-time-password tickets.
//
// A ticket is an HMAC-SHA256 signature over the code, the email, the expiry
// and (for registration) the password hash, joined with '#' to the fields the
// client must replay. Nothing is stored server side.
package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	TTL = 10 * time.Minute

	minCode = 1000
	maxCode = 9999

	sep = "#"
)

var (
	ErrSecretMissing = errors.New("otp hash secret is not configured")
	ErrMalformed     = errors.New("otp token is malformed")
	ErrExpired       = errors.New("otp is expired")
	ErrInvalid       = errors.New("otp is invalid")
)

type Engine struct {
	secret []byte
	now    func() time.Time
}

func NewEngine(secret string) *Engine {
	return &Engine{secret: []byte(secret), now: time.Now}
}

// WithClock swaps the time source; used by tests that need to cross the expiry boundary.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	return &Engine{secret: e.secret, now: now}
}

// Ticket is what the client receives: the opaque token plus the code it must echo.
type Ticket struct {
	Code      int
	Token     string
	ExpiresAt int64 // unix ms
}

// GenerateCode returns a uniformly distributed code in [1000, 9999].
func (e *Engine) GenerateCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return 0, fmt.Errorf("generate otp: %w", err)
	}
	return int(n.Int64()) + minCode, nil
}

// Sign returns the hex HMAC-SHA256 of payload under the server secret.
func (e *Engine) Sign(payload string) (string, error) {
	if len(e.secret) == 0 {
		return "", ErrSecretMissing
	}

	mac := hmac.New(sha256.New, e.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// IssueRegistration binds the code to email and the pending password hash.
// Token shape: {sig}#{expiresAtMs}#{passwordHash}.
func (e *Engine) IssueRegistration(email, passwordHash string) (Ticket, error) {
	code, err := e.GenerateCode()
	if err != nil {
		return Ticket{}, err
	}

	expires := e.now().Add(TTL).UnixMilli()
	exp := strconv.FormatInt(expires, 10)

	sig, err := e.Sign(registrationPayload(strconv.Itoa(code), email, exp, passwordHash))
	if err != nil {
		return Ticket{}, err
	}

	return Ticket{
		Code:      code,
		Token:     strings.Join([]string{sig, exp, passwordHash}, sep),
		ExpiresAt: expires,
	}, nil
}

// VerifyRegistration checks a registration ticket and returns the password
// hash it carried.
func (e *Engine) VerifyRegistration(token, code, email string) (string, error) {
	parts := strings.Split(token, sep)
	if len(parts) != 3 {
		return "", ErrMalformed
	}

	sig, exp, passwordHash := parts[0], parts[1], parts[2]

	if err := e.checkExpiry(exp); err != nil {
		return "", err
	}

	want, err := e.Sign(registrationPayload(code, email, exp, passwordHash))
	if err != nil {
		return "", err
	}

	if !hmac.Equal([]byte(want), []byte(sig)) {
		return "", ErrInvalid
	}

	return passwordHash, nil
}

// IssueReset binds the code to email only. Token shape: {sig}#{expiresAtMs}.
func (e *Engine) IssueReset(email string) (Ticket, error) {
	code, err := e.GenerateCode()
	if err != nil {
		return Ticket{}, err
	}

	expires := e.now().Add(TTL).UnixMilli()
	exp := strconv.FormatInt(expires, 10)

	sig, err := e.Sign(resetPayload(strconv.Itoa(code), email, exp))
	if err != nil {
		return Ticket{}, err
	}

	return Ticket{
		Code:      code,
		Token:     sig + sep + exp,
		ExpiresAt: expires,
	}, nil
}

func (e *Engine) VerifyReset(token, code, email string) error {
	parts := strings.Split(token, sep)
	if len(parts) != 2 {
		return ErrMalformed
	}

	sig, exp := parts[0], parts[1]

	if err := e.checkExpiry(exp); err != nil {
		return err
	}

	want, err := e.Sign(resetPayload(code, email, exp))
	if err != nil {
		return err
	}

	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrInvalid
	}
	return nil
}

// checkExpiry accepts the exact expiry millisecond; only now > expiry fails.
func (e *Engine) checkExpiry(exp string) error {
	expiresAt, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return ErrMalformed
	}

	if e.now().UnixMilli() > expiresAt {
		return ErrExpired
	}
	return nil
}

func registrationPayload(code, email, exp, passwordHash string) string {
	return code + "." + email + "." + exp + "." + passwordHash
}

func resetPayload(code, email, exp string) string {
	return code + "." + email + "." + exp
}

// Code is the user-entered OTP. Clients send it either as a JSON number
// (as returned by send-otp) or as a string.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = Code(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("otp must be a string or number: %w", err)
	}
	*c = Code(n.String())
	return nil
}
