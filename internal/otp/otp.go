package otp

import (
  "crypto/rand"
  "encoding/base32"
  "fmt"
  "time"

  "github.com/pquerna/otp"
  "github.com/pquerna/otp/totp"
)

// Passcodes are plain TOTP codes, but evaluated at the record's expiry instant
// instead of "now". Same secret + same expiry always re-derives the same
// passcode, so validation recomputes the code from stored inputs and nothing
// secret-free ever needs to be persisted alongside it.

const (
  // secretBytes is 160 bits of entropy, which encodes to a 32-char base32
  // secret (pyotp-sized).
  secretBytes = 20

  period = 30
)

var deriveOpts = totp.ValidateOpts{
  Period:    period,
  Digits:    otp.DigitsSix,
  Algorithm: otp.AlgorithmSHA1,
}

// NewSecret returns a fresh random base32 secret. Never reused across
// verification cycles.
func NewSecret() (string, error) {
  buf := make([]byte, secretBytes)
  if _, err := rand.Read(buf); err != nil {
    return "", fmt.Errorf("failed to read random secret: %w", err)
  }
  return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// Derive recomputes the passcode for a secret at a fixed epoch second.
// Pure and deterministic: repeated calls always agree.
func Derive(secret string, epoch int64) (string, error) {
  code, err := totp.GenerateCodeCustom(secret, time.Unix(epoch, 0).UTC(), deriveOpts)
  if err != nil {
    return "", fmt.Errorf("failed to derive passcode: %w", err)
  }
  return code, nil
}

// Generate picks the expiry instant (now + validity, whole seconds) and
// derives the passcode pinned to it.
func Generate(secret string, validity time.Duration) (string, time.Time, error) {
  validUntil := time.Now().Add(validity).Truncate(time.Second)
  code, err := Derive(secret, validUntil.Unix())
  if err != nil {
    return "", time.Time{}, err
  }
  return code, validUntil, nil
}
