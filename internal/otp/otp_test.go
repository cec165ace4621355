package otp

import (
  "testing"
  "time"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

func TestNewSecret(t *testing.T) {
  first, err := NewSecret()
  require.NoError(t, err)
  second, err := NewSecret()
  require.NoError(t, err)

  assert.Len(t, first, 32)
  assert.Len(t, second, 32)
  assert.NotEqual(t, first, second)
}

func TestDeriveIsDeterministic(t *testing.T) {
  secret, err := NewSecret()
  require.NoError(t, err)

  epoch := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC).Unix()

  first, err := Derive(secret, epoch)
  require.NoError(t, err)
  second, err := Derive(secret, epoch)
  require.NoError(t, err)

  assert.Equal(t, first, second)
  assert.Len(t, first, 6)
}

func TestDeriveChangesWithEpoch(t *testing.T) {
  secret, err := NewSecret()
  require.NoError(t, err)

  epoch := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC).Unix()

  near, err := Derive(secret, epoch)
  require.NoError(t, err)
  far, err := Derive(secret, epoch+3600)
  require.NoError(t, err)

  assert.NotEqual(t, near, far)
}

func TestDeriveRejectsBadSecret(t *testing.T) {
  _, err := Derive("not base32 !!!", time.Now().Unix())
  assert.Error(t, err)
}

func TestGeneratePinsPasscodeToExpiry(t *testing.T) {
  secret, err := NewSecret()
  require.NoError(t, err)

  code, validUntil, err := Generate(secret, 2*time.Hour)
  require.NoError(t, err)

  assert.Len(t, code, 6)
  assert.Equal(t, validUntil, validUntil.Truncate(time.Second))
  assert.WithinDuration(t, time.Now().Add(2*time.Hour), validUntil, 5*time.Second)

  // Validation later re-derives from the stored expiry and must agree.
  rederived, err := Derive(secret, validUntil.Unix())
  require.NoError(t, err)
  assert.Equal(t, code, rederived)
}
