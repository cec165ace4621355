package normalization

import (
  "testing"

  "github.com/stretchr/testify/assert"
)

func TestParseInputString(t *testing.T) {
  assert.Equal(t, "hello world", ParseInputString("  hello   world  "))
  assert.Equal(t, "", ParseInputString("   "))
}

func TestParseInputStringPtr(t *testing.T) {
  assert.Nil(t, ParseInputStringPtr(nil))

  raw := "  spaced  out  "
  parsed := ParseInputStringPtr(&raw)
  assert.Equal(t, "spaced out", *parsed)
}

func TestParseEmail(t *testing.T) {
  assert.Equal(t, "person@example.com", ParseEmail("  Person@Example.COM "))
}

func TestParseMsisdn(t *testing.T) {
  assert.Equal(t, "081234567890", ParseMsisdn(" 0812-3456 (789) 0 "))
  assert.Equal(t, "6281234567890", ParseMsisdn("+62 812.3456.7890"))
}

func TestMsisdnToInternational(t *testing.T) {
  // Local notation drops its single leading zero.
  assert.Equal(t, "6281234567890", MsisdnToInternational("081234567890", "62"))
  // Already-international numbers pass through.
  assert.Equal(t, "6281234567890", MsisdnToInternational("6281234567890", "62"))
  // No leading zero, no country code: prefix only.
  assert.Equal(t, "62812345", MsisdnToInternational("812345", "62"))
}
