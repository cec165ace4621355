package normalization

import (
  "strings"
)

// ParseInputString trims surrounding whitespace and collapses inner runs of
// whitespace down to single spaces.
func ParseInputString(s string) string {
  return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

func ParseInputStringPtr(s *string) *string {
  if s == nil {
    return nil
  }
  parsed := ParseInputString(*s)
  return &parsed
}

// ParseEmail lowercases on top of the usual trimming; emails compare
// case-insensitively everywhere else in the system.
func ParseEmail(s string) string {
  return strings.ToLower(ParseInputString(s))
}

// ParseMsisdn strips whitespace, dashes and a leading "+" so the stored form
// is bare digits in local notation.
func ParseMsisdn(s string) string {
  cleaned := strings.TrimSpace(s)
  cleaned = strings.TrimPrefix(cleaned, "+")
  cleaned = strings.Map(func(r rune) rune {
    switch r {
    case ' ', '-', '(', ')', '.':
      return -1
    }
    return r
  }, cleaned)
  return cleaned
}

// MsisdnToInternational converts a locally formatted msisdn into the wire form
// the SMS gateways expect: drop a single leading zero, prefix the country
// calling code ("62" for the default region).
func MsisdnToInternational(msisdn, countryCode string) string {
  cleaned := ParseMsisdn(msisdn)
  if strings.HasPrefix(cleaned, countryCode) {
    return cleaned
  }
  if strings.HasPrefix(cleaned, "0") {
    cleaned = cleaned[1:]
  }
  return countryCode + cleaned
}
