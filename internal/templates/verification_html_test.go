package templates

import (
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

func TestRenderVerificationHTML(t *testing.T) {
  html, err := RenderVerificationHTML(VerificationEmailData{
    Logo:         "https://cdn.example.com/logo.png",
    Passcode:     "654321",
    Challenge:    "signup_verification",
    ValidMinutes: 120,
  })
  require.NoError(t, err)
  assert.Contains(t, html, "654321")
  assert.Contains(t, html, "https://cdn.example.com/logo.png")
  assert.Contains(t, html, "120")
}

func TestRenderVerificationHTMLEscapes(t *testing.T) {
  html, err := RenderVerificationHTML(VerificationEmailData{
    Passcode:     "<script>alert(1)</script>",
    ValidMinutes: 5,
  })
  require.NoError(t, err)
  assert.NotContains(t, html, "<script>alert(1)</script>")
}
