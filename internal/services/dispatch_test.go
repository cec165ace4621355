package services

import (
  "context"
  "errors"
  "strings"
  "sync"
  "testing"
  "time"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

type fakeEmailService struct {
  mu    sync.Mutex
  sent  []string
  html  []string
  fail  bool
}

func (f *fakeEmailService) SendEmail(ctx context.Context, to, subject, plainText, htmlContent, emailType string) error {
  f.mu.Lock()
  defer f.mu.Unlock()
  if f.fail {
    return errors.New("smtp down")
  }
  f.sent = append(f.sent, to)
  f.html = append(f.html, htmlContent)
  return nil
}

type fakeTextService struct {
  mu   sync.Mutex
  sent []string
  body []string
}

func (f *fakeTextService) SendText(ctx context.Context, to, body string) error {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.sent = append(f.sent, to)
  f.body = append(f.body, body)
  return nil
}

func newDispatchFixture(cfg DispatchConfig) (DispatchService, *fakeEmailService, *fakeTextService) {
  email := &fakeEmailService{}
  text := &fakeTextService{}
  return NewDispatchService(logger.NewNop(), email, text, cfg), email, text
}

func emailRecord() *types.Verification {
  return &types.Verification{
    Field:      "email",
    Value:      "person@example.com",
    Challenge:  "signup_verification",
    SendWith:   types.SendWithEmail,
    SendTo:     "person@example.com",
    SendMime:   types.SendMimeText,
    Passcode:   "123456",
    ValidUntil: time.Now().Add(2 * time.Hour),
  }
}

func TestDispatchRoutesEmail(t *testing.T) {
  svc, email, text := newDispatchFixture(DispatchConfig{})

  svc.Dispatch(context.Background(), emailRecord())

  require.Len(t, email.sent, 1)
  assert.Equal(t, "person@example.com", email.sent[0])
  assert.Contains(t, email.html[0], "123456")
  assert.Empty(t, text.sent)
}

func TestDispatchRoutesText(t *testing.T) {
  svc, email, text := newDispatchFixture(DispatchConfig{})

  rec := emailRecord()
  rec.SendWith = types.SendWithMsisdn
  rec.SendTo = "+6281234567890"
  svc.Dispatch(context.Background(), rec)

  require.Len(t, text.sent, 1)
  assert.Equal(t, "+6281234567890", text.sent[0])
  assert.True(t, strings.HasPrefix(text.body[0], "123456"))
  assert.Empty(t, email.sent)
}

func TestDispatchVoiceIsNoOp(t *testing.T) {
  svc, email, text := newDispatchFixture(DispatchConfig{})

  rec := emailRecord()
  rec.SendWith = types.SendWithMsisdn
  rec.SendMime = types.SendMimeVoice
  svc.Dispatch(context.Background(), rec)

  // Voice gates every channel, not just text.
  voiceEmail := emailRecord()
  voiceEmail.SendMime = types.SendMimeVoice
  svc.Dispatch(context.Background(), voiceEmail)

  assert.Empty(t, email.sent)
  assert.Empty(t, text.sent)
}

func TestDispatchSwallowsTransportErrors(t *testing.T) {
  email := &fakeEmailService{fail: true}
  svc := NewDispatchService(logger.NewNop(), email, &fakeTextService{}, DispatchConfig{})

  // Must not panic or propagate anything.
  svc.Dispatch(context.Background(), emailRecord())
  assert.Empty(t, email.sent)
}

func TestDispatchNilRecord(t *testing.T) {
  svc, email, text := newDispatchFixture(DispatchConfig{})

  svc.Dispatch(context.Background(), nil)
  assert.Empty(t, email.sent)
  assert.Empty(t, text.sent)
}

func TestDispatchWithoutTransports(t *testing.T) {
  svc := NewDispatchService(logger.NewNop(), nil, nil, DispatchConfig{})

  // Both transports unset: dispatch logs and returns.
  svc.Dispatch(context.Background(), emailRecord())
  rec := emailRecord()
  rec.SendWith = types.SendWithMsisdn
  svc.Dispatch(context.Background(), rec)
}
