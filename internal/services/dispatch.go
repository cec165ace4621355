package services

import (
  "context"
  "fmt"
  "time"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/templates"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

// DispatchConfig tunes passcode delivery.
type DispatchConfig struct {
  Async   bool   // deliver on a goroutine instead of inline
  LogoURL string // brand logo for verification emails
}

// DispatchService routes a freshly created verification to its transport.
// Delivery failures are logged and swallowed: the record is already stored
// and the client can regenerate.
type DispatchService interface {
  Dispatch(ctx context.Context, rec *types.Verification)
}

type dispatchService struct {
  log          *logger.Logger
  emailService EmailService
  textService  TextService
  cfg          DispatchConfig
}

func NewDispatchService(
  log *logger.Logger,
  emailService EmailService,
  textService TextService,
  cfg DispatchConfig,
) DispatchService {
  serviceLog := log.With("service", "DispatchService")
  return &dispatchService{
    log:          serviceLog,
    emailService: emailService,
    textService:  textService,
    cfg:          cfg,
  }
}

func (ds *dispatchService) Dispatch(ctx context.Context, rec *types.Verification) {
  if rec == nil {
    ds.log.Debug("Nil verification given, nothing to dispatch")
    return
  }
  if ds.cfg.Async {
    // The request context dies with the HTTP response; delivery gets its own.
    go ds.deliver(context.Background(), rec)
    return
  }
  ds.deliver(ctx, rec)
}

func (ds *dispatchService) deliver(ctx context.Context, rec *types.Verification) {
  ds.log.Info("Starting Dispatch for Verification now...", "verificationID", rec.ID, "sendWith", rec.SendWith, "sendMime", rec.SendMime)

  if rec.SendMime == types.SendMimeVoice {
    // Voice calls are not wired up yet; the record stays live so the client
    // can fall back to text.
    ds.log.Info("Voice delivery requested, skipping", "verificationID", rec.ID)
    return
  }

  switch rec.SendWith {
  case types.SendWithEmail:
    ds.deliverEmail(ctx, rec)
  case types.SendWithMsisdn:
    ds.deliverText(ctx, rec)
  default:
    ds.log.Warn("No transport for verification, skipping dispatch", "sendWith", rec.SendWith)
  }
}

func (ds *dispatchService) deliverEmail(ctx context.Context, rec *types.Verification) {
  if ds.emailService == nil {
    ds.log.Warn("Email service not configured, skipping dispatch", "verificationID", rec.ID)
    return
  }
  validMinutes := int(time.Until(rec.ValidUntil).Round(time.Minute).Minutes())
  if validMinutes < 1 {
    validMinutes = 1
  }
  htmlContent, err := templates.RenderVerificationHTML(templates.VerificationEmailData{
    Logo:         ds.cfg.LogoURL,
    Passcode:     rec.Passcode,
    Challenge:    rec.Challenge,
    ValidMinutes: validMinutes,
  })
  if err != nil {
    ds.log.Warn("Failed to render verification email", "error", err, "verificationID", rec.ID)
    return
  }
  plainText := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", rec.Passcode, validMinutes)
  if err := ds.emailService.SendEmail(ctx, rec.SendTo, "Your verification code", plainText, htmlContent, "verification"); err != nil {
    ds.log.Warn("Failed to deliver verification email", "error", err, "verificationID", rec.ID)
    return
  }
  ds.log.Info("Successfully dispatched verification email :)", "verificationID", rec.ID)
}

func (ds *dispatchService) deliverText(ctx context.Context, rec *types.Verification) {
  if ds.textService == nil {
    ds.log.Warn("Text service not configured, skipping dispatch", "verificationID", rec.ID)
    return
  }
  body := fmt.Sprintf("%s is your Snapmoment verification code.", rec.Passcode)
  if err := ds.textService.SendText(ctx, rec.SendTo, body); err != nil {
    ds.log.Warn("Failed to deliver verification text", "error", err, "verificationID", rec.ID)
    return
  }
  ds.log.Info("Successfully dispatched verification text :)", "verificationID", rec.ID)
}
