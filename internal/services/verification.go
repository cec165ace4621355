package services

import (
  "context"
  "fmt"
  "sync"
  "time"

  "github.com/google/uuid"
  "github.com/nyaruka/phonenumbers"
  "github.com/go-playground/validator/v10"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/normalization"
  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

// VerificationConfig tunes the passcode lifecycle.
type VerificationConfig struct {
  ValidityWindow       time.Duration // how long a passcode stays live
  DefaultRegion        string        // ISO region for msisdn parsing, e.g. "ID"
  CountryCode          string        // dial prefix for bare local numbers, e.g. "62"
  VerificationRequired bool          // gate logins on verified claims
}

func DefaultVerificationConfig() VerificationConfig {
  return VerificationConfig{
    ValidityWindow:       2 * time.Hour,
    DefaultRegion:        "ID",
    CountryCode:          "62",
    VerificationRequired: true,
  }
}

// BindingFunc resolves a challenge to its target before the record is stored.
// It may set rec.TargetID (or reject the request outright).
type BindingFunc func(ctx context.Context, tx *gorm.DB, rec *types.Verification) error

// GenerateInput is everything a caller may say about a new verification.
type GenerateInput struct {
  TargetKind types.TargetKind
  TargetID   *uuid.UUID
  Field      string
  Value      string
  Challenge  string
  SendWith   types.SendWithOption
  SendMime   types.SendMimeOption
}

type VerificationService interface {
  Generate(ctx context.Context, input GenerateInput) (*types.Verification, error)
  GenerateTx(ctx context.Context, tx *gorm.DB, input GenerateInput) (*types.Verification, bool, error)
  Validate(ctx context.Context, criteria repos.ValidateCriteria) (*types.Verification, error)
  ValidateTx(ctx context.Context, tx *gorm.DB, criteria repos.ValidateCriteria) (*types.Verification, error)
  Consume(ctx context.Context, tx *gorm.DB, recID uuid.UUID) error
  RegisterBinding(challenge string, fn BindingFunc)

  Config() VerificationConfig
}

type verificationService struct {
  db               *gorm.DB
  log              *logger.Logger
  verificationRepo repos.VerificationRepo
  userRepo         repos.UserRepo
  dispatchService  DispatchService
  cfg              VerificationConfig

  mu       sync.RWMutex
  bindings map[string]BindingFunc

  validate *validator.Validate
}

func NewVerificationService(
  db *gorm.DB,
  log *logger.Logger,
  verificationRepo repos.VerificationRepo,
  userRepo repos.UserRepo,
  dispatchService DispatchService,
  cfg VerificationConfig,
) VerificationService {
  serviceLog := log.With("service", "VerificationService")
  if cfg.ValidityWindow <= 0 {
    cfg.ValidityWindow = DefaultVerificationConfig().ValidityWindow
  }
  vs := &verificationService{
    db:               db,
    log:              serviceLog,
    verificationRepo: verificationRepo,
    userRepo:         userRepo,
    dispatchService:  dispatchService,
    cfg:              cfg,
    bindings:         make(map[string]BindingFunc),
    validate:         validator.New(),
  }
  vs.registerDefaultBindings()
  return vs
}

func (vs *verificationService) Config() VerificationConfig {
  return vs.cfg
}

// ----------------------------------------------------------------
// Challenge bindings
// ----------------------------------------------------------------

func (vs *verificationService) RegisterBinding(challenge string, fn BindingFunc) {
  vs.mu.Lock()
  defer vs.mu.Unlock()
  vs.bindings[challenge] = fn
}

func (vs *verificationService) bindingFor(challenge string) BindingFunc {
  vs.mu.RLock()
  defer vs.mu.RUnlock()
  return vs.bindings[challenge]
}

// registerDefaultBindings wires the reset-password challenges: the claim must
// belong to an active user, and the record is pinned to that user.
func (vs *verificationService) registerDefaultBindings() {
  for _, field := range repos.ActiveUserFields {
    challenge := fmt.Sprintf("%s_reset_password_verification", field)
    boundField := field
    vs.RegisterBinding(challenge, func(ctx context.Context, tx *gorm.DB, rec *types.Verification) error {
      users, err := vs.userRepo.GetActiveByField(ctx, tx, boundField, rec.Value)
      if err != nil {
        return err
      }
      if len(users) == 0 {
        vs.log.Warn("No active user for reset password challenge", "field", boundField)
        return apperr.ErrUserNotFound
      }
      userID := users[0].ID
      rec.TargetID = &userID
      return nil
    })
  }
}

// ----------------------------------------------------------------
// Guards
// ----------------------------------------------------------------

// allowedFields lists which claim fields each target kind may verify.
var allowedFields = map[types.TargetKind][]string{
  types.TargetKindUser: {"email", "msisdn"},
}

func (vs *verificationService) guardField(kind types.TargetKind, field string) error {
  for _, allowed := range allowedFields[kind] {
    if allowed == field {
      return nil
    }
  }
  vs.log.Warn("Field is not verifiable for target kind", "targetKind", kind, "field", field)
  return apperr.ErrInvalidField
}

// guardDeliveryTarget checks that the value can actually be delivered to over
// the chosen transport, and returns the normalized destination.
func (vs *verificationService) guardDeliveryTarget(sendWith types.SendWithOption, value string) (string, error) {
  switch sendWith {
  case types.SendWithEmail:
    if err := vs.validate.Var(value, "required,email"); err != nil {
      vs.log.Warn("Value is not a deliverable email address")
      return "", apperr.ErrInvalidDeliveryTarget
    }
    return value, nil
  case types.SendWithMsisdn:
    msisdn := normalization.ParseMsisdn(value)
    if msisdn == "" {
      vs.log.Warn("Value is not a deliverable msisdn")
      return "", apperr.ErrInvalidDeliveryTarget
    }
    num, err := phonenumbers.Parse("+"+normalization.MsisdnToInternational(msisdn, vs.cfg.CountryCode), vs.cfg.DefaultRegion)
    if err != nil || !phonenumbers.IsValidNumber(num) {
      vs.log.Warn("Value failed msisdn parsing", "error", err)
      return "", apperr.ErrInvalidDeliveryTarget
    }
    return phonenumbers.Format(num, phonenumbers.E164), nil
  default:
    vs.log.Warn("Unknown delivery transport", "sendWith", sendWith)
    return "", apperr.ErrInvalidDeliveryTarget
  }
}

// ----------------------------------------------------------------
// Generate
// ----------------------------------------------------------------

func (vs *verificationService) Generate(ctx context.Context, input GenerateInput) (*types.Verification, error) {
  vs.log.Info("Starting Generate Verification now...", "field", input.Field, "challenge", input.Challenge)

  var rec *types.Verification
  var created bool
  err := vs.withTransaction(ctx, func(tx *gorm.DB) error {
    var txErr error
    rec, created, txErr = vs.GenerateTx(ctx, tx, input)
    return txErr
  })
  if err != nil {
    return nil, err
  }

  // Delivery only fires for records born in this call. Regeneration reuses
  // the live record and stays silent.
  if created && vs.dispatchService != nil {
    vs.dispatchService.Dispatch(ctx, rec)
  }
  vs.log.Info("Successfully generated verification :)", "verificationID", rec.ID, "created", created)
  return rec, nil
}

func (vs *verificationService) GenerateTx(ctx context.Context, tx *gorm.DB, input GenerateInput) (*types.Verification, bool, error) {
  if input.TargetKind == "" {
    input.TargetKind = types.TargetKindUser
  }
  if input.SendWith == "" {
    input.SendWith = types.SendWithOption(input.Field)
  }
  if input.SendMime == "" {
    input.SendMime = types.SendMimeText
  }
  if !types.ChallengeRegexp.MatchString(input.Challenge) {
    vs.log.Warn("Challenge name is malformed", "challenge", input.Challenge)
    return nil, false, apperr.New(apperr.KindBadInput, "challenge name is malformed")
  }

  if err := vs.guardField(input.TargetKind, input.Field); err != nil {
    return nil, false, err
  }

  value := normalization.ParseInputString(input.Value)
  if input.Field == "email" {
    value = normalization.ParseEmail(value)
  }
  if input.Field == "msisdn" {
    value = normalization.ParseMsisdn(value)
  }

  sendTo, err := vs.guardDeliveryTarget(input.SendWith, value)
  if err != nil {
    return nil, false, err
  }

  rd := requestdata.GetRequestData(ctx)

  rec := &types.Verification{
    TargetKind: input.TargetKind,
    TargetID:   input.TargetID,
    Field:      input.Field,
    Value:      value,
    Challenge:  input.Challenge,
    SendWith:   input.SendWith,
    SendTo:     sendTo,
    SendMime:   input.SendMime,
  }
  if rd != nil {
    rec.IPAddress = rd.IPAddress
    rec.UserAgent = rd.UserAgent
  }

  if binding := vs.bindingFor(input.Challenge); binding != nil {
    if err := binding(ctx, tx, rec); err != nil {
      return nil, false, err
    }
  }

  stored, created, err := vs.verificationRepo.Generate(ctx, tx, rec, vs.cfg.ValidityWindow)
  if err != nil {
    return nil, false, err
  }
  return stored, created, nil
}

// ----------------------------------------------------------------
// Validate / Consume
// ----------------------------------------------------------------

func (vs *verificationService) Validate(ctx context.Context, criteria repos.ValidateCriteria) (*types.Verification, error) {
  vs.log.Info("Starting Validate Verification now...", "challenge", criteria.Challenge)

  var rec *types.Verification
  err := vs.withTransaction(ctx, func(tx *gorm.DB) error {
    var txErr error
    rec, txErr = vs.verificationRepo.Validate(ctx, tx, criteria)
    return txErr
  })
  if err != nil {
    return nil, err
  }
  vs.log.Info("Successfully validated verification :)", "verificationID", rec.ID)
  return rec, nil
}

func (vs *verificationService) ValidateTx(ctx context.Context, tx *gorm.DB, criteria repos.ValidateCriteria) (*types.Verification, error) {
  return vs.verificationRepo.Validate(ctx, tx, criteria)
}

func (vs *verificationService) Consume(ctx context.Context, tx *gorm.DB, recID uuid.UUID) error {
  return vs.verificationRepo.MarkUsed(ctx, tx, recID)
}

// withTransaction wraps fn in a DB transaction; without a DB handle fn runs
// directly so repo fakes can supply their own atomicity.
func (vs *verificationService) withTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
  if vs.db == nil {
    return fn(nil)
  }
  return vs.db.WithContext(ctx).Transaction(fn)
}
