package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/otp"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

// VerificationKey identifies the one live (unused, unexpired) record allowed
// per claim and challenge.
type VerificationKey struct {
  TargetKind  types.TargetKind
  TargetID    *uuid.UUID
  Field       string
  Value       string
  Challenge   string
}

// ValidateCriteria carries the validation lookup fields. Empty strings are
// left out of the match.
type ValidateCriteria struct {
  Token       string
  Passcode    string
  Challenge   string
  Field       string
  IPAddress   string
}

type VerificationRepo interface {
  // GENERATE (atomic find-unexpired-unused-then-upsert)
  Generate(ctx context.Context, tx *gorm.DB, rec *types.Verification, validity time.Duration) (*types.Verification, bool, error)

  // READ
  GetByIDs(ctx context.Context, tx *gorm.DB, recIDs []uuid.UUID) ([]types.Verification, error)
  GetByTokens(ctx context.Context, tx *gorm.DB, tokens []string) ([]types.Verification, error)
  GetLastValidUnused(ctx context.Context, tx *gorm.DB, key VerificationKey) (*types.Verification, error)

  // VALIDATE (lock, derive-and-compare, pending -> valid)
  Validate(ctx context.Context, tx *gorm.DB, criteria ValidateCriteria) (*types.Verification, error)

  // MARK USED (valid -> used, terminal)
  MarkUsed(ctx context.Context, tx *gorm.DB, recID uuid.UUID) error
}

type verificationRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewVerificationRepo(db *gorm.DB, baseLog *logger.Logger) VerificationRepo {
  repoLog := baseLog.With("repo", "VerificationRepo")
  return &verificationRepo{db: db, log: repoLog}
}

// keyScope narrows a query to the live-record key: matching claim fields,
// unexpired, not yet validated or used.
func keyScope(q *gorm.DB, key VerificationKey) *gorm.DB {
  q = q.Where("target_kind = ?", key.TargetKind).
    Where("field = ?", key.Field).
    Where("value = ?", key.Value).
    Where("challenge = ?", key.Challenge)
  if key.TargetID != nil {
    q = q.Where("target_id = ?", *key.TargetID)
  } else {
    q = q.Where("target_id IS NULL")
  }
  return q
}

// ----------------------------------------------------------------
// GENERATE
// ----------------------------------------------------------------

func (vr *verificationRepo) Generate(ctx context.Context, tx *gorm.DB, rec *types.Verification, validity time.Duration) (*types.Verification, bool, error) {
  vr.log.Info("Starting Generate for Verification now...")

  transaction := tx
  if transaction == nil {
    transaction = vr.db
    vr.log.Debug("Transaction is nil, using vr.db", "db", transaction)
  }

  if rec == nil {
    vr.log.Warn("No verification prototype provided, Cannot proceed.")
    return nil, false, apperr.New(apperr.KindBadInput, "verification is nil")
  }

  key := VerificationKey{
    TargetKind: rec.TargetKind,
    TargetID:   rec.TargetID,
    Field:      rec.Field,
    Value:      rec.Value,
    Challenge:  rec.Challenge,
  }

  // Fresh secret and passcode for every cycle, whether we update in place
  // or insert.
  secret, err := otp.NewSecret()
  if err != nil {
    vr.log.Error("Failed to generate verification secret", "error", err)
    return nil, false, err
  }
  passcode, validUntil, err := otp.Generate(secret, validity)
  if err != nil {
    vr.log.Error("Failed to derive verification passcode", "error", err)
    return nil, false, err
  }

  vr.log.Info("Locking any live verification for this key now...", "field", key.Field, "challenge", key.Challenge)
  var existing types.Verification
  lookErr := keyScope(transaction.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), key).
    Where("valid_until > ?", time.Now()).
    Where("is_valid = ?", false).
    Where("is_used = ?", false).
    Order("created_at DESC").
    First(&existing).Error

  if lookErr != nil && !errors.Is(lookErr, gorm.ErrRecordNotFound) {
    vr.log.Error("Failed to look up live verification for key", "error", lookErr)
    return nil, false, lookErr
  }

  if lookErr == nil {
    // Update in place: same id, regenerated secret/passcode/expiry.
    existing.Token = secret
    existing.Passcode = passcode
    existing.ValidUntil = validUntil
    existing.ValidUntilTimestamp = validUntil.Unix()
    existing.SendWith = rec.SendWith
    existing.SendTo = rec.SendTo
    existing.SendMime = rec.SendMime
    existing.IPAddress = rec.IPAddress
    existing.UserAgent = rec.UserAgent
    if err := transaction.WithContext(ctx).Save(&existing).Error; err != nil {
      vr.log.Error("Failed to regenerate live verification in place", "error", err)
      return nil, false, err
    }
    vr.log.Info("Successfully regenerated live verification in place", "verificationID", existing.ID)
    return &existing, false, nil
  }

  rec.Token = secret
  rec.Passcode = passcode
  rec.ValidUntil = validUntil
  rec.ValidUntilTimestamp = validUntil.Unix()
  rec.IsValid = false
  rec.IsUsed = false
  if err := transaction.WithContext(ctx).Create(rec).Error; err != nil {
    vr.log.Error("Failed to create verification", "error", err)
    return nil, false, err
  }
  vr.log.Info("Successfully created verification", "verificationID", rec.ID)
  return rec, true, nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (vr *verificationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, recIDs []uuid.UUID) ([]types.Verification, error) {
  vr.log.Info("Starting GetByIDs for Verifications now...")

  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  var results []types.Verification
  if len(recIDs) == 0 {
    vr.log.Debug("No verification IDs provided, returning empty slice")
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", recIDs).
    Find(&results).Error; err != nil {
    vr.log.Error("Failed to fetch verifications by IDs", "error", err)
    return nil, err
  }
  vr.log.Info("Successfully fetched verifications by IDs", "count", len(results))
  return results, nil
}

func (vr *verificationRepo) GetByTokens(ctx context.Context, tx *gorm.DB, tokens []string) ([]types.Verification, error) {
  vr.log.Info("Starting GetByTokens for Verifications now...")

  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  var results []types.Verification
  if len(tokens) == 0 {
    vr.log.Debug("No tokens provided, returning empty slice")
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("token IN ?", tokens).
    Find(&results).Error; err != nil {
    vr.log.Error("Failed to fetch verifications by tokens", "error", err)
    return nil, err
  }
  vr.log.Info("Successfully fetched verifications by tokens", "count", len(results))
  return results, nil
}

func (vr *verificationRepo) GetLastValidUnused(ctx context.Context, tx *gorm.DB, key VerificationKey) (*types.Verification, error) {
  vr.log.Info("Starting GetLastValidUnused for Verification now...")

  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  var rec types.Verification
  err := keyScope(transaction.WithContext(ctx), key).
    Where("is_valid = ?", true).
    Where("is_used = ?", false).
    Order("created_at DESC").
    First(&rec).Error
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      vr.log.Debug("No valid unused verification found for key", "field", key.Field, "challenge", key.Challenge)
      return nil, apperr.ErrNotFound
    }
    vr.log.Error("Failed to fetch valid unused verification", "error", err)
    return nil, err
  }
  vr.log.Info("Successfully fetched valid unused verification", "verificationID", rec.ID)
  return &rec, nil
}

// ----------------------------------------------------------------
// VALIDATE
// ----------------------------------------------------------------

func (vr *verificationRepo) Validate(ctx context.Context, tx *gorm.DB, criteria ValidateCriteria) (*types.Verification, error) {
  vr.log.Info("Starting Validate for Verification now...")

  transaction := tx
  if transaction == nil {
    transaction = vr.db
    vr.log.Debug("Transaction is nil, using vr.db", "db", transaction)
  }

  q := transaction.WithContext(ctx).
    Clauses(clause.Locking{Strength: "UPDATE"}).
    Where("valid_until > ?", time.Now()).
    Where("is_valid = ?", false).
    Where("is_used = ?", false)
  if criteria.Token != "" {
    q = q.Where("token = ?", criteria.Token)
  }
  if criteria.Passcode != "" {
    q = q.Where("passcode = ?", criteria.Passcode)
  }
  if criteria.Challenge != "" {
    q = q.Where("challenge = ?", criteria.Challenge)
  }
  if criteria.Field != "" {
    q = q.Where("field = ?", criteria.Field)
  }
  if criteria.IPAddress != "" {
    q = q.Where("ip_address = ?", criteria.IPAddress)
  }

  vr.log.Info("Locking candidate verification row (for update) now...")
  var rec types.Verification
  if err := q.Order("created_at DESC").First(&rec).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      vr.log.Debug("No matching pending verification for criteria", "challenge", criteria.Challenge)
      return nil, apperr.ErrNotFound
    }
    vr.log.Error("Failed to lock candidate verification row", "error", err)
    return nil, err
  }

  // Re-derive from stored secret + stored expiry and double-check expiry;
  // the query predicate alone is not enough under clock skew.
  derived, err := otp.Derive(rec.Token, rec.ValidUntilTimestamp)
  if err != nil {
    vr.log.Error("Failed to re-derive passcode for verification", "error", err, "verificationID", rec.ID)
    return nil, err
  }
  if derived != rec.Passcode || rec.IsExpired() {
    vr.log.Warn("Verification passcode expired or mismatched on derive", "verificationID", rec.ID)
    return nil, apperr.ErrPasscodeInvalid
  }

  rec.IsValid = true
  if err := transaction.WithContext(ctx).
    Model(&rec).
    Update("is_valid", true).Error; err != nil {
    vr.log.Error("Failed to mark verification valid", "error", err)
    return nil, err
  }
  vr.log.Info("Successfully validated verification", "verificationID", rec.ID)
  return &rec, nil
}

// ----------------------------------------------------------------
// MARK USED
// ----------------------------------------------------------------

func (vr *verificationRepo) MarkUsed(ctx context.Context, tx *gorm.DB, recID uuid.UUID) error {
  vr.log.Info("Starting MarkUsed for Verification now...")

  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  if recID == uuid.Nil {
    vr.log.Debug("recID is nil, skipping MarkUsed")
    return nil
  }

  vr.log.Info("Locking verification row (for update) to mark used...", "verificationID", recID)
  var rec types.Verification
  if err := transaction.WithContext(ctx).
    Clauses(clause.Locking{Strength: "UPDATE"}).
    Where("id = ?", recID).
    First(&rec).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return apperr.ErrNotFound
    }
    vr.log.Error("Failed to load verification in MarkUsed", "error", err)
    return err
  }

  if !rec.IsValid {
    vr.log.Warn("Verification not validated yet, refusing MarkUsed", "verificationID", recID)
    return apperr.ErrNotValidated
  }
  if rec.IsUsed {
    vr.log.Debug("Verification already used, skipping", "verificationID", recID)
    return nil
  }

  if err := transaction.WithContext(ctx).
    Model(&rec).
    Update("is_used", true).Error; err != nil {
    vr.log.Error("Failed to mark verification as used", "error", err)
    return err
  }
  vr.log.Info("Successfully marked verification as used", "verificationID", recID)
  return nil
}
