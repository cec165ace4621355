package services

import (
  "context"
  "sync"
  "testing"
  "time"

  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/otp"
  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

//----------------------------------------------------------------------------
// In-memory fakes
//----------------------------------------------------------------------------

type memVerificationRepo struct {
  mu   sync.Mutex
  recs []*types.Verification
}

func (m *memVerificationRepo) sameKey(rec *types.Verification, key repos.VerificationKey) bool {
  if rec.TargetKind != key.TargetKind || rec.Field != key.Field ||
    rec.Value != key.Value || rec.Challenge != key.Challenge {
    return false
  }
  if key.TargetID == nil {
    return rec.TargetID == nil
  }
  return rec.TargetID != nil && *rec.TargetID == *key.TargetID
}

func (m *memVerificationRepo) Generate(ctx context.Context, tx *gorm.DB, rec *types.Verification, validity time.Duration) (*types.Verification, bool, error) {
  m.mu.Lock()
  defer m.mu.Unlock()

  secret, err := otp.NewSecret()
  if err != nil {
    return nil, false, err
  }
  passcode, validUntil, err := otp.Generate(secret, validity)
  if err != nil {
    return nil, false, err
  }

  key := repos.VerificationKey{
    TargetKind: rec.TargetKind,
    TargetID:   rec.TargetID,
    Field:      rec.Field,
    Value:      rec.Value,
    Challenge:  rec.Challenge,
  }
  for _, existing := range m.recs {
    if m.sameKey(existing, key) && !existing.IsValid && !existing.IsUsed && !existing.IsExpired() {
      existing.Token = secret
      existing.Passcode = passcode
      existing.ValidUntil = validUntil
      existing.ValidUntilTimestamp = validUntil.Unix()
      existing.IPAddress = rec.IPAddress
      existing.UserAgent = rec.UserAgent
      return existing, false, nil
    }
  }

  rec.ID = uuid.New()
  rec.Token = secret
  rec.Passcode = passcode
  rec.ValidUntil = validUntil
  rec.ValidUntilTimestamp = validUntil.Unix()
  m.recs = append(m.recs, rec)
  return rec, true, nil
}

func (m *memVerificationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, recIDs []uuid.UUID) ([]types.Verification, error) {
  m.mu.Lock()
  defer m.mu.Unlock()
  var out []types.Verification
  for _, rec := range m.recs {
    for _, id := range recIDs {
      if rec.ID == id {
        out = append(out, *rec)
      }
    }
  }
  return out, nil
}

func (m *memVerificationRepo) GetByTokens(ctx context.Context, tx *gorm.DB, tokens []string) ([]types.Verification, error) {
  m.mu.Lock()
  defer m.mu.Unlock()
  var out []types.Verification
  for _, rec := range m.recs {
    for _, token := range tokens {
      if rec.Token == token {
        out = append(out, *rec)
      }
    }
  }
  return out, nil
}

func (m *memVerificationRepo) GetLastValidUnused(ctx context.Context, tx *gorm.DB, key repos.VerificationKey) (*types.Verification, error) {
  m.mu.Lock()
  defer m.mu.Unlock()
  for i := len(m.recs) - 1; i >= 0; i-- {
    rec := m.recs[i]
    if m.sameKey(rec, key) && rec.IsValid && !rec.IsUsed && !rec.IsExpired() {
      return rec, nil
    }
  }
  return nil, apperr.ErrNotFound
}

func (m *memVerificationRepo) Validate(ctx context.Context, tx *gorm.DB, criteria repos.ValidateCriteria) (*types.Verification, error) {
  m.mu.Lock()
  defer m.mu.Unlock()
  for i := len(m.recs) - 1; i >= 0; i-- {
    rec := m.recs[i]
    if rec.IsUsed || rec.IsValid || rec.IsExpired() {
      continue
    }
    if criteria.Token != "" && rec.Token != criteria.Token {
      continue
    }
    if criteria.Passcode != "" && rec.Passcode != criteria.Passcode {
      continue
    }
    if criteria.Challenge != "" && rec.Challenge != criteria.Challenge {
      continue
    }
    if criteria.Field != "" && rec.Field != criteria.Field {
      continue
    }
    if criteria.IPAddress != "" && rec.IPAddress != criteria.IPAddress {
      continue
    }
    derived, err := otp.Derive(rec.Token, rec.ValidUntilTimestamp)
    if err != nil {
      return nil, err
    }
    if derived != rec.Passcode || rec.IsExpired() {
      return nil, apperr.ErrPasscodeInvalid
    }
    rec.IsValid = true
    return rec, nil
  }
  return nil, apperr.ErrNotFound
}

func (m *memVerificationRepo) MarkUsed(ctx context.Context, tx *gorm.DB, recID uuid.UUID) error {
  m.mu.Lock()
  defer m.mu.Unlock()
  for _, rec := range m.recs {
    if rec.ID != recID {
      continue
    }
    if !rec.IsValid {
      return apperr.ErrNotValidated
    }
    rec.IsUsed = true
    return nil
  }
  return apperr.ErrNotFound
}

type memUserRepo struct {
  users []*types.User
}

func (m *memUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
  m.users = append(m.users, users...)
  return users, nil
}

func (m *memUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
  var out []*types.User
  for _, u := range m.users {
    for _, id := range userIDs {
      if u.ID == id {
        out = append(out, u)
      }
    }
  }
  return out, nil
}

func (m *memUserRepo) GetByUsernames(ctx context.Context, tx *gorm.DB, usernames []string) ([]*types.User, error) {
  return nil, nil
}

func (m *memUserRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.User, error) {
  return nil, nil
}

func (m *memUserRepo) GetByMsisdns(ctx context.Context, tx *gorm.DB, msisdns []string) ([]*types.User, error) {
  return nil, nil
}

func (m *memUserRepo) GetActiveByField(ctx context.Context, tx *gorm.DB, field, value string) ([]*types.User, error) {
  var out []*types.User
  for _, u := range m.users {
    if u.IsActive && u.ClaimValue(field) == value {
      out = append(out, u)
    }
  }
  return out, nil
}

func (m *memUserRepo) UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
  return false, nil
}

func (m *memUserRepo) ClaimExists(ctx context.Context, tx *gorm.DB, field, value string, excludeID uuid.UUID) (bool, error) {
  return false, nil
}

func (m *memUserRepo) GetMe(ctx context.Context, tx *gorm.DB) (*types.User, error) {
  return nil, apperr.ErrNotFound
}

func (m *memUserRepo) Update(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
  return users, nil
}

func (m *memUserRepo) MarkFieldVerified(ctx context.Context, tx *gorm.DB, userID uuid.UUID, field string) error {
  return nil
}

func (m *memUserRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
  return nil
}

type recordingDispatch struct {
  mu        sync.Mutex
  delivered []*types.Verification
}

func (r *recordingDispatch) Dispatch(ctx context.Context, rec *types.Verification) {
  r.mu.Lock()
  defer r.mu.Unlock()
  r.delivered = append(r.delivered, rec)
}

func (r *recordingDispatch) count() int {
  r.mu.Lock()
  defer r.mu.Unlock()
  return len(r.delivered)
}

//----------------------------------------------------------------------------
// Helpers
//----------------------------------------------------------------------------

func newTestVerificationService(t *testing.T, cfg VerificationConfig) (VerificationService, *memVerificationRepo, *memUserRepo, *recordingDispatch) {
  t.Helper()
  repo := &memVerificationRepo{}
  users := &memUserRepo{}
  dispatch := &recordingDispatch{}
  svc := NewVerificationService(nil, logger.NewNop(), repo, users, dispatch, cfg)
  return svc, repo, users, dispatch
}

func emailInput(value, challenge string) GenerateInput {
  return GenerateInput{
    Field:     "email",
    Value:     value,
    Challenge: challenge,
  }
}

//----------------------------------------------------------------------------
// Generate
//----------------------------------------------------------------------------

func TestGenerateCreatesAndDispatches(t *testing.T) {
  svc, _, _, dispatch := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  assert.NotEqual(t, uuid.Nil, rec.ID)
  assert.Equal(t, types.TargetKindUser, rec.TargetKind)
  assert.Nil(t, rec.TargetID)
  assert.Equal(t, "person@example.com", rec.Value)
  assert.Equal(t, types.SendWithEmail, rec.SendWith)
  assert.Equal(t, types.SendMimeText, rec.SendMime)
  assert.Len(t, rec.Passcode, 6)
  assert.False(t, rec.IsValid)
  assert.False(t, rec.IsUsed)
  assert.Equal(t, 1, dispatch.count())
}

func TestGenerateRegeneratesInPlaceWithoutDispatch(t *testing.T) {
  svc, _, _, dispatch := newTestVerificationService(t, DefaultVerificationConfig())

  first, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)
  firstToken := first.Token
  firstPasscode := first.Passcode

  second, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  assert.Equal(t, first.ID, second.ID)
  assert.NotEqual(t, firstToken, second.Token)
  assert.NotEqual(t, firstPasscode, second.Passcode)
  assert.Equal(t, 1, dispatch.count())
}

func TestRegenerationInvalidatesOldCredentials(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  first, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)
  oldToken := first.Token
  oldPasscode := first.Passcode

  second, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  _, err = svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:    oldToken,
    Passcode: oldPasscode,
  })
  assert.ErrorIs(t, err, apperr.ErrNotFound)

  if oldPasscode != second.Passcode {
    _, err = svc.Validate(context.Background(), repos.ValidateCriteria{
      Token:    second.Token,
      Passcode: oldPasscode,
    })
    assert.ErrorIs(t, err, apperr.ErrNotFound)
  }

  validated, err := svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:    second.Token,
    Passcode: second.Passcode,
  })
  require.NoError(t, err)
  assert.True(t, validated.IsValid)
}

func TestGenerateDistinctChallengesCoexist(t *testing.T) {
  svc, repo, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  first, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)
  second, err := svc.Generate(context.Background(), emailInput("person@example.com", "login_verification"))
  require.NoError(t, err)

  assert.NotEqual(t, first.ID, second.ID)
  assert.Len(t, repo.recs, 2)
}

func TestGenerateNormalizesEmail(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("  Person@Example.COM ", "signup_verification"))
  require.NoError(t, err)
  assert.Equal(t, "person@example.com", rec.Value)
}

func TestGenerateRecordsRequesterMetadata(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  ctx := requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
    IPAddress: "203.0.113.9",
    UserAgent: "test-agent",
  })
  rec, err := svc.Generate(ctx, emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)
  assert.Equal(t, "203.0.113.9", rec.IPAddress)
  assert.Equal(t, "test-agent", rec.UserAgent)
}

func TestGenerateRejectsUnknownField(t *testing.T) {
  svc, _, _, dispatch := newTestVerificationService(t, DefaultVerificationConfig())

  _, err := svc.Generate(context.Background(), GenerateInput{
    Field:     "username",
    Value:     "someone",
    Challenge: "signup_verification",
  })
  assert.ErrorIs(t, err, apperr.ErrInvalidField)
  assert.Equal(t, 0, dispatch.count())
}

func TestGenerateRejectsMalformedChallenge(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  _, err := svc.Generate(context.Background(), emailInput("person@example.com", "9starts-with-digit"))
  require.Error(t, err)
  assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
}

func TestGenerateRejectsUndeliverableEmail(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  _, err := svc.Generate(context.Background(), emailInput("not-an-email", "signup_verification"))
  assert.ErrorIs(t, err, apperr.ErrInvalidDeliveryTarget)
}

func TestGenerateRejectsUndeliverableMsisdn(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  _, err := svc.Generate(context.Background(), GenerateInput{
    Field:     "msisdn",
    Value:     "12",
    Challenge: "signup_verification",
  })
  assert.ErrorIs(t, err, apperr.ErrInvalidDeliveryTarget)
}

func TestGenerateMsisdnNormalizedToE164(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), GenerateInput{
    Field:     "msisdn",
    Value:     "0812 3456 7890",
    Challenge: "signup_verification",
  })
  require.NoError(t, err)
  assert.Equal(t, "081234567890", rec.Value)
  assert.Equal(t, "+6281234567890", rec.SendTo)
}

//----------------------------------------------------------------------------
// Challenge bindings
//----------------------------------------------------------------------------

func TestResetPasswordBindingPinsActiveUser(t *testing.T) {
  svc, _, users, _ := newTestVerificationService(t, DefaultVerificationConfig())

  userID := uuid.New()
  users.users = append(users.users, &types.User{
    ID:       userID,
    Username: "person",
    Email:    "person@example.com",
    IsActive: true,
  })

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "email_reset_password_verification"))
  require.NoError(t, err)
  require.NotNil(t, rec.TargetID)
  assert.Equal(t, userID, *rec.TargetID)
}

func TestResetPasswordBindingRejectsUnknownUser(t *testing.T) {
  svc, _, _, dispatch := newTestVerificationService(t, DefaultVerificationConfig())

  _, err := svc.Generate(context.Background(), emailInput("stranger@example.com", "email_reset_password_verification"))
  assert.ErrorIs(t, err, apperr.ErrUserNotFound)
  assert.Equal(t, 0, dispatch.count())
}

func TestCustomBindingRuns(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  bound := uuid.New()
  svc.RegisterBinding("custom_challenge", func(ctx context.Context, tx *gorm.DB, rec *types.Verification) error {
    rec.TargetID = &bound
    return nil
  })

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "custom_challenge"))
  require.NoError(t, err)
  require.NotNil(t, rec.TargetID)
  assert.Equal(t, bound, *rec.TargetID)
}

//----------------------------------------------------------------------------
// Validate / Consume
//----------------------------------------------------------------------------

func TestValidateRoundTrip(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  validated, err := svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:    rec.Token,
    Passcode: rec.Passcode,
  })
  require.NoError(t, err)
  assert.Equal(t, rec.ID, validated.ID)
  assert.True(t, validated.IsValid)
  assert.False(t, validated.IsUsed)
}

func TestValidateIsSingleUse(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  criteria := repos.ValidateCriteria{
    Token:    rec.Token,
    Passcode: rec.Passcode,
  }
  validated, err := svc.Validate(context.Background(), criteria)
  require.NoError(t, err)
  assert.True(t, validated.IsValid)

  // The record is no longer pending, so the same credentials stop matching.
  _, err = svc.Validate(context.Background(), criteria)
  assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestValidateRejectsWrongPasscode(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  wrong := "000000"
  if rec.Passcode == wrong {
    wrong = "000001"
  }
  _, err = svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:    rec.Token,
    Passcode: wrong,
  })
  assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestValidateRejectsWrongIPAddress(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  ctx := requestdata.WithRequestData(context.Background(), &requestdata.RequestData{IPAddress: "203.0.113.9"})
  rec, err := svc.Generate(ctx, emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  _, err = svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:     rec.Token,
    Passcode:  rec.Passcode,
    IPAddress: "198.51.100.1",
  })
  assert.ErrorIs(t, err, apperr.ErrNotFound)

  validated, err := svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:     rec.Token,
    Passcode:  rec.Passcode,
    IPAddress: "203.0.113.9",
  })
  require.NoError(t, err)
  assert.True(t, validated.IsValid)
}

// rewindExpiry moves a stored record's expiry to validUntil and re-derives the
// passcode for the new instant, so only the expiry decides the outcome.
func rewindExpiry(t *testing.T, repo *memVerificationRepo, rec *types.Verification, validUntil time.Time) {
  t.Helper()
  repo.mu.Lock()
  defer repo.mu.Unlock()
  rec.ValidUntil = validUntil
  rec.ValidUntilTimestamp = validUntil.Unix()
  passcode, err := otp.Derive(rec.Token, rec.ValidUntilTimestamp)
  require.NoError(t, err)
  rec.Passcode = passcode
}

func TestValidateJustBeforeExpirySucceeds(t *testing.T) {
  svc, repo, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)
  rewindExpiry(t, repo, rec, time.Now().Add(time.Second))

  validated, err := svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:    rec.Token,
    Passcode: rec.Passcode,
  })
  require.NoError(t, err)
  assert.True(t, validated.IsValid)
}

func TestValidateJustAfterExpiryFails(t *testing.T) {
  svc, repo, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)
  rewindExpiry(t, repo, rec, time.Now().Add(-time.Second))

  // Expired records drop out of the candidate set, so the caller sees not
  // found rather than a passcode error.
  _, err = svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:    rec.Token,
    Passcode: rec.Passcode,
  })
  assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConsumeIsTerminal(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  _, err = svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:    rec.Token,
    Passcode: rec.Passcode,
  })
  require.NoError(t, err)
  require.NoError(t, svc.Consume(context.Background(), nil, rec.ID))

  // A consumed record no longer matches validation.
  _, err = svc.Validate(context.Background(), repos.ValidateCriteria{
    Token:    rec.Token,
    Passcode: rec.Passcode,
  })
  assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConsumeRequiresValidation(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  err = svc.Consume(context.Background(), nil, rec.ID)
  assert.ErrorIs(t, err, apperr.ErrNotValidated)
}

func TestValidateConcurrentSingleWinner(t *testing.T) {
  svc, _, _, _ := newTestVerificationService(t, DefaultVerificationConfig())

  rec, err := svc.Generate(context.Background(), emailInput("person@example.com", "signup_verification"))
  require.NoError(t, err)

  const attempts = 50
  var wg sync.WaitGroup
  var successes int32
  var mu sync.Mutex

  for i := 0; i < attempts; i++ {
    wg.Add(1)
    go func() {
      defer wg.Done()
      validated, vErr := svc.Validate(context.Background(), repos.ValidateCriteria{
        Token:    rec.Token,
        Passcode: rec.Passcode,
      })
      if vErr == nil && validated != nil {
        mu.Lock()
        successes++
        mu.Unlock()
      }
    }()
  }
  wg.Wait()

  assert.Equal(t, int32(1), successes)
}
