package repos

import (
  "context"
  "errors"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

// ActiveUserFields are the only claim fields an active-user lookup may use.
// Constrained for the same reason the original constrains it: the lookup is
// reachable from unauthenticated flows.
var ActiveUserFields = []string{"email", "msisdn"}

type UserRepo interface {
  // CREATE
  Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)

  // READ
  GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error)
  GetByUsernames(ctx context.Context, tx *gorm.DB, usernames []string) ([]*types.User, error)
  GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.User, error)
  GetByMsisdns(ctx context.Context, tx *gorm.DB, msisdns []string) ([]*types.User, error)
  GetActiveByField(ctx context.Context, tx *gorm.DB, field, value string) ([]*types.User, error)
  UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error)
  ClaimExists(ctx context.Context, tx *gorm.DB, field, value string, excludeID uuid.UUID) (bool, error)
  GetMe(ctx context.Context, tx *gorm.DB) (*types.User, error)

  // UPDATE
  Update(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)
  MarkFieldVerified(ctx context.Context, tx *gorm.DB, userID uuid.UUID, field string) error

  // SOFT DELETE
  SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
}

type userRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
  repoLog := baseLog.With("repo", "UserRepo")
  return &userRepo{db: db, log: repoLog}
}

// ----------------------------------------------------------------
// CREATE
// ----------------------------------------------------------------

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
  ur.log.Info("Starting Create Users now...")

  transaction := tx
  if transaction == nil {
    transaction = ur.db
    ur.log.Debug("Transaction is nil, using ur.db", "db", transaction)
  }

  if len(users) == 0 {
    ur.log.Debug("No users provided, returning empty slice")
    return []*types.User{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&users).Error; err != nil {
    ur.log.Error("Failed to create users", "error", err)
    return nil, err
  }
  ur.log.Info("Successfully created users", "count", len(users))
  return users, nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (ur *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
  ur.log.Info("Starting GetByIDs for Users now...")

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  var results []*types.User
  if len(userIDs) == 0 {
    ur.log.Debug("No user IDs provided, returning empty slice")
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", userIDs).
    Find(&results).Error; err != nil {
    ur.log.Error("Failed to fetch users by IDs", "error", err)
    return nil, err
  }
  ur.log.Info("Successfully fetched users by IDs", "count", len(results))
  return results, nil
}

func (ur *userRepo) GetByUsernames(ctx context.Context, tx *gorm.DB, usernames []string) ([]*types.User, error) {
  ur.log.Info("Starting GetByUsernames for Users now...")

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  var results []*types.User
  if len(usernames) == 0 {
    ur.log.Debug("No usernames provided, returning empty slice")
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("LOWER(username) IN ?", lowered(usernames)).
    Find(&results).Error; err != nil {
    ur.log.Error("Failed to fetch users by usernames", "error", err)
    return nil, err
  }
  ur.log.Info("Successfully fetched users by usernames", "count", len(results))
  return results, nil
}

func (ur *userRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.User, error) {
  ur.log.Info("Starting GetByEmails for Users now...")

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  var results []*types.User
  if len(emails) == 0 {
    ur.log.Debug("No emails provided, returning empty slice")
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("LOWER(email) IN ?", lowered(emails)).
    Find(&results).Error; err != nil {
    ur.log.Error("Failed to fetch users by emails", "error", err)
    return nil, err
  }
  ur.log.Info("Successfully fetched users by emails", "count", len(results))
  return results, nil
}

func (ur *userRepo) GetByMsisdns(ctx context.Context, tx *gorm.DB, msisdns []string) ([]*types.User, error) {
  ur.log.Info("Starting GetByMsisdns for Users now...")

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  var results []*types.User
  if len(msisdns) == 0 {
    ur.log.Debug("No msisdns provided, returning empty slice")
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("msisdn IN ?", msisdns).
    Find(&results).Error; err != nil {
    ur.log.Error("Failed to fetch users by msisdns", "error", err)
    return nil, err
  }
  ur.log.Info("Successfully fetched users by msisdns", "count", len(results))
  return results, nil
}

func (ur *userRepo) GetActiveByField(ctx context.Context, tx *gorm.DB, field, value string) ([]*types.User, error) {
  ur.log.Info("Starting GetActiveByField for Users now...", "field", field)

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  allowed := false
  for _, f := range ActiveUserFields {
    if f == field {
      allowed = true
      break
    }
  }
  if !allowed {
    ur.log.Warn("Field is not an allowed active-user lookup field", "field", field)
    return nil, apperr.New(apperr.KindInvalidField, "field "+field+" not allowed for user lookup")
  }

  var results []*types.User
  if err := transaction.WithContext(ctx).
    Where("LOWER("+field+") = ?", strings.ToLower(value)).
    Where("is_active = ?", true).
    Find(&results).Error; err != nil {
    ur.log.Error("Failed to fetch active users by field", "error", err)
    return nil, err
  }
  ur.log.Info("Successfully fetched active users by field", "count", len(results))
  return results, nil
}

func (ur *userRepo) UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
  ur.log.Info("Starting UsernameExists check now...")

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.User{}).
    Where("LOWER(username) = ?", strings.ToLower(username)).
    Count(&count).Error; err != nil {
    ur.log.Error("Failed to count users by username", "error", err)
    return false, err
  }
  return count > 0, nil
}

// ClaimExists reports whether another user already holds the given claim
// value (email or msisdn). excludeID ignores the user's own row on updates.
func (ur *userRepo) ClaimExists(ctx context.Context, tx *gorm.DB, field, value string, excludeID uuid.UUID) (bool, error) {
  ur.log.Info("Starting ClaimExists check now...", "field", field)

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  allowed := false
  for _, f := range ActiveUserFields {
    if f == field {
      allowed = true
      break
    }
  }
  if !allowed {
    return false, apperr.New(apperr.KindInvalidField, "field "+field+" not allowed for claim check")
  }

  q := transaction.WithContext(ctx).
    Model(&types.User{}).
    Where("LOWER("+field+") = ?", strings.ToLower(value))
  if excludeID != uuid.Nil {
    q = q.Where("id <> ?", excludeID)
  }

  var count int64
  if err := q.Count(&count).Error; err != nil {
    ur.log.Error("Failed to count users by claim", "error", err)
    return false, err
  }
  return count > 0, nil
}

func (ur *userRepo) GetMe(ctx context.Context, tx *gorm.DB) (*types.User, error) {
  ur.log.Info("Starting GetMe for User now...")

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    ur.log.Warn("Request data missing or user id nil in GetMe")
    return nil, apperr.New(apperr.KindUnauthorized, "no authenticated user in context")
  }

  var user types.User
  if err := transaction.WithContext(ctx).
    Preload("Profile").
    Where("id = ?", rd.UserID).
    First(&user).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apperr.ErrUserNotFound
    }
    ur.log.Error("Failed to fetch me", "error", err)
    return nil, err
  }
  return &user, nil
}

// ----------------------------------------------------------------
// UPDATE
// ----------------------------------------------------------------

func (ur *userRepo) Update(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
  ur.log.Info("Starting Update for Users now...")

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  if len(users) == 0 {
    ur.log.Debug("No users provided, returning empty slice")
    return users, nil
  }

  for i := range users {
    if err := transaction.WithContext(ctx).Save(users[i]).Error; err != nil {
      ur.log.Error("Failed to update user", "error", err, "userID", users[i].ID)
      return nil, err
    }
  }
  ur.log.Info("Successfully updated users", "count", len(users))
  return users, nil
}

func (ur *userRepo) MarkFieldVerified(ctx context.Context, tx *gorm.DB, userID uuid.UUID, field string) error {
  ur.log.Info("Starting MarkFieldVerified for User now...", "field", field)

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  var column string
  switch field {
  case "email":
    column = "is_email_verified"
  case "msisdn":
    column = "is_msisdn_verified"
  default:
    ur.log.Warn("Unknown verified-flag field", "field", field)
    return apperr.New(apperr.KindInvalidField, "no verified flag for field "+field)
  }

  if err := transaction.WithContext(ctx).
    Model(&types.User{}).
    Where("id = ?", userID).
    Update(column, true).Error; err != nil {
    ur.log.Error("Failed to mark user field verified", "error", err)
    return err
  }
  ur.log.Info("Successfully marked user field verified", "userID", userID, "field", field)
  return nil
}

// ----------------------------------------------------------------
// SOFT DELETE
// ----------------------------------------------------------------

func (ur *userRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
  ur.log.Info("Starting SoftDeleteByIDs for Users now...")

  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  if len(userIDs) == 0 {
    ur.log.Debug("No user IDs provided, skipping soft delete")
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", userIDs).
    Delete(&types.User{}).Error; err != nil {
    ur.log.Error("Failed to soft delete users by IDs", "error", err)
    return err
  }
  ur.log.Info("Successfully soft deleted users by IDs", "count", len(userIDs))
  return nil
}

func lowered(values []string) []string {
  out := make([]string, len(values))
  for i, v := range values {
    out[i] = strings.ToLower(v)
  }
  return out
}
