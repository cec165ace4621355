package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

type UserTokenRepo interface {
  // CREATE
  Create(ctx context.Context, tx *gorm.DB, userTokens []*types.UserToken) ([]*types.UserToken, error)

  // READ
  GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.UserToken, error)
  GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.UserToken, error)
  GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.UserToken, error)

  // UPDATE
  Update(ctx context.Context, tx *gorm.DB, userTokens []*types.UserToken) ([]*types.UserToken, error)

  // SOFT DELETE
  SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, tokenIDs []uuid.UUID) error
  SoftDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
}

type userTokenRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
  repoLog := baseLog.With("repo", "UserTokenRepo")
  return &userTokenRepo{db: db, log: repoLog}
}

//------------------------------------------------------------------------------
// CREATE
//------------------------------------------------------------------------------

func (utr *userTokenRepo) Create(ctx context.Context, tx *gorm.DB, userTokens []*types.UserToken) ([]*types.UserToken, error) {
  utr.log.Info("Starting Create UserTokens now...")

  transaction := tx
  if transaction == nil {
    transaction = utr.db
    utr.log.Debug("Transaction is nil, using utr.db")
  }

  if len(userTokens) == 0 {
    utr.log.Debug("No user tokens provided, returning empty slice")
    return []*types.UserToken{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&userTokens).Error; err != nil {
    utr.log.Error("Failed to create user tokens", "error", err)
    return nil, err
  }
  utr.log.Info("Successfully created user tokens", "count", len(userTokens))
  return userTokens, nil
}

//------------------------------------------------------------------------------
// READ
//------------------------------------------------------------------------------

func (utr *userTokenRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.UserToken, error) {
  utr.log.Info("Starting GetByUserIDs for UserTokens now...")

  transaction := tx
  if transaction == nil {
    transaction = utr.db
  }

  var results []*types.UserToken
  if len(userIDs) == 0 {
    utr.log.Debug("No user IDs provided, returning empty slice")
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id IN ?", userIDs).
    Find(&results).Error; err != nil {
    utr.log.Error("Failed to fetch user tokens by user IDs", "error", err)
    return nil, err
  }
  utr.log.Info("Successfully fetched user tokens by user IDs", "count", len(results))
  return results, nil
}

func (utr *userTokenRepo) GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.UserToken, error) {
  utr.log.Info("Starting GetByAccessTokens for UserTokens now...")

  transaction := tx
  if transaction == nil {
    transaction = utr.db
  }

  var results []*types.UserToken
  if len(accessTokens) == 0 {
    utr.log.Debug("No access tokens provided, returning empty slice")
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("access_token IN ?", accessTokens).
    Find(&results).Error; err != nil {
    utr.log.Error("Failed to fetch user tokens by access tokens", "error", err)
    return nil, err
  }
  utr.log.Info("Successfully fetched user tokens by access tokens", "count", len(results))
  return results, nil
}

func (utr *userTokenRepo) GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.UserToken, error) {
  utr.log.Info("Starting GetByRefreshTokens for UserTokens now...")

  transaction := tx
  if transaction == nil {
    transaction = utr.db
  }

  var results []*types.UserToken
  if len(refreshTokens) == 0 {
    utr.log.Debug("No refresh tokens provided, returning empty slice")
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("refresh_token IN ?", refreshTokens).
    Find(&results).Error; err != nil {
    utr.log.Error("Failed to fetch user tokens by refresh tokens", "error", err)
    return nil, err
  }
  utr.log.Info("Successfully fetched user tokens by refresh tokens", "count", len(results))
  return results, nil
}

//------------------------------------------------------------------------------
// UPDATE
//------------------------------------------------------------------------------

func (utr *userTokenRepo) Update(ctx context.Context, tx *gorm.DB, userTokens []*types.UserToken) ([]*types.UserToken, error) {
  utr.log.Info("Starting Update for UserTokens now...")

  transaction := tx
  if transaction == nil {
    transaction = utr.db
  }

  if len(userTokens) == 0 {
    utr.log.Debug("No user tokens provided, returning empty slice")
    return userTokens, nil
  }

  for i := range userTokens {
    if err := transaction.WithContext(ctx).Save(userTokens[i]).Error; err != nil {
      utr.log.Error("Failed to update user token", "error", err)
      return nil, err
    }
  }
  utr.log.Info("Successfully updated user tokens", "count", len(userTokens))
  return userTokens, nil
}

//------------------------------------------------------------------------------
// SOFT DELETE
//------------------------------------------------------------------------------

func (utr *userTokenRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, tokenIDs []uuid.UUID) error {
  utr.log.Info("Starting SoftDeleteByIDs for UserTokens now...")

  transaction := tx
  if transaction == nil {
    transaction = utr.db
  }

  if len(tokenIDs) == 0 {
    utr.log.Debug("No token IDs provided, skipping soft delete")
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", tokenIDs).
    Delete(&types.UserToken{}).Error; err != nil {
    utr.log.Error("Failed to soft delete user tokens by IDs", "error", err)
    return err
  }
  utr.log.Info("Successfully soft deleted user tokens by IDs", "count", len(tokenIDs))
  return nil
}

func (utr *userTokenRepo) SoftDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
  utr.log.Info("Starting SoftDeleteByUserIDs for UserTokens now...")

  transaction := tx
  if transaction == nil {
    transaction = utr.db
  }

  if len(userIDs) == 0 {
    utr.log.Debug("No user IDs provided, skipping soft delete")
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id IN ?", userIDs).
    Delete(&types.UserToken{}).Error; err != nil {
    utr.log.Error("Failed to soft delete user tokens by user IDs", "error", err)
    return err
  }
  utr.log.Info("Successfully soft deleted user tokens by user IDs", "count", len(userIDs))
  return nil
}
