package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

type ProfileRepo interface {
  // CREATE
  Create(ctx context.Context, tx *gorm.DB, profiles []*types.Profile) ([]*types.Profile, error)

  // READ
  GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Profile, error)

  // UPDATE
  Update(ctx context.Context, tx *gorm.DB, profiles []*types.Profile) ([]*types.Profile, error)

  // SOFT DELETE
  SoftDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
}

type profileRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
  repoLog := baseLog.With("repo", "ProfileRepo")
  return &profileRepo{db: db, log: repoLog}
}

// ----------------------------------------------------------------
// CREATE
// ----------------------------------------------------------------

func (pr *profileRepo) Create(ctx context.Context, tx *gorm.DB, profiles []*types.Profile) ([]*types.Profile, error) {
  pr.log.Info("Starting Create Profiles now...")

  transaction := tx
  if transaction == nil {
    transaction = pr.db
    pr.log.Debug("Transaction is nil, using pr.db", "db", transaction)
  }

  if len(profiles) == 0 {
    pr.log.Debug("No profiles provided, returning empty slice")
    return []*types.Profile{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&profiles).Error; err != nil {
    pr.log.Error("Failed to create profiles", "error", err)
    return nil, err
  }
  pr.log.Info("Successfully created profiles", "count", len(profiles))
  return profiles, nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (pr *profileRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Profile, error) {
  pr.log.Info("Starting GetByUserIDs Profiles now...", "userIDs", userIDs)

  transaction := tx
  if transaction == nil {
    transaction = pr.db
    pr.log.Debug("Transaction is nil, using pr.db", "db", transaction)
  }

  if len(userIDs) == 0 {
    pr.log.Debug("No userIDs provided, returning empty slice")
    return []*types.Profile{}, nil
  }

  var profiles []*types.Profile
  if err := transaction.WithContext(ctx).
    Where("user_id IN ?", userIDs).
    Find(&profiles).Error; err != nil {
    pr.log.Error("Failed to get profiles by user ids", "error", err)
    return nil, err
  }
  pr.log.Info("Successfully got profiles by user ids", "count", len(profiles))
  return profiles, nil
}

// ----------------------------------------------------------------
// UPDATE
// ----------------------------------------------------------------

func (pr *profileRepo) Update(ctx context.Context, tx *gorm.DB, profiles []*types.Profile) ([]*types.Profile, error) {
  pr.log.Info("Starting Update Profiles now...")

  transaction := tx
  if transaction == nil {
    transaction = pr.db
    pr.log.Debug("Transaction is nil, using pr.db", "db", transaction)
  }

  if len(profiles) == 0 {
    pr.log.Debug("No profiles provided, returning empty slice")
    return []*types.Profile{}, nil
  }

  for _, profile := range profiles {
    result := transaction.WithContext(ctx).Model(&types.Profile{}).
      Where("id = ?", profile.ID).
      Updates(profile)
    if result.Error != nil {
      pr.log.Error("Failed to update profile", "profileID", profile.ID, "error", result.Error)
      return nil, result.Error
    }
    if result.RowsAffected == 0 {
      pr.log.Error("Profile not found for update", "profileID", profile.ID)
      return nil, apperr.ErrNotFound
    }
  }
  pr.log.Info("Successfully updated profiles", "count", len(profiles))
  return profiles, nil
}

// ----------------------------------------------------------------
// SOFT DELETE
// ----------------------------------------------------------------

func (pr *profileRepo) SoftDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
  pr.log.Info("Starting SoftDeleteByUserIDs Profiles now...", "userIDs", userIDs)

  transaction := tx
  if transaction == nil {
    transaction = pr.db
    pr.log.Debug("Transaction is nil, using pr.db", "db", transaction)
  }

  if len(userIDs) == 0 {
    pr.log.Debug("No userIDs provided, nothing to delete")
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id IN ?", userIDs).
    Delete(&types.Profile{}).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      pr.log.Debug("No profiles found to delete")
      return nil
    }
    pr.log.Error("Failed to soft delete profiles", "error", err)
    return err
  }
  pr.log.Info("Successfully soft deleted profiles", "count", len(userIDs))
  return nil
}
