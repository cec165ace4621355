package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

type LocationRepo interface {
  // CREATE
  Create(ctx context.Context, tx *gorm.DB, locations []*types.Location) ([]*types.Location, error)

  // READ
  GetByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Location, error)
  GetByEntityIDs(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityIDs []uuid.UUID) (map[uuid.UUID][]*types.Location, error)

  // SOFT DELETE
  SoftDeleteByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) error
}

type locationRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewLocationRepo(db *gorm.DB, baseLog *logger.Logger) LocationRepo {
  repoLog := baseLog.With("repo", "LocationRepo")
  return &locationRepo{db: db, log: repoLog}
}

// ----------------------------------------------------------------
// CREATE
// ----------------------------------------------------------------

func (lr *locationRepo) Create(ctx context.Context, tx *gorm.DB, locations []*types.Location) ([]*types.Location, error) {
  lr.log.Info("Starting Create Locations now...")

  transaction := tx
  if transaction == nil {
    transaction = lr.db
    lr.log.Debug("Transaction is nil, using lr.db", "db", transaction)
  }

  if len(locations) == 0 {
    lr.log.Debug("No locations provided, returning empty slice")
    return []*types.Location{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&locations).Error; err != nil {
    lr.log.Error("Failed to create locations", "error", err)
    return nil, err
  }
  lr.log.Info("Successfully created locations", "count", len(locations))
  return locations, nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (lr *locationRepo) GetByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Location, error) {
  lr.log.Info("Starting GetByEntity Locations now...", "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = lr.db
    lr.log.Debug("Transaction is nil, using lr.db", "db", transaction)
  }

  var locations []*types.Location
  if err := transaction.WithContext(ctx).
    Where("entity_kind = ? AND entity_id = ?", kind, entityID).
    Order("created_at ASC").
    Find(&locations).Error; err != nil {
    lr.log.Error("Failed to get locations by entity", "error", err)
    return nil, err
  }
  lr.log.Info("Successfully got locations by entity", "count", len(locations))
  return locations, nil
}

func (lr *locationRepo) GetByEntityIDs(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityIDs []uuid.UUID) (map[uuid.UUID][]*types.Location, error) {
  lr.log.Info("Starting GetByEntityIDs Locations now...", "kind", kind, "entityIDs", entityIDs)

  transaction := tx
  if transaction == nil {
    transaction = lr.db
    lr.log.Debug("Transaction is nil, using lr.db", "db", transaction)
  }

  byEntity := map[uuid.UUID][]*types.Location{}
  if len(entityIDs) == 0 {
    lr.log.Debug("No entityIDs provided, returning empty map")
    return byEntity, nil
  }

  var locations []*types.Location
  if err := transaction.WithContext(ctx).
    Where("entity_kind = ? AND entity_id IN ?", kind, entityIDs).
    Order("created_at ASC").
    Find(&locations).Error; err != nil {
    lr.log.Error("Failed to get locations by entity ids", "error", err)
    return nil, err
  }
  for _, location := range locations {
    byEntity[location.EntityID] = append(byEntity[location.EntityID], location)
  }
  lr.log.Info("Successfully got locations by entity ids", "count", len(locations))
  return byEntity, nil
}

// ----------------------------------------------------------------
// SOFT DELETE
// ----------------------------------------------------------------

func (lr *locationRepo) SoftDeleteByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) error {
  lr.log.Info("Starting SoftDeleteByEntity Locations now...", "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = lr.db
    lr.log.Debug("Transaction is nil, using lr.db", "db", transaction)
  }

  if err := transaction.WithContext(ctx).
    Where("entity_kind = ? AND entity_id = ?", kind, entityID).
    Delete(&types.Location{}).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      lr.log.Debug("No locations found to delete")
      return nil
    }
    lr.log.Error("Failed to soft delete locations", "error", err)
    return err
  }
  lr.log.Info("Successfully soft deleted locations", "kind", kind, "entityID", entityID)
  return nil
}
