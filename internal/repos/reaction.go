package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

// ToggleResult says what a Toggle call ended up doing.
type ToggleResult string

const (
  ToggleCreated ToggleResult = "created"
  ToggleUpdated ToggleResult = "updated"
  ToggleRemoved ToggleResult = "removed"
)

type ReactionRepo interface {
  // READ
  GetByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Reaction, error)
  GetByUserAndEntity(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind types.EntityKind, entityID uuid.UUID) (*types.Reaction, error)
  CountByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) (map[string]int64, error)

  // TOGGLE
  Toggle(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind types.EntityKind, entityID uuid.UUID, identifier string) (*types.Reaction, ToggleResult, error)
}

type reactionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReactionRepo(db *gorm.DB, baseLog *logger.Logger) ReactionRepo {
  repoLog := baseLog.With("repo", "ReactionRepo")
  return &reactionRepo{db: db, log: repoLog}
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (rr *reactionRepo) GetByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Reaction, error) {
  rr.log.Info("Starting GetByEntity Reactions now...", "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = rr.db
    rr.log.Debug("Transaction is nil, using rr.db", "db", transaction)
  }

  var reactions []*types.Reaction
  if err := transaction.WithContext(ctx).
    Where("entity_kind = ? AND entity_id = ?", kind, entityID).
    Find(&reactions).Error; err != nil {
    rr.log.Error("Failed to get reactions by entity", "error", err)
    return nil, err
  }
  rr.log.Info("Successfully got reactions by entity", "count", len(reactions))
  return reactions, nil
}

func (rr *reactionRepo) GetByUserAndEntity(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind types.EntityKind, entityID uuid.UUID) (*types.Reaction, error) {
  rr.log.Info("Starting GetByUserAndEntity Reaction now...", "userID", userID, "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = rr.db
    rr.log.Debug("Transaction is nil, using rr.db", "db", transaction)
  }

  var reaction types.Reaction
  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND entity_kind = ? AND entity_id = ?", userID, kind, entityID).
    First(&reaction).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      rr.log.Debug("No reaction found for user and entity")
      return nil, nil
    }
    rr.log.Error("Failed to get reaction by user and entity", "error", err)
    return nil, err
  }
  rr.log.Info("Successfully got reaction by user and entity", "reactionID", reaction.ID)
  return &reaction, nil
}

func (rr *reactionRepo) CountByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) (map[string]int64, error) {
  rr.log.Info("Starting CountByEntity Reactions now...", "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = rr.db
    rr.log.Debug("Transaction is nil, using rr.db", "db", transaction)
  }

  type row struct {
    Identifier string
    Total      int64
  }
  var rows []row
  if err := transaction.WithContext(ctx).Model(&types.Reaction{}).
    Select("identifier, COUNT(*) AS total").
    Where("entity_kind = ? AND entity_id = ?", kind, entityID).
    Group("identifier").
    Scan(&rows).Error; err != nil {
    rr.log.Error("Failed to count reactions by entity", "error", err)
    return nil, err
  }

  counts := make(map[string]int64, len(rows))
  for _, r := range rows {
    counts[r.Identifier] = r.Total
  }
  rr.log.Info("Successfully counted reactions by entity", "identifiers", len(counts))
  return counts, nil
}

// ----------------------------------------------------------------
// TOGGLE
// ----------------------------------------------------------------

// Toggle flips the caller's reaction on an entity. Same identifier again
// removes it, a different identifier replaces it, none yet creates it. The
// unique index on (user_id, entity_kind, entity_id) keeps it at most one row,
// and the row lock keeps concurrent toggles serialized.
func (rr *reactionRepo) Toggle(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind types.EntityKind, entityID uuid.UUID, identifier string) (*types.Reaction, ToggleResult, error) {
  rr.log.Info("Starting Toggle Reaction now...", "userID", userID, "kind", kind, "entityID", entityID, "identifier", identifier)

  transaction := tx
  if transaction == nil {
    transaction = rr.db
    rr.log.Debug("Transaction is nil, using rr.db", "db", transaction)
  }

  var existing types.Reaction
  err := transaction.WithContext(ctx).
    Clauses(clause.Locking{Strength: "UPDATE"}).
    Where("user_id = ? AND entity_kind = ? AND entity_id = ?", userID, kind, entityID).
    First(&existing).Error
  if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
    rr.log.Error("Failed to lock reaction for toggle", "error", err)
    return nil, "", err
  }

  if errors.Is(err, gorm.ErrRecordNotFound) {
    reaction := &types.Reaction{
      UserID:     userID,
      EntityKind: kind,
      EntityID:   entityID,
      Identifier: identifier,
    }
    if err := transaction.WithContext(ctx).Create(reaction).Error; err != nil {
      rr.log.Error("Failed to create reaction", "error", err)
      return nil, "", err
    }
    rr.log.Info("Successfully created reaction", "reactionID", reaction.ID)
    return reaction, ToggleCreated, nil
  }

  if existing.Identifier == identifier {
    // Hard delete so the unique index slot frees up for a future reaction.
    if err := transaction.WithContext(ctx).Unscoped().
      Delete(&types.Reaction{}, "id = ?", existing.ID).Error; err != nil {
      rr.log.Error("Failed to remove reaction", "error", err)
      return nil, "", err
    }
    rr.log.Info("Successfully removed reaction", "reactionID", existing.ID)
    return &existing, ToggleRemoved, nil
  }

  if err := transaction.WithContext(ctx).Model(&types.Reaction{}).
    Where("id = ?", existing.ID).
    Update("identifier", identifier).Error; err != nil {
    rr.log.Error("Failed to update reaction identifier", "error", err)
    return nil, "", err
  }
  existing.Identifier = identifier
  rr.log.Info("Successfully updated reaction", "reactionID", existing.ID)
  return &existing, ToggleUpdated, nil
}
