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

type TagRepo interface {
  // CREATE / UPSERT
  GetOrCreateBySlugs(ctx context.Context, tx *gorm.DB, tags []*types.Tag) ([]*types.Tag, error)
  ReplaceForEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID, tagIDs []uuid.UUID) error

  // READ
  GetBySlugs(ctx context.Context, tx *gorm.DB, slugs []string) ([]*types.Tag, error)
  GetForEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Tag, error)
  GetEntityIDsByTag(ctx context.Context, tx *gorm.DB, kind types.EntityKind, slug string) ([]uuid.UUID, error)
}

type tagRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
  repoLog := baseLog.With("repo", "TagRepo")
  return &tagRepo{db: db, log: repoLog}
}

// ----------------------------------------------------------------
// CREATE / UPSERT
// ----------------------------------------------------------------

// GetOrCreateBySlugs inserts any tags whose slug is new and loads the rest,
// returning the full set with ids populated.
func (tr *tagRepo) GetOrCreateBySlugs(ctx context.Context, tx *gorm.DB, tags []*types.Tag) ([]*types.Tag, error) {
  tr.log.Info("Starting GetOrCreateBySlugs Tags now...")

  transaction := tx
  if transaction == nil {
    transaction = tr.db
    tr.log.Debug("Transaction is nil, using tr.db", "db", transaction)
  }

  if len(tags) == 0 {
    tr.log.Debug("No tags provided, returning empty slice")
    return []*types.Tag{}, nil
  }

  if err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "slug"}},
      DoNothing: true,
    }).
    Create(&tags).Error; err != nil {
    tr.log.Error("Failed to upsert tags", "error", err)
    return nil, err
  }

  slugs := make([]string, 0, len(tags))
  for _, tag := range tags {
    slugs = append(slugs, tag.Slug)
  }
  loaded, err := tr.GetBySlugs(ctx, transaction, slugs)
  if err != nil {
    return nil, err
  }
  tr.log.Info("Successfully upserted tags", "count", len(loaded))
  return loaded, nil
}

// ReplaceForEntity swaps an entity's tag set for the given one.
func (tr *tagRepo) ReplaceForEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID, tagIDs []uuid.UUID) error {
  tr.log.Info("Starting ReplaceForEntity Tags now...", "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = tr.db
    tr.log.Debug("Transaction is nil, using tr.db", "db", transaction)
  }

  if err := transaction.WithContext(ctx).Unscoped().
    Where("entity_kind = ? AND entity_id = ?", kind, entityID).
    Delete(&types.TaggedItem{}).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
    tr.log.Error("Failed to clear tagged items", "error", err)
    return err
  }

  if len(tagIDs) == 0 {
    tr.log.Debug("No tagIDs provided, entity left untagged")
    return nil
  }

  items := make([]*types.TaggedItem, 0, len(tagIDs))
  for _, tagID := range tagIDs {
    items = append(items, &types.TaggedItem{
      TagID:      tagID,
      EntityKind: kind,
      EntityID:   entityID,
    })
  }
  if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
    tr.log.Error("Failed to create tagged items", "error", err)
    return err
  }
  tr.log.Info("Successfully replaced tags for entity", "count", len(items))
  return nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (tr *tagRepo) GetBySlugs(ctx context.Context, tx *gorm.DB, slugs []string) ([]*types.Tag, error) {
  tr.log.Info("Starting GetBySlugs Tags now...", "slugs", slugs)

  transaction := tx
  if transaction == nil {
    transaction = tr.db
    tr.log.Debug("Transaction is nil, using tr.db", "db", transaction)
  }

  if len(slugs) == 0 {
    tr.log.Debug("No slugs provided, returning empty slice")
    return []*types.Tag{}, nil
  }

  var tags []*types.Tag
  if err := transaction.WithContext(ctx).
    Where("slug IN ?", slugs).
    Find(&tags).Error; err != nil {
    tr.log.Error("Failed to get tags by slugs", "error", err)
    return nil, err
  }
  tr.log.Info("Successfully got tags by slugs", "count", len(tags))
  return tags, nil
}

func (tr *tagRepo) GetForEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Tag, error) {
  tr.log.Info("Starting GetForEntity Tags now...", "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = tr.db
    tr.log.Debug("Transaction is nil, using tr.db", "db", transaction)
  }

  var tags []*types.Tag
  if err := transaction.WithContext(ctx).Model(&types.Tag{}).
    Joins("JOIN tagged_item ON tagged_item.tag_id = tag.id").
    Where("tagged_item.entity_kind = ? AND tagged_item.entity_id = ?", kind, entityID).
    Where("tagged_item.deleted_at IS NULL").
    Find(&tags).Error; err != nil {
    tr.log.Error("Failed to get tags for entity", "error", err)
    return nil, err
  }
  tr.log.Info("Successfully got tags for entity", "count", len(tags))
  return tags, nil
}

func (tr *tagRepo) GetEntityIDsByTag(ctx context.Context, tx *gorm.DB, kind types.EntityKind, slug string) ([]uuid.UUID, error) {
  tr.log.Info("Starting GetEntityIDsByTag now...", "kind", kind, "slug", slug)

  transaction := tx
  if transaction == nil {
    transaction = tr.db
    tr.log.Debug("Transaction is nil, using tr.db", "db", transaction)
  }

  var entityIDs []uuid.UUID
  if err := transaction.WithContext(ctx).Model(&types.TaggedItem{}).
    Joins("JOIN tag ON tag.id = tagged_item.tag_id").
    Where("tag.slug = ? AND tagged_item.entity_kind = ?", slug, kind).
    Where("tagged_item.deleted_at IS NULL").
    Pluck("tagged_item.entity_id", &entityIDs).Error; err != nil {
    tr.log.Error("Failed to get entity ids by tag", "error", err)
    return nil, err
  }
  tr.log.Info("Successfully got entity ids by tag", "count", len(entityIDs))
  return entityIDs, nil
}
