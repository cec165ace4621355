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

type AttachmentRepo interface {
  // CREATE
  Create(ctx context.Context, tx *gorm.DB, attachments []*types.Attachment) ([]*types.Attachment, error)

  // READ
  GetByIDs(ctx context.Context, tx *gorm.DB, attachmentIDs []uuid.UUID) ([]*types.Attachment, error)
  GetByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Attachment, error)

  // UPDATE
  Update(ctx context.Context, tx *gorm.DB, attachments []*types.Attachment) ([]*types.Attachment, error)

  // SOFT DELETE
  SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, attachmentIDs []uuid.UUID) error
}

type attachmentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewAttachmentRepo(db *gorm.DB, baseLog *logger.Logger) AttachmentRepo {
  repoLog := baseLog.With("repo", "AttachmentRepo")
  return &attachmentRepo{db: db, log: repoLog}
}

// ----------------------------------------------------------------
// CREATE
// ----------------------------------------------------------------

func (ar *attachmentRepo) Create(ctx context.Context, tx *gorm.DB, attachments []*types.Attachment) ([]*types.Attachment, error) {
  ar.log.Info("Starting Create Attachments now...")

  transaction := tx
  if transaction == nil {
    transaction = ar.db
    ar.log.Debug("Transaction is nil, using ar.db", "db", transaction)
  }

  if len(attachments) == 0 {
    ar.log.Debug("No attachments provided, returning empty slice")
    return []*types.Attachment{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&attachments).Error; err != nil {
    ar.log.Error("Failed to create attachments", "error", err)
    return nil, err
  }
  ar.log.Info("Successfully created attachments", "count", len(attachments))
  return attachments, nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (ar *attachmentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, attachmentIDs []uuid.UUID) ([]*types.Attachment, error) {
  ar.log.Info("Starting GetByIDs Attachments now...", "attachmentIDs", attachmentIDs)

  transaction := tx
  if transaction == nil {
    transaction = ar.db
    ar.log.Debug("Transaction is nil, using ar.db", "db", transaction)
  }

  if len(attachmentIDs) == 0 {
    ar.log.Debug("No attachmentIDs provided, returning empty slice")
    return []*types.Attachment{}, nil
  }

  var attachments []*types.Attachment
  if err := transaction.WithContext(ctx).
    Where("id IN ?", attachmentIDs).
    Find(&attachments).Error; err != nil {
    ar.log.Error("Failed to get attachments by ids", "error", err)
    return nil, err
  }
  ar.log.Info("Successfully got attachments by ids", "count", len(attachments))
  return attachments, nil
}

func (ar *attachmentRepo) GetByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Attachment, error) {
  ar.log.Info("Starting GetByEntity Attachments now...", "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = ar.db
    ar.log.Debug("Transaction is nil, using ar.db", "db", transaction)
  }

  var attachments []*types.Attachment
  if err := transaction.WithContext(ctx).
    Where("entity_kind = ? AND entity_id = ?", kind, entityID).
    Order("created_at ASC").
    Find(&attachments).Error; err != nil {
    ar.log.Error("Failed to get attachments by entity", "error", err)
    return nil, err
  }
  ar.log.Info("Successfully got attachments by entity", "count", len(attachments))
  return attachments, nil
}

// ----------------------------------------------------------------
// UPDATE
// ----------------------------------------------------------------

func (ar *attachmentRepo) Update(ctx context.Context, tx *gorm.DB, attachments []*types.Attachment) ([]*types.Attachment, error) {
  ar.log.Info("Starting Update Attachments now...")

  transaction := tx
  if transaction == nil {
    transaction = ar.db
    ar.log.Debug("Transaction is nil, using ar.db", "db", transaction)
  }

  if len(attachments) == 0 {
    ar.log.Debug("No attachments provided, returning empty slice")
    return []*types.Attachment{}, nil
  }

  for _, attachment := range attachments {
    result := transaction.WithContext(ctx).Model(&types.Attachment{}).
      Where("id = ?", attachment.ID).
      Updates(attachment)
    if result.Error != nil {
      ar.log.Error("Failed to update attachment", "attachmentID", attachment.ID, "error", result.Error)
      return nil, result.Error
    }
    if result.RowsAffected == 0 {
      ar.log.Error("Attachment not found for update", "attachmentID", attachment.ID)
      return nil, apperr.ErrNotFound
    }
  }
  ar.log.Info("Successfully updated attachments", "count", len(attachments))
  return attachments, nil
}

// ----------------------------------------------------------------
// SOFT DELETE
// ----------------------------------------------------------------

func (ar *attachmentRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, attachmentIDs []uuid.UUID) error {
  ar.log.Info("Starting SoftDeleteByIDs Attachments now...", "attachmentIDs", attachmentIDs)

  transaction := tx
  if transaction == nil {
    transaction = ar.db
    ar.log.Debug("Transaction is nil, using ar.db", "db", transaction)
  }

  if len(attachmentIDs) == 0 {
    ar.log.Debug("No attachmentIDs provided, nothing to delete")
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", attachmentIDs).
    Delete(&types.Attachment{}).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      ar.log.Debug("No attachments found to delete")
      return nil
    }
    ar.log.Error("Failed to soft delete attachments", "error", err)
    return err
  }
  ar.log.Info("Successfully soft deleted attachments", "count", len(attachmentIDs))
  return nil
}
