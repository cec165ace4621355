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

type CommentRepo interface {
  // CREATE
  Create(ctx context.Context, tx *gorm.DB, comments []*types.Comment) ([]*types.Comment, error)
  AddTree(ctx context.Context, tx *gorm.DB, parentID, childID uuid.UUID) (*types.CommentTree, error)

  // READ
  GetByIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) ([]*types.Comment, error)
  GetByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Comment, error)
  GetRootsByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Comment, error)
  GetChildren(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) (map[uuid.UUID][]*types.Comment, error)

  // UPDATE
  Update(ctx context.Context, tx *gorm.DB, comments []*types.Comment) ([]*types.Comment, error)

  // SOFT DELETE
  SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) error
}

type commentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
  repoLog := baseLog.With("repo", "CommentRepo")
  return &commentRepo{db: db, log: repoLog}
}

// ----------------------------------------------------------------
// CREATE
// ----------------------------------------------------------------

func (cr *commentRepo) Create(ctx context.Context, tx *gorm.DB, comments []*types.Comment) ([]*types.Comment, error) {
  cr.log.Info("Starting Create Comments now...")

  transaction := tx
  if transaction == nil {
    transaction = cr.db
    cr.log.Debug("Transaction is nil, using cr.db", "db", transaction)
  }

  if len(comments) == 0 {
    cr.log.Debug("No comments provided, returning empty slice")
    return []*types.Comment{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&comments).Error; err != nil {
    cr.log.Error("Failed to create comments", "error", err)
    return nil, err
  }
  cr.log.Info("Successfully created comments", "count", len(comments))
  return comments, nil
}

// AddTree records childID as a reply to parentID. A child can only ever hang
// under one parent, enforced by the unique index on child_id.
func (cr *commentRepo) AddTree(ctx context.Context, tx *gorm.DB, parentID, childID uuid.UUID) (*types.CommentTree, error) {
  cr.log.Info("Starting AddTree now...", "parentID", parentID, "childID", childID)

  transaction := tx
  if transaction == nil {
    transaction = cr.db
    cr.log.Debug("Transaction is nil, using cr.db", "db", transaction)
  }

  tree := &types.CommentTree{ParentID: parentID, ChildID: childID}
  if err := transaction.WithContext(ctx).Create(tree).Error; err != nil {
    cr.log.Error("Failed to create comment tree edge", "error", err)
    return nil, err
  }
  cr.log.Info("Successfully created comment tree edge", "treeID", tree.ID)
  return tree, nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (cr *commentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) ([]*types.Comment, error) {
  cr.log.Info("Starting GetByIDs Comments now...", "commentIDs", commentIDs)

  transaction := tx
  if transaction == nil {
    transaction = cr.db
    cr.log.Debug("Transaction is nil, using cr.db", "db", transaction)
  }

  if len(commentIDs) == 0 {
    cr.log.Debug("No commentIDs provided, returning empty slice")
    return []*types.Comment{}, nil
  }

  var comments []*types.Comment
  if err := transaction.WithContext(ctx).
    Where("id IN ?", commentIDs).
    Find(&comments).Error; err != nil {
    cr.log.Error("Failed to get comments by ids", "error", err)
    return nil, err
  }
  cr.log.Info("Successfully got comments by ids", "count", len(comments))
  return comments, nil
}

func (cr *commentRepo) GetByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Comment, error) {
  cr.log.Info("Starting GetByEntity Comments now...", "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = cr.db
    cr.log.Debug("Transaction is nil, using cr.db", "db", transaction)
  }

  var comments []*types.Comment
  if err := transaction.WithContext(ctx).
    Where("entity_kind = ? AND entity_id = ?", kind, entityID).
    Order("created_at ASC").
    Find(&comments).Error; err != nil {
    cr.log.Error("Failed to get comments by entity", "error", err)
    return nil, err
  }
  cr.log.Info("Successfully got comments by entity", "count", len(comments))
  return comments, nil
}

// GetRootsByEntity returns only comments with no parent edge, i.e. the top of
// each reply thread.
func (cr *commentRepo) GetRootsByEntity(ctx context.Context, tx *gorm.DB, kind types.EntityKind, entityID uuid.UUID) ([]*types.Comment, error) {
  cr.log.Info("Starting GetRootsByEntity Comments now...", "kind", kind, "entityID", entityID)

  transaction := tx
  if transaction == nil {
    transaction = cr.db
    cr.log.Debug("Transaction is nil, using cr.db", "db", transaction)
  }

  var comments []*types.Comment
  if err := transaction.WithContext(ctx).
    Where("entity_kind = ? AND entity_id = ?", kind, entityID).
    Where("id NOT IN (?)", transaction.Model(&types.CommentTree{}).Select("child_id")).
    Order("created_at ASC").
    Find(&comments).Error; err != nil {
    cr.log.Error("Failed to get root comments by entity", "error", err)
    return nil, err
  }
  cr.log.Info("Successfully got root comments by entity", "count", len(comments))
  return comments, nil
}

func (cr *commentRepo) GetChildren(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) (map[uuid.UUID][]*types.Comment, error) {
  cr.log.Info("Starting GetChildren Comments now...", "parentIDs", parentIDs)

  transaction := tx
  if transaction == nil {
    transaction = cr.db
    cr.log.Debug("Transaction is nil, using cr.db", "db", transaction)
  }

  children := map[uuid.UUID][]*types.Comment{}
  if len(parentIDs) == 0 {
    cr.log.Debug("No parentIDs provided, returning empty map")
    return children, nil
  }

  var edges []*types.CommentTree
  if err := transaction.WithContext(ctx).
    Where("parent_id IN ?", parentIDs).
    Find(&edges).Error; err != nil {
    cr.log.Error("Failed to get comment tree edges", "error", err)
    return nil, err
  }
  if len(edges) == 0 {
    return children, nil
  }

  childIDs := make([]uuid.UUID, 0, len(edges))
  parentOf := make(map[uuid.UUID]uuid.UUID, len(edges))
  for _, edge := range edges {
    childIDs = append(childIDs, edge.ChildID)
    parentOf[edge.ChildID] = edge.ParentID
  }

  var comments []*types.Comment
  if err := transaction.WithContext(ctx).
    Where("id IN ?", childIDs).
    Order("created_at ASC").
    Find(&comments).Error; err != nil {
    cr.log.Error("Failed to get child comments", "error", err)
    return nil, err
  }
  for _, comment := range comments {
    parentID := parentOf[comment.ID]
    children[parentID] = append(children[parentID], comment)
  }
  cr.log.Info("Successfully got child comments", "count", len(comments))
  return children, nil
}

// ----------------------------------------------------------------
// UPDATE
// ----------------------------------------------------------------

func (cr *commentRepo) Update(ctx context.Context, tx *gorm.DB, comments []*types.Comment) ([]*types.Comment, error) {
  cr.log.Info("Starting Update Comments now...")

  transaction := tx
  if transaction == nil {
    transaction = cr.db
    cr.log.Debug("Transaction is nil, using cr.db", "db", transaction)
  }

  if len(comments) == 0 {
    cr.log.Debug("No comments provided, returning empty slice")
    return []*types.Comment{}, nil
  }

  for _, comment := range comments {
    result := transaction.WithContext(ctx).Model(&types.Comment{}).
      Where("id = ?", comment.ID).
      Updates(comment)
    if result.Error != nil {
      cr.log.Error("Failed to update comment", "commentID", comment.ID, "error", result.Error)
      return nil, result.Error
    }
    if result.RowsAffected == 0 {
      cr.log.Error("Comment not found for update", "commentID", comment.ID)
      return nil, apperr.ErrNotFound
    }
  }
  cr.log.Info("Successfully updated comments", "count", len(comments))
  return comments, nil
}

// ----------------------------------------------------------------
// SOFT DELETE
// ----------------------------------------------------------------

func (cr *commentRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) error {
  cr.log.Info("Starting SoftDeleteByIDs Comments now...", "commentIDs", commentIDs)

  transaction := tx
  if transaction == nil {
    transaction = cr.db
    cr.log.Debug("Transaction is nil, using cr.db", "db", transaction)
  }

  if len(commentIDs) == 0 {
    cr.log.Debug("No commentIDs provided, nothing to delete")
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", commentIDs).
    Delete(&types.Comment{}).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      cr.log.Debug("No comments found to delete")
      return nil
    }
    cr.log.Error("Failed to soft delete comments", "error", err)
    return err
  }

  if err := transaction.WithContext(ctx).
    Where("parent_id IN ? OR child_id IN ?", commentIDs, commentIDs).
    Delete(&types.CommentTree{}).Error; err != nil {
    cr.log.Error("Failed to soft delete comment tree edges", "error", err)
    return err
  }
  cr.log.Info("Successfully soft deleted comments", "count", len(commentIDs))
  return nil
}
