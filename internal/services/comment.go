package services

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/normalization"
  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/socket"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

// CreateCommentInput places a comment on an entity, optionally as a reply.
type CreateCommentInput struct {
  EntityKind types.EntityKind `json:"entityKind"`
  EntityID   uuid.UUID        `json:"entityID"`
  Content    string           `json:"content"`
  ParentID   *uuid.UUID       `json:"parentID"`
}

type CommentService interface {
  Create(ctx context.Context, input CreateCommentInput) (*types.Comment, error)
  ListTree(ctx context.Context, kind types.EntityKind, entityID uuid.UUID) ([]*types.Comment, error)
  Delete(ctx context.Context, commentID uuid.UUID) error
}

type commentService struct {
  db          *gorm.DB
  log         *logger.Logger
  commentRepo repos.CommentRepo
  hub         *socket.Hub
}

func NewCommentService(
  db *gorm.DB,
  log *logger.Logger,
  commentRepo repos.CommentRepo,
  hub *socket.Hub,
) CommentService {
  serviceLog := log.With("service", "CommentService")
  return &commentService{
    db:          db,
    log:         serviceLog,
    commentRepo: commentRepo,
    hub:         hub,
  }
}

func (cs *commentService) Create(ctx context.Context, input CreateCommentInput) (*types.Comment, error) {
  cs.log.Info("Starting Create Comment now...", "kind", input.EntityKind, "entityID", input.EntityID)

  content := normalization.ParseInputString(input.Content)
  if content == "" {
    cs.log.Warn("Comment content is empty, Cannot proceed.")
    return nil, apperr.New(apperr.KindBadInput, "comment content is required")
  }

  comment := &types.Comment{
    ID:         uuid.New(),
    EntityKind: input.EntityKind,
    EntityID:   input.EntityID,
    Content:    content,
  }
  if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
    userID := rd.UserID
    comment.UserID = &userID
  }

  err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if _, err := cs.commentRepo.Create(ctx, tx, []*types.Comment{comment}); err != nil {
      return err
    }
    if input.ParentID != nil {
      // A reply hangs off its parent; the parent must live on the same entity.
      parents, pErr := cs.commentRepo.GetByIDs(ctx, tx, []uuid.UUID{*input.ParentID})
      if pErr != nil {
        return pErr
      }
      if len(parents) == 0 {
        return apperr.ErrNotFound
      }
      parent := parents[0]
      if parent.EntityKind != input.EntityKind || parent.EntityID != input.EntityID {
        cs.log.Warn("Reply parent lives on a different entity", "parentID", parent.ID)
        return apperr.New(apperr.KindBadInput, "reply parent belongs to another entity")
      }
      if _, tErr := cs.commentRepo.AddTree(ctx, tx, parent.ID, comment.ID); tErr != nil {
        return tErr
      }
    }
    return nil
  })
  if err != nil {
    return nil, err
  }

  if cs.hub != nil && input.EntityKind == types.EntityKindMoment {
    cs.hub.BroadcastGlobal(ctx, socket.Message{
      Channel: socket.MomentChannel(input.EntityID),
      Event:   "comment.created",
      Payload: comment,
    })
  }
  cs.log.Info("Successfully created comment :)", "commentID", comment.ID)
  return comment, nil
}

// ListTree loads root comments and hangs their reply threads off them, level
// by level.
func (cs *commentService) ListTree(ctx context.Context, kind types.EntityKind, entityID uuid.UUID) ([]*types.Comment, error) {
  cs.log.Info("Starting ListTree Comments now...", "kind", kind, "entityID", entityID)

  roots, err := cs.commentRepo.GetRootsByEntity(ctx, nil, kind, entityID)
  if err != nil {
    return nil, err
  }

  frontier := roots
  for len(frontier) > 0 {
    parentIDs := make([]uuid.UUID, 0, len(frontier))
    byID := make(map[uuid.UUID]*types.Comment, len(frontier))
    for _, comment := range frontier {
      parentIDs = append(parentIDs, comment.ID)
      byID[comment.ID] = comment
    }
    children, cErr := cs.commentRepo.GetChildren(ctx, nil, parentIDs)
    if cErr != nil {
      return nil, cErr
    }
    var next []*types.Comment
    for parentID, replies := range children {
      byID[parentID].Replies = replies
      next = append(next, replies...)
    }
    frontier = next
  }
  return roots, nil
}

func (cs *commentService) Delete(ctx context.Context, commentID uuid.UUID) error {
  cs.log.Info("Starting Delete Comment now...", "commentID", commentID)

  return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    found, err := cs.commentRepo.GetByIDs(ctx, tx, []uuid.UUID{commentID})
    if err != nil {
      return err
    }
    if len(found) == 0 {
      return apperr.ErrNotFound
    }
    comment := found[0]
    if comment.UserID != nil {
      rd := requestdata.GetRequestData(ctx)
      if rd == nil || rd.UserID != *comment.UserID {
        cs.log.Warn("Caller does not own the comment", "commentID", commentID)
        return apperr.New(apperr.KindForbidden, "comment belongs to another user")
      }
    }
    return cs.commentRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{commentID})
  })
}
