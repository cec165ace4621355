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

// ToggleReactionInput flips the caller's reaction on an entity.
type ToggleReactionInput struct {
  EntityKind types.EntityKind `json:"entityKind"`
  EntityID   uuid.UUID        `json:"entityID"`
  Identifier string           `json:"identifier"`
}

type ReactionService interface {
  Toggle(ctx context.Context, input ToggleReactionInput) (*types.Reaction, repos.ToggleResult, error)
  Counts(ctx context.Context, kind types.EntityKind, entityID uuid.UUID) (map[string]int64, error)
}

type reactionService struct {
  db           *gorm.DB
  log          *logger.Logger
  reactionRepo repos.ReactionRepo
  hub          *socket.Hub
}

func NewReactionService(
  db *gorm.DB,
  log *logger.Logger,
  reactionRepo repos.ReactionRepo,
  hub *socket.Hub,
) ReactionService {
  serviceLog := log.With("service", "ReactionService")
  return &reactionService{
    db:           db,
    log:          serviceLog,
    reactionRepo: reactionRepo,
    hub:          hub,
  }
}

func (rs *reactionService) Toggle(ctx context.Context, input ToggleReactionInput) (*types.Reaction, repos.ToggleResult, error) {
  rs.log.Info("Starting Toggle Reaction now...", "kind", input.EntityKind, "entityID", input.EntityID, "identifier", input.Identifier)

  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    rs.log.Warn("No authenticated user in context, Cannot proceed.")
    return nil, "", apperr.New(apperr.KindUnauthorized, "reactions require a signed-in user")
  }
  identifier := normalization.ParseInputString(input.Identifier)
  if identifier == "" {
    rs.log.Warn("Reaction identifier is empty, Cannot proceed.")
    return nil, "", apperr.New(apperr.KindBadInput, "a reaction identifier is required")
  }

  var reaction *types.Reaction
  var result repos.ToggleResult
  err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    var txErr error
    reaction, result, txErr = rs.reactionRepo.Toggle(ctx, tx, rd.UserID, input.EntityKind, input.EntityID, identifier)
    return txErr
  })
  if err != nil {
    return nil, "", err
  }

  if rs.hub != nil && input.EntityKind == types.EntityKindMoment {
    rs.hub.BroadcastGlobal(ctx, socket.Message{
      Channel: socket.MomentChannel(input.EntityID),
      Event:   "reaction.toggled",
      Payload: map[string]interface{}{
        "reaction": reaction,
        "result":   result,
      },
    })
  }
  rs.log.Info("Successfully toggled reaction :)", "reactionID", reaction.ID, "result", result)
  return reaction, result, nil
}

func (rs *reactionService) Counts(ctx context.Context, kind types.EntityKind, entityID uuid.UUID) (map[string]int64, error) {
  return rs.reactionRepo.CountByEntity(ctx, nil, kind, entityID)
}
