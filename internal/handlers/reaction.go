package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/snapmoment/snapmoment-backend/internal/services"
)

type ReactionHandler struct {
  reactionService services.ReactionService
}

func NewReactionHandler(reactionService services.ReactionService) *ReactionHandler {
  return &ReactionHandler{reactionService: reactionService}
}

func (rh *ReactionHandler) Toggle(c *gin.Context) {
  var req services.ToggleReactionInput
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  reaction, result, err := rh.reactionService.Toggle(c.Request.Context(), req)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"reaction": reaction, "result": result})
}

func (rh *ReactionHandler) Counts(c *gin.Context) {
  kind, entityID, ok := parseEntity(c)
  if !ok {
    return
  }
  counts, err := rh.reactionService.Counts(c.Request.Context(), kind, entityID)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"counts": counts})
}
