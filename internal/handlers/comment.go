package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/snapmoment/snapmoment-backend/internal/services"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

type CommentHandler struct {
  commentService services.CommentService
}

func NewCommentHandler(commentService services.CommentService) *CommentHandler {
  return &CommentHandler{commentService: commentService}
}

func (ch *CommentHandler) Create(c *gin.Context) {
  var req services.CreateCommentInput
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  comment, err := ch.commentService.Create(c.Request.Context(), req)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (ch *CommentHandler) ListTree(c *gin.Context) {
  kind, entityID, ok := parseEntity(c)
  if !ok {
    return
  }
  comments, err := ch.commentService.ListTree(c.Request.Context(), kind, entityID)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (ch *CommentHandler) Delete(c *gin.Context) {
  commentID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
    return
  }
  if err := ch.commentService.Delete(c.Request.Context(), commentID); err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

// parseEntity reads the kind/id path params shared by comment and reaction
// routes. It writes the error response itself when the params are malformed.
func parseEntity(c *gin.Context) (types.EntityKind, uuid.UUID, bool) {
  kind := types.EntityKind(c.Param("kind"))
  switch kind {
  case types.EntityKindMoment, types.EntityKindAttachment, types.EntityKindComment:
  default:
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity kind"})
    return "", uuid.Nil, false
  }
  entityID, err := uuid.Parse(c.Param("entityID"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity id"})
    return "", uuid.Nil, false
  }
  return kind, entityID, true
}
