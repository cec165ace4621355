package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/services"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

type VerificationHandler struct {
  verificationService services.VerificationService
}

func NewVerificationHandler(verificationService services.VerificationService) *VerificationHandler {
  return &VerificationHandler{verificationService: verificationService}
}

// Generate creates or refreshes a verification record for a claim. Repeated
// calls for the same claim refresh the existing record instead of stacking
// new ones, and only a freshly created record is dispatched.
func (vh *VerificationHandler) Generate(c *gin.Context) {
  var req struct {
    TargetKind string `json:"targetKind,omitempty"`
    TargetID   string `json:"targetID,omitempty"`
    Field      string `json:"field"`
    Value      string `json:"value"`
    Challenge  string `json:"challenge"`
    SendWith   string `json:"sendWith,omitempty"`
    SendMime   string `json:"sendMime,omitempty"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  input := services.GenerateInput{
    TargetKind: types.TargetKind(req.TargetKind),
    Field:      req.Field,
    Value:      req.Value,
    Challenge:  req.Challenge,
    SendWith:   types.SendWithOption(req.SendWith),
    SendMime:   types.SendMimeOption(req.SendMime),
  }
  if req.TargetID != "" {
    targetID, err := uuid.Parse(req.TargetID)
    if err != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target id"})
      return
    }
    input.TargetID = &targetID
  }
  rec, err := vh.verificationService.Generate(c.Request.Context(), input)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{"verification": rec})
}

// Validate checks a passcode against its record and flips it to valid. The
// requester IP is folded into the match so a code cannot be validated from a
// different address than the one recorded at generation time.
func (vh *VerificationHandler) Validate(c *gin.Context) {
  var req struct {
    Token     string `json:"token"`
    Passcode  string `json:"passcode"`
    Challenge string `json:"challenge,omitempty"`
    Field     string `json:"field,omitempty"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  criteria := repos.ValidateCriteria{
    Token:     req.Token,
    Passcode:  req.Passcode,
    Challenge: req.Challenge,
    Field:     req.Field,
  }
  if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
    criteria.IPAddress = rd.IPAddress
  }
  rec, err := vh.verificationService.Validate(c.Request.Context(), criteria)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusAccepted, gin.H{"verification": rec})
}
