package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/snapmoment/snapmoment-backend/internal/services"
)

type MeHandler struct {
  meService services.MeService
}

func NewMeHandler(meService services.MeService) *MeHandler {
  return &MeHandler{meService: meService}
}

func (mh *MeHandler) GetMe(c *gin.Context) {
  me, err := mh.meService.GetMe(c.Request.Context(), nil)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"me": me})
}

func (mh *MeHandler) UpdateMyProfile(c *gin.Context) {
  var req services.UpdateProfileInput
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  profile, err := mh.meService.UpdateMyProfile(c.Request.Context(), req)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"profile": profile})
}
