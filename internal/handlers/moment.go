package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/services"
)

type MomentHandler struct {
  momentService services.MomentService
}

func NewMomentHandler(momentService services.MomentService) *MomentHandler {
  return &MomentHandler{momentService: momentService}
}

func (mh *MomentHandler) Create(c *gin.Context) {
  var req services.CreateMomentInput
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  moment, err := mh.momentService.Create(c.Request.Context(), req)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{"moment": moment})
}

func (mh *MomentHandler) Get(c *gin.Context) {
  momentID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid moment id"})
    return
  }
  moment, err := mh.momentService.Get(c.Request.Context(), momentID)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"moment": moment})
}

// List returns moments, optionally ordered by distance when lat/lon query
// params are present. Radius is in kilometers, zero means unbounded.
func (mh *MomentHandler) List(c *gin.Context) {
  limit := parseIntQuery(c, "limit", 20)
  offset := parseIntQuery(c, "offset", 0)

  var geo *repos.GeoQuery
  latStr := c.Query("latitude")
  lonStr := c.Query("longitude")
  if latStr != "" && lonStr != "" {
    lat, latErr := strconv.ParseFloat(latStr, 64)
    lon, lonErr := strconv.ParseFloat(lonStr, 64)
    if latErr != nil || lonErr != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude or longitude"})
      return
    }
    radius := 0.0
    if radiusStr := c.Query("radius"); radiusStr != "" {
      parsed, rErr := strconv.ParseFloat(radiusStr, 64)
      if rErr != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius"})
        return
      }
      radius = parsed
    }
    geo = &repos.GeoQuery{
      Latitude:  lat,
      Longitude: lon,
      RadiusKm:  radius,
      Limit:     limit,
      Offset:    offset,
    }
  }
  moments, err := mh.momentService.List(c.Request.Context(), geo, limit, offset)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"moments": moments})
}

func (mh *MomentHandler) ListMine(c *gin.Context) {
  moments, err := mh.momentService.ListMine(c.Request.Context())
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"moments": moments})
}

func (mh *MomentHandler) ListByTag(c *gin.Context) {
  slug := c.Param("slug")
  if slug == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "missing tag slug"})
    return
  }
  moments, err := mh.momentService.ListByTag(c.Request.Context(), slug)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"moments": moments})
}

func (mh *MomentHandler) Update(c *gin.Context) {
  momentID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid moment id"})
    return
  }
  var req struct {
    Title   string `json:"title"`
    Summary string `json:"summary"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  moment, err := mh.momentService.Update(c.Request.Context(), momentID, req.Title, req.Summary)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"moment": moment})
}

func (mh *MomentHandler) Delete(c *gin.Context) {
  momentID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid moment id"})
    return
  }
  if err := mh.momentService.Delete(c.Request.Context(), momentID); err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "moment deleted"})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
  raw := c.Query(name)
  if raw == "" {
    return fallback
  }
  parsed, err := strconv.Atoi(raw)
  if err != nil || parsed < 0 {
    return fallback
  }
  return parsed
}
