package handlers

import (
  "io"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/snapmoment/snapmoment-backend/internal/services"
)

const maxAttachmentBytes = 32 << 20

type AttachmentHandler struct {
  attachmentService services.AttachmentService
}

func NewAttachmentHandler(attachmentService services.AttachmentService) *AttachmentHandler {
  return &AttachmentHandler{attachmentService: attachmentService}
}

// Upload accepts a multipart form with a "file" part plus name and caption
// fields. Hashtags in the caption are indexed as tags on the attachment.
func (ah *AttachmentHandler) Upload(c *gin.Context) {
  kind, entityID, ok := parseEntity(c)
  if !ok {
    return
  }
  fileHeader, err := c.FormFile("file")
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
    return
  }
  if fileHeader.Size > maxAttachmentBytes {
    c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
    return
  }
  file, err := fileHeader.Open()
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open file"})
    return
  }
  defer file.Close()
  data, err := io.ReadAll(file)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
    return
  }
  input := services.UploadAttachmentInput{
    EntityKind: kind,
    EntityID:   entityID,
    Filename:   fileHeader.Filename,
    Filemime:   fileHeader.Header.Get("Content-Type"),
    Data:       data,
    Name:       c.PostForm("name"),
    Caption:    c.PostForm("caption"),
  }
  attachment, err := ah.attachmentService.Upload(c.Request.Context(), input)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{"attachment": attachment})
}

func (ah *AttachmentHandler) GetForEntity(c *gin.Context) {
  kind, entityID, ok := parseEntity(c)
  if !ok {
    return
  }
  attachments, err := ah.attachmentService.GetForEntity(c.Request.Context(), kind, entityID)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"attachments": attachments})
}

func (ah *AttachmentHandler) Delete(c *gin.Context) {
  attachmentID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment id"})
    return
  }
  if err := ah.attachmentService.Delete(c.Request.Context(), attachmentID); err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "attachment deleted"})
}
