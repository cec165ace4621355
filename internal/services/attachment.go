package services

import (
  "bytes"
  "context"
  "fmt"
  "strings"

  "github.com/disintegration/imaging"
  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/normalization"
  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

const thumbnailMaxSize = 320

// UploadAttachmentInput carries one file plus its placement.
type UploadAttachmentInput struct {
  EntityKind types.EntityKind
  EntityID   uuid.UUID
  Filename   string
  Filemime   string
  Data       []byte
  Name       string
  Caption    string
}

type AttachmentService interface {
  Upload(ctx context.Context, input UploadAttachmentInput) (*types.Attachment, error)
  GetForEntity(ctx context.Context, kind types.EntityKind, entityID uuid.UUID) ([]*types.Attachment, error)
  Delete(ctx context.Context, attachmentID uuid.UUID) error
}

type attachmentService struct {
  db             *gorm.DB
  log            *logger.Logger
  attachmentRepo repos.AttachmentRepo
  tagRepo        repos.TagRepo
  bucketService  BucketService
}

func NewAttachmentService(
  db *gorm.DB,
  log *logger.Logger,
  attachmentRepo repos.AttachmentRepo,
  tagRepo repos.TagRepo,
  bucketService BucketService,
) AttachmentService {
  serviceLog := log.With("service", "AttachmentService")
  return &attachmentService{
    db:             db,
    log:            serviceLog,
    attachmentRepo: attachmentRepo,
    tagRepo:        tagRepo,
    bucketService:  bucketService,
  }
}

func (as *attachmentService) Upload(ctx context.Context, input UploadAttachmentInput) (*types.Attachment, error) {
  as.log.Info("Starting Upload Attachment now...", "kind", input.EntityKind, "entityID", input.EntityID, "filename", input.Filename)

  if len(input.Data) == 0 {
    as.log.Warn("No file data given, Cannot proceed.")
    return nil, apperr.New(apperr.KindBadInput, "attachment data is empty")
  }

  attachment := &types.Attachment{
    ID:         uuid.New(),
    EntityKind: input.EntityKind,
    EntityID:   input.EntityID,
    Filename:   input.Filename,
    Filesize:   int64(len(input.Data)),
    Filemime:   input.Filemime,
    Name:       normalization.ParseInputString(input.Name),
    Identifier: uuid.New().String(),
    Caption:    normalization.ParseInputString(input.Caption),
  }

  err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    //1) Upload the original file
    fileKey := fmt.Sprintf("attachments/%s/%s", attachment.ID.String(), input.Filename)
    if err := as.bucketService.UploadFile(ctx, tx, fileKey, bytes.NewReader(input.Data)); err != nil {
      as.log.Warn("Failed to upload attachment file", "error", err)
      return fmt.Errorf("Failed to upload attachment file: %w", err)
    }
    attachment.FileBucketKey = fileKey
    attachment.FileURL = as.bucketService.GetPublicURL(fileKey)

    //2) Derive a thumbnail for images
    if strings.HasPrefix(input.Filemime, "image/") {
      thumb, tErr := makeThumbnail(input.Data)
      if tErr != nil {
        as.log.Warn("Failed to derive thumbnail, keeping original only", "error", tErr)
      } else {
        thumbKey := fmt.Sprintf("attachments/%s/thumb_%s.jpg", attachment.ID.String(), attachment.Identifier)
        if err := as.bucketService.UploadFile(ctx, tx, thumbKey, bytes.NewReader(thumb)); err != nil {
          as.log.Warn("Failed to upload thumbnail, keeping original only", "error", err)
        } else {
          attachment.ThumbnailBucketKey = thumbKey
          attachment.ThumbnailURL = as.bucketService.GetPublicURL(thumbKey)
        }
      }
    }

    //3) Store the row
    if _, err := as.attachmentRepo.Create(ctx, tx, []*types.Attachment{attachment}); err != nil {
      as.log.Warn("Failed to create attachment row", "error", err)
      return fmt.Errorf("Failed to create attachment: %w", err)
    }

    //4) Pull hashtags out of the caption
    names := ExtractTagNames(attachment.Caption)
    if len(names) > 0 {
      tags := make([]*types.Tag, 0, len(names))
      for _, name := range names {
        tags = append(tags, &types.Tag{Name: name, Slug: Slugify(name)})
      }
      stored, tErr := as.tagRepo.GetOrCreateBySlugs(ctx, tx, tags)
      if tErr != nil {
        return tErr
      }
      tagIDs := make([]uuid.UUID, 0, len(stored))
      for _, tag := range stored {
        tagIDs = append(tagIDs, tag.ID)
      }
      if rErr := as.tagRepo.ReplaceForEntity(ctx, tx, types.EntityKindAttachment, attachment.ID, tagIDs); rErr != nil {
        return rErr
      }
    }
    return nil
  })
  if err != nil {
    return nil, err
  }
  as.log.Info("Successfully uploaded attachment :)", "attachmentID", attachment.ID)
  return attachment, nil
}

func (as *attachmentService) GetForEntity(ctx context.Context, kind types.EntityKind, entityID uuid.UUID) ([]*types.Attachment, error) {
  attachments, err := as.attachmentRepo.GetByEntity(ctx, nil, kind, entityID)
  if err != nil {
    return nil, err
  }
  for _, attachment := range attachments {
    tags, tErr := as.tagRepo.GetForEntity(ctx, nil, types.EntityKindAttachment, attachment.ID)
    if tErr != nil {
      return nil, tErr
    }
    attachment.Tags = tags
  }
  return attachments, nil
}

func (as *attachmentService) Delete(ctx context.Context, attachmentID uuid.UUID) error {
  as.log.Info("Starting Delete Attachment now...", "attachmentID", attachmentID)

  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    found, err := as.attachmentRepo.GetByIDs(ctx, tx, []uuid.UUID{attachmentID})
    if err != nil {
      return err
    }
    if len(found) == 0 {
      return apperr.ErrNotFound
    }
    attachment := found[0]
    if dErr := as.attachmentRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{attachmentID}); dErr != nil {
      return dErr
    }
    // Bucket objects go too; a failure here only logs since the row is gone.
    if attachment.FileBucketKey != "" {
      if bErr := as.bucketService.DeleteFile(ctx, tx, attachment.FileBucketKey); bErr != nil {
        as.log.Warn("Failed to delete attachment object", "error", bErr)
      }
    }
    if attachment.ThumbnailBucketKey != "" {
      if bErr := as.bucketService.DeleteFile(ctx, tx, attachment.ThumbnailBucketKey); bErr != nil {
        as.log.Warn("Failed to delete thumbnail object", "error", bErr)
      }
    }
    return nil
  })
}

// makeThumbnail fits the image into thumbnailMaxSize and re-encodes as JPEG.
func makeThumbnail(data []byte) ([]byte, error) {
  img, err := imaging.Decode(bytes.NewReader(data))
  if err != nil {
    return nil, fmt.Errorf("failed to decode image: %w", err)
  }
  img = imaging.Fit(img, thumbnailMaxSize, thumbnailMaxSize, imaging.Lanczos)
  var buf bytes.Buffer
  if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
    return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
  }
  return buf.Bytes(), nil
}
