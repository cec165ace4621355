package types

import (
  "time"

  "gorm.io/gorm"
  "github.com/google/uuid"
)

type Attachment struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID              *uuid.UUID                `gorm:"index" json:"userID,omitempty"`

  EntityKind          EntityKind                `gorm:"type:varchar(50);index:idx_attachment_entity;column:entity_kind" json:"entityKind"`
  EntityID            uuid.UUID                 `gorm:"type:uuid;index:idx_attachment_entity;column:entity_id" json:"entityID"`

  FileBucketKey       string                    `gorm:"column:file_bucket_key" json:"fileBucketKey"`
  FileURL             string                    `gorm:"column:file_url" json:"fileURL"`
  Filename            string                    `gorm:"column:filename" json:"filename"`
  Filesize            int64                     `gorm:"column:filesize" json:"filesize"`
  Filemime            string                    `gorm:"column:filemime" json:"filemime"`

  ThumbnailBucketKey  string                    `gorm:"column:thumbnail_bucket_key" json:"thumbnailBucketKey"`
  ThumbnailURL        string                    `gorm:"column:thumbnail_url" json:"thumbnailURL"`

  Name                string                    `gorm:"column:name" json:"name"`
  Identifier          string                    `gorm:"column:identifier" json:"identifier"`
  Caption             string                    `gorm:"column:caption" json:"caption"`

  Tags                []*Tag                    `gorm:"-" json:"tags,omitempty"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()"`
}

func (Attachment) TableName() string {
  return "attachment"
}
