package types

import (
  "time"

  "gorm.io/gorm"
  "github.com/google/uuid"
)

type Tag struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Name                string                    `gorm:"uniqueIndex;not null;column:name" json:"name"`
  Slug                string                    `gorm:"uniqueIndex;not null;column:slug" json:"slug"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()"`
}

func (Tag) TableName() string {
  return "tag"
}

type TaggedItem struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  TagID               uuid.UUID                 `gorm:"not null;uniqueIndex:idx_tagged_once" json:"tagID"`
  Tag                 *Tag                      `gorm:"constraint:OnDelete:CASCADE;foreignKey:TagID;references:ID" json:"tag,omitempty"`

  EntityKind          EntityKind                `gorm:"type:varchar(50);not null;uniqueIndex:idx_tagged_once;column:entity_kind" json:"entityKind"`
  EntityID            uuid.UUID                 `gorm:"not null;uniqueIndex:idx_tagged_once;column:entity_id" json:"entityID"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()"`
}

func (TaggedItem) TableName() string {
  return "tagged_item"
}
