package types

import (
  "time"

  "gorm.io/gorm"
  "github.com/google/uuid"
)

type Comment struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID              *uuid.UUID                `gorm:"index" json:"userID,omitempty"`
  User                *User                     `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`

  EntityKind          EntityKind                `gorm:"type:varchar(50);not null;index:idx_comment_entity;column:entity_kind" json:"entityKind"`
  EntityID            uuid.UUID                 `gorm:"index:idx_comment_entity;not null;column:entity_id" json:"entityID"`

  Content             string                    `gorm:"not null;column:content" json:"content"`

  Replies             []*Comment                `gorm:"-" json:"replies,omitempty"`

  CreatedAt           time.Time                 `gorm:"not null;default:now();index" json:"createdAt"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Comment) TableName() string {
  return "comment"
}

// CommentTree links a reply to its parent. A comment has at most one parent,
// hence the unique child constraint.
type CommentTree struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
  ParentID            uuid.UUID                 `gorm:"index;not null"`
  ChildID             uuid.UUID                 `gorm:"uniqueIndex;not null"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()"`
}

func (CommentTree) TableName() string {
  return "comment_tree"
}
