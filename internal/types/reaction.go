package types

import (
  "time"

  "gorm.io/gorm"
  "github.com/google/uuid"
)

type Reaction struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID              uuid.UUID                 `gorm:"not null;uniqueIndex:idx_reaction_once" json:"userID"`
  User                *User                     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

  EntityKind          EntityKind                `gorm:"type:varchar(50);not null;uniqueIndex:idx_reaction_once;column:entity_kind" json:"entityKind"`
  EntityID            uuid.UUID                 `gorm:"not null;uniqueIndex:idx_reaction_once;column:entity_id" json:"entityID"`

  // Identifier is the reaction flavor: like, love, laugh, ...
  Identifier          string                    `gorm:"not null;column:identifier" json:"identifier"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()"`
}

func (Reaction) TableName() string {
  return "reaction"
}
