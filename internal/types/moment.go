package types

import (
  "time"

  "gorm.io/gorm"
  "gorm.io/datatypes"
  "github.com/google/uuid"
)

type Moment struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

  // Anonymous users may post moments, so the owner is nullable. Ownership of
  // anonymous moments is proven through matching device attributes.
  UserID              *uuid.UUID                `gorm:"index" json:"userID,omitempty"`
  User                *User                     `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`

  Title               string                    `gorm:"index;column:title" json:"title"`
  Summary             string                    `gorm:"column:summary" json:"summary"`

  // Device identifiers (device_uuid, device_imei, ...) captured at creation.
  Attributes          datatypes.JSON            `gorm:"column:attributes" json:"attributes,omitempty"`

  Locations           []*Location               `gorm:"-" json:"locations,omitempty"`
  Attachments         []*Attachment             `gorm:"-" json:"attachments,omitempty"`
  Tags                []*Tag                    `gorm:"-" json:"tags,omitempty"`
  Withs               []*MomentWith             `gorm:"constraint:OnDelete:CASCADE;foreignKey:MomentID;references:ID" json:"withs,omitempty"`

  // Distance is only populated by geo listings (read-only, no column).
  Distance            *float64                  `gorm:"->;-:migration" json:"distance,omitempty"`

  CreatedAt           time.Time                 `gorm:"not null;default:now();index" json:"createdAt"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Moment) TableName() string {
  return "moment"
}

type MomentWith struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  MomentID            uuid.UUID                 `gorm:"index;not null" json:"momentID"`
  UserID              uuid.UUID                 `gorm:"index;not null" json:"userID"`
  User                *User                     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

  JoinedAt            time.Time                 `gorm:"not null;default:now();column:joined_at" json:"joinedAt"`
  Reason              string                    `gorm:"column:reason" json:"reason"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()"`
}

func (MomentWith) TableName() string {
  return "moment_with"
}
