package types

import (
  "time"

  "gorm.io/gorm"
  "github.com/google/uuid"
)

type Location struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID              *uuid.UUID                `gorm:"index" json:"userID,omitempty"`

  EntityKind          EntityKind                `gorm:"type:varchar(50);index:idx_location_entity;column:entity_kind" json:"entityKind"`
  EntityID            uuid.UUID                 `gorm:"type:uuid;index:idx_location_entity;column:entity_id" json:"entityID"`

  Name                string                    `gorm:"column:name" json:"name"`
  FormattedAddress    string                    `gorm:"column:formatted_address" json:"formattedAddress"`
  PostalCode          string                    `gorm:"index;column:postal_code" json:"postalCode"`
  Latitude            float64                   `gorm:"index;not null;default:0;column:latitude" json:"latitude"`
  Longitude           float64                   `gorm:"index;not null;default:0;column:longitude" json:"longitude"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()"`
}

func (Location) TableName() string {
  return "location"
}
