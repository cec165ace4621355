package types

import (
  "time"

  "gorm.io/gorm"
  "github.com/google/uuid"
)

type GenderOption string

const (
  GenderUnknown   GenderOption = "unknown"
  GenderMale      GenderOption = "male"
  GenderFemale    GenderOption = "female"
)

type Profile struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID              uuid.UUID                 `gorm:"uniqueIndex;not null" json:"userID"`

  Headline            string                    `gorm:"column:headline" json:"headline"`
  Gender              GenderOption              `gorm:"type:varchar(25);not null;default:'unknown';column:gender" json:"gender"`
  Birthdate           *time.Time                `gorm:"column:birthdate" json:"birthdate,omitempty"`
  About               string                    `gorm:"column:about" json:"about"`
  PictureBucketKey    string                    `gorm:"column:picture_bucket_key" json:"pictureBucketKey"`
  PictureURL          string                    `gorm:"column:picture_url" json:"pictureURL"`
  Address             string                    `gorm:"column:address" json:"address"`
  Latitude            float64                   `gorm:"index;not null;default:0;column:latitude" json:"latitude"`
  Longitude           float64                   `gorm:"index;not null;default:0;column:longitude" json:"longitude"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()" json:"createdAt"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Profile) TableName() string {
  return "profile"
}
