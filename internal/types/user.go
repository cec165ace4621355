package types

import (
  "time"

  "gorm.io/gorm"
  "github.com/google/uuid"
)

type User struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

  Username            string                    `gorm:"uniqueIndex;not null;column:username" json:"username"`
  Email               string                    `gorm:"index;column:email" json:"email"`
  Msisdn              string                    `gorm:"index;column:msisdn" json:"msisdn"`
  Password            string                    `gorm:"not null;column:password" json:"-"`
  FirstName           string                    `gorm:"column:first_name" json:"firstName"`
  LastName            string                    `gorm:"column:last_name" json:"lastName"`

  IsEmailVerified     bool                      `gorm:"not null;default:false;column:is_email_verified" json:"isEmailVerified"`
  IsMsisdnVerified    bool                      `gorm:"not null;default:false;column:is_msisdn_verified" json:"isMsisdnVerified"`
  IsActive            bool                      `gorm:"not null;default:true;column:is_active" json:"isActive"`

  AvatarBucketKey     string                    `gorm:"column:avatar_bucket_key" json:"avatarBucketKey"`
  AvatarURL           string                    `gorm:"column:avatar_url" json:"avatarURL"`

  Profile             *Profile                  `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"profile,omitempty"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()" json:"createdAt"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()" json:"updatedAt"`
}

func (User) TableName() string {
  return "user"
}

// Name mirrors how the UI displays a user: full name when set, username otherwise.
func (u *User) Name() string {
  if u.FirstName != "" {
    full := u.FirstName
    if u.LastName != "" {
      full += " " + u.LastName
    }
    return full
  }
  return u.Username
}

// ClaimValue returns the raw value of a verifiable claim field.
func (u *User) ClaimValue(field string) string {
  switch field {
  case "email":
    return u.Email
  case "msisdn":
    return u.Msisdn
  }
  return ""
}
