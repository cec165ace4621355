package types

import (
  "regexp"
  "time"

  "gorm.io/gorm"
  "github.com/google/uuid"
)

// TargetKind tags the entity a verified claim will be attached to. Records can
// be created with no target at all (pre-signup flows) and bound later.
type TargetKind string

const (
  TargetKindUser    TargetKind = "user"
)

type SendWithOption string

const (
  SendWithMsisdn    SendWithOption = "msisdn"
  SendWithEmail     SendWithOption = "email"
)

type SendMimeOption string

const (
  SendMimeText      SendMimeOption = "text"
  SendMimeVoice     SendMimeOption = "voice"
)

// ChallengeRegexp constrains challenge names: letters, digits, underscores,
// never starting with a digit.
var ChallengeRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Verification struct {
  gorm.Model
  ID                  uuid.UUID                 `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

  TargetKind          TargetKind                `gorm:"type:varchar(50);not null;index:idx_verification_key;column:target_kind" json:"targetKind"`
  TargetID            *uuid.UUID                `gorm:"index:idx_verification_key;column:target_id" json:"targetID,omitempty"`

  Field               string                    `gorm:"not null;index:idx_verification_key;column:field" json:"field"`
  Value               string                    `gorm:"not null;index:idx_verification_key;column:value" json:"value"`
  Challenge           string                    `gorm:"not null;index:idx_verification_key;column:challenge" json:"challenge"`

  SendWith            SendWithOption            `gorm:"type:varchar(25);column:sendwith" json:"sendWith"`
  SendTo              string                    `gorm:"column:sendto" json:"sendTo"`
  SendMime            SendMimeOption            `gorm:"type:varchar(15);not null;default:'text';column:sendmime" json:"sendMime"`

  // Token doubles as the client-facing correlation handle and the TOTP
  // secret the passcode derives from. It is opaque to the client either way.
  Token               string                    `gorm:"index;not null;column:token" json:"token"`
  Passcode            string                    `gorm:"index;not null;column:passcode" json:"-"`
  ValidUntil          time.Time                 `gorm:"column:valid_until" json:"validUntil"`
  ValidUntilTimestamp int64                     `gorm:"not null;column:valid_until_timestamp" json:"-"`

  IPAddress           string                    `gorm:"column:ip_address" json:"-"`
  UserAgent           string                    `gorm:"column:user_agent" json:"-"`

  IsValid             bool                      `gorm:"not null;default:false;column:is_valid" json:"isValid"`
  IsUsed              bool                      `gorm:"not null;default:false;column:is_used" json:"isUsed"`

  CreatedAt           time.Time                 `gorm:"not null;default:now()"`
  UpdatedAt           time.Time                 `gorm:"not null;default:now()"`
}

func (Verification) TableName() string {
  return "verification"
}

func (v *Verification) IsExpired() bool {
  return !v.ValidUntil.After(time.Now())
}
