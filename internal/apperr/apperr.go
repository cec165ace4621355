package apperr

import (
  "errors"
  "fmt"
)

// Kind is the machine-readable class of a failure, stable across releases.
type Kind string

const (
  KindInvalidField          Kind = "invalid_field"
  KindInvalidDeliveryTarget Kind = "invalid_delivery_target"
  KindUserNotFound          Kind = "user_not_found"
  KindNotFound              Kind = "not_found"
  KindPasscodeInvalid       Kind = "passcode_expired_or_invalid"
  KindNotValidated          Kind = "not_validated"
  KindConflict              Kind = "conflict"
  KindUnauthorized          Kind = "unauthorized"
  KindForbidden             Kind = "forbidden"
  KindBadInput              Kind = "bad_input"
  KindInternal              Kind = "internal"
)

var (
  ErrInvalidField          = &AppError{Kind: KindInvalidField, Message: "field not declared on target"}
  ErrInvalidDeliveryTarget = &AppError{Kind: KindInvalidDeliveryTarget, Message: "delivery target failed channel validation"}
  ErrUserNotFound          = &AppError{Kind: KindUserNotFound, Message: "no active user matches"}
  ErrNotFound              = &AppError{Kind: KindNotFound, Message: "not found"}
  ErrPasscodeInvalid       = &AppError{Kind: KindPasscodeInvalid, Message: "passcode expired or invalid"}
  ErrNotValidated          = &AppError{Kind: KindNotValidated, Message: "passcode not validated"}
)

type AppError struct {
  Kind    Kind
  Message string
  Err     error
}

func (e *AppError) Error() string {
  if e.Err != nil {
    return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
  }
  return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
  return e.Err
}

// Is lets sentinel comparisons match on Kind, so wrapped copies carrying
// richer messages still satisfy errors.Is(err, apperr.ErrNotFound).
func (e *AppError) Is(target error) bool {
  var ae *AppError
  if errors.As(target, &ae) {
    return e.Kind == ae.Kind
  }
  return false
}

func New(kind Kind, message string) *AppError {
  return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *AppError {
  return &AppError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from any error in the chain, defaulting to internal.
func KindOf(err error) Kind {
  var ae *AppError
  if errors.As(err, &ae) {
    return ae.Kind
  }
  return KindInternal
}

// MessageOf extracts the user-facing message, falling back to Error().
func MessageOf(err error) string {
  var ae *AppError
  if errors.As(err, &ae) {
    return ae.Message
  }
  return err.Error()
}
