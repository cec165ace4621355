package errordata

import (
  "context"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
)

type key struct{}

var errorDataKey key

// ErrorData carries a user-facing failure message (and machine kind) set deep
// in the service stack so handlers can surface it without string matching.
type ErrorData struct {
  Kind    apperr.Kind
  Message string
}

func WithErrorData(ctx context.Context) context.Context {
  ed := &ErrorData{}
  return context.WithValue(ctx, errorDataKey, ed)
}

func GetErrorData(ctx context.Context) *ErrorData {
  val := ctx.Value(errorDataKey)
  ed, ok := val.(*ErrorData)
  if !ok {
    return nil
  }
  return ed
}

func (ed *ErrorData) Set(kind apperr.Kind, msg string) {
  ed.Kind = kind
  ed.Message = msg
}

func (ed *ErrorData) HasMessage() bool {
  return ed.Message != ""
}
