package requestdata

import (
  "context"

  "github.com/google/uuid"
)

type key struct{}

var requestDataKey key

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
  return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
  val := ctx.Value(requestDataKey)
  if rd, ok := val.(*RequestData); ok {
    return rd
  }
  return nil
}

// RequestData is filled by the auth middleware (token fields, user id) and by
// handlers (ip address, user agent) before the services run.
type RequestData struct {
  TokenString  string
  RefreshToken string
  UserID       uuid.UUID
  Username     string
  IPAddress    string
  UserAgent    string
}
