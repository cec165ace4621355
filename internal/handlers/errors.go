package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/errordata"
)

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
  switch apperr.KindOf(err) {
  case apperr.KindNotFound, apperr.KindUserNotFound:
    return http.StatusNotFound
  case apperr.KindUnauthorized:
    return http.StatusUnauthorized
  case apperr.KindForbidden:
    return http.StatusForbidden
  case apperr.KindConflict:
    return http.StatusConflict
  case apperr.KindPasscodeInvalid, apperr.KindNotValidated,
    apperr.KindInvalidField, apperr.KindInvalidDeliveryTarget, apperr.KindBadInput:
    return http.StatusBadRequest
  case apperr.KindInternal:
    return http.StatusInternalServerError
  default:
    return http.StatusBadRequest
  }
}

func abortWithError(c *gin.Context, err error) {
  // A friendly message set deep in the service stack wins over the raw error.
  if ed := errordata.GetErrorData(c.Request.Context()); ed != nil && ed.HasMessage() {
    c.JSON(statusFor(apperr.New(ed.Kind, ed.Message)), gin.H{"error": ed.Message})
    return
  }
  c.JSON(statusFor(err), gin.H{"error": apperr.MessageOf(err)})
}
