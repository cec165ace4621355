package middleware

import (
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/snapmoment/snapmoment-backend/internal/errordata"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/services"
)

type AuthMiddleware struct {
  log         *logger.Logger
  authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
  middlewareLogger := log.With("Middleware", "AuthMiddleware")
  return &AuthMiddleware{log: middlewareLogger, authService: authService}
}

// RequestMeta records the requester ip and user agent for every request,
// authenticated or not. Verification records bind to these at generation time.
// It also attaches the error data slot services write friendly messages into.
func (am *AuthMiddleware) RequestMeta() gin.HandlerFunc {
  return func(c *gin.Context) {
    ctx := errordata.WithErrorData(c.Request.Context())
    rd := requestdata.GetRequestData(ctx)
    if rd == nil {
      rd = &requestdata.RequestData{}
      ctx = requestdata.WithRequestData(ctx, rd)
    }
    c.Request = c.Request.WithContext(ctx)
    rd.IPAddress = c.ClientIP()
    rd.UserAgent = c.Request.UserAgent()
    c.Next()
  }
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
  return func(c *gin.Context) {
    tokenString := extractToken(c)
    if tokenString == "" {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }
    ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
    if err != nil {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
      return
    }
    c.Request = c.Request.WithContext(ctx)
    rd := requestdata.GetRequestData(ctx)
    if rd == nil || rd.UserID == uuid.Nil {
      c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden - invalid user id"})
      return
    }
    rd.IPAddress = c.ClientIP()
    rd.UserAgent = c.Request.UserAgent()
    c.Next()
  }
}

// OptionalAuth resolves a bearer token when one is present but lets anonymous
// requests through. Moments and reactions accept anonymous traffic.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
  return func(c *gin.Context) {
    tokenString := extractToken(c)
    if tokenString != "" {
      ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
      if err == nil {
        c.Request = c.Request.WithContext(ctx)
      } else {
        am.log.Debug("Ignoring invalid bearer token on optional route", "error", err)
      }
    }
    rd := requestdata.GetRequestData(c.Request.Context())
    if rd == nil {
      rd = &requestdata.RequestData{}
      c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
    }
    rd.IPAddress = c.ClientIP()
    rd.UserAgent = c.Request.UserAgent()
    c.Next()
  }
}

func extractToken(c *gin.Context) string {
  if qToken := c.Query("token"); qToken != "" {
    return qToken
  }
  authHeader := c.GetHeader("Authorization")
  if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
    return authHeader[7:]
  }
  return ""
}
