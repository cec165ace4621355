package handlers

import (
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/snapmoment/snapmoment-backend/internal/services"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

type AuthHandler struct {
  authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
  return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
  var req struct {
    Username  string `json:"username"`
    Email     string `json:"email,omitempty"`
    Msisdn    string `json:"msisdn,omitempty"`
    Password  string `json:"password"`
    FirstName string `json:"first_name,omitempty"`
    LastName  string `json:"last_name,omitempty"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  user := types.User{
    Username:  req.Username,
    Email:     req.Email,
    Msisdn:    req.Msisdn,
    Password:  req.Password,
    FirstName: req.FirstName,
    LastName:  req.LastName,
  }
  if err := ah.authService.RegisterUser(c.Request.Context(), &user); err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"success": true, "userID": user.ID})
}

func (ah *AuthHandler) Login(c *gin.Context) {
  var req struct {
    Username string `json:"username"`
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  accessToken, refreshToken, err := ah.authService.Login(c.Request.Context(), req.Username, req.Password)
  if err != nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
    return
  }
  accessTTL := ah.authService.GetAccessTTL()
  expiresIn := int(accessTTL.Seconds())

  c.JSON(http.StatusOK, gin.H{"access_token": accessToken, "refresh_token": refreshToken, "expires_in": expiresIn})
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
  accessToken, refreshToken, err := ah.authService.Refresh(c.Request.Context())
  if err != nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
    return
  }
  accessTTL := ah.authService.GetAccessTTL()
  expiresIn := int(accessTTL.Seconds())

  c.JSON(http.StatusOK, gin.H{"access_token": accessToken, "refresh_token": refreshToken, "expires_in": expiresIn})
}

func (ah *AuthHandler) Logout(c *gin.Context) {
  if err := ah.authService.Logout(c.Request.Context()); err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

func (ah *AuthHandler) ConfirmSignup(c *gin.Context) {
  var req struct {
    Token    string `json:"token"`
    Passcode string `json:"passcode"`
    Field    string `json:"field"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.Passcode) == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "token and passcode are required"})
    return
  }
  if err := ah.authService.ConfirmSignup(c.Request.Context(), req.Token, req.Passcode, req.Field); err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "account verified successfully"})
}

func (ah *AuthHandler) RequestPasswordReset(c *gin.Context) {
  var req struct {
    Field string `json:"field"`
    Value string `json:"value"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  rec, err := ah.authService.RequestPasswordReset(c.Request.Context(), req.Field, req.Value)
  if err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"token": rec.Token, "validUntil": rec.ValidUntil})
}

func (ah *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
  var req struct {
    Token          string `json:"token"`
    Passcode       string `json:"passcode"`
    Field          string `json:"field"`
    NewPassword    string `json:"new_password"`
    RetypePassword string `json:"retype_password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if strings.TrimSpace(req.NewPassword) == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "new password is required"})
    return
  }
  if req.NewPassword != req.RetypePassword {
    c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
    return
  }
  if err := ah.authService.ConfirmPasswordReset(c.Request.Context(), req.Token, req.Passcode, req.Field, req.NewPassword); err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "password reset successfully"})
}

func (ah *AuthHandler) ChangePassword(c *gin.Context) {
  var req struct {
    CurrentPassword string `json:"current_password"`
    NewPassword     string `json:"new_password"`
    RetypePassword  string `json:"retype_password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if req.NewPassword != req.RetypePassword {
    c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
    return
  }
  if err := ah.authService.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword); err != nil {
    abortWithError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}
