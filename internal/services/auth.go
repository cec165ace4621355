package services

import (
  "context"
  "fmt"
  "time"

  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/errordata"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/normalization"
  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/types"
  "github.com/snapmoment/snapmoment-backend/internal/utils"
)

// signupChallenge names the per-field claim verification challenge,
// e.g. "email_verification".
func signupChallenge(field string) string {
  return fmt.Sprintf("%s_verification", field)
}

type JWTClaims struct {
  jwt.RegisteredClaims
  Username string `json:"username,omitempty"`
}

type AuthService interface {
  RegisterUser(ctx context.Context, user *types.User) error
  Login(ctx context.Context, username, password string) (string, string, error)
  Refresh(ctx context.Context) (string, string, error)
  Logout(ctx context.Context) error

  ConfirmSignup(ctx context.Context, token, passcode, field string) error
  RequestPasswordReset(ctx context.Context, field, value string) (*types.Verification, error)
  ConfirmPasswordReset(ctx context.Context, token, passcode, field, newPassword string) error
  ChangePassword(ctx context.Context, currentPassword, newPassword string) error

  SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)

  GetAccessTTL() time.Duration
}

type authService struct {
  db                  *gorm.DB
  log                 *logger.Logger
  userRepo            repos.UserRepo
  profileRepo         repos.ProfileRepo
  userTokenRepo       repos.UserTokenRepo
  verificationService VerificationService
  dispatchService     DispatchService
  avatarService       AvatarService
  jwtSecretKey        string
  accessTTL           time.Duration
  refreshTTL          time.Duration
}

func NewAuthService(
  db *gorm.DB,
  log *logger.Logger,
  userRepo repos.UserRepo,
  profileRepo repos.ProfileRepo,
  userTokenRepo repos.UserTokenRepo,
  verificationService VerificationService,
  dispatchService DispatchService,
  avatarService AvatarService,
  jwtSecretKey string,
  accessTTL time.Duration,
  refreshTTL time.Duration,
) AuthService {
  serviceLog := log.With("service", "AuthService")
  return &authService{
    db:                  db,
    log:                 serviceLog,
    userRepo:            userRepo,
    profileRepo:         profileRepo,
    userTokenRepo:       userTokenRepo,
    verificationService: verificationService,
    dispatchService:     dispatchService,
    avatarService:       avatarService,
    jwtSecretKey:        jwtSecretKey,
    accessTTL:           accessTTL,
    refreshTTL:          refreshTTL,
  }
}

func (as *authService) GetAccessTTL() time.Duration {
  return as.accessTTL
}

//----------------------------------------------------------------------------------------------------------------------
// RegisterUser
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
  as.log.Info("Starting Register User now...")

  //1) Normalize User Fields
  utils.NormalizeUserFields(ctx, user)

  //2) Checks on user fields
  if vErr := utils.RegisterInputValidation(ctx, as.userRepo, as.log, user); vErr != nil {
    return vErr
  }

  //3) Hash Password
  if hErr := utils.HashPassword(ctx, as.log, user); hErr != nil {
    return hErr
  }

  //4) Transaction Body
  var createdRecs []*types.Verification
  err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    user.ID = uuid.New()
    if as.avatarService != nil {
      if aErr := as.avatarService.CreateAndUploadUserAvatar(ctx, tx, user); aErr != nil {
        as.log.Warn("Failure to create and upload user avatar, Cannot proceed further. Returning error", "error", aErr)
        return fmt.Errorf("Failure to create and upload user avatar: %w", aErr)
      }
    }
    createdUsers, ucErr := as.userRepo.Create(ctx, tx, []*types.User{user})
    if ucErr != nil {
      as.log.Warn("Failure to create final user", "error", ucErr)
      return fmt.Errorf("Failure to create user: %w", ucErr)
    }
    if len(createdUsers) == 0 {
      as.log.Warn("Failure to actually create user")
      return fmt.Errorf("Failure to create user in DB")
    }

    profile := &types.Profile{UserID: user.ID}
    if _, pErr := as.profileRepo.Create(ctx, tx, []*types.Profile{profile}); pErr != nil {
      as.log.Warn("Failure to create user profile", "error", pErr)
      return fmt.Errorf("Failure to create user profile: %w", pErr)
    }

    //5) Issue a signup verification per provided claim
    for _, field := range repos.ActiveUserFields {
      value := user.ClaimValue(field)
      if value == "" {
        continue
      }
      rec, created, gErr := as.verificationService.GenerateTx(ctx, tx, GenerateInput{
        TargetKind: types.TargetKindUser,
        TargetID:   &user.ID,
        Field:      field,
        Value:      value,
        Challenge:  signupChallenge(field),
      })
      if gErr != nil {
        as.log.Warn("Failed to issue signup verification", "field", field, "error", gErr)
        return gErr
      }
      if created {
        createdRecs = append(createdRecs, rec)
      }
    }
    return nil
  })
  if err != nil {
    return err
  }

  // Delivery only after the commit so a rollback never sends passcodes.
  if as.dispatchService != nil {
    for _, rec := range createdRecs {
      as.dispatchService.Dispatch(ctx, rec)
    }
  }
  as.log.Info("Successfully registered user :)", "userID", user.ID)
  return nil
}

//----------------------------------------------------------------------------------------------------------------------
// Login / Refresh / Logout
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) Login(ctx context.Context, userUsername, userPassword string) (string, string, error) {
  //1) Normalize Input
  username := normalization.ParseInputString(userUsername)
  password := normalization.ParseInputString(userPassword)

  //2) Input Validations
  if vErr := utils.LoginInputValidation(ctx, as.log, username, password); vErr != nil {
    return "", "", vErr
  }

  //3) Find User By Username
  users, uSErr := as.userRepo.GetByUsernames(ctx, nil, []string{username})
  if uSErr != nil {
    as.log.Warn("Failure to retrieve user by username, Cannot proceed. Returning error.", "error", uSErr)
    return "", "", fmt.Errorf("error retrieving user by username: %w", uSErr)
  }
  if len(users) == 0 {
    as.log.Warn("Invalid username, no users returned", "len(users)", len(users))
    return "", "", fmt.Errorf("invalid username, no users returned")
  }
  user := users[0]
  if hErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); hErr != nil {
    as.log.Warn("Invalid password, user password and hash dont match, Cannot proceed. Returning error.", "error", hErr)
    return "", "", fmt.Errorf("invalid password, user password and hash dont match: %w", hErr)
  }

  //4) Gate on a verified claim when verification is required
  if as.verificationService != nil && as.verificationService.Config().VerificationRequired {
    verified := (user.Email != "" && user.IsEmailVerified) || (user.Msisdn != "" && user.IsMsisdnVerified)
    if !verified {
      as.log.Warn("User has no verified claim yet, refusing login", "userID", user.ID)
      if ed := errordata.GetErrorData(ctx); ed != nil {
        ed.Set(apperr.KindForbidden, "Your account has not been verified yet. Please confirm your email or phone number first.")
      }
      return "", "", apperr.New(apperr.KindForbidden, "account is not verified yet")
    }
  }

  //5) Issue tokens
  var accessToken string
  var refreshToken string
  if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    foundTokens, fTErr := as.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
    if fTErr != nil {
      as.log.Warn("Failed to check whether user already has user tokens, Cannot proceed. Returning error.", "error", fTErr)
      return fmt.Errorf("Failed to check whether user already has user tokens: %w", fTErr)
    }
    for _, found := range foundTokens {
      if found != nil && found.ExpiresAt.Before(time.Now()) {
        if dTErr := as.userTokenRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{found.ID}); dTErr != nil {
          as.log.Warn("Failed to delete expired user token, Cannot proceed. Returning error.", "error", dTErr)
          return fmt.Errorf("Failed to delete expired user token: %w", dTErr)
        }
      }
    }
    tok, genErr := as.generateAccessToken(ctx, tx, user)
    if genErr != nil {
      as.log.Warn("Generate Access Token Error, Cannot proceed. Returning error.", "error", genErr)
      return fmt.Errorf("Generate Access Token Error: %w", genErr)
    }
    accessToken = tok
    refreshToken = uuid.New().String()
    expiresAt := time.Now().Add(as.refreshTTL)
    userToken := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  accessToken,
      RefreshToken: refreshToken,
      ExpiresAt:    expiresAt,
    }
    _, cTErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken})
    if cTErr != nil {
      as.log.Warn("Create User Token Error, Cannot proceed. Returning error.", "error", cTErr)
      return fmt.Errorf("Create User Token Error: %w", cTErr)
    }
    return nil
  }); err != nil {
    return "", "", err
  }
  return accessToken, refreshToken, nil
}

func (as *authService) Refresh(ctx context.Context) (string, string, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    as.log.Warn("No Request Data found in context, Cannot proceed", "requestdata", rd)
    return "", "", fmt.Errorf("No Request Data found in context.")
  }
  if rd.RefreshToken == "" {
    as.log.Warn("RefreshTokenString in Request Data in context is an empty string, Cannot proceed")
    return "", "", fmt.Errorf("RefreshTokenString in Request Data in context is an empty string.")
  }

  var accessToken string
  var newRefreshTokenStr string
  err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    foundTokens, fTErr := as.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
    if fTErr != nil {
      as.log.Warn("Error fetching refresh token, Cannot proceed. Returning error.", "error", fTErr)
      return fmt.Errorf("Error fetching refresh token: %w", fTErr)
    }
    if len(foundTokens) == 0 {
      as.log.Warn("No user token found for refresh token, Cannot proceed.")
      return fmt.Errorf("No user token found for refresh token.")
    }
    existingToken := foundTokens[0]

    if existingToken.ExpiresAt.Before(time.Now()) {
      if dTErr := as.userTokenRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{existingToken.ID}); dTErr != nil {
        as.log.Warn("Refresh token expired, error deleting expired refresh token, Cannot proceed. Returning error.", "error", dTErr)
        return fmt.Errorf("Refresh token expired, error deleting: %w", dTErr)
      }
      as.log.Warn("Refresh Token Expired, Cannot proceed.")
      return fmt.Errorf("Refresh Token Expired.")
    }
    users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existingToken.UserID})
    if uErr != nil {
      as.log.Warn("Failed to load user for refresh, Cannot proceed. Returning error.", "error", uErr)
      return fmt.Errorf("Failed to load user for refresh: %w", uErr)
    }
    if len(users) == 0 {
      as.log.Warn("No user found for the given refresh token, Cannot proceed.", "len(users)", len(users))
      return fmt.Errorf("No user found for the given refresh token.")
    }
    user := users[0]
    tok, genErr := as.generateAccessToken(ctx, tx, user)
    if genErr != nil {
      as.log.Warn("Failed to generate new access token, Cannot proceed. Returning error.", "error", genErr)
      return fmt.Errorf("Failed to generate new access token: %w", genErr)
    }
    accessToken = tok
    newRefreshTokenStr = uuid.New().String()
    newExpiresAt := time.Now().Add(as.refreshTTL)
    newUserToken := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  tok,
      RefreshToken: newRefreshTokenStr,
      ExpiresAt:    newExpiresAt,
    }
    _, cErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&newUserToken})
    if cErr != nil {
      as.log.Warn("Failed to create new user token, Cannot proceed. Returning error.", "error", cErr)
      return fmt.Errorf("Failed to create new user token: %w", cErr)
    }
    if dErr := as.userTokenRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{existingToken.ID}); dErr != nil {
      as.log.Warn("Failed to remove old refresh token, Cannot proceed. Returning error.", "error", dErr)
      return fmt.Errorf("Failed to remove old refresh token: %w", dErr)
    }
    return nil
  })
  if err != nil {
    as.log.Warn("Failed transaction, Cannot proceed. Returning error.", "error", err)
    return "", "", err
  }
  return accessToken, newRefreshTokenStr, nil
}

func (as *authService) Logout(ctx context.Context) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    as.log.Warn("No Request Data found in context, Cannot proceed.", "requestdata", rd)
    return fmt.Errorf("No Request Data found in context.")
  }
  if rd.TokenString == "" {
    as.log.Warn("TokenString in Request Data is an empty string, Cannot proceed.")
    return fmt.Errorf("TokenString in RequestData is an empty string.")
  }
  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    foundTokens, fTErr := as.userTokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
    if fTErr != nil {
      as.log.Warn("Error finding user token from token string, Cannot proceed. Returning error.", "error", fTErr)
      return fmt.Errorf("Error finding user token from token string: %w", fTErr)
    }
    if len(foundTokens) == 0 {
      as.log.Debug("No user token found for access token, nothing to delete")
      return nil
    }
    if tDErr := as.userTokenRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{foundTokens[0].ID}); tDErr != nil {
      as.log.Warn("Error deleting user token, Cannot proceed. Returning error.", "error", tDErr)
      return fmt.Errorf("Error deleting user token: %w", tDErr)
    }
    return nil
  })
}

//----------------------------------------------------------------------------------------------------------------------
// ConfirmSignup / RequestPasswordReset / ConfirmPasswordReset
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) ConfirmSignup(ctx context.Context, token, passcode, field string) error {
  as.log.Info("Starting Confirm Signup now...", "field", field)

  if field == "" {
    as.log.Warn("No claim field given for signup confirmation, Cannot proceed.")
    return apperr.New(apperr.KindBadInput, "a claim field is required")
  }
  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    rec, vErr := as.verificationService.ValidateTx(ctx, tx, repos.ValidateCriteria{
      Token:     token,
      Passcode:  passcode,
      Field:     field,
      Challenge: signupChallenge(field),
    })
    if vErr != nil {
      return vErr
    }
    if cErr := as.verificationService.Consume(ctx, tx, rec.ID); cErr != nil {
      return cErr
    }

    //Resolve the user: pinned target first, claim value as fallback
    var userID uuid.UUID
    if rec.TargetID != nil {
      userID = *rec.TargetID
    } else {
      users, uErr := as.userRepo.GetActiveByField(ctx, tx, rec.Field, rec.Value)
      if uErr != nil {
        return uErr
      }
      if len(users) == 0 {
        as.log.Warn("No user holds the verified claim", "field", rec.Field)
        return apperr.ErrUserNotFound
      }
      userID = users[0].ID
    }
    if mErr := as.userRepo.MarkFieldVerified(ctx, tx, userID, rec.Field); mErr != nil {
      return mErr
    }
    as.log.Info("Successfully confirmed signup :)", "userID", userID, "field", rec.Field)
    return nil
  })
}

func (as *authService) RequestPasswordReset(ctx context.Context, field, value string) (*types.Verification, error) {
  as.log.Info("Starting Request Password Reset now...", "field", field)

  challenge := fmt.Sprintf("%s_reset_password_verification", field)
  rec, err := as.verificationService.Generate(ctx, GenerateInput{
    TargetKind: types.TargetKindUser,
    Field:      field,
    Value:      value,
    Challenge:  challenge,
  })
  if err != nil {
    return nil, err
  }
  as.log.Info("Successfully requested password reset :)", "verificationID", rec.ID)
  return rec, nil
}

func (as *authService) ConfirmPasswordReset(ctx context.Context, token, passcode, field, newPassword string) error {
  as.log.Info("Starting Confirm Password Reset now...", "field", field)

  password := normalization.ParseInputString(newPassword)
  if password == "" {
    as.log.Warn("New password is an empty string, Cannot proceed.")
    return apperr.New(apperr.KindBadInput, "a new password is required")
  }

  challenge := fmt.Sprintf("%s_reset_password_verification", field)
  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    rec, vErr := as.verificationService.ValidateTx(ctx, tx, repos.ValidateCriteria{
      Token:     token,
      Passcode:  passcode,
      Field:     field,
      Challenge: challenge,
    })
    if vErr != nil {
      return vErr
    }
    if rec.TargetID == nil {
      as.log.Warn("Password reset verification has no target user", "verificationID", rec.ID)
      return apperr.ErrUserNotFound
    }
    if cErr := as.verificationService.Consume(ctx, tx, rec.ID); cErr != nil {
      return cErr
    }

    users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{*rec.TargetID})
    if uErr != nil {
      return uErr
    }
    if len(users) == 0 {
      return apperr.ErrUserNotFound
    }
    user := users[0]
    user.Password = password
    if hErr := utils.HashPassword(ctx, as.log, user); hErr != nil {
      return hErr
    }
    if _, upErr := as.userRepo.Update(ctx, tx, []*types.User{user}); upErr != nil {
      return upErr
    }

    //Every session dies with the old password
    if dErr := as.userTokenRepo.SoftDeleteByUserIDs(ctx, tx, []uuid.UUID{user.ID}); dErr != nil {
      return dErr
    }
    as.log.Info("Successfully confirmed password reset :)", "userID", user.ID)
    return nil
  })
}

func (as *authService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
  as.log.Info("Starting Change Password now...")

  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    as.log.Warn("No authenticated user in context, Cannot proceed.")
    return apperr.New(apperr.KindUnauthorized, "a signed-in user is required")
  }
  password := normalization.ParseInputString(newPassword)
  if password == "" {
    as.log.Warn("New password is an empty string, Cannot proceed.")
    return apperr.New(apperr.KindBadInput, "a new password is required")
  }

  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{rd.UserID})
    if uErr != nil {
      return uErr
    }
    if len(users) == 0 {
      return apperr.ErrUserNotFound
    }
    user := users[0]
    if !utils.CheckPassword(user.Password, normalization.ParseInputString(currentPassword)) {
      as.log.Warn("Current password does not match, Cannot proceed.", "userID", user.ID)
      return apperr.New(apperr.KindBadInput, "current password is incorrect")
    }
    user.Password = password
    if hErr := utils.HashPassword(ctx, as.log, user); hErr != nil {
      return hErr
    }
    if _, upErr := as.userRepo.Update(ctx, tx, []*types.User{user}); upErr != nil {
      return upErr
    }
    as.log.Info("Successfully changed password :)", "userID", user.ID)
    return nil
  })
}

//----------------------------------------------------------------------------------------------------------------------
// Tokens
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) generateAccessToken(ctx context.Context, tx *gorm.DB, user *types.User) (string, error) {
  claims := JWTClaims{
    RegisteredClaims: jwt.RegisteredClaims{
      Subject:   user.ID.String(),
      ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
      IssuedAt:  jwt.NewNumericDate(time.Now()),
    },
    Username: user.Username,
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
  if tokenString == "" {
    return ctx, nil
  }
  parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
    return []byte(as.jwtSecretKey), nil
  })
  if err != nil {
    return ctx, fmt.Errorf("failed to parse token: %w", err)
  }
  claims, ok := parsedToken.Claims.(*JWTClaims)
  if !ok || !parsedToken.Valid {
    return ctx, fmt.Errorf("invalid or expired JWT token")
  }
  userID, err := uuid.Parse(claims.Subject)
  if err != nil {
    return ctx, fmt.Errorf("invalid user ID in token: %w", err)
  }

  var refreshTokenStr string
  foundTokens, fTErr := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
  if fTErr != nil {
    as.log.Warn("Error fetching user token by access token, Cannot proceed. Returning error.", "error", fTErr)
    return ctx, fmt.Errorf("Failed to fetch user token by access token: %w", fTErr)
  }
  if len(foundTokens) > 0 {
    refreshTokenStr = foundTokens[0].RefreshToken
  }
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    rd = &requestdata.RequestData{}
  }
  rd.TokenString = tokenString
  rd.RefreshToken = refreshTokenStr
  rd.UserID = userID
  rd.Username = claims.Username
  return requestdata.WithRequestData(ctx, rd), nil
}
