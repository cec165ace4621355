package utils

import (
  "context"
  "fmt"

  "golang.org/x/crypto/bcrypt"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/normalization"
  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

func RegisterInputValidation(ctx context.Context, userRepo repos.UserRepo, log *logger.Logger, user *types.User) error {
  //1) Check if user is empty
  if user == nil {
    log.Warn("User is nil, cannot proceed further. Returning error", "user", user)
    return fmt.Errorf("No user given, cannot proceed any further.")
  }

  //2) Check Username
  if user.Username == "" {
    log.Warn("Username is nil, cannot proceed further. Returning error", "username", user.Username)
    return fmt.Errorf("a username is required to register.")
  }
  usernameExists, err := userRepo.UsernameExists(ctx, nil, user.Username)
  if err != nil {
    log.Warn("Failed to check if username exists, error from UserRepo. Returning an error.", "error", err)
    return fmt.Errorf("Failed checking username '%s' existence: %w", user.Username, err)
  }
  if usernameExists {
    log.Warn("Username is already in use, cannot continue. Returning an error.", "usernameExists", usernameExists)
    return fmt.Errorf("username is already in use.")
  }

  //3) Check Email / Msisdn (at least one claim field required)
  if user.Email == "" && user.Msisdn == "" {
    log.Warn("No email or msisdn given, cannot proceed further. Returning error")
    return fmt.Errorf("an email or msisdn is required to register.")
  }
  if user.Email != "" {
    emailExists, err := userRepo.ClaimExists(ctx, nil, "email", user.Email, user.ID)
    if err != nil {
      log.Warn("Failed to check if user email exists, error from UserRepo. Returning an error.", "error", err)
      return fmt.Errorf("Failed checking user email '%s' existence: %w", user.Email, err)
    }
    if emailExists {
      log.Warn("Email is already in use, cannot continue. Returning an error.", "emailExists", emailExists)
      return fmt.Errorf("email is already in use.")
    }
  }
  if user.Msisdn != "" {
    msisdnExists, err := userRepo.ClaimExists(ctx, nil, "msisdn", user.Msisdn, user.ID)
    if err != nil {
      log.Warn("Failed to check if user msisdn exists, error from UserRepo. Returning an error.", "error", err)
      return fmt.Errorf("Failed checking user msisdn '%s' existence: %w", user.Msisdn, err)
    }
    if msisdnExists {
      log.Warn("Msisdn is already in use, cannot continue. Returning an error.", "msisdnExists", msisdnExists)
      return fmt.Errorf("msisdn is already in use.")
    }
  }

  //4) Check Password
  if user.Password == "" {
    log.Warn("Password is nil, cannot proceed further. Returning error")
    return fmt.Errorf("a password is required to register.")
  }
  return nil
}

func LoginInputValidation(ctx context.Context, log *logger.Logger, username, password string) error {
  //1) Check Username
  if username == "" {
    log.Warn("Username is an empty string, Cannot proceed.", "username", username)
    return fmt.Errorf("Username is an empty string, Cannot proceed.")
  }

  //2) Check Password
  if password == "" {
    log.Warn("Password is an empty string, Cannot proceed.")
    return fmt.Errorf("Password is an empty string, Cannot proceed.")
  }
  return nil
}

func HashPassword(ctx context.Context, log *logger.Logger, user *types.User) error {
  hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
  if err != nil {
    log.Warn("Failure to hash password for user. Returning error", "error", err)
    return fmt.Errorf("Failed to hash password for user.")
  }
  user.Password = string(hashedPassword)
  return nil
}

func CheckPassword(hashed, plain string) bool {
  return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

func NormalizeUserFields(ctx context.Context, user *types.User) {
  user.Username = normalization.ParseInputString(user.Username)
  user.Email = normalization.ParseEmail(user.Email)
  user.Msisdn = normalization.ParseMsisdn(user.Msisdn)
  user.Password = normalization.ParseInputString(user.Password)
  user.FirstName = normalization.ParseInputString(user.FirstName)
  user.LastName = normalization.ParseInputString(user.LastName)
}
