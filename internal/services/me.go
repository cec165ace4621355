package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/normalization"
  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

// UpdateProfileInput carries the editable profile fields. Nil pointers mean
// "leave as is".
type UpdateProfileInput struct {
  Headline  *string  `json:"headline"`
  Gender    *string  `json:"gender"`
  About     *string  `json:"about"`
  Address   *string  `json:"address"`
  Latitude  *float64 `json:"latitude"`
  Longitude *float64 `json:"longitude"`
}

type MeService interface {
  GetMe(ctx context.Context, tx *gorm.DB) (types.User, error)
  UpdateMyProfile(ctx context.Context, input UpdateProfileInput) (*types.Profile, error)
}

type meService struct {
  db          *gorm.DB
  log         *logger.Logger
  userRepo    repos.UserRepo
  profileRepo repos.ProfileRepo
}

func NewMeService(
  db *gorm.DB,
  log *logger.Logger,
  userRepo repos.UserRepo,
  profileRepo repos.ProfileRepo,
) MeService {
  serviceLog := log.With("service", "MeService")
  return &meService{
    db:          db,
    log:         serviceLog,
    userRepo:    userRepo,
    profileRepo: profileRepo,
  }
}

func (ms *meService) GetMe(ctx context.Context, tx *gorm.DB) (types.User, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    ms.log.Warn("Request Data is not set in context.")
    return types.User{}, fmt.Errorf("Request Data is not set in context.")
  }
  if rd.UserID == uuid.Nil {
    ms.log.Warn("User ID not set in Request Data.")
    return types.User{}, fmt.Errorf("User ID not set in Request Data.")
  }

  var theUser types.User
  if tx == nil {
    if err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
      found, fErr := ms.userRepo.GetMe(ctx, tx)
      if fErr != nil {
        return fmt.Errorf("error fetching user: %w", fErr)
      }
      theUser = *found
      return nil
    }); err != nil {
      return types.User{}, err
    }
    return theUser, nil
  }
  found, fErr := ms.userRepo.GetMe(ctx, tx)
  if fErr != nil {
    return types.User{}, fmt.Errorf("error fetching user: %w", fErr)
  }
  return *found, nil
}

func (ms *meService) UpdateMyProfile(ctx context.Context, input UpdateProfileInput) (*types.Profile, error) {
  ms.log.Info("Starting UpdateMyProfile now...")

  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    ms.log.Warn("No authenticated user in context, Cannot proceed.")
    return nil, fmt.Errorf("No authenticated user in context.")
  }

  var profile *types.Profile
  err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    profiles, pErr := ms.profileRepo.GetByUserIDs(ctx, tx, []uuid.UUID{rd.UserID})
    if pErr != nil {
      return pErr
    }
    if len(profiles) == 0 {
      // Profiles are created with the user, but heal a missing one here.
      created, cErr := ms.profileRepo.Create(ctx, tx, []*types.Profile{{UserID: rd.UserID}})
      if cErr != nil {
        return cErr
      }
      profiles = created
    }
    profile = profiles[0]

    if input.Headline != nil {
      profile.Headline = normalization.ParseInputString(*input.Headline)
    }
    if input.Gender != nil {
      profile.Gender = types.GenderOption(normalization.ParseInputString(*input.Gender))
    }
    if input.About != nil {
      profile.About = normalization.ParseInputString(*input.About)
    }
    if input.Address != nil {
      profile.Address = normalization.ParseInputString(*input.Address)
    }
    if input.Latitude != nil {
      profile.Latitude = *input.Latitude
    }
    if input.Longitude != nil {
      profile.Longitude = *input.Longitude
    }

    _, uErr := ms.profileRepo.Update(ctx, tx, []*types.Profile{profile})
    return uErr
  })
  if err != nil {
    return nil, err
  }
  ms.log.Info("Successfully updated profile :)", "profileID", profile.ID)
  return profile, nil
}
