package services

import (
  "context"
  "encoding/json"
  "fmt"
  "regexp"
  "strings"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/normalization"
  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/socket"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

// hashtagRegexp pulls #tags out of free text.
var hashtagRegexp = regexp.MustCompile(`#(\w+)`)

// ExtractTagNames returns the distinct hashtag names in text, in order of
// first appearance.
func ExtractTagNames(text string) []string {
  matches := hashtagRegexp.FindAllStringSubmatch(text, -1)
  seen := map[string]bool{}
  var names []string
  for _, match := range matches {
    name := strings.ToLower(match[1])
    if !seen[name] {
      seen[name] = true
      names = append(names, name)
    }
  }
  return names
}

// Slugify flattens a tag name to its slug form.
func Slugify(name string) string {
  slug := strings.ToLower(strings.TrimSpace(name))
  slug = strings.ReplaceAll(slug, " ", "-")
  return slug
}

// LocationInput pins a moment to a place.
type LocationInput struct {
  Name             string  `json:"name"`
  FormattedAddress string  `json:"formattedAddress"`
  PostalCode       string  `json:"postalCode"`
  Latitude         float64 `json:"latitude"`
  Longitude        float64 `json:"longitude"`
}

// CreateMomentInput is everything a caller may say about a new moment.
// Attributes carries free-form device identifiers for anonymous ownership.
type CreateMomentInput struct {
  Title      string                 `json:"title"`
  Summary    string                 `json:"summary"`
  Attributes map[string]interface{} `json:"attributes"`
  Location   *LocationInput         `json:"location"`
  WithUserIDs []uuid.UUID           `json:"withUserIDs"`
}

type MomentService interface {
  Create(ctx context.Context, input CreateMomentInput) (*types.Moment, error)
  Get(ctx context.Context, momentID uuid.UUID) (*types.Moment, error)
  List(ctx context.Context, geo *repos.GeoQuery, limit, offset int) ([]*types.Moment, error)
  ListMine(ctx context.Context) ([]*types.Moment, error)
  ListByTag(ctx context.Context, slug string) ([]*types.Moment, error)
  Update(ctx context.Context, momentID uuid.UUID, title, summary string) (*types.Moment, error)
  Delete(ctx context.Context, momentID uuid.UUID) error
}

type momentService struct {
  db           *gorm.DB
  log          *logger.Logger
  momentRepo   repos.MomentRepo
  locationRepo repos.LocationRepo
  tagRepo      repos.TagRepo
  hub          *socket.Hub
}

func NewMomentService(
  db *gorm.DB,
  log *logger.Logger,
  momentRepo repos.MomentRepo,
  locationRepo repos.LocationRepo,
  tagRepo repos.TagRepo,
  hub *socket.Hub,
) MomentService {
  serviceLog := log.With("service", "MomentService")
  return &momentService{
    db:           db,
    log:          serviceLog,
    momentRepo:   momentRepo,
    locationRepo: locationRepo,
    tagRepo:      tagRepo,
    hub:          hub,
  }
}

// ----------------------------------------------------------------
// CREATE
// ----------------------------------------------------------------

func (ms *momentService) Create(ctx context.Context, input CreateMomentInput) (*types.Moment, error) {
  ms.log.Info("Starting Create Moment now...")

  title := normalization.ParseInputString(input.Title)
  if title == "" {
    ms.log.Warn("Moment title is empty, Cannot proceed.")
    return nil, apperr.New(apperr.KindBadInput, "a title is required")
  }

  moment := &types.Moment{
    ID:      uuid.New(),
    Title:   title,
    Summary: normalization.ParseInputString(input.Summary),
  }

  // Signed-in callers own their moments; anonymous ones are keyed by the
  // device identifiers in Attributes.
  if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
    userID := rd.UserID
    moment.UserID = &userID
  }
  if len(input.Attributes) > 0 {
    raw, err := json.Marshal(input.Attributes)
    if err != nil {
      return nil, fmt.Errorf("failed to encode moment attributes: %w", err)
    }
    moment.Attributes = datatypes.JSON(raw)
  }

  err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if _, err := ms.momentRepo.Create(ctx, tx, []*types.Moment{moment}); err != nil {
      return err
    }

    //1) Location
    if input.Location != nil {
      location := &types.Location{
        EntityKind:       types.EntityKindMoment,
        EntityID:         moment.ID,
        Name:             normalization.ParseInputString(input.Location.Name),
        FormattedAddress: normalization.ParseInputString(input.Location.FormattedAddress),
        PostalCode:       normalization.ParseInputString(input.Location.PostalCode),
        Latitude:         input.Location.Latitude,
        Longitude:        input.Location.Longitude,
      }
      if _, err := ms.locationRepo.Create(ctx, tx, []*types.Location{location}); err != nil {
        return err
      }
      moment.Locations = []*types.Location{location}
    }

    //2) Withs
    if len(input.WithUserIDs) > 0 {
      withs := make([]*types.MomentWith, 0, len(input.WithUserIDs))
      for _, userID := range input.WithUserIDs {
        withs = append(withs, &types.MomentWith{MomentID: moment.ID, UserID: userID})
      }
      if _, err := ms.momentRepo.AddWith(ctx, tx, withs); err != nil {
        return err
      }
    }

    //3) Hashtags from title + summary
    if err := ms.applyTags(ctx, tx, moment); err != nil {
      return err
    }
    return nil
  })
  if err != nil {
    return nil, err
  }

  if ms.hub != nil {
    ms.hub.BroadcastGlobal(ctx, socket.Message{
      Channel: socket.ChannelMoments,
      Event:   "moment.created",
      Payload: moment,
    })
  }
  ms.log.Info("Successfully created moment :)", "momentID", moment.ID)
  return moment, nil
}

func (ms *momentService) applyTags(ctx context.Context, tx *gorm.DB, moment *types.Moment) error {
  names := ExtractTagNames(moment.Title + " " + moment.Summary)
  if len(names) == 0 {
    return ms.tagRepo.ReplaceForEntity(ctx, tx, types.EntityKindMoment, moment.ID, nil)
  }
  tags := make([]*types.Tag, 0, len(names))
  for _, name := range names {
    tags = append(tags, &types.Tag{Name: name, Slug: Slugify(name)})
  }
  stored, err := ms.tagRepo.GetOrCreateBySlugs(ctx, tx, tags)
  if err != nil {
    return err
  }
  tagIDs := make([]uuid.UUID, 0, len(stored))
  for _, tag := range stored {
    tagIDs = append(tagIDs, tag.ID)
  }
  if err := ms.tagRepo.ReplaceForEntity(ctx, tx, types.EntityKindMoment, moment.ID, tagIDs); err != nil {
    return err
  }
  moment.Tags = stored
  return nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (ms *momentService) Get(ctx context.Context, momentID uuid.UUID) (*types.Moment, error) {
  ms.log.Info("Starting Get Moment now...", "momentID", momentID)

  found, err := ms.momentRepo.GetByIDs(ctx, nil, []uuid.UUID{momentID})
  if err != nil {
    return nil, err
  }
  if len(found) == 0 {
    return nil, apperr.ErrNotFound
  }
  moment := found[0]
  if err := ms.hydrate(ctx, []*types.Moment{moment}); err != nil {
    return nil, err
  }
  return moment, nil
}

func (ms *momentService) List(ctx context.Context, geo *repos.GeoQuery, limit, offset int) ([]*types.Moment, error) {
  ms.log.Info("Starting List Moments now...", "geo", geo != nil)

  var moments []*types.Moment
  var err error
  if geo != nil {
    moments, err = ms.momentRepo.ListByDistance(ctx, nil, *geo)
  } else {
    moments, err = ms.momentRepo.List(ctx, nil, limit, offset)
  }
  if err != nil {
    return nil, err
  }
  if err := ms.hydrate(ctx, moments); err != nil {
    return nil, err
  }
  return moments, nil
}

func (ms *momentService) ListMine(ctx context.Context) ([]*types.Moment, error) {
  ms.log.Info("Starting ListMine Moments now...")

  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    ms.log.Warn("No authenticated user in context, Cannot proceed.")
    return nil, apperr.New(apperr.KindUnauthorized, "a signed-in user is required")
  }
  moments, err := ms.momentRepo.GetByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
  if err != nil {
    return nil, err
  }
  if err := ms.hydrate(ctx, moments); err != nil {
    return nil, err
  }
  return moments, nil
}

func (ms *momentService) ListByTag(ctx context.Context, slug string) ([]*types.Moment, error) {
  ms.log.Info("Starting ListByTag Moments now...", "slug", slug)

  entityIDs, err := ms.tagRepo.GetEntityIDsByTag(ctx, nil, types.EntityKindMoment, Slugify(slug))
  if err != nil {
    return nil, err
  }
  moments, err := ms.momentRepo.GetByIDs(ctx, nil, entityIDs)
  if err != nil {
    return nil, err
  }
  if err := ms.hydrate(ctx, moments); err != nil {
    return nil, err
  }
  return moments, nil
}

func (ms *momentService) hydrate(ctx context.Context, moments []*types.Moment) error {
  if len(moments) == 0 {
    return nil
  }
  momentIDs := make([]uuid.UUID, 0, len(moments))
  for _, moment := range moments {
    momentIDs = append(momentIDs, moment.ID)
  }

  locations, err := ms.locationRepo.GetByEntityIDs(ctx, nil, types.EntityKindMoment, momentIDs)
  if err != nil {
    return err
  }
  withs, err := ms.momentRepo.GetWiths(ctx, nil, momentIDs)
  if err != nil {
    return err
  }
  withsByMoment := map[uuid.UUID][]*types.MomentWith{}
  for _, with := range withs {
    withsByMoment[with.MomentID] = append(withsByMoment[with.MomentID], with)
  }

  for _, moment := range moments {
    moment.Locations = locations[moment.ID]
    moment.Withs = withsByMoment[moment.ID]
    tags, tErr := ms.tagRepo.GetForEntity(ctx, nil, types.EntityKindMoment, moment.ID)
    if tErr != nil {
      return tErr
    }
    moment.Tags = tags
  }
  return nil
}

// ----------------------------------------------------------------
// UPDATE / DELETE
// ----------------------------------------------------------------

func (ms *momentService) Update(ctx context.Context, momentID uuid.UUID, title, summary string) (*types.Moment, error) {
  ms.log.Info("Starting Update Moment now...", "momentID", momentID)

  var moment *types.Moment
  err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    found, err := ms.momentRepo.GetByIDs(ctx, tx, []uuid.UUID{momentID})
    if err != nil {
      return err
    }
    if len(found) == 0 {
      return apperr.ErrNotFound
    }
    moment = found[0]
    if err := ms.guardOwnership(ctx, moment); err != nil {
      return err
    }

    if title != "" {
      moment.Title = normalization.ParseInputString(title)
    }
    if summary != "" {
      moment.Summary = normalization.ParseInputString(summary)
    }
    if _, err := ms.momentRepo.Update(ctx, tx, []*types.Moment{moment}); err != nil {
      return err
    }
    return ms.applyTags(ctx, tx, moment)
  })
  if err != nil {
    return nil, err
  }

  if ms.hub != nil {
    ms.hub.BroadcastGlobal(ctx, socket.Message{
      Channel: socket.MomentChannel(moment.ID),
      Event:   "moment.updated",
      Payload: moment,
    })
  }
  return moment, nil
}

func (ms *momentService) Delete(ctx context.Context, momentID uuid.UUID) error {
  ms.log.Info("Starting Delete Moment now...", "momentID", momentID)

  return ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    found, err := ms.momentRepo.GetByIDs(ctx, tx, []uuid.UUID{momentID})
    if err != nil {
      return err
    }
    if len(found) == 0 {
      return apperr.ErrNotFound
    }
    if err := ms.guardOwnership(ctx, found[0]); err != nil {
      return err
    }
    if err := ms.locationRepo.SoftDeleteByEntity(ctx, tx, types.EntityKindMoment, momentID); err != nil {
      return err
    }
    return ms.momentRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{momentID})
  })
}

// guardOwnership lets owners touch their moments; anonymous moments stay open.
func (ms *momentService) guardOwnership(ctx context.Context, moment *types.Moment) error {
  if moment.UserID == nil {
    return nil
  }
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID != *moment.UserID {
    ms.log.Warn("Caller does not own the moment", "momentID", moment.ID)
    return apperr.New(apperr.KindForbidden, "moment belongs to another user")
  }
  return nil
}
