package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/apperr"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/types"
)

// GeoQuery bounds a distance-ordered moment listing. Radius is in kilometers;
// a zero radius means unbounded.
type GeoQuery struct {
  Latitude  float64
  Longitude float64
  RadiusKm  float64
  Limit     int
  Offset    int
}

type MomentRepo interface {
  // CREATE
  Create(ctx context.Context, tx *gorm.DB, moments []*types.Moment) ([]*types.Moment, error)
  AddWith(ctx context.Context, tx *gorm.DB, withs []*types.MomentWith) ([]*types.MomentWith, error)

  // READ
  GetByIDs(ctx context.Context, tx *gorm.DB, momentIDs []uuid.UUID) ([]*types.Moment, error)
  GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Moment, error)
  List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Moment, error)
  ListByDistance(ctx context.Context, tx *gorm.DB, q GeoQuery) ([]*types.Moment, error)
  GetWiths(ctx context.Context, tx *gorm.DB, momentIDs []uuid.UUID) ([]*types.MomentWith, error)

  // UPDATE
  Update(ctx context.Context, tx *gorm.DB, moments []*types.Moment) ([]*types.Moment, error)

  // SOFT DELETE
  SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, momentIDs []uuid.UUID) error
}

type momentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMomentRepo(db *gorm.DB, baseLog *logger.Logger) MomentRepo {
  repoLog := baseLog.With("repo", "MomentRepo")
  return &momentRepo{db: db, log: repoLog}
}

// ----------------------------------------------------------------
// CREATE
// ----------------------------------------------------------------

func (mr *momentRepo) Create(ctx context.Context, tx *gorm.DB, moments []*types.Moment) ([]*types.Moment, error) {
  mr.log.Info("Starting Create Moments now...")

  transaction := tx
  if transaction == nil {
    transaction = mr.db
    mr.log.Debug("Transaction is nil, using mr.db", "db", transaction)
  }

  if len(moments) == 0 {
    mr.log.Debug("No moments provided, returning empty slice")
    return []*types.Moment{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&moments).Error; err != nil {
    mr.log.Error("Failed to create moments", "error", err)
    return nil, err
  }
  mr.log.Info("Successfully created moments", "count", len(moments))
  return moments, nil
}

func (mr *momentRepo) AddWith(ctx context.Context, tx *gorm.DB, withs []*types.MomentWith) ([]*types.MomentWith, error) {
  mr.log.Info("Starting AddWith now...")

  transaction := tx
  if transaction == nil {
    transaction = mr.db
    mr.log.Debug("Transaction is nil, using mr.db", "db", transaction)
  }

  if len(withs) == 0 {
    mr.log.Debug("No withs provided, returning empty slice")
    return []*types.MomentWith{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&withs).Error; err != nil {
    mr.log.Error("Failed to create moment withs", "error", err)
    return nil, err
  }
  mr.log.Info("Successfully created moment withs", "count", len(withs))
  return withs, nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (mr *momentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, momentIDs []uuid.UUID) ([]*types.Moment, error) {
  mr.log.Info("Starting GetByIDs Moments now...", "momentIDs", momentIDs)

  transaction := tx
  if transaction == nil {
    transaction = mr.db
    mr.log.Debug("Transaction is nil, using mr.db", "db", transaction)
  }

  if len(momentIDs) == 0 {
    mr.log.Debug("No momentIDs provided, returning empty slice")
    return []*types.Moment{}, nil
  }

  var moments []*types.Moment
  if err := transaction.WithContext(ctx).
    Where("id IN ?", momentIDs).
    Find(&moments).Error; err != nil {
    mr.log.Error("Failed to get moments by ids", "error", err)
    return nil, err
  }
  mr.log.Info("Successfully got moments by ids", "count", len(moments))
  return moments, nil
}

func (mr *momentRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Moment, error) {
  mr.log.Info("Starting GetByUserIDs Moments now...", "userIDs", userIDs)

  transaction := tx
  if transaction == nil {
    transaction = mr.db
    mr.log.Debug("Transaction is nil, using mr.db", "db", transaction)
  }

  if len(userIDs) == 0 {
    mr.log.Debug("No userIDs provided, returning empty slice")
    return []*types.Moment{}, nil
  }

  var moments []*types.Moment
  if err := transaction.WithContext(ctx).
    Where("user_id IN ?", userIDs).
    Order("created_at DESC").
    Find(&moments).Error; err != nil {
    mr.log.Error("Failed to get moments by user ids", "error", err)
    return nil, err
  }
  mr.log.Info("Successfully got moments by user ids", "count", len(moments))
  return moments, nil
}

func (mr *momentRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Moment, error) {
  mr.log.Info("Starting List Moments now...", "limit", limit, "offset", offset)

  transaction := tx
  if transaction == nil {
    transaction = mr.db
    mr.log.Debug("Transaction is nil, using mr.db", "db", transaction)
  }

  query := transaction.WithContext(ctx).Order("created_at DESC")
  if limit > 0 {
    query = query.Limit(limit)
  }
  if offset > 0 {
    query = query.Offset(offset)
  }

  var moments []*types.Moment
  if err := query.Find(&moments).Error; err != nil {
    mr.log.Error("Failed to list moments", "error", err)
    return nil, err
  }
  mr.log.Info("Successfully listed moments", "count", len(moments))
  return moments, nil
}

// ListByDistance orders moments by great-circle distance from the given point,
// computed against each moment's first location row. Moments without a
// location are excluded.
func (mr *momentRepo) ListByDistance(ctx context.Context, tx *gorm.DB, q GeoQuery) ([]*types.Moment, error) {
  mr.log.Info("Starting ListByDistance Moments now...", "latitude", q.Latitude, "longitude", q.Longitude, "radiusKm", q.RadiusKm)

  transaction := tx
  if transaction == nil {
    transaction = mr.db
    mr.log.Debug("Transaction is nil, using mr.db", "db", transaction)
  }

  limit := q.Limit
  if limit <= 0 {
    limit = 20
  }

  // Haversine over the moment's first location, 6371 km earth radius. The
  // LEAST(1, ...) clamp guards ACOS against floating point drift at distance 0.
  const listSQL = `
SELECT * FROM (
  SELECT moment.*, (
    SELECT 6371 * ACOS(LEAST(1.0,
      COS(RADIANS(?)) * COS(RADIANS(location.latitude)) *
      COS(RADIANS(location.longitude) - RADIANS(?)) +
      SIN(RADIANS(?)) * SIN(RADIANS(location.latitude))
    ))
    FROM location
    WHERE location.entity_kind = ?
      AND location.entity_id = moment.id
      AND location.deleted_at IS NULL
    ORDER BY location.created_at ASC
    LIMIT 1
  ) AS distance
  FROM moment
  WHERE moment.deleted_at IS NULL
) AS with_distance
WHERE with_distance.distance IS NOT NULL
  AND (? <= 0 OR with_distance.distance <= ?)
ORDER BY with_distance.distance ASC
LIMIT ? OFFSET ?`

  var moments []*types.Moment
  if err := transaction.WithContext(ctx).
    Raw(listSQL,
      q.Latitude, q.Longitude, q.Latitude,
      types.EntityKindMoment,
      q.RadiusKm, q.RadiusKm,
      limit, q.Offset,
    ).
    Scan(&moments).Error; err != nil {
    mr.log.Error("Failed to list moments by distance", "error", err)
    return nil, err
  }
  mr.log.Info("Successfully listed moments by distance", "count", len(moments))
  return moments, nil
}

func (mr *momentRepo) GetWiths(ctx context.Context, tx *gorm.DB, momentIDs []uuid.UUID) ([]*types.MomentWith, error) {
  mr.log.Info("Starting GetWiths now...", "momentIDs", momentIDs)

  transaction := tx
  if transaction == nil {
    transaction = mr.db
    mr.log.Debug("Transaction is nil, using mr.db", "db", transaction)
  }

  if len(momentIDs) == 0 {
    mr.log.Debug("No momentIDs provided, returning empty slice")
    return []*types.MomentWith{}, nil
  }

  var withs []*types.MomentWith
  if err := transaction.WithContext(ctx).
    Where("moment_id IN ?", momentIDs).
    Find(&withs).Error; err != nil {
    mr.log.Error("Failed to get moment withs", "error", err)
    return nil, err
  }
  mr.log.Info("Successfully got moment withs", "count", len(withs))
  return withs, nil
}

// ----------------------------------------------------------------
// UPDATE
// ----------------------------------------------------------------

func (mr *momentRepo) Update(ctx context.Context, tx *gorm.DB, moments []*types.Moment) ([]*types.Moment, error) {
  mr.log.Info("Starting Update Moments now...")

  transaction := tx
  if transaction == nil {
    transaction = mr.db
    mr.log.Debug("Transaction is nil, using mr.db", "db", transaction)
  }

  if len(moments) == 0 {
    mr.log.Debug("No moments provided, returning empty slice")
    return []*types.Moment{}, nil
  }

  for _, moment := range moments {
    result := transaction.WithContext(ctx).Model(&types.Moment{}).
      Where("id = ?", moment.ID).
      Updates(moment)
    if result.Error != nil {
      mr.log.Error("Failed to update moment", "momentID", moment.ID, "error", result.Error)
      return nil, result.Error
    }
    if result.RowsAffected == 0 {
      mr.log.Error("Moment not found for update", "momentID", moment.ID)
      return nil, apperr.ErrNotFound
    }
  }
  mr.log.Info("Successfully updated moments", "count", len(moments))
  return moments, nil
}

// ----------------------------------------------------------------
// SOFT DELETE
// ----------------------------------------------------------------

func (mr *momentRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, momentIDs []uuid.UUID) error {
  mr.log.Info("Starting SoftDeleteByIDs Moments now...", "momentIDs", momentIDs)

  transaction := tx
  if transaction == nil {
    transaction = mr.db
    mr.log.Debug("Transaction is nil, using mr.db", "db", transaction)
  }

  if len(momentIDs) == 0 {
    mr.log.Debug("No momentIDs provided, nothing to delete")
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", momentIDs).
    Delete(&types.Moment{}).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      mr.log.Debug("No moments found to delete")
      return nil
    }
    mr.log.Error("Failed to soft delete moments", "error", err)
    return err
  }
  mr.log.Info("Successfully soft deleted moments", "count", len(momentIDs))
  return nil
}
