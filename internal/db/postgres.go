package db

import (
  "fmt"

  "gorm.io/driver/postgres"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/types"
  "github.com/snapmoment/snapmoment-backend/internal/utils"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  //1) Get and Set Environment Variables
  log.Info("Attempting to load environment variables for Postgres now...")
  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "snapmoment", log)
  log.Debug("Environment variables loaded for Postgres",
    "host", postgresHost,
    "port", postgresPort,
    "user", postgresUser,
    "dbname", postgresName,
  )
  log.Info("Environment variables loaded for Postgres :)")

  //2) Construct DSN From Environment Variables
  log.Info("Attempting to construct DSN from environment variables for Postgres now...")
  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)
  log.Debug("Postgres DSN built :)")

  //3) Attempt DB Connection
  log.Info("Attempting to connect to Postgres DB now...")
  db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    log.Error("Failed to connect to Postgres DB", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres DB: %w", err)
  }
  log.Info("Successfully Connected to Postgres DB :)")

  //4) Enable uuid-ossp Extension
  log.Debug("Attempting to enable uuid-ossp extension now...")
  if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
    log.Error("Failed to enable uuid-ossp extension :(", "error", err)
    return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
  }
  log.Info("uuid-ossp extension enabled or already exists :)")

  return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Starting AutoMigrateAll for all GORM models now...")

  err := s.db.AutoMigrate(
    &types.User{},
    &types.Profile{},
    &types.UserToken{},
    &types.Verification{},
    &types.Moment{},
    &types.MomentWith{},
    &types.Location{},
    &types.Attachment{},
    &types.Comment{},
    &types.CommentTree{},
    &types.Reaction{},
    &types.Tag{},
    &types.TaggedItem{},
  )
  if err != nil {
    s.log.Error("AutoMigrateAll failed for Base Tables :(", "error", err)
    return err
  }
  s.log.Info("AutoMigrateAll completed successfully for Base Tables :)")

  s.log.Info("Configuring Foreign Key Relationships for Base Tables now...")
  // -- Profile.user_id => user.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "profile"
      ADD CONSTRAINT "fk_profile_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_profile_user_id: %w", err)
  }
  // -- UserToken.user_id => user.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "user_token"
      ADD CONSTRAINT "fk_user_token_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_user_token_user_id: %w", err)
  }
  // -- Verification.target_id => user.id (ON DELETE CASCADE)
  //    target_id is nullable so anonymous verifications survive without a user row.
  if err := s.db.Exec(`
      ALTER TABLE "verification"
      ADD CONSTRAINT "fk_verification_target_id"
      FOREIGN KEY ("target_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_verification_target_id: %w", err)
  }
  // -- Moment.user_id => user.id (ON DELETE SET NULL)
  if err := s.db.Exec(`
      ALTER TABLE "moment"
      ADD CONSTRAINT "fk_moment_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE SET NULL
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_moment_user_id: %w", err)
  }
  // -- MomentWith.moment_id => moment.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "moment_with"
      ADD CONSTRAINT "fk_moment_with_moment_id"
      FOREIGN KEY ("moment_id")
      REFERENCES "moment"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_moment_with_moment_id: %w", err)
  }
  // -- MomentWith.user_id => user.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "moment_with"
      ADD CONSTRAINT "fk_moment_with_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_moment_with_user_id: %w", err)
  }
  // -- Comment.user_id => user.id (ON DELETE SET NULL)
  if err := s.db.Exec(`
      ALTER TABLE "comment"
      ADD CONSTRAINT "fk_comment_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE SET NULL
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_comment_user_id: %w", err)
  }
  // -- CommentTree.parent_id / child_id => comment.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "comment_tree"
      ADD CONSTRAINT "fk_comment_tree_parent_id"
      FOREIGN KEY ("parent_id")
      REFERENCES "comment"("id")
      ON DELETE CASCADE,
      ADD CONSTRAINT "fk_comment_tree_child_id"
      FOREIGN KEY ("child_id")
      REFERENCES "comment"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk constraints to comment_tree: %w", err)
  }
  // -- Reaction.user_id => user.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "reaction"
      ADD CONSTRAINT "fk_reaction_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_reaction_user_id: %w", err)
  }
  // -- TaggedItem.tag_id => tag.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "tagged_item"
      ADD CONSTRAINT "fk_tagged_item_tag_id"
      FOREIGN KEY ("tag_id")
      REFERENCES "tag"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_tagged_item_tag_id: %w", err)
  }
  s.log.Info("Successfully Added Foreign Key Relationships to Base Tables :)")

  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
