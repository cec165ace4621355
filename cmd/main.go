package main

import (
  "fmt"
  "os"
  "time"

  "github.com/redis/go-redis/v9"

  "github.com/snapmoment/snapmoment-backend/internal/db"
  "github.com/snapmoment/snapmoment-backend/internal/handlers"
  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/middleware"
  "github.com/snapmoment/snapmoment-backend/internal/repos"
  "github.com/snapmoment/snapmoment-backend/internal/server"
  "github.com/snapmoment/snapmoment-backend/internal/services"
  "github.com/snapmoment/snapmoment-backend/internal/socket"
  "github.com/snapmoment/snapmoment-backend/internal/utils"
)

func main() {
  // Logger Setup
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Environment Variables
  log.Info("Attempting to load environment variables for Main now...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  verificationValidity := utils.GetEnvAsInt("VERIFICATION_VALIDITY_SECONDS", 7200, log)
  verificationRequired := utils.GetEnvAsBool("VERIFICATION_REQUIRED", true, log)
  defaultRegion := utils.GetEnv("DEFAULT_REGION", "ID", log)
  countryCode := utils.GetEnv("COUNTRY_CODE", "62", log)
  dispatchAsync := utils.GetEnvAsBool("DISPATCH_ASYNC", true, log)
  dispatchLogoURL := utils.GetEnv("DISPATCH_LOGO_URL", "", log)
  rateLimitCount := utils.GetEnvAsInt("RATE_LIMIT_COUNT", 10, log)
  rateLimitWindow := utils.GetEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60, log)
  log.Debug("Environment variables loaded for Main :)",
    "accessTokenTTL", accessTokenTTL,
    "refreshTokenTTL", refreshTokenTTL,
    "verificationValidity", verificationValidity,
    "verificationRequired", verificationRequired,
    "defaultRegion", defaultRegion,
    "countryCode", countryCode,
    "dispatchAsync", dispatchAsync,
  )

  // Postgres Setup
  log.Info("Setting Up Postgres from Main now...")
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Fatal error: Cannot init Postgres", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()
  log.Info("Postgres Setup From Main Successful :)")

  // Redis Setup
  log.Info("Setting Up Redis from Main now...")
  redisService, err := db.NewRedisService(log)
  if err != nil {
    log.Warn("Redis init failed, pubsub and rate limiting degrade", "error", err)
  }
  log.Info("Redis Setup From Main Successful :)")

  // Repositories Setup
  log.Info("Setting Up Repositories from Main now...")
  userRepo := repos.NewUserRepo(thePG, log)
  profileRepo := repos.NewProfileRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  verificationRepo := repos.NewVerificationRepo(thePG, log)
  momentRepo := repos.NewMomentRepo(thePG, log)
  locationRepo := repos.NewLocationRepo(thePG, log)
  commentRepo := repos.NewCommentRepo(thePG, log)
  reactionRepo := repos.NewReactionRepo(thePG, log)
  tagRepo := repos.NewTagRepo(thePG, log)
  attachmentRepo := repos.NewAttachmentRepo(thePG, log)
  log.Info("Repositories Set Up From Main Successful :)")

  // Websocket Setup
  log.Info("Setting Up Websocket Hub From Main Now :)")
  wsHub := socket.NewHub(log)
  log.Info("Websocket Hub Set Up From Main Successful :)")

  // Redis PubSub
  if redisService != nil {
    log.Info("Setting Up Redis PubSub From Main Now :)")
    redisChanName := "snapmoment_hub_broadcast"
    redisPubSub, rpErr := socket.NewRedisPubSub(log, redisService.Client(), redisChanName)
    if rpErr != nil {
      log.Warn("Failed to init redis pubsub", "error", rpErr)
    } else {
      if err := redisPubSub.StartSubscriber(wsHub); err != nil {
        log.Warn("Failed to subscribe to Redis pub/sub", "error", err)
      } else {
        wsHub.SetRedisPubSub(redisPubSub)
        defer redisPubSub.Stop()
        log.Info("Redis pubsub is active!")
      }
    }
  }

  // Services Setup
  log.Info("Setting up Services from Main now...")
  emailService, err := services.NewEmailService(log)
  if err != nil {
    log.Warn("Could not init EmailService", "error", err)
  }
  textService, err := services.NewTextService(log)
  if err != nil {
    log.Warn("Could not init TextService", "error", err)
  }
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Warn("Could not init BucketService", "error", err)
  }
  avatarService, err := services.NewAvatarService(thePG, log, bucketService)
  if err != nil {
    log.Warn("Could not init AvatarService", "error", err)
  }
  dispatchService := services.NewDispatchService(log, emailService, textService, services.DispatchConfig{
    Async:   dispatchAsync,
    LogoURL: dispatchLogoURL,
  })
  verificationService := services.NewVerificationService(thePG, log, verificationRepo, userRepo, dispatchService, services.VerificationConfig{
    ValidityWindow:       time.Duration(verificationValidity) * time.Second,
    DefaultRegion:        defaultRegion,
    CountryCode:          countryCode,
    VerificationRequired: verificationRequired,
  })
  authService := services.NewAuthService(thePG, log, userRepo, profileRepo, userTokenRepo, verificationService, dispatchService, avatarService, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  meService := services.NewMeService(thePG, log, userRepo, profileRepo)
  momentService := services.NewMomentService(thePG, log, momentRepo, locationRepo, tagRepo, wsHub)
  commentService := services.NewCommentService(thePG, log, commentRepo, wsHub)
  reactionService := services.NewReactionService(thePG, log, reactionRepo, wsHub)
  attachmentService := services.NewAttachmentService(thePG, log, attachmentRepo, tagRepo, bucketService)
  log.Info("Services Set Up From Main Successful :)")

  // Handler Setup
  log.Info("Setting Up Handlers from Main now...")
  authHandler := handlers.NewAuthHandler(authService)
  verificationHandler := handlers.NewVerificationHandler(verificationService)
  meHandler := handlers.NewMeHandler(meService)
  momentHandler := handlers.NewMomentHandler(momentService)
  commentHandler := handlers.NewCommentHandler(commentService)
  reactionHandler := handlers.NewReactionHandler(reactionService)
  attachmentHandler := handlers.NewAttachmentHandler(attachmentService)
  wsHandler := handlers.WsHandler(wsHub, log)
  log.Info("Handlers Set Up From Main Successful :)")

  // MiddleWare Setup
  log.Info("Setting Up Middleware from Main now...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)
  var redisClient *redis.Client
  if redisService != nil {
    redisClient = redisService.Client()
  }
  rateLimit := middleware.NewRateLimitMiddleware(log, redisClient, rateLimitCount, time.Duration(rateLimitWindow)*time.Second)
  log.Info("Middleware Set Up From Main Successful :)")

  // Router Setup
  log.Info("Setting Up Router from Main now...")
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:         authHandler,
    VerificationHandler: verificationHandler,
    MeHandler:           meHandler,
    MomentHandler:       momentHandler,
    CommentHandler:      commentHandler,
    ReactionHandler:     reactionHandler,
    AttachmentHandler:   attachmentHandler,
    WsHandler:           wsHandler,
    AuthMiddleware:      authMiddleware,
    RateLimit:           rateLimit,
  })
  log.Info("Router Set Up From Main Successful :)")

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
