package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/snapmoment/snapmoment-backend/internal/handlers"
  "github.com/snapmoment/snapmoment-backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler         *handlers.AuthHandler
  VerificationHandler *handlers.VerificationHandler
  MeHandler           *handlers.MeHandler
  MomentHandler       *handlers.MomentHandler
  CommentHandler      *handlers.CommentHandler
  ReactionHandler     *handlers.ReactionHandler
  AttachmentHandler   *handlers.AttachmentHandler
  WsHandler           gin.HandlerFunc
  AuthMiddleware      *middleware.AuthMiddleware
  RateLimit           *middleware.RateLimitMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  //-----------------------------------------
  // Cors Setup
  //-----------------------------------------
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:3000",
      "https://snapmoment.app",
      "https://www.snapmoment.app",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  //-----------------------------------------
  // Health Routes
  //-----------------------------------------
  router.GET("/healthz", handlers.Healthz)

  //-----------------------------------------
  // Public Routes
  //-----------------------------------------
  api := router.Group("/api")
  api.Use(cfg.AuthMiddleware.RequestMeta())
  {
    api.POST("/register", cfg.AuthHandler.Register)
    api.POST("/login", cfg.AuthHandler.Login)
    api.POST("/signup/confirm", cfg.AuthHandler.ConfirmSignup)
    api.POST("/password-reset", cfg.RateLimit.Limit("password_reset"), cfg.AuthHandler.RequestPasswordReset)
    api.POST("/password-reset/confirm", cfg.AuthHandler.ConfirmPasswordReset)

    // Verification records are generated and validated without a session.
    // The rate limiter keeps anonymous generation from being abused.
    api.POST("/verifications", cfg.RateLimit.Limit("verification"), cfg.VerificationHandler.Generate)
    api.PATCH("/verifications", cfg.VerificationHandler.Validate)
  }

  //------------------------------------------
  // Optionally Authenticated Routes
  //------------------------------------------
  open := api.Group("/")
  open.Use(cfg.AuthMiddleware.OptionalAuth())
  {
    open.POST("/moments", cfg.MomentHandler.Create)
    open.GET("/moments", cfg.MomentHandler.List)
    open.GET("/moments/:id", cfg.MomentHandler.Get)
    open.PATCH("/moments/:id", cfg.MomentHandler.Update)
    open.DELETE("/moments/:id", cfg.MomentHandler.Delete)
    open.GET("/tags/:slug/moments", cfg.MomentHandler.ListByTag)

    open.POST("/comments", cfg.CommentHandler.Create)
    open.GET("/entities/:kind/:entityID/comments", cfg.CommentHandler.ListTree)
    open.DELETE("/comments/:id", cfg.CommentHandler.Delete)

    open.GET("/entities/:kind/:entityID/reactions", cfg.ReactionHandler.Counts)
    open.GET("/entities/:kind/:entityID/attachments", cfg.AttachmentHandler.GetForEntity)
  }

  //------------------------------------------
  // Protected Routes
  //------------------------------------------
  protected := api.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  protected.GET("/ws", cfg.WsHandler)

  //ME
  protected.GET("/me", cfg.MeHandler.GetMe)
  protected.PATCH("/me/profile", cfg.MeHandler.UpdateMyProfile)
  protected.GET("/me/moments", cfg.MomentHandler.ListMine)
  protected.POST("/me/password", cfg.AuthHandler.ChangePassword)

  //Reactions
  protected.POST("/reactions", cfg.ReactionHandler.Toggle)

  //Attachments
  protected.POST("/entities/:kind/:entityID/attachments", cfg.AttachmentHandler.Upload)
  protected.DELETE("/attachments/:id", cfg.AttachmentHandler.Delete)

  return router
}
