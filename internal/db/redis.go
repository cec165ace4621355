package db

import (
  "context"
  "fmt"
  "time"

  "github.com/redis/go-redis/v9"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/utils"
)

type RedisService struct {
  client *redis.Client
  log    *logger.Logger
}

func NewRedisService(log *logger.Logger) (*RedisService, error) {
  serviceLog := log.With("service", "RedisService")

  //1) Get and Set Environment Variables
  log.Info("Attempting to load environment variables for Redis now...")
  redisAddress := utils.GetEnv("REDIS_ADDRESS", "localhost:6379", log)
  redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
  redisDB := utils.GetEnvAsInt("REDIS_DB", 0, log)
  log.Info("Environment variables loaded for Redis :)")

  //2) Attempt Redis Connection
  log.Info("Attempting to connect to Redis now...")
  client := redis.NewClient(&redis.Options{
    Addr:     redisAddress,
    Password: redisPassword,
    DB:       redisDB,
  })
  ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
  defer cancel()
  if err := client.Ping(ctx).Err(); err != nil {
    log.Error("Failed to connect to Redis", "error", err)
    return nil, fmt.Errorf("failed to connect to redis: %w", err)
  }
  log.Info("Successfully Connected to Redis :)")

  return &RedisService{client: client, log: serviceLog}, nil
}

func (s *RedisService) Client() *redis.Client {
  return s.client
}
