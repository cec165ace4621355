package services

import (
  "context"
  "fmt"
  "io"
  "os"
  "time"

  "cloud.google.com/go/storage"
  "google.golang.org/api/option"
  "gorm.io/gorm"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
)

type BucketService interface {
  UploadFile(ctx context.Context, tx *gorm.DB, bucketKey string, reader io.Reader) error
  DeleteFile(ctx context.Context, tx *gorm.DB, bucketKey string) error
  GetPublicURL(bucketKey string) string
}

type bucketService struct {
  log        *logger.Logger
  client     *storage.Client
  bucketName string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
  serviceLog := log.With("service", "BucketService")
  bucketName := os.Getenv("GCS_BUCKET_NAME")
  if bucketName == "" {
    return nil, fmt.Errorf("Missing GCS_BUCKET_NAME environment variable")
  }

  var opts []option.ClientOption
  if credsPath := os.Getenv("GCS_CREDENTIALS_FILE"); credsPath != "" {
    opts = append(opts, option.WithCredentialsFile(credsPath))
  }

  ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
  defer cancel()
  client, err := storage.NewClient(ctx, opts...)
  if err != nil {
    return nil, fmt.Errorf("Failed to create GCS client: %w", err)
  }

  return &bucketService{
    log:        serviceLog,
    client:     client,
    bucketName: bucketName,
  }, nil
}

func (bs *bucketService) UploadFile(ctx context.Context, tx *gorm.DB, bucketKey string, reader io.Reader) error {
  bs.log.Info("Starting UploadFile now...", "bucketKey", bucketKey)

  writer := bs.client.Bucket(bs.bucketName).Object(bucketKey).NewWriter(ctx)
  if _, err := io.Copy(writer, reader); err != nil {
    _ = writer.Close()
    bs.log.Warn("Failed to write object to bucket", "bucketKey", bucketKey, "error", err)
    return fmt.Errorf("failed to write object %q: %w", bucketKey, err)
  }
  if err := writer.Close(); err != nil {
    bs.log.Warn("Failed to finalize object write", "bucketKey", bucketKey, "error", err)
    return fmt.Errorf("failed to finalize object %q: %w", bucketKey, err)
  }
  bs.log.Info("Successfully uploaded file to bucket :)", "bucketKey", bucketKey)
  return nil
}

func (bs *bucketService) DeleteFile(ctx context.Context, tx *gorm.DB, bucketKey string) error {
  bs.log.Info("Starting DeleteFile now...", "bucketKey", bucketKey)

  if err := bs.client.Bucket(bs.bucketName).Object(bucketKey).Delete(ctx); err != nil {
    if err == storage.ErrObjectNotExist {
      bs.log.Debug("Object already gone, nothing to delete", "bucketKey", bucketKey)
      return nil
    }
    bs.log.Warn("Failed to delete object from bucket", "bucketKey", bucketKey, "error", err)
    return fmt.Errorf("failed to delete object %q: %w", bucketKey, err)
  }
  bs.log.Info("Successfully deleted file from bucket :)", "bucketKey", bucketKey)
  return nil
}

func (bs *bucketService) GetPublicURL(bucketKey string) string {
  return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, bucketKey)
}
