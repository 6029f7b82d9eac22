package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"

	"catenrich/internal/config"
	"catenrich/internal/models"
)

// S3Service reads and writes JSON documents in S3-compatible storage.
type S3Service struct {
	client *minio.Client
}

// NewS3Service connects to the MinIO endpoint described by cfg.
func NewS3Service(cfg config.MinioConfig) (*S3Service, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("missing one or more required settings: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	log.WithField("endpoint", cfg.Endpoint).Info("Connected to MinIO")
	return &S3Service{client: minioClient}, nil
}

// EnsureBucket creates bucket if it does not exist yet.
func (s *S3Service) EnsureBucket(ctx context.Context, bucket, location string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	log.WithField("bucket", bucket).Info("Created bucket")
	return nil
}

// GetDocument loads and decodes the JSON object at bucket/key.
func (s *S3Service) GetDocument(ctx context.Context, bucket, key string) (*models.Document, error) {
	object, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer object.Close()

	var doc models.Document
	if err := json.NewDecoder(object).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON document %s/%s: %w", bucket, key, err)
	}

	log.WithFields(log.Fields{"bucket": bucket, "key": key}).Debug("Retrieved document")
	return &doc, nil
}

// PutDocument stores doc as JSON at bucket/key, replacing any existing
// object.
func (s *S3Service) PutDocument(ctx context.Context, bucket, key string, doc *models.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document to JSON: %w", err)
	}

	_, err = s.client.PutObject(
		ctx,
		bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("failed to store object in S3: %w", err)
	}

	log.WithFields(log.Fields{"bucket": bucket, "key": key}).Debug("Stored document")
	return nil
}
