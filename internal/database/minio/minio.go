package minio

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/SamyaDeb/FarmerShield/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient wraps the MinIO client with claim evidence specific functionality
type MinioClient struct {
	client *minio.Client
	config config.MinioConfig
}

// NewMinioClient initializes a new MinIO client with the provided configuration
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	endpoint := strings.TrimPrefix(cfg.MinioURL, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	isSecure, err := strconv.ParseBool(cfg.MinioSecure)
	if err != nil {
		log.Printf("Invalid value for MinIO secure flag: %v. Defaulting to false.", err)
		isSecure = false
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: isSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err = minioClient.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}

	mc := &MinioClient{
		client: minioClient,
		config: cfg,
	}

	if err := mc.ensureBucket(ctx, cfg.EvidenceBucket); err != nil {
		return nil, fmt.Errorf("failed to ensure evidence bucket: %w", err)
	}

	log.Printf("MinIO client initialized successfully, evidence bucket %s", cfg.EvidenceBucket)
	return mc, nil
}

func (mc *MinioClient) ensureBucket(ctx context.Context, bucketName string) error {
	exists, err := mc.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucketName, err)
	}

	if !exists {
		err = mc.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{
			Region: mc.config.MinioLocation,
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
		}
		log.Printf("Created MinIO bucket: %s", bucketName)
	}

	return nil
}

// PutEvidenceObject stores a claim evidence document and returns its resource URL.
func (mc *MinioClient) PutEvidenceObject(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := mc.client.PutObject(ctx, mc.config.EvidenceBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to store evidence object %s: %w", objectName, err)
	}

	return mc.config.ResourceBaseURL + mc.config.EvidenceBucket + "/" + objectName, nil
}
