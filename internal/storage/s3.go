package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// ErrIncompleteS3Config is returned when the S3 configuration is incomplete
var ErrIncompleteS3Config = errors.New("incomplete S3 configuration")

// S3Config holds the connection settings of an S3 compatible bucket
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	KeyID     string
	AccessKey string
	// PublicURL is the externally reachable bucket URL, defaults to Endpoint/Bucket
	PublicURL string
	Timeout   time.Duration
}

// S3Store implements ImageStore using an S3 compatible bucket
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
	timeout   time.Duration
	log       *logrus.Entry
}

// NewS3Store creates a new s3-based image store
func NewS3Store(cfg S3Config, log *logrus.Logger) (*S3Store, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" ||
		strings.TrimSpace(cfg.KeyID) == "" ||
		strings.TrimSpace(cfg.Endpoint) == "" ||
		strings.TrimSpace(cfg.Region) == "" ||
		strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("%w", ErrIncompleteS3Config)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := s3.New(s3.Options{
		UsePathStyle: true,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Region:       cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.KeyID, cfg.AccessKey, ""),
		),
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		timeout:   cfg.Timeout,
		log:       log.WithField("component", "s3_image_store"),
	}, nil
}

// Save uploads the decoded image to the bucket
func (s *S3Store) Save(ctx context.Context, payload string) (string, error) {
	img, err := DecodeImage(payload)
	if err != nil {
		return "", err
	}
	ref := newImageKey(img.Extension)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	uploader := manager.NewUploader(s.client)
	result, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ref),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		var mu manager.MultiUploadFailure
		if errors.As(err, &mu) {
			s.log.WithField("upload_id", mu.UploadID()).WithError(err).Error("multi-upload failure")
			return "", fmt.Errorf("multi-upload failure (upload_id: %s): %w", mu.UploadID(), mu)
		}
		s.log.WithError(err).Error("upload failure")
		return "", fmt.Errorf("upload failure: %w", err)
	}
	s.log.WithField("location", result.Location).Debug("uploaded recipe image")

	return ref, nil
}

// Delete removes the object behind ref
func (s *S3Store) Delete(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return ErrImageNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}); err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("failed to stat image in S3: %w", err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}); err != nil {
		return fmt.Errorf("failed to delete image from S3: %w", err)
	}
	return nil
}

// URL returns the public object URL
func (s *S3Store) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.publicURL + "/" + ref
}
