package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appconfig "github.com/baechuer/summons/internal/config"
)

// allowed image types and the extension stored with them
var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// UnsupportedTypeError is returned for content types outside imageExt.
type UnsupportedTypeError struct{ ContentType string }

func (e UnsupportedTypeError) Error() string {
	return "unsupported image type: " + e.ContentType
}

// S3Client stores event cover images in S3, MinIO or R2.
type S3Client struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	log           zerolog.Logger
}

func NewS3Client(cfg *appconfig.Config, log zerolog.Logger) (*S3Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.S3Region),
	}
	if cfg.S3Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3Endpoint,
				HostnameImmutable: true,
			}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &S3Client{
		client:        client,
		bucket:        cfg.S3Bucket,
		publicBaseURL: publicBase(cfg),
		log:           log.With().Str("component", "s3").Logger(),
	}, nil
}

func publicBase(cfg *appconfig.Config) string {
	if cfg.S3PublicBaseURL != "" {
		return strings.TrimRight(cfg.S3PublicBaseURL, "/")
	}
	if cfg.S3Endpoint != "" {
		return strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
}

// ObjectKey names a new image object for an event.
func ObjectKey(eventID uuid.UUID, contentType string) (string, error) {
	ext, ok := imageExt[normaliseType(contentType)]
	if !ok {
		return "", UnsupportedTypeError{ContentType: contentType}
	}
	return fmt.Sprintf("events/%s/%s%s", eventID, uuid.NewString(), ext), nil
}

func normaliseType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// UploadEventImage stores the image and returns its public URL.
func (c *S3Client) UploadEventImage(ctx context.Context, eventID uuid.UUID, data io.Reader, contentType string, size int64) (string, error) {
	key, err := ObjectKey(eventID, contentType)
	if err != nil {
		return "", err
	}
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          data,
		ContentType:   aws.String(normaliseType(contentType)),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}
	c.log.Debug().Str("key", key).Int64("size", size).Msg("event image stored")
	return c.PublicURL(key), nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err == nil {
		return nil
	}
	c.log.Info().Str("bucket", c.bucket).Msg("creating bucket")
	if _, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}
	return nil
}

func (c *S3Client) PublicURL(objectKey string) string {
	return c.publicBaseURL + "/" + objectKey
}
