// Package storage uploads post images to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"socialgraph/internal/identity"
	"socialgraph/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectPutter is the part of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImageStore validates images and stores them under a per-user prefix. The
// returned URL is what posts carry as their image reference.
type ImageStore struct {
	client   ObjectPutter
	bucket   string
	region   string
	endpoint string
	maxBytes int64
}

// Options configures an ImageStore.
type Options struct {
	Bucket      string
	Region      string
	Endpoint    string // S3-compatible endpoint; empty means AWS
	MaxUploadMB int
}

// NewImageStore wraps an existing client.
func NewImageStore(client ObjectPutter, opts Options) *ImageStore {
	return &ImageStore{
		client:   client,
		bucket:   opts.Bucket,
		region:   opts.Region,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		maxBytes: int64(opts.MaxUploadMB) * 1024 * 1024,
	}
}

// NewS3ImageStore builds an S3 client from the default credential chain.
func NewS3ImageStore(ctx context.Context, opts Options) (*ImageStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewImageStore(client, opts), nil
}

// Upload stores content for the actor and returns its public URL.
func (s *ImageStore) Upload(ctx context.Context, actor identity.Actor, filename string, content []byte) (string, error) {
	userID, ok := actor.ID()
	if !ok {
		return "", models.NewUnauthenticatedError()
	}
	if s == nil || s.bucket == "" {
		return "", models.NewStoreError("Image uploads are not configured", nil)
	}
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	contentType := http.DetectContentType(content)
	ext, allowed := allowedImageTypes[contentType]
	if !allowed {
		return "", models.NewValidationError("Invalid image type")
	}
	if e := strings.ToLower(path.Ext(filename)); e == ".jpeg" && ext == ".jpg" {
		ext = e
	}

	key := fmt.Sprintf("posts/%s/%s%s", userID, uuid.NewString(), ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", models.NewStoreError("Failed to upload image", err)
	}
	return s.URL(key), nil
}

// URL returns the public URL of key.
func (s *ImageStore) URL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
