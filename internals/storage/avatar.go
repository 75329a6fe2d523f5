package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrInvalidImage is returned when the submitted avatar payload is not a
// data URL this store can decode.
var ErrInvalidImage = errors.New("invalid image payload")

// Config holds the S3-compatible object store settings. Endpoint and static
// credentials allow pointing at MinIO in development.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL is the base URL objects are served from
	PublicURL string
}

// AvatarStore uploads avatar images to an S3-compatible bucket and returns
// the canonical URL to persist on the user record.
type AvatarStore struct {
	cfg    Config
	client *s3.Client
}

func NewAvatarStore(ctx context.Context, cfg Config) (*AvatarStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &AvatarStore{cfg: cfg, client: client}, nil
}

// storageKey partitions objects by date so buckets stay browsable.
func storageKey(ext string) string {
	d := time.Now()
	return fmt.Sprintf("avatars/%d/%02d/%v%s", d.Year(), d.Month(), uuid.New(), ext)
}

// Upload decodes a base64 data URL (e.g. "data:image/png;base64,....") and
// puts the bytes in the bucket. It returns the canonical public URL.
func (a *AvatarStore) Upload(ctx context.Context, dataURL string) (string, error) {
	contentType, data, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	key := storageKey(extensionFor(contentType))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s", strings.TrimRight(a.cfg.PublicURL, "/"), key), nil
}

// IsDataURL reports whether an avatar payload carries raw image bytes rather
// than a plain URL reference.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

func decodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrInvalidImage
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidImage
	}
	contentType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" || !strings.HasPrefix(contentType, "image/") {
		return "", nil, ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrInvalidImage
	}
	return contentType, data, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
