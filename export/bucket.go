package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"gazo/config"
	"gazo/parser"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrBucketNotConfigured is returned when the S3 settings lack an endpoint or bucket
var ErrBucketNotConfigured = errors.New("bucket export is not configured")

// BucketUploader puts processed images into an S3 compatible bucket (MinIO, AWS, R2 ...)
type BucketUploader struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewBucketUploader(s config.S3Settings) (*BucketUploader, error) {
	if !s.Configured() {
		return nil, ErrBucketNotConfigured
	}

	endpoint := strings.TrimSpace(s.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	endpoint = strings.TrimRight(endpoint, "/")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
		Secure: s.UseSSL,
		// a fixed region skips the bucket location lookup
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket client: %w", err)
	}

	return &BucketUploader{
		client: client,
		bucket: strings.TrimSpace(s.Bucket),
		prefix: strings.Trim(s.Prefix, "/"),
	}, nil
}

// ObjectKey returns the key an image is stored under
func (u *BucketUploader) ObjectKey(folder string, img *parser.ProcessedImage) string {
	parts := []string{}
	if u.prefix != "" {
		parts = append(parts, u.prefix)
	}
	if folder != "" {
		parts = append(parts, parser.SanitizeFileName(folder))
	}
	parts = append(parts, img.FileName())
	return path.Join(parts...)
}

// Upload stores every image under <prefix>/<folder>/image_N.jpg and returns the keys
func (u *BucketUploader) Upload(ctx context.Context, folder string, images []*parser.ProcessedImage) ([]string, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	keys := make([]string, 0, len(images))
	for _, img := range images {
		if img == nil || len(img.JPEG) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return keys, err
		}

		key := u.ObjectKey(folder, img)
		_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(img.JPEG), int64(len(img.JPEG)), minio.PutObjectOptions{
			ContentType: "image/jpeg",
			UserMetadata: map[string]string{
				"source-url": img.SourceURL,
			},
		})
		if err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", key, err)
		}
		keys = append(keys, key)
	}

	log.Printf("[Export] Uploaded %d images to bucket %s", len(keys), u.bucket)
	return keys, nil
}
