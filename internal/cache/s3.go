package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the connection settings for an S3-compatible snapshot store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// Validate checks that every required connection field is present.
func (c S3Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	return nil
}

// S3Store keeps snapshots as objects named sha256/<key>.tar.gz in a single
// bucket. An S3 PUT only becomes visible once the whole object is written,
// which gives the same atomic-publish guarantee as LocalStore's rename.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store connects to the configured endpoint and ensures the bucket
// exists.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to cache store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking cache bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("creating cache bucket: %w", err)
		}
	}
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func objectName(key Key) string {
	return "sha256/" + string(key) + ".tar.gz"
}

// Lookup reports whether an object for key exists in the bucket.
func (s *S3Store) Lookup(ctx context.Context, key Key) (*Entry, bool, error) {
	info, err := s.client.StatObject(ctx, s.bucket, objectName(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache lookup for %s: %w", key, err)
	}
	return &Entry{Key: key, Size: info.Size, CreatedAt: info.LastModified}, true, nil
}

// Materialize streams the stored object for key and unpacks it into destDir.
func (s *S3Store) Materialize(ctx context.Context, key Key, destDir string) error {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("fetching snapshot for %s: %w", key, err)
	}
	defer obj.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating restore directory: %w", err)
	}
	if err := Unpack(obj, destDir); err != nil {
		return &CorruptionError{Key: key, Err: err}
	}
	return nil
}

// Store packs srcDir into a staging file and uploads it under key.
func (s *S3Store) Store(ctx context.Context, key Key, srcDir string) (*Entry, error) {
	tmp, err := os.CreateTemp("", "gridci-snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Pack(srcDir, tmp); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("packing snapshot for %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing staging file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := s.client.FPutObject(ctx, s.bucket, objectName(key), tmp.Name(), minio.PutObjectOptions{
		ContentType: "application/gzip",
	})
	if err != nil {
		return nil, fmt.Errorf("publishing snapshot for %s: %w", key, err)
	}
	return &Entry{Key: key, Size: info.Size, CreatedAt: info.LastModified}, nil
}
