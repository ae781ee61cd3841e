package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	PrefixJobImages   = "job-images"
	PrefixPressImages = "press-images"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type Config struct {
	Endpoint      string
	Access        string
	Secret        string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// Uploader stores an image and returns the URL clients should load it from.
// Remove deletes an image by that URL; URLs that did not come from Upload
// are left alone.
type Uploader interface {
	Upload(ctx context.Context, prefix, filename, contentType string, r io.Reader, size int64) (string, error)
	Remove(ctx context.Context, url string) error
}

type Client struct {
	minio   *minio.Client
	bucket  string
	baseURL string
	now     func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Access, cfg.Secret, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Client{
		minio:   mc,
		bucket:  cfg.Bucket,
		baseURL: base,
		now:     time.Now,
	}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minio.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.minio.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, checkErr := c.minio.BucketExists(ctx, c.bucket)
		if checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) Upload(ctx context.Context, prefix, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := ObjectKey(prefix, filename, c.now())
	_, err := c.minio.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return c.baseURL + "/" + key, nil
}

func (c *Client) Remove(ctx context.Context, url string) error {
	key, ok := c.KeyFromURL(url)
	if !ok {
		return nil
	}
	return c.RemoveObject(ctx, key)
}

// KeyFromURL returns the object key for a URL built by Upload.
func (c *Client) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, c.baseURL+"/")
	if !ok || key == "" {
		return "", false
	}
	if !strings.HasPrefix(key, PrefixJobImages+"/") && !strings.HasPrefix(key, PrefixPressImages+"/") {
		return "", false
	}
	return key, true
}

func (c *Client) RemoveObject(ctx context.Context, key string) error {
	if err := c.minio.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// ObjectKey builds "<prefix>/<unix millis>-<name>" with the name reduced to
// characters that are safe in a URL path.
func ObjectKey(prefix, filename string, at time.Time) string {
	name := unsafeName.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s/%d-%s", prefix, at.UnixMilli(), name)
}
