// Package r2client reads and publishes knowledge data objects in
// Cloudflare R2 (or any S3-compatible bucket). Keys ending in ".zst" are
// zstd-compressed transparently.
package r2client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/klauspost/compress/zstd"
)

// maxObjectBytes caps a decoded knowledge object.
const maxObjectBytes = 16 << 20

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("r2client: object not found")

// Config holds R2 client configuration.
type Config struct {
	Endpoint    string // e.g. https://<account-id>.r2.cloudflarestorage.com
	AccessKeyID string
	SecretKey   string
	BucketName  string

	// HTTPClient overrides the SDK transport; tests only.
	HTTPClient *http.Client
}

// Client provides object storage operations.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New creates a new R2 client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.BucketName == "" {
		return nil, errors.New("r2client: all config fields are required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretKey,
			"",
		)),
		config.WithRegion("auto"),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, config.WithHTTPClient(cfg.HTTPClient))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("r2client: load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Required for R2
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &Client{s3: s3Client, bucket: cfg.BucketName}, nil
}

// Upload uploads an object and returns its ETag.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := c.s3.PutObject(ctx, input)
	if err != nil {
		return "", fmt.Errorf("r2client: upload %q: %w", key, err)
	}
	return trimETag(result.ETag), nil
}

// Download returns the object body and ETag. Caller must close the body.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("r2client: download %q: %w", key, err)
	}
	return result.Body, trimETag(result.ETag), nil
}

// HeadObject returns the ETag of key without downloading it.
func (c *Client) HeadObject(ctx context.Context, key string) (string, error) {
	result, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("r2client: head %q: %w", key, err)
	}
	return trimETag(result.ETag), nil
}

// Fetch downloads key fully, decompressing ".zst" objects, and returns the
// data with its ETag.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	body, etag, err := c.Download(ctx, key)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = body.Close() }()

	var r io.Reader = body
	if IsCompressed(key) {
		dec, err := zstd.NewReader(body)
		if err != nil {
			return nil, "", fmt.Errorf("r2client: zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(io.LimitReader(r, maxObjectBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("r2client: read %q: %w", key, err)
	}
	if len(data) > maxObjectBytes {
		return nil, "", fmt.Errorf("r2client: object %q exceeds %d bytes", key, maxObjectBytes)
	}
	return data, etag, nil
}

// Publish uploads data under key, compressing it for ".zst" keys.
func (c *Client) Publish(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if IsCompressed(key) {
		compressed, err := Compress(data)
		if err != nil {
			return "", err
		}
		data = compressed
		contentType = "application/zstd"
	}
	return c.Upload(ctx, key, bytes.NewReader(data), contentType)
}

// IsCompressed reports whether key names a zstd object.
func IsCompressed(key string) bool {
	return strings.HasSuffix(key, ".zst")
}

// Compress zstd-encodes data.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("r2client: create encoder: %w", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil), nil
}

func trimETag(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, "\"")
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
