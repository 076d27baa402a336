package publish

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/geofeed/internal/config"
)

const defaultMaxAttempts = 3

// ObjectAPI is the subset of the S3 client used for publishing.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type Config struct {
	Logger  *slog.Logger
	Clock   clockwork.Clock
	Client  ObjectAPI
	Publish config.PublishConfig

	MaxAttempts uint
	BackOff     backoff.BackOff
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Client == nil {
		return errors.New("client is required")
	}
	if c.Publish.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BackOff == nil {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = time.Second
		bo.MaxInterval = 30 * time.Second
		c.BackOff = bo
	}
	return nil
}

// Publisher uploads generated tables to an S3 compatible bucket.
type Publisher struct {
	log *slog.Logger
	cfg *Config
}

func New(cfg *Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	return &Publisher{log: cfg.Logger, cfg: cfg}, nil
}

// NewClient builds an S3 client from static credentials, honouring a custom endpoint for MinIO
// and similar services.
func NewClient(ctx context.Context, log *slog.Logger, cfg config.PublishConfig) (*s3.Client, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.EndpointURL != nil && *cfg.EndpointURL != "" {
		log.Info("Using custom S3 endpoint", "endpoint", *cfg.EndpointURL)
		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = cfg.EndpointURL
			o.UsePathStyle = true
		}), nil
	}
	return s3.NewFromConfig(awsCfg), nil
}

// Upload publishes the file at filePath and returns its URL.
func (p *Publisher) Upload(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	key, err := ObjectKey(filePath, p.cfg.Publish.KeyPrefix, config.ParseTimestampFormat(p.cfg.Publish.TimestampFormat), p.cfg.Clock.Now())
	if err != nil {
		return "", err
	}

	contentMD5 := computeMD5(data)
	p.log.Debug("Uploading file", "path", filePath, "key", key, "bytes", len(data), "md5", contentMD5)

	if err := p.put(ctx, key, data, contentMD5); err != nil {
		return "", err
	}

	if p.cfg.Publish.VerifyUpload {
		if err := p.verify(ctx, key, int64(len(data))); err != nil {
			return "", fmt.Errorf("upload verification failed: %w", err)
		}
	}

	url := p.objectURL(key)
	p.log.Info("Published file", "path", filePath, "url", url)
	return url, nil
}

func (p *Publisher) put(ctx context.Context, key string, data []byte, contentMD5 string) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		input := &s3.PutObjectInput{
			Bucket:     &p.cfg.Publish.Bucket,
			Key:        &key,
			Body:       bytes.NewReader(data),
			ContentMD5: &contentMD5,
		}
		if p.cfg.Publish.EnableEncryption {
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		}
		if _, err := p.cfg.Client.PutObject(ctx, input); err != nil {
			p.log.Warn("S3 upload failed", "key", key, "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(p.cfg.BackOff), backoff.WithMaxTries(p.cfg.MaxAttempts))
	if err != nil {
		return fmt.Errorf("S3 upload failed after %d attempts: %w", attempt, err)
	}
	return nil
}

// verify checks that the uploaded object exists and has the expected size.
func (p *Publisher) verify(ctx context.Context, key string, expectedSize int64) error {
	result, err := p.cfg.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &p.cfg.Publish.Bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to verify uploaded file: %w", err)
	}
	if result.ContentLength == nil {
		return fmt.Errorf("missing content length for %s", key)
	}
	if actual := *result.ContentLength; actual != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d bytes", expectedSize, actual)
	}
	return nil
}

func (p *Publisher) objectURL(key string) string {
	pc := p.cfg.Publish
	if pc.EndpointURL != nil && *pc.EndpointURL != "" {
		return fmt.Sprintf("%s/%s/%s", *pc.EndpointURL, pc.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", pc.Bucket, pc.Region, key)
}

// computeMD5 computes the base64-encoded MD5 hash of the data.
func computeMD5(data []byte) string {
	hash := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(hash[:])
}
