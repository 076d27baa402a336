package publish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/geofeed/internal/config"
)

type fakeObjectAPI struct {
	mu       sync.Mutex
	failPuts int
	puts     int
	objects  map[string][]byte
	inputs   []*s3.PutObjectInput
	sizeSkew int64
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.puts <= f.failPuts {
		return nil, errors.New("service unavailable")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[*in.Key] = body
	f.inputs = append(f.inputs, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, errors.New("not found")
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(body)) + f.sizeSkew)}, nil
}

func newTestPublisher(t *testing.T, api ObjectAPI, pc config.PublishConfig) *Publisher {
	t.Helper()
	p, err := New(&Config{
		Logger:      slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelError})),
		Clock:       clockwork.NewFakeClockAt(time.Date(2025, 11, 5, 12, 30, 45, 0, time.UTC)),
		Client:      api,
		Publish:     pc,
		MaxAttempts: 3,
		BackOff:     &backoff.ZeroBackOff{},
	})
	require.NoError(t, err)
	return p
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geofeed.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPublish_Upload(t *testing.T) {
	t.Parallel()

	api := &fakeObjectAPI{}
	p := newTestPublisher(t, api, config.PublishConfig{
		Region:           "eu-west-1",
		Bucket:           "feeds",
		KeyPrefix:        aws.String("dn42/"),
		TimestampFormat:  "iso8601",
		EnableEncryption: true,
		VerifyUpload:     true,
	})

	url, err := p.Upload(t.Context(), writeFile(t, "172.20.0.0/24,EX,,,AS4242420000,EXAMPLE-NET\n"))
	require.NoError(t, err)
	require.Equal(t, "https://feeds.s3.eu-west-1.amazonaws.com/dn42/2025-11-05T12-30-45Z_geofeed.csv", url)

	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	require.Equal(t, types.ServerSideEncryptionAes256, in.ServerSideEncryption)
	require.Equal(t, computeMD5(api.objects[*in.Key]), *in.ContentMD5)
}

func TestPublish_Upload_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	api := &fakeObjectAPI{failPuts: 2}
	endpoint := "http://localhost:9000"
	p := newTestPublisher(t, api, config.PublishConfig{
		Bucket:          "feeds",
		EndpointURL:     &endpoint,
		TimestampFormat: "none",
	})

	url, err := p.Upload(t.Context(), writeFile(t, "data"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/feeds/geofeed.csv", url)
	require.Equal(t, 3, api.puts)
	require.Empty(t, api.inputs[0].ServerSideEncryption)
}

func TestPublish_Upload_GivesUp(t *testing.T) {
	t.Parallel()

	api := &fakeObjectAPI{failPuts: 10}
	p := newTestPublisher(t, api, config.PublishConfig{Bucket: "feeds"})

	_, err := p.Upload(t.Context(), writeFile(t, "data"))
	require.ErrorContains(t, err, "S3 upload failed after 3 attempts")
	require.Equal(t, 3, api.puts)
}

func TestPublish_Upload_VerifySizeMismatch(t *testing.T) {
	t.Parallel()

	api := &fakeObjectAPI{sizeSkew: 1}
	p := newTestPublisher(t, api, config.PublishConfig{Bucket: "feeds", VerifyUpload: true})

	_, err := p.Upload(t.Context(), writeFile(t, "data"))
	require.ErrorContains(t, err, "size mismatch")
}

func TestPublish_Upload_MissingFile(t *testing.T) {
	t.Parallel()

	p := newTestPublisher(t, &fakeObjectAPI{}, config.PublishConfig{Bucket: "feeds"})
	_, err := p.Upload(t.Context(), filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorContains(t, err, "failed to read file")
}

func TestPublish_New_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(&Config{})
	require.ErrorContains(t, err, "logger is required")

	_, err = New(&Config{Logger: slog.Default(), Client: &fakeObjectAPI{}})
	require.ErrorContains(t, err, "bucket is required")
}

func TestPublish_ComputeMD5(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1B2M2Y8AsgTpgAmY7PhCfg==", computeMD5([]byte{}))
	require.Equal(t, "XrY7u+Ae7tCTyyK7j1rNww==", computeMD5([]byte("hello world")))
}
