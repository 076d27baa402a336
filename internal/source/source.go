package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/klauspost/compress/gzip"
)

const (
	defaultTimeout     = 2 * time.Minute
	defaultKeepAlive   = 30 * time.Second
	defaultMaxAttempts = 5
)

type Config struct {
	Logger *slog.Logger

	// HTTPClient is used for http(s) locations. A gzip-aware client is created when nil.
	HTTPClient *http.Client
	// MaxAttempts bounds the number of tries for a remote location.
	MaxAttempts uint
	// BackOff overrides the retry schedule for remote locations.
	BackOff backoff.BackOff
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTP()
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return nil
}

// Opener opens reference inputs from the local filesystem or over HTTP.
type Opener struct {
	log *slog.Logger
	cfg Config
}

func NewOpener(cfg Config) (*Opener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Opener{log: cfg.Logger, cfg: cfg}, nil
}

// Open returns a reader for location. http:// and https:// locations are downloaded with retries,
// anything else is treated as a file path. Locations ending in .gz are decompressed.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if isRemote(location) {
		rc, err = o.fetch(ctx, location)
	} else {
		rc, err = os.Open(location)
	}
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(strings.ToLower(trimQuery(location)), ".gz") {
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", location, err)
		}
		return &gzipReadCloser{Reader: zr, underlying: rc}, nil
	}

	return rc, nil
}

func (o *Opener) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	bo := o.cfg.BackOff
	if bo == nil {
		bo = backoff.NewExponentialBackOff()
	}

	attempt := 0
	body, err := backoff.Retry(ctx, func() (io.ReadCloser, error) {
		attempt++
		if attempt > 1 {
			o.log.Warn("Retrying reference download", slog.String("url", url), slog.Int("attempt", attempt))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		resp, err := o.cfg.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		statusErr := fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(o.cfg.MaxAttempts))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}

	o.log.Debug("Downloaded reference source", slog.String("url", url), slog.Int("attempts", attempt))
	return body, nil
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func trimQuery(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 && isRemote(location) {
		return location[:i]
	}
	return location
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.underlying.Close(); err != nil {
		return err
	}
	return zerr
}

func newHTTP() *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultTimeout,
			KeepAlive: defaultKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		IdleConnTimeout:     defaultTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Timeout:   defaultTimeout,
		Transport: gzhttp.Transport(tr),
	}
}
