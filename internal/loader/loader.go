package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/ctxlog"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8080/"
	// DefaultResource is the configuration path relative to the base URL.
	DefaultResource = "config.json"

	// drainBytes caps how much of a rejected response is read before close.
	drainBytes = 8 << 20
)

// Options configures an HTTPLoader.
type Options struct {
	BaseURL  string
	Resource string
	Timeout  time.Duration
	// MaxBodyBytes rejects larger documents. 0 accepts any size.
	MaxBodyBytes int64
	// Client overrides the client built from Timeout.
	Client *http.Client
}

// HTTPLoader loads the configuration with a single HTTP GET.
type HTTPLoader struct {
	client  *http.Client
	target  *url.URL
	maxBody int64
}

var _ config.Loader = (*HTTPLoader)(nil)

// New resolves the resource location and returns a ready loader.
func New(opts Options) (*HTTPLoader, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	resource := opts.Resource
	if resource == "" {
		resource = DefaultResource
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", base)
	}
	if opts.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("invalid body limit %d: must not be negative", opts.MaxBodyBytes)
	}
	ref, err := url.Parse(resource)
	if err != nil {
		return nil, fmt.Errorf("invalid resource path %q: %w", resource, err)
	}

	client := opts.Client
	if client == nil {
		client = NewHTTPClient(opts.Timeout)
	}

	return &HTTPLoader{
		client:  client,
		target:  baseURL.ResolveReference(ref),
		maxBody: opts.MaxBodyBytes,
	}, nil
}

// URL returns the fully resolved resource location.
func (l *HTTPLoader) URL() string {
	return l.target.String()
}

// Load fetches and decodes the configuration resource.
func (l *HTTPLoader) Load(ctx context.Context) (*config.Configuration, error) {
	logger := ctxlog.FromContext(ctx).With("url", l.URL())
	logger.Debug("Requesting configuration.")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create configuration request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch configuration: %w", err)
	}
	defer resp.Body.Close()

	logger.Debug("Received configuration response.", "status", resp.Status)

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainBytes))
		return nil, &StatusError{URL: l.URL(), StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var r io.Reader = resp.Body
	if l.maxBody > 0 {
		r = io.LimitReader(resp.Body, l.maxBody+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration body: %w", err)
	}
	if l.maxBody > 0 && int64(len(body)) > l.maxBody {
		return nil, &DecodeError{URL: l.URL(), Err: fmt.Errorf("document exceeds %d bytes", l.maxBody)}
	}

	cfg, err := config.Decode(body)
	if err != nil {
		return nil, &DecodeError{URL: l.URL(), Err: err}
	}

	logger.Debug("Configuration decoded.", "bytes", len(body))
	return cfg, nil
}
