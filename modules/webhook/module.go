// Package webhook provides a unit that sends the configuration document to
// an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/ctxlog"
	"github.com/vk/dashboot/internal/loader"
	"github.com/vk/dashboot/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the webhook unit.
type Input struct {
	URL     string            `hcl:"url"`
	Method  string            `hcl:"method,optional"`
	Headers map[string]string `hcl:"headers,optional"`
	Timeout string            `hcl:"timeout,optional"`
}

// Unit delivers the configuration with a single request.
type Unit struct {
	url     string
	method  string
	headers map[string]string
	client  *http.Client
}

// NewUnit validates the input and returns the unit.
func NewUnit(_ context.Context, input *Input) (*Unit, error) {
	target, err := url.Parse(input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("URL %q must use http or https", input.URL)
	}

	method := strings.ToUpper(input.Method)
	switch method {
	case "":
		method = http.MethodPost
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, fmt.Errorf("unsupported method %q: must be POST, PUT or PATCH", input.Method)
	}

	var timeout time.Duration
	if input.Timeout != "" {
		timeout, err = time.ParseDuration(input.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
	}

	return &Unit{
		url:     target.String(),
		method:  method,
		headers: input.Headers,
		client:  loader.NewHTTPClient(timeout),
	}, nil
}

// Run sends cfg as the request body. Any non-2xx answer is an error.
func (u *Unit) Run(ctx context.Context, cfg *config.Configuration) error {
	logger := ctxlog.FromContext(ctx).With("method", u.method, "url", u.url)

	body := cfg.Raw()
	req, err := http.NewRequestWithContext(ctx, u.method, u.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range u.headers {
		req.Header.Set(k, v)
	}

	logger.Info("Delivering configuration", "size", len(body))

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook delivery failed with status: %s", resp.Status)
	}

	logger.Info("Successfully delivered configuration", "status", resp.Status)
	return nil
}

// Register registers the unit with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit("webhook", &registry.Registered{
		Description: "send the configuration to an HTTP endpoint",
		NewInput:    func() any { return new(Input) },
		New: func(ctx context.Context, input any) (registry.Unit, error) {
			return NewUnit(ctx, input.(*Input))
		},
	})
}
