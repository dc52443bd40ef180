// Package socketio provides a unit that forwards the configuration to a
// Socket.IO server as a single emitted event.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/ctxlog"
	"github.com/vk/dashboot/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const defaultTimeout = 10 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the socketio unit.
type Input struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Event              string `hcl:"event,optional"`
	AckEvent           string `hcl:"ack_event,optional"`
	Timeout            string `hcl:"timeout,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// Unit emits the configuration once connected.
type Unit struct {
	baseURL            string
	path               string
	namespace          string
	event              string
	ackEvent           string
	timeout            time.Duration
	insecureSkipVerify bool
}

// NewUnit validates the input and returns the unit.
func NewUnit(_ context.Context, input *Input) (*Unit, error) {
	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("URL %q must be absolute", input.URL)
	}

	timeout := defaultTimeout
	if input.Timeout != "" {
		timeout, err = time.ParseDuration(input.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
	}

	u := &Unit{
		baseURL:            fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host),
		path:               parsedURL.Path,
		namespace:          input.Namespace,
		event:              input.Event,
		ackEvent:           input.AckEvent,
		timeout:            timeout,
		insecureSkipVerify: input.InsecureSkipVerify,
	}
	if u.namespace == "" {
		u.namespace = "/"
	}
	if u.event == "" {
		u.event = "config"
	}
	return u, nil
}

// Run connects, emits the configuration and, when an ack event is
// configured, waits for it.
func (u *Unit) Run(ctx context.Context, cfg *config.Configuration) error {
	logger := ctxlog.FromContext(ctx).With("url", u.baseURL+u.path, "namespace", u.namespace, "event", u.event)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	var isConnected atomic.Bool
	done := make(chan error, 1)
	// Only the first outcome counts; later events must not block the client.
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}
	opCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	opts := socket.DefaultOptions()
	if u.path != "" {
		opts.SetPath(u.path)
	}
	if u.insecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(u.baseURL, opts)
	io := manager.Socket(u.namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	io.Once(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected", "sid", io.Id())
		io.Emit(u.event, cfg.Document())
		logger.Info("Configuration emitted")
		if u.ackEvent == "" {
			finish(nil)
		}
	})

	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		finish(fmt.Errorf("socket.io connection failed: %w", err))
	})

	if u.ackEvent != "" {
		io.Once(types.EventName(u.ackEvent), func(...any) {
			logger.Info("Acknowledgement received", "ack_event", u.ackEvent)
			finish(nil)
		})
	}

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return fmt.Errorf("timed out after connecting while waiting for event '%s'", u.ackEvent)
		}
		return errors.New("timed out while waiting for initial connection")
	case err := <-done:
		return err
	}
}

// Register registers the unit with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit("socketio", &registry.Registered{
		Description: "emit the configuration to a Socket.IO server",
		NewInput:    func() any { return new(Input) },
		New: func(ctx context.Context, input any) (registry.Unit, error) {
			return NewUnit(ctx, input.(*Input))
		},
	})
}
