// Package dispatch hands a decoded configuration to the selected unit.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/ctxlog"
	"github.com/vk/dashboot/internal/registry"
)

var (
	// ErrAlreadyDispatched is returned by every Dispatch call after the first.
	ErrAlreadyDispatched = errors.New("configuration already dispatched")
	// ErrNoConfiguration is returned when Dispatch is called without a
	// decoded configuration.
	ErrNoConfiguration = errors.New("no configuration to dispatch")
)

// UnitSpec selects a unit and carries its raw HCL arguments.
type UnitSpec struct {
	Name        string
	Args        hcl.Body
	EvalContext *hcl.EvalContext
}

// Dispatcher runs one unit, once.
type Dispatcher struct {
	registry   *registry.Registry
	spec       UnitSpec
	dispatched atomic.Bool
}

// New creates a Dispatcher for the unit described by spec.
func New(reg *registry.Registry, spec UnitSpec) *Dispatcher {
	return &Dispatcher{registry: reg, spec: spec}
}

type loadResult struct {
	unit registry.Unit
	err  error
}

// Dispatch loads the unit and calls its Run with cfg. Only the first call
// does any work.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg *config.Configuration) error {
	if cfg == nil {
		return ErrNoConfiguration
	}
	if !d.dispatched.CompareAndSwap(false, true) {
		return ErrAlreadyDispatched
	}

	ctx, logger := ctxlog.With(ctx, "unit", d.spec.Name)

	unit, err := d.loadUnit(ctx)
	if err != nil {
		return err
	}

	logger.Info("🚀 Dispatching configuration to unit.")
	start := time.Now()
	if err := unit.Run(ctx, cfg); err != nil {
		return fmt.Errorf("unit '%s' failed: %w", d.spec.Name, err)
	}
	logger.Debug("Unit returned.", "duration", time.Since(start))
	return nil
}

// loadUnit builds the unit off the caller's goroutine and waits for it.
func (d *Dispatcher) loadUnit(ctx context.Context) (registry.Unit, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading unit.")

	done := make(chan loadResult, 1)
	go func() {
		// A panicking constructor is reported to the caller instead of
		// taking down the process from this goroutine.
		defer func() {
			if r := recover(); r != nil {
				done <- loadResult{err: fmt.Errorf("unit '%s' constructor panicked: %v", d.spec.Name, r)}
			}
		}()
		unit, err := d.registry.Load(ctx, d.spec.Name, d.spec.Args, d.spec.EvalContext)
		done <- loadResult{unit: unit, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("unit '%s' load abandoned: %w", d.spec.Name, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("failed to load unit: %w", res.err)
		}
		logger.Debug("Unit loaded.")
		return res.unit, nil
	}
}
