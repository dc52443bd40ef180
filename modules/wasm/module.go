// Package wasm provides a unit backed by a compiled WebAssembly (WASI)
// module. The configuration document is written to the module's stdin and
// the module's `_start` entry point is run once.
package wasm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/ctxlog"
	"github.com/vk/dashboot/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the wasm unit.
type Input struct {
	Path     string   `hcl:"path"`
	Args     []string `hcl:"args,optional"`
	CacheDir string   `hcl:"cache_dir,optional"`
}

// Unit runs a WASI module with the configuration on stdin.
type Unit struct {
	name     string
	wasm     []byte
	args     []string
	cacheDir string
}

// NewUnit reads the module bytes. Compilation is deferred to Run.
func NewUnit(_ context.Context, input *Input) (*Unit, error) {
	if input.Path == "" {
		return nil, errors.New("path must not be empty")
	}
	wasmBytes, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module: %w", err)
	}
	return &Unit{
		name:     input.Path,
		wasm:     wasmBytes,
		args:     input.Args,
		cacheDir: input.CacheDir,
	}, nil
}

// Run instantiates the module and executes it to completion. A non-zero
// exit code is returned as an error.
func (u *Unit) Run(ctx context.Context, cfg *config.Configuration) error {
	logger := ctxlog.FromContext(ctx).With("module", u.name)

	runtimeConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if u.cacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(u.cacheDir)
		if err != nil {
			return fmt.Errorf("failed to open compilation cache: %w", err)
		}
		defer cache.Close(context.WithoutCancel(ctx))
		runtimeConfig = runtimeConfig.WithCompilationCache(cache)
	}

	r := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)
	defer r.Close(context.WithoutCancel(ctx))

	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	compiled, err := r.CompileModule(ctx, u.wasm)
	if err != nil {
		return fmt.Errorf("failed to compile module: %w", err)
	}

	out := registry.OutputFromContext(ctx)
	stderr := &bytes.Buffer{}
	modConfig := wazero.NewModuleConfig().
		WithName("dashboot-unit").
		WithArgs(append([]string{"unit"}, u.args...)...).
		WithStdin(bytes.NewReader(cfg.Raw())).
		WithStdout(out).
		WithStderr(stderr)

	logger.Debug("Starting module.")
	mod, err := r.InstantiateModule(ctx, compiled, modConfig)
	if stderr.Len() > 0 {
		logger.Warn("Module wrote to stderr", "stderr", stderr.String())
	}
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			return nil
		}
		return fmt.Errorf("module run failed: %w", err)
	}
	defer mod.Close(context.WithoutCancel(ctx))

	logger.Debug("Module finished.")
	return nil
}

// Register registers the unit with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit("wasm", &registry.Registered{
		Description: "run a WASI module with the configuration on stdin",
		NewInput:    func() any { return new(Input) },
		New: func(ctx context.Context, input any) (registry.Unit, error) {
			return NewUnit(ctx, input.(*Input))
		},
	})
}
