// Package plugin provides a unit loaded at startup from a Go plugin
// (a shared object built with -buildmode=plugin).
//
// The plugin must export a symbol, Run by default, of type
//
//	func(ctx context.Context, config []byte) error
//
// which receives the raw configuration document.
package plugin

import (
	"context"
	"errors"
	"fmt"
	goplugin "plugin"

	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/ctxlog"
	"github.com/vk/dashboot/internal/registry"
)

const defaultSymbol = "Run"

// EntryFunc is the signature a plugin's entry symbol must have.
type EntryFunc = func(ctx context.Context, config []byte) error

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the plugin unit.
type Input struct {
	Path   string `hcl:"path"`
	Symbol string `hcl:"symbol,optional"`
}

// Unit calls a function resolved from a plugin.
type Unit struct {
	path  string
	entry EntryFunc
}

// opener is swapped in tests; the real one needs a cgo-built plugin.
var opener = func(path string) (symbolLookup, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return p.Lookup, nil
}

type symbolLookup func(name string) (goplugin.Symbol, error)

// NewUnit opens the plugin and resolves the entry symbol.
func NewUnit(_ context.Context, input *Input) (*Unit, error) {
	if input.Path == "" {
		return nil, errors.New("path must not be empty")
	}
	symbol := input.Symbol
	if symbol == "" {
		symbol = defaultSymbol
	}

	lookup, err := opener(input.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin: %w", err)
	}
	sym, err := lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to look up symbol %q: %w", symbol, err)
	}

	var entry EntryFunc
	switch fn := sym.(type) {
	case EntryFunc:
		entry = fn
	case *EntryFunc:
		entry = *fn
	default:
		return nil, fmt.Errorf("symbol %q has type %T, want func(context.Context, []byte) error", symbol, sym)
	}
	return &Unit{path: input.Path, entry: entry}, nil
}

// Run passes the raw configuration to the plugin.
func (u *Unit) Run(ctx context.Context, cfg *config.Configuration) error {
	ctxlog.FromContext(ctx).Debug("Calling plugin entry.", "plugin", u.path)
	return u.entry(ctx, cfg.Raw())
}

// Register registers the unit with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit("plugin", &registry.Registered{
		Description: "call the Run symbol of a Go plugin with the raw configuration",
		NewInput:    func() any { return new(Input) },
		New: func(ctx context.Context, input any) (registry.Unit, error) {
			return NewUnit(ctx, input.(*Input))
		},
	})
}
