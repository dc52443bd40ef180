package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/dashboot/internal/config"
)

// ErrUnknownUnit is returned when no unit is registered under a name.
var ErrUnknownUnit = errors.New("unknown unit")

// Unit is an external processing unit with a single entry operation.
type Unit interface {
	Run(ctx context.Context, cfg *config.Configuration) error
}

// UnitFunc adapts a plain function to the Unit interface.
type UnitFunc func(ctx context.Context, cfg *config.Configuration) error

// Run calls f(ctx, cfg).
func (f UnitFunc) Run(ctx context.Context, cfg *config.Configuration) error {
	return f(ctx, cfg)
}

// Module is the interface that all unit packages implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registered holds the compiled Go parts of a unit.
type Registered struct {
	Description string
	// NewInput returns a pointer to the struct the unit's HCL arguments are
	// decoded into. Nil means the unit takes no arguments.
	NewInput func() any
	// New builds the unit from its decoded input.
	New func(ctx context.Context, input any) (Unit, error)
}

// Registry holds the units known to a single application instance.
type Registry struct {
	units map[string]*Registered
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{units: make(map[string]*Registered)}
}

// RegisterUnit adds a unit under name. Registering the same name twice is a
// programming error and panics.
func (r *Registry) RegisterUnit(name string, unit *Registered) {
	if unit == nil || unit.New == nil {
		panic(fmt.Sprintf("unit '%s' registered without a constructor", name))
	}
	if _, exists := r.units[name]; exists {
		panic(fmt.Sprintf("unit with name '%s' already registered", name))
	}
	slog.Debug("Registering unit.", "name", name)
	r.units[name] = unit
}

// Names returns the registered unit names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description a unit was registered with.
func (r *Registry) Describe(name string) (string, bool) {
	u, ok := r.units[name]
	if !ok {
		return "", false
	}
	return u.Description, true
}

// Load decodes args into the unit's input struct and constructs the unit. A
// nil args body is treated as an empty one.
func (r *Registry) Load(ctx context.Context, name string, args hcl.Body, evalCtx *hcl.EvalContext) (Unit, error) {
	reg, ok := r.units[name]
	if !ok {
		return nil, fmt.Errorf("%w '%s' (registered: %v)", ErrUnknownUnit, name, r.Names())
	}
	if args == nil {
		args = hcl.EmptyBody()
	}

	var input any = new(struct{})
	if reg.NewInput != nil {
		input = reg.NewInput()
	}
	if diags := gohcl.DecodeBody(args, evalCtx, input); diags.HasErrors() {
		return nil, fmt.Errorf("invalid arguments for unit '%s': %w", name, diags)
	}

	unit, err := reg.New(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit '%s': %w", name, err)
	}
	return unit, nil
}
