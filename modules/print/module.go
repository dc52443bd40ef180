// Package print provides a unit that writes the configuration to the
// application output, as YAML or indented JSON.
package print

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/ctxlog"
	"github.com/vk/dashboot/internal/registry"
	"gopkg.in/yaml.v3"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print unit.
type Input struct {
	Format string `hcl:"format,optional"`
}

// Unit prints the configuration it is run with.
type Unit struct {
	format string
}

// NewUnit validates the input and returns the unit.
func NewUnit(_ context.Context, input *Input) (*Unit, error) {
	format := input.Format
	if format == "" {
		format = "yaml"
	}
	if format != "yaml" && format != "json" {
		return nil, fmt.Errorf("invalid format %q: must be 'yaml' or 'json'", input.Format)
	}
	return &Unit{format: format}, nil
}

// Run writes cfg to the output stored on ctx.
func (u *Unit) Run(ctx context.Context, cfg *config.Configuration) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Printing configuration.", "format", u.format)

	out := registry.OutputFromContext(ctx)
	switch u.format {
	case "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, cfg.Raw(), "", "  "); err != nil {
			return fmt.Errorf("failed to format configuration: %w", err)
		}
		buf.WriteByte('\n')
		_, err := io.Copy(out, &buf)
		return err
	default:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(yamlValue(cfg.Document())); err != nil {
			return fmt.Errorf("failed to encode configuration as YAML: %w", err)
		}
		return enc.Close()
	}
}

// yamlValue replaces json.Number leaves with scalar nodes that carry the
// literal digits, so numbers are printed exactly as served.
func yamlValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			v[k] = yamlValue(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = yamlValue(e)
		}
		return v
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(string(v), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(v)}
	default:
		return v
	}
}

// Register registers the unit with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit("print", &registry.Registered{
		Description: "write the configuration to stdout as YAML or JSON",
		NewInput:    func() any { return new(Input) },
		New: func(ctx context.Context, input any) (registry.Unit, error) {
			return NewUnit(ctx, input.(*Input))
		},
	})
}
