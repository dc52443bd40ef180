package plugin

import (
	"context"
	"errors"
	goplugin "plugin"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/dashboot/internal/config"
)

// withOpener replaces the plugin opener for one test. Tests using it must not
// run in parallel.
func withOpener(t *testing.T, symbols map[string]goplugin.Symbol) {
	t.Helper()
	orig := opener
	opener = func(string) (symbolLookup, error) {
		return func(name string) (goplugin.Symbol, error) {
			sym, ok := symbols[name]
			if !ok {
				return nil, errors.New("symbol not found")
			}
			return sym, nil
		}, nil
	}
	t.Cleanup(func() { opener = orig })
}

func TestNewUnit_ResolvesFunctionSymbol(t *testing.T) {
	var received []byte
	entry := func(_ context.Context, cfg []byte) error {
		received = cfg
		return nil
	}
	withOpener(t, map[string]goplugin.Symbol{"Run": entry})

	unit, err := NewUnit(context.Background(), &Input{Path: "dashboard.so"})
	require.NoError(t, err)

	cfg, err := config.Decode([]byte(`{"server":"https://gitlab.example"}`))
	require.NoError(t, err)
	require.NoError(t, unit.Run(context.Background(), cfg))
	require.JSONEq(t, `{"server":"https://gitlab.example"}`, string(received))
}

func TestNewUnit_ResolvesVariableSymbol(t *testing.T) {
	boom := errors.New("boom")
	var entry EntryFunc = func(context.Context, []byte) error { return boom }
	withOpener(t, map[string]goplugin.Symbol{"Main": &entry})

	unit, err := NewUnit(context.Background(), &Input{Path: "dashboard.so", Symbol: "Main"})
	require.NoError(t, err)

	cfg, err := config.Decode([]byte(`{}`))
	require.NoError(t, err)
	require.ErrorIs(t, unit.Run(context.Background(), cfg), boom)
}

func TestNewUnit_Errors(t *testing.T) {
	withOpener(t, map[string]goplugin.Symbol{"Run": "not a function"})

	_, err := NewUnit(context.Background(), &Input{})
	require.ErrorContains(t, err, "path must not be empty")

	_, err = NewUnit(context.Background(), &Input{Path: "x.so", Symbol: "Missing"})
	require.ErrorContains(t, err, `failed to look up symbol "Missing"`)

	_, err = NewUnit(context.Background(), &Input{Path: "x.so"})
	require.ErrorContains(t, err, "has type string")
}
