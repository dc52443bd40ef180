package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/registry"
)

// recordingUnit remembers every configuration it was run with.
type recordingUnit struct {
	mu   sync.Mutex
	seen []any
	err  error
}

func (u *recordingUnit) Run(_ context.Context, cfg *config.Configuration) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seen = append(u.seen, cfg.Value())
	return u.err
}

func newRegistry(unit registry.Unit, builds *atomic.Int32) *registry.Registry {
	reg := registry.New()
	reg.RegisterUnit("recorder", &registry.Registered{
		New: func(context.Context, any) (registry.Unit, error) {
			builds.Add(1)
			return unit, nil
		},
	})
	return reg
}

func mustDecode(t *testing.T, doc string) *config.Configuration {
	t.Helper()
	cfg, err := config.Decode([]byte(doc))
	require.NoError(t, err)
	return cfg
}

func TestDispatch_RunsUnitWithConfiguration(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	unit := &recordingUnit{}
	var builds atomic.Int32
	d := New(newRegistry(unit, &builds), UnitSpec{Name: "recorder"})

	// --- Act ---
	err := d.Dispatch(context.Background(), mustDecode(t, `{"server":"https://gitlab.example","token":"abc"}`))

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, unit.seen, 1)
	want := map[string]any{"server": "https://gitlab.example", "token": "abc"}
	if diff := cmp.Diff(want, unit.seen[0]); diff != "" {
		t.Errorf("unit received a different configuration (-want +got):\n%s", diff)
	}
	require.Equal(t, int32(1), builds.Load())
}

func TestDispatch_AtMostOnce(t *testing.T) {
	t.Parallel()

	unit := &recordingUnit{}
	var builds atomic.Int32
	d := New(newRegistry(unit, &builds), UnitSpec{Name: "recorder"})
	cfg := mustDecode(t, `{"a":1}`)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- d.Dispatch(context.Background(), cfg)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, already int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyDispatched):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 7, already)
	require.Len(t, unit.seen, 1)
	require.Equal(t, int32(1), builds.Load())
}

func TestDispatch_NilConfigurationNeverLoadsUnit(t *testing.T) {
	t.Parallel()

	unit := &recordingUnit{}
	var builds atomic.Int32
	d := New(newRegistry(unit, &builds), UnitSpec{Name: "recorder"})

	err := d.Dispatch(context.Background(), nil)

	require.ErrorIs(t, err, ErrNoConfiguration)
	require.Zero(t, builds.Load())
	require.Empty(t, unit.seen)

	// A rejected nil dispatch does not consume the single dispatch.
	require.NoError(t, d.Dispatch(context.Background(), mustDecode(t, `{}`)))
}

func TestDispatch_PropagatesFailures(t *testing.T) {
	t.Parallel()

	t.Run("unknown unit", func(t *testing.T) {
		t.Parallel()
		d := New(registry.New(), UnitSpec{Name: "ghost"})
		err := d.Dispatch(context.Background(), mustDecode(t, `{}`))
		require.ErrorIs(t, err, registry.ErrUnknownUnit)
	})

	t.Run("run error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		var builds atomic.Int32
		d := New(newRegistry(&recordingUnit{err: boom}, &builds), UnitSpec{Name: "recorder"})
		err := d.Dispatch(context.Background(), mustDecode(t, `{}`))
		require.ErrorIs(t, err, boom)
		require.ErrorContains(t, err, "unit 'recorder' failed")
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })

		reg := registry.New()
		reg.RegisterUnit("slow", &registry.Registered{New: func(context.Context, any) (registry.Unit, error) {
			<-release
			return &recordingUnit{}, nil
		}})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := New(reg, UnitSpec{Name: "slow"}).Dispatch(ctx, mustDecode(t, `{}`))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestDispatch_ConstructorPanicBecomesError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	reg := registry.New()
	reg.RegisterUnit("fragile", &registry.Registered{
		New: func(context.Context, any) (registry.Unit, error) {
			panic("driver not initialised")
		},
	})
	d := New(reg, UnitSpec{Name: "fragile"})

	// --- Act ---
	err := d.Dispatch(context.Background(), mustDecode(t, `{}`))

	// --- Assert ---
	require.ErrorContains(t, err, "failed to load unit: unit 'fragile' constructor panicked: driver not initialised")
}
