package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance for system testing. The full log
// is printed on cleanup when DASHBOOT_TEST_LOGS=true.
func SetupAppTest(t *testing.T, cfg *Config, l config.Loader, modules ...registry.Module) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	testApp := NewAppWithLoader(logBuffer, cfg, l, modules...)

	t.Cleanup(func() {
		if os.Getenv("DASHBOOT_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
