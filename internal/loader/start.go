package loader

import (
	"context"

	"github.com/vk/dashboot/internal/config"
)

// Result is the outcome of one configuration load.
type Result struct {
	Config *config.Configuration
	Err    error
}

// Start runs l.Load in its own goroutine. The returned channel yields exactly
// one Result and is then closed.
func Start(ctx context.Context, l config.Loader) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		cfg, err := l.Load(ctx)
		ch <- Result{Config: cfg, Err: err}
	}()
	return ch
}
