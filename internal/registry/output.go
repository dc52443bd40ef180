package registry

import (
	"context"
	"io"
	"os"
)

type outputKey struct{}

// WithOutput stores the writer units print their results to.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

// OutputFromContext returns the writer stored by WithOutput, or os.Stdout.
func OutputFromContext(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok && w != nil {
		return w
	}
	return os.Stdout
}
