package config

import (
	"context"
	"fmt"
	"strings"
)

// Loader produces the configuration for one pipeline run.
type Loader interface {
	// Load performs a single read of the configuration resource. It is never
	// retried by callers.
	Load(ctx context.Context) (*Configuration, error)
}

// FailurePolicy decides what a failed configuration load means for the run.
type FailurePolicy string

const (
	// FailureSwallow skips dispatch and ends the run without an error.
	FailureSwallow FailurePolicy = "swallow"
	// FailureSurface skips dispatch and returns the load error to the caller.
	FailureSurface FailurePolicy = "surface"
)

// ParseFailurePolicy maps a user supplied string to a FailurePolicy. The
// empty string selects FailureSwallow.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailureSwallow, nil
	case FailureSwallow, FailureSurface:
		return p, nil
	default:
		return "", fmt.Errorf("invalid failure policy %q: must be 'swallow' or 'surface'", s)
	}
}
