package settings

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// EnvContext builds an evaluation context exposing environ (KEY=VALUE
// pairs, as returned by os.Environ) as the object variable `env`.
func EnvContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))
	for _, e := range environ {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 && pair[0] != "" {
			vars[pair[0]] = cty.StringVal(pair[1])
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

// ProcessEnvContext is EnvContext over the current process environment.
func ProcessEnvContext() *hcl.EvalContext {
	return EnvContext(os.Environ())
}
