package hcl

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// NewEvalContext returns the evaluation context used for configuration
// expressions. environ has the form returned by os.Environ.
func NewEvalContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = cty.StringVal(value)
	}

	env := cty.MapValEmpty(cty.String)
	if len(vars) > 0 {
		env = cty.MapVal(vars)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
		Functions: map[string]function.Function{
			"upper":    stdlib.UpperFunc,
			"lower":    stdlib.LowerFunc,
			"coalesce": stdlib.CoalesceFunc,
		},
	}
}

func processEvalContext() *hcl.EvalContext {
	return NewEvalContext(os.Environ())
}
