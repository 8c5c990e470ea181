package schema

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// valueVariable names the condition's own param inside an expression
const valueVariable = "value"

// NewEnv creates a CEL environment with one variable per schema param.
// String params are typed; number params are dynamic so that
// int literals compare against float64 record values.
func NewEnv(s Schema) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(s.Params)+2)
	opts = append(opts, cel.CrossTypeNumericComparisons(true))
	for _, p := range s.Params {
		opts = append(opts, cel.Variable(p.Key, celType(p.Type)))
	}
	opts = append(opts, cel.Variable(valueVariable, cel.DynType))

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment for schema %s: %w", s.Name, err)
	}
	return env, nil
}

// ValueVariable returns the variable name used for a condition's own param
func ValueVariable() string {
	return valueVariable
}

func celType(t ParamType) *cel.Type {
	if t == TypeString {
		return cel.StringType
	}
	return cel.DynType
}
