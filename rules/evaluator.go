package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/arules/schema"
)

// costLimit bounds the runtime cost of a single expression evaluation
const costLimit = 1000000

type numericOperatorFunc func(fieldValue, compareValue float64) bool

type stringOperatorFunc func(fieldValue, compareValue string) bool

// Evaluator evaluates single conditions against records.
// Compiled expression programs are cached per schema and expression.
type Evaluator struct {
	registry   *schema.Registry
	numericOps map[Operator]numericOperatorFunc
	stringOps  map[Operator]stringOperatorFunc
	programs   map[string]cel.Program
	mu         sync.RWMutex
}

// NewEvaluator creates an evaluator with all supported operators
func NewEvaluator(registry *schema.Registry) *Evaluator {
	ev := &Evaluator{
		registry:   registry,
		numericOps: make(map[Operator]numericOperatorFunc),
		stringOps:  make(map[Operator]stringOperatorFunc),
		programs:   make(map[string]cel.Program),
	}

	ev.numericOps[OpEquals] = func(a, b float64) bool { return a == b }
	ev.numericOps[OpNotEquals] = func(a, b float64) bool { return a != b }
	ev.numericOps[OpGreaterThan] = func(a, b float64) bool { return a > b }
	ev.numericOps[OpLessThan] = func(a, b float64) bool { return a < b }
	ev.numericOps[OpGreaterOrEqual] = func(a, b float64) bool { return a >= b }
	ev.numericOps[OpLessOrEqual] = func(a, b float64) bool { return a <= b }

	ev.stringOps[OpEquals] = func(a, b string) bool { return a == b }
	ev.stringOps[OpNotEquals] = func(a, b string) bool { return a != b }
	ev.stringOps[OpContains] = strings.Contains
	ev.stringOps[OpStartsWith] = strings.HasPrefix
	ev.stringOps[OpEndsWith] = strings.HasSuffix

	return ev
}

// Evaluate applies a condition to a record.
// Errors are *ConditionError values wrapping ErrUnsupportedOperator,
// ErrMissingField or ErrTypeMismatch.
func (ev *Evaluator) Evaluate(cond Condition, record Record) (bool, error) {
	if cond.Operator == OpSatisfies {
		return ev.evaluateExpression(cond, record)
	}

	_, isNumeric := ev.numericOps[cond.Operator]
	_, isString := ev.stringOps[cond.Operator]
	if !isNumeric && !isString {
		return false, conditionError(cond, ErrUnsupportedOperator, "")
	}

	// The declared param type decides the operator family and the condition
	// value type before the record is consulted
	switch cond.Param.Type {
	case schema.TypeNumber:
		opFunc, ok := ev.numericOps[cond.Operator]
		if !ok {
			return false, conditionError(cond, ErrTypeMismatch, "operator requires a string param")
		}
		b, ok := toFloat64(cond.Value)
		if !ok {
			return false, conditionError(cond, ErrTypeMismatch, fmt.Sprintf("condition value %v is not a number", cond.Value))
		}
		fieldValue, err := field(cond, record)
		if err != nil {
			return false, err
		}
		a, ok := toFloat64(fieldValue)
		if !ok {
			return false, conditionError(cond, ErrTypeMismatch, fmt.Sprintf("record value %v is not a number", fieldValue))
		}
		return opFunc(a, b), nil

	case schema.TypeString:
		opFunc, ok := ev.stringOps[cond.Operator]
		if !ok {
			return false, conditionError(cond, ErrTypeMismatch, "operator requires a number param")
		}
		b, ok := cond.Value.(string)
		if !ok {
			return false, conditionError(cond, ErrTypeMismatch, fmt.Sprintf("condition value %v is not a string", cond.Value))
		}
		fieldValue, err := field(cond, record)
		if err != nil {
			return false, err
		}
		a, ok := fieldValue.(string)
		if !ok {
			return false, conditionError(cond, ErrTypeMismatch, fmt.Sprintf("record value %v is not a string", fieldValue))
		}
		return opFunc(a, b), nil

	default:
		return false, conditionError(cond, ErrTypeMismatch, fmt.Sprintf("param has unsupported type %q", cond.Param.Type))
	}
}

func field(cond Condition, record Record) (any, error) {
	v, exists := record.Field(cond.Param.Key)
	if !exists {
		return nil, conditionError(cond, ErrMissingField, "record has no field "+cond.Param.Key)
	}
	return v, nil
}

// Compile prepares the expression of a satisfies condition so that
// compile errors surface when a rule is created. Other operators are no-ops.
func (ev *Evaluator) Compile(cond Condition) error {
	if cond.Operator != OpSatisfies {
		return nil
	}
	_, err := ev.program(cond)
	return err
}

func (ev *Evaluator) evaluateExpression(cond Condition, record Record) (bool, error) {
	prog, err := ev.program(cond)
	if err != nil {
		return false, err
	}

	fieldValue, err := field(cond, record)
	if err != nil {
		return false, err
	}

	keys, err := ev.registry.ParamKeys(cond.Param.Schema)
	if err != nil {
		return false, conditionError(cond, ErrTypeMismatch, err.Error())
	}

	// Unset params stay unbound; referencing one is an evaluation error
	activation := make(map[string]any, len(keys)+1)
	for _, key := range keys {
		if v, ok := record.Field(key); ok {
			activation[key] = normalize(v)
		}
	}
	activation[schema.ValueVariable()] = normalize(fieldValue)

	out, _, err := prog.Eval(activation)
	if err != nil {
		return false, conditionError(cond, ErrTypeMismatch, err.Error())
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, conditionError(cond, ErrTypeMismatch, fmt.Sprintf("expression returned %s, not a boolean", out.Type().TypeName()))
	}
	return matched, nil
}

func (ev *Evaluator) program(cond Condition) (cel.Program, error) {
	expression, ok := cond.Value.(string)
	if !ok {
		return nil, conditionError(cond, ErrTypeMismatch, "expression must be a string")
	}

	key := cond.Param.Schema + "\x00" + expression

	ev.mu.RLock()
	prog, exists := ev.programs[key]
	ev.mu.RUnlock()
	if exists {
		return prog, nil
	}

	env, err := ev.registry.Env(cond.Param.Schema)
	if err != nil {
		return nil, conditionError(cond, ErrTypeMismatch, err.Error())
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, conditionError(cond, ErrTypeMismatch, "compile error: "+issues.Err().Error())
	}

	prog, err = env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, conditionError(cond, ErrTypeMismatch, "program creation error: "+err.Error())
	}

	ev.mu.Lock()
	ev.programs[key] = prog
	ev.mu.Unlock()

	return prog, nil
}

func conditionError(cond Condition, err error, message string) *ConditionError {
	return &ConditionError{
		Param:    cond.Param.String(),
		Operator: cond.Operator,
		Message:  message,
		Err:      err,
	}
}

// normalize widens Go numeric kinds to float64 for expression activations
func normalize(v any) any {
	if f, ok := toFloat64(v); ok {
		return f
	}
	return v
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
