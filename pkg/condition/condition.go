// Package condition defines predicates over a form's values. Conditions are
// either compiled expressions (see package expr) or plain Go functions, and
// report the fields they read so dependent validations can be re-run.
package condition

import (
	"sort"

	"github.com/goliatone/go-leadconsole/pkg/condition/expr"
)

// Condition evaluates against a snapshot of form values.
type Condition interface {
	Holds(values map[string]any) (bool, error)
	Fields() []string
}

// Parse compiles an expression condition.
func Parse(source string) (Condition, error) {
	prog, err := expr.Compile(source)
	if err != nil {
		return nil, err
	}
	return program{prog}, nil
}

// MustParse is Parse that panics on error.
func MustParse(source string) Condition {
	c, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return c
}

type program struct {
	prog *expr.Program
}

func (p program) Holds(values map[string]any) (bool, error) {
	return p.prog.Eval(values)
}

func (p program) Fields() []string {
	return p.prog.Identifiers()
}

func (p program) String() string {
	return p.prog.String()
}

// Func adapts a Go predicate reading the named fields.
func Func(fn func(values map[string]any) bool, fields ...string) Condition {
	return funcCondition{fn: fn, fields: fields}
}

type funcCondition struct {
	fn     func(map[string]any) bool
	fields []string
}

func (f funcCondition) Holds(values map[string]any) (bool, error) {
	if f.fn == nil {
		return true, nil
	}
	return f.fn(values), nil
}

func (f funcCondition) Fields() []string {
	return append([]string(nil), f.fields...)
}

// Always holds and reads nothing.
var Always Condition = funcCondition{}

// Present reports whether value counts as filled in.
func Present(value any) bool {
	return expr.Present(value)
}

// FieldsOf merges and sorts the fields read by conds.
func FieldsOf(conds ...Condition) []string {
	seen := map[string]struct{}{}
	for _, c := range conds {
		if c == nil {
			continue
		}
		for _, f := range c.Fields() {
			seen[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
