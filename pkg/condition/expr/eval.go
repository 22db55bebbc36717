package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type node interface {
	eval(values map[string]any) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(values map[string]any) (bool, error) {
	ok, err := n.left.eval(values)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(values)
}

type andNode struct{ left, right node }

func (n andNode) eval(values map[string]any) (bool, error) {
	ok, err := n.left.eval(values)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(values)
}

type notNode struct{ inner node }

func (n notNode) eval(values map[string]any) (bool, error) {
	ok, err := n.inner.eval(values)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type presentNode struct{ field string }

func (n presentNode) eval(values map[string]any) (bool, error) {
	return Present(values[n.field]), nil
}

type operand struct {
	field  string
	value  any
	isNull bool
}

type compareNode struct {
	field  string
	negate bool
	right  operand
}

func (n compareNode) eval(values map[string]any) (bool, error) {
	left := values[n.field]
	var equal bool
	switch {
	case n.right.isNull:
		equal = !Present(left)
	case n.right.field != "":
		equal = text(left) == text(values[n.right.field])
	default:
		switch want := n.right.value.(type) {
		case bool:
			got, _ := asBool(left)
			equal = got == want
		case float64:
			got, ok := asNumber(left)
			equal = ok && got == want
		case string:
			equal = text(left) == want
		default:
			return false, fmt.Errorf("condition: unsupported operand %v", want)
		}
	}
	if n.negate {
		return !equal, nil
	}
	return equal, nil
}

// Present reports whether a form value counts as filled in: non-blank strings,
// true, non-zero numbers and lists with at least one non-blank entry.
func Present(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case []string:
		for _, item := range v {
			if strings.TrimSpace(item) != "" {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if Present(item) {
				return true
			}
		}
		return false
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}

func asBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return parsed, true
		}
	}
	return Present(value), false
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
