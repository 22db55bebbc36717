// Package validation evaluates declarative field rules against form values.
//
// A RuleSet is declared once per form type. The Engine validates single
// fields, whole forms and, after an edit, the edited field together with every
// field whose cross-field rule reads it. Repeatable fields (Rule.Repeated) hold
// a []string and report per-slot errors under dotted keys such as "email.1".
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-leadconsole/pkg/condition"
)

// Check validates a non-blank value and returns a message, or "" when valid.
type Check func(value string) string

// CrossField is a predicate over the whole form. It is evaluated even when the
// field is blank so "required when" style rules work.
type CrossField struct {
	// When guards the predicate; nil means always.
	When condition.Condition
	// Predicate must hold for the field to be valid.
	Predicate func(value any, values map[string]any) bool
	Message   string
	// DependsOn names fields read by Predicate in addition to those read by
	// When.
	DependsOn []string
}

func (c CrossField) fields() []string {
	out := append([]string(nil), c.DependsOn...)
	if c.When != nil {
		out = append(out, c.When.Fields()...)
	}
	return out
}

// Rule describes the constraints on one field.
type Rule struct {
	Label string

	Required        bool
	RequiredMessage string

	Pattern        *regexp.Regexp
	PatternMessage string

	MinLength        int
	MinLengthMessage string

	Checks []Check
	Cross  []CrossField

	// Repeated marks a list field validated slot by slot.
	Repeated bool
	// Verbatim runs the pattern, length and checks on the untrimmed value,
	// for secrets where surrounding spaces are significant.
	Verbatim bool
}

// RuleSet maps field names to their rules.
type RuleSet map[string]Rule

// Errors maps field keys to a single message. Valid fields are absent.
type Errors map[string]string

// Clone returns a copy of e.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Valid reports whether there are no errors.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// Validate evaluates rule for value and returns the first failing message,
// or "" when the value is valid. Order: required, pattern, minimum length,
// checks, cross-field predicates. Value-shape checks are skipped for blank
// optional values.
func Validate(name string, value any, rule Rule, values map[string]any) string {
	raw := Text(value)
	text := strings.TrimSpace(raw)
	label := rule.Label
	if label == "" {
		label = name
	}

	if text == "" {
		if rule.Required {
			return orDefault(rule.RequiredMessage, label+" is required")
		}
		return crossField(value, rule.Cross, values)
	}
	if rule.Verbatim {
		text = raw
	}

	if rule.Pattern != nil && !rule.Pattern.MatchString(text) {
		return orDefault(rule.PatternMessage, label+" is invalid")
	}
	if rule.MinLength > 0 && utf8.RuneCountInString(text) < rule.MinLength {
		return orDefault(rule.MinLengthMessage,
			fmt.Sprintf("%s must be at least %d characters", label, rule.MinLength))
	}
	for _, check := range rule.Checks {
		if check == nil {
			continue
		}
		if msg := check(text); msg != "" {
			return msg
		}
	}
	return crossField(value, rule.Cross, values)
}

func crossField(value any, rules []CrossField, values map[string]any) string {
	for _, cf := range rules {
		if cf.When != nil {
			ok, err := cf.When.Holds(values)
			if err != nil {
				return err.Error()
			}
			if !ok {
				continue
			}
		}
		if cf.Predicate != nil && !cf.Predicate(value, values) {
			return cf.Message
		}
	}
	return ""
}

func orDefault(message, fallback string) string {
	if strings.TrimSpace(message) != "" {
		return message
	}
	return fallback
}

// Text renders a form value as the string the rules see.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Slots returns the entries of a repeated field value.
func Slots(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = Text(item)
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// SlotKey is the error key of slot index of field.
func SlotKey(field string, index int) string {
	return field + "." + strconv.Itoa(index)
}

// SplitKey separates "email.2" into ("email", 2, true).
func SplitKey(key string) (string, int, bool) {
	dot := strings.LastIndexByte(key, '.')
	if dot <= 0 || dot == len(key)-1 {
		return key, 0, false
	}
	index, err := strconv.Atoi(key[dot+1:])
	if err != nil || index < 0 {
		return key, 0, false
	}
	return key[:dot], index, true
}
