package form

import (
	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

// Phase is the submission state of a form.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// State is the value and error state of an open form.
type State struct {
	Values     map[string]any
	Errors     validation.Errors
	Submitting bool
}

func newState(values map[string]any) State {
	return State{Values: values, Errors: make(validation.Errors)}
}

func (s State) clone() State {
	out := State{
		Values:     make(map[string]any, len(s.Values)),
		Errors:     s.Errors.Clone(),
		Submitting: s.Submitting,
	}
	for k, v := range s.Values {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out.Values[k] = v
	}
	return out
}

// Text returns the string form of a value.
func (s State) Text(name string) string {
	return validation.Text(s.Values[name])
}

// FormError returns the form-level message, if any.
func (s State) FormError() string {
	return s.Errors[apierr.FormKey]
}

// Snapshot is the renderable state of a Form.
type Snapshot struct {
	State
	Open  bool
	Mode  Mode
	Phase Phase
	ID    string
}
