package validation

import (
	"sort"
)

// Engine validates forms against a RuleSet.
type Engine struct {
	rules      RuleSet
	dependents map[string][]string
}

// NewEngine indexes rules so cross-field dependents can be found.
func NewEngine(rules RuleSet) *Engine {
	e := &Engine{rules: rules, dependents: make(map[string][]string)}
	for name, rule := range rules {
		for _, cf := range rule.Cross {
			for _, dep := range cf.fields() {
				if dep == name {
					continue
				}
				e.dependents[dep] = appendUnique(e.dependents[dep], name)
			}
		}
	}
	for dep := range e.dependents {
		sort.Strings(e.dependents[dep])
	}
	return e
}

// Rules returns the rule set.
func (e *Engine) Rules() RuleSet {
	return e.rules
}

// Rule returns the rule governing key. Slot keys such as "email.0" resolve to
// the repeated field's rule.
func (e *Engine) Rule(key string) (Rule, bool) {
	if rule, ok := e.rules[key]; ok {
		return rule, true
	}
	if base, _, ok := SplitKey(key); ok {
		if rule, found := e.rules[base]; found && rule.Repeated {
			return rule, true
		}
	}
	return Rule{}, false
}

// Dependents lists fields whose cross-field rules read name.
func (e *Engine) Dependents(name string) []string {
	return append([]string(nil), e.dependents[name]...)
}

// ValidateField validates the field or slot key against values. Keys without
// a rule are always valid.
func (e *Engine) ValidateField(key string, value any, values map[string]any) string {
	rule, ok := e.Rule(key)
	if !ok {
		return ""
	}
	return Validate(key, value, rule, values)
}

// ValidateAll validates every declared field. The result is the same for the
// same values.
func (e *Engine) ValidateAll(values map[string]any) Errors {
	errs := make(Errors)
	for name := range e.rules {
		e.validateInto(errs, name, values)
	}
	return errs
}

// Revalidate patches errs after name changed: the field (or slot) itself and
// every dependent field are re-evaluated, and keys that became valid are
// removed. errs is modified in place and returned.
func (e *Engine) Revalidate(errs Errors, name string, values map[string]any) Errors {
	if errs == nil {
		errs = make(Errors)
	}
	if base, index, ok := SplitKey(name); ok {
		if rule, found := e.rules[base]; found && rule.Repeated {
			slots := Slots(values[base])
			if index < len(slots) {
				setOrClear(errs, name, Validate(name, slots[index], rule, values))
			} else {
				delete(errs, name)
			}
			name = base
			for _, dep := range e.dependents[name] {
				e.validateInto(errs, dep, values)
			}
			return errs
		}
	}
	e.validateInto(errs, name, values)
	for _, dep := range e.dependents[name] {
		e.validateInto(errs, dep, values)
	}
	return errs
}

func (e *Engine) validateInto(errs Errors, name string, values map[string]any) {
	rule, ok := e.rules[name]
	if !ok {
		return
	}
	if !rule.Repeated {
		setOrClear(errs, name, Validate(name, values[name], rule, values))
		return
	}
	for key := range errs {
		if base, _, ok := SplitKey(key); ok && base == name {
			delete(errs, key)
		}
	}
	slots := Slots(values[name])
	if len(slots) == 0 {
		slots = []string{""}
	}
	for i, slot := range slots {
		key := SlotKey(name, i)
		setOrClear(errs, key, Validate(key, slot, rule, values))
	}
}

func setOrClear(errs Errors, key, message string) {
	if message == "" {
		delete(errs, key)
		return
	}
	errs[key] = message
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
