package form

import (
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

// FieldArray edits a repeatable field of an open form. Slot errors are keyed
// "<name>.<index>" and follow their slot when earlier slots are removed.
type FieldArray struct {
	form *Form
	name string
}

// Array returns the editor for the repeatable field name.
func (f *Form) Array(name string) *FieldArray {
	return &FieldArray{form: f, name: name}
}

// Len reports the number of slots.
func (a *FieldArray) Len() int {
	a.form.mu.Lock()
	defer a.form.mu.Unlock()
	return len(validation.Slots(a.form.state.Values[a.name]))
}

// Values returns a copy of the slots.
func (a *FieldArray) Values() []string {
	a.form.mu.Lock()
	defer a.form.mu.Unlock()
	return append([]string(nil), validation.Slots(a.form.state.Values[a.name])...)
}

// Add appends an empty slot.
func (a *FieldArray) Add() error {
	f := a.form
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return ErrClosed
	}
	slots := append(a.slotsLocked(), "")
	f.state.Values[a.name] = slots
	f.editedLocked()
	return nil
}

// RemoveAt deletes slot index and shifts later slot errors down by one. It
// reports false, changing nothing, when only one slot remains or index is
// out of range.
func (a *FieldArray) RemoveAt(index int) (bool, error) {
	f := a.form
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return false, ErrClosed
	}
	slots := a.slotsLocked()
	if len(slots) <= 1 || index < 0 || index >= len(slots) {
		return false, nil
	}
	slots = append(slots[:index], slots[index+1:]...)
	f.state.Values[a.name] = slots

	errs := f.state.Errors
	delete(errs, validation.SlotKey(a.name, index))
	for i := index + 1; i <= len(slots); i++ {
		from := validation.SlotKey(a.name, i)
		msg, ok := errs[from]
		delete(errs, from)
		if ok {
			errs[validation.SlotKey(a.name, i-1)] = msg
		}
	}
	for _, dep := range f.engine.Dependents(a.name) {
		f.engine.Revalidate(errs, dep, f.state.Values)
	}
	f.editedLocked()
	return true, nil
}

// SetAt updates slot index and re-validates that slot only. It returns the
// slot's message ("" when valid).
func (a *FieldArray) SetAt(index int, value string) (string, error) {
	f := a.form
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return "", ErrClosed
	}
	slots := a.slotsLocked()
	if index < 0 || index >= len(slots) {
		return "", nil
	}
	slots[index] = value
	f.state.Values[a.name] = slots
	key := validation.SlotKey(a.name, index)
	f.engine.Revalidate(f.state.Errors, key, f.state.Values)
	f.editedLocked()
	return f.state.Errors[key], nil
}

// slotsLocked returns a fresh copy so a payload captured by an in-flight
// submission is never mutated.
func (a *FieldArray) slotsLocked() []string {
	return append([]string(nil), validation.Slots(a.form.state.Values[a.name])...)
}
