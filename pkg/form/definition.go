package form

import (
	"strings"

	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

// Mode distinguishes creating a record from editing one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// FieldKind tells a renderer how to prompt for a field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindPassword FieldKind = "password"
	KindSelect   FieldKind = "select"
	KindList     FieldKind = "list"
	KindHidden   FieldKind = "hidden"
)

// Field describes one input of a form.
type Field struct {
	Name    string
	Label   string
	Kind    FieldKind
	Options []string
	Help    string

	// CreateOnly fields are neither prompted nor sent when editing.
	CreateOnly bool
	// Transient fields are validated but never sent.
	Transient bool
}

// In reports whether the field takes part in mode.
func (f Field) In(mode Mode) bool {
	return !(f.CreateOnly && mode == ModeEdit)
}

// Definition declares a form type: its fields, rules, seeding and payload.
type Definition struct {
	Name string
	// Endpoint receives updates (PUT <Endpoint>/<id>) and, unless
	// CreateEndpoint is set, creates.
	Endpoint       string
	CreateEndpoint string
	// IDField names the identity attribute; defaults to "_id".
	IDField string

	Fields []Field

	// Defaults seeds a create form.
	Defaults func() map[string]any
	// FromRecord seeds an edit form; the default copies declared fields.
	FromRecord func(record client.Record) map[string]any
	// Rules returns the rule set for mode.
	Rules func(mode Mode) validation.RuleSet
	// Payload post-processes the request body built from the values.
	Payload func(mode Mode, payload client.Record) client.Record
}

func (d Definition) idField() string {
	if d.IDField != "" {
		return d.IDField
	}
	return "_id"
}

func (d Definition) createEndpoint() string {
	if d.CreateEndpoint != "" {
		return d.CreateEndpoint
	}
	return d.Endpoint
}

// Field looks up a field by name.
func (d Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldsFor lists the fields prompted in mode.
func (d Definition) FieldsFor(mode Mode) []Field {
	out := make([]Field, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.In(mode) {
			out = append(out, f)
		}
	}
	return out
}

func (d Definition) seed(mode Mode, record client.Record) map[string]any {
	values := make(map[string]any)
	if mode == ModeCreate {
		if d.Defaults != nil {
			for k, v := range d.Defaults() {
				values[k] = v
			}
		}
		for k, v := range record {
			values[k] = v
		}
	} else if d.FromRecord != nil {
		values = d.FromRecord(record)
		if values == nil {
			values = make(map[string]any)
		}
	} else {
		for _, f := range d.Fields {
			if v, ok := record[f.Name]; ok {
				values[f.Name] = v
			}
		}
	}
	for _, f := range d.Fields {
		if f.Kind == KindList {
			slots := validation.Slots(values[f.Name])
			if len(slots) == 0 {
				slots = []string{""}
			}
			values[f.Name] = append([]string(nil), slots...)
		}
	}
	return values
}

// payload builds the request body. Edit mode drops the identity field,
// create-only fields and blank password fields; transient fields are never
// sent.
func (d Definition) payload(mode Mode, values map[string]any) client.Record {
	out := make(client.Record, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, f := range d.Fields {
		switch {
		case f.Transient:
			delete(out, f.Name)
		case mode == ModeEdit && f.CreateOnly:
			delete(out, f.Name)
		case mode == ModeEdit && f.Kind == KindPassword && strings.TrimSpace(validation.Text(out[f.Name])) == "":
			delete(out, f.Name)
		}
	}
	if mode == ModeEdit {
		delete(out, d.idField())
		delete(out, "id")
	}
	if d.Payload != nil {
		out = d.Payload(mode, out)
	}
	return out
}
