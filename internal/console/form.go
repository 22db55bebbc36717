package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/notify"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

const (
	listDone   = "Done"
	listAdd    = "Add another"
	listRemove = "Remove one"
)

// fill prompts every visible field of an open form and submits it. Fields
// rejected by validation or by the server are prompted again. A nil record
// without error means the user gave up and the form was closed.
func (c *Console) fill(ctx context.Context, f *form.Form) (client.Record, error) {
	def := f.Definition()
	snap := f.Snapshot()
	fields := make([]form.Field, 0, len(def.Fields))
	for _, field := range def.FieldsFor(snap.Mode) {
		if field.Kind != form.KindHidden {
			fields = append(fields, field)
		}
	}

	title := def.Name
	if snap.Mode == form.ModeEdit {
		title = "Edit " + strings.ToLower(title)
	} else {
		title = "New " + strings.ToLower(title)
	}
	c.info(ctx, title)

	var only map[string]bool
	for {
		for _, field := range fields {
			if only != nil && !only[field.Name] {
				continue
			}
			if err := c.promptField(ctx, f, field); err != nil {
				return c.abandon(f, err)
			}
		}

		record, err := f.Submit(ctx)
		if err == nil {
			return record, nil
		}
		if errors.Is(err, form.ErrInFlight) {
			continue
		}
		env := apierr.Normalize(err)
		if env.Unauthorized() {
			f.Close()
			return nil, errSignedOut
		}

		errs := f.Snapshot().Errors
		c.showErrors(ctx, def, errs)
		only = invalidFields(fields, errs)

		if errors.Is(err, form.ErrInvalid) {
			if len(only) == 0 {
				c.Notify(notify.LevelError, env.Message)
				f.Close()
				return nil, nil
			}
			continue
		}

		retry, err := c.driver.Confirm(ctx, ConfirmConfig{Message: "Edit and try again?", Default: true})
		if err != nil || !retry {
			return c.abandon(f, err)
		}
		if len(only) == 0 {
			only = nil
		}
	}
}

// abandon closes f. Aborting a prompt cancels the form without ending the
// surrounding screen.
func (c *Console) abandon(f *form.Form, err error) (client.Record, error) {
	f.Close()
	if err == nil || errors.Is(err, ErrAborted) {
		c.Notify(notify.LevelInfo, "Cancelled")
		return nil, nil
	}
	return nil, err
}

func (c *Console) showErrors(ctx context.Context, def form.Definition, errs validation.Errors) {
	keys := make([]string, 0, len(errs))
	for key := range errs {
		if key != apierr.FormKey {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		c.info(ctx, fmt.Sprintf("  %s: %s", errorLabel(def, key), errs[key]))
	}
}

func errorLabel(def form.Definition, key string) string {
	name, index, slot := validation.SplitKey(key)
	field, ok := def.Field(name)
	if !ok || field.Label == "" {
		return key
	}
	if slot {
		return fmt.Sprintf("%s #%d", field.Label, index+1)
	}
	return field.Label
}

// invalidFields maps error keys, including slot keys, to prompted field names.
func invalidFields(fields []form.Field, errs validation.Errors) map[string]bool {
	prompted := make(map[string]bool, len(fields))
	for _, field := range fields {
		prompted[field.Name] = true
	}
	out := map[string]bool{}
	for key := range errs {
		name, _, _ := validation.SplitKey(key)
		if prompted[key] {
			out[key] = true
		} else if prompted[name] {
			out[name] = true
		}
	}
	return out
}

func (c *Console) promptField(ctx context.Context, f *form.Form, field form.Field) error {
	switch field.Kind {
	case form.KindHidden:
		return nil
	case form.KindList:
		return c.promptList(ctx, f, field)
	case form.KindSelect:
		return c.promptSelect(ctx, f, field)
	}

	for {
		cfg := InputConfig{Message: fieldLabel(field), Help: field.Help}
		var (
			value string
			err   error
		)
		if field.Kind == form.KindPassword {
			value, err = c.driver.Password(ctx, cfg)
		} else {
			cfg.Default = f.Snapshot().Text(field.Name)
			value, err = c.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}
		if field.Kind != form.KindPassword {
			value = strings.TrimSpace(value)
		}
		msg, err := f.Set(field.Name, value)
		if err != nil {
			return err
		}
		if msg == "" {
			return nil
		}
		c.info(ctx, "  "+msg)
	}
}

func (c *Console) promptSelect(ctx context.Context, f *form.Form, field form.Field) error {
	for {
		idx, err := c.driver.Select(ctx, SelectConfig{
			Message:      fieldLabel(field),
			Options:      field.Options,
			DefaultIndex: indexOf(field.Options, f.Snapshot().Text(field.Name)),
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(field.Options) {
			continue
		}
		msg, err := f.Set(field.Name, field.Options[idx])
		if err != nil {
			return err
		}
		if msg == "" {
			return nil
		}
		c.info(ctx, "  "+msg)
	}
}

// promptList edits a repeatable field slot by slot, then offers to add or
// remove slots until the user is done.
func (c *Console) promptList(ctx context.Context, f *form.Form, field form.Field) error {
	arr := f.Array(field.Name)
	for i := 0; i < arr.Len(); i++ {
		if err := c.promptSlot(ctx, arr, field, i); err != nil {
			return err
		}
	}

	for {
		options := []string{listDone, listAdd}
		if arr.Len() > 1 {
			options = append(options, listRemove)
		}
		idx, err := c.driver.Select(ctx, SelectConfig{
			Message: fmt.Sprintf("%s: %s", field.Label, strings.Join(arr.Values(), ", ")),
			Options: options,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(options) {
			continue
		}

		switch options[idx] {
		case listDone:
			return nil
		case listAdd:
			if err := arr.Add(); err != nil {
				return err
			}
			if err := c.promptSlot(ctx, arr, field, arr.Len()-1); err != nil {
				return err
			}
		case listRemove:
			values := arr.Values()
			labels := make([]string, len(values))
			for i, v := range values {
				labels[i] = fmt.Sprintf("#%d %s", i+1, v)
			}
			pick, err := c.driver.Select(ctx, SelectConfig{Message: "Remove which?", Options: labels})
			if err != nil {
				return err
			}
			if _, err := arr.RemoveAt(pick); err != nil {
				return err
			}
		}
	}
}

func (c *Console) promptSlot(ctx context.Context, arr *form.FieldArray, field form.Field, index int) error {
	for {
		values := arr.Values()
		current := ""
		if index < len(values) {
			current = values[index]
		}
		value, err := c.driver.Input(ctx, InputConfig{
			Message: fmt.Sprintf("%s #%d", field.Label, index+1),
			Default: current,
			Help:    field.Help,
		})
		if err != nil {
			return err
		}
		msg, err := arr.SetAt(index, strings.TrimSpace(value))
		if err != nil {
			return err
		}
		if msg == "" {
			return nil
		}
		c.info(ctx, "  "+msg)
	}
}

func fieldLabel(field form.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}
