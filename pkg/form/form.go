// Package form coordinates editing and submitting a record: values and errors
// live in a State, rules run through a validation.Engine, and Submit is
// single-flight so a repeated submit intent can never create two records.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/notify"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

var (
	// ErrInFlight is returned by Submit while a submission is outstanding.
	ErrInFlight = errors.New("form: submission already in flight")
	// ErrInvalid is wrapped by the envelope Submit returns when client-side
	// validation fails.
	ErrInvalid = errors.New("form: validation failed")
	// ErrClosed is returned when operating on a form that is not open.
	ErrClosed = errors.New("form: not open")
)

// SessionExpiredMessage is shown when a submission is rejected with 401.
const SessionExpiredMessage = "Session expired. Please log in again."

// Saver persists records.
type Saver interface {
	Create(ctx context.Context, endpoint string, payload client.Record) (client.Record, error)
	Update(ctx context.Context, endpoint, id string, payload client.Record) (client.Record, error)
}

// Invalidator clears the session after a 401.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Option configures a Form.
type Option func(*Form)

// WithSession sets the session invalidated on 401 responses.
func WithSession(s Invalidator) Option {
	return func(f *Form) {
		f.session = s
	}
}

// WithNotifier sets where success and failure notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(f *Form) {
		if n != nil {
			f.notifier = n
		}
	}
}

// WithLogger sets the form logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Form) {
		f.logger = logger
	}
}

// OnSaved registers the callback invoked with the saved record.
func OnSaved(fn func(mode Mode, record client.Record)) Option {
	return func(f *Form) {
		f.onSaved = fn
	}
}

// Form is the submission coordinator for one Definition.
type Form struct {
	def      Definition
	saver    Saver
	session  Invalidator
	notifier notify.Notifier
	logger   zerolog.Logger
	onSaved  func(Mode, client.Record)

	mu     sync.Mutex
	open   bool
	mode   Mode
	id     string
	seed   client.Record
	engine *validation.Engine
	state  State
	phase  Phase
}

// New builds a closed form.
func New(def Definition, saver Saver, opts ...Option) *Form {
	f := &Form{
		def:      def,
		saver:    saver,
		notifier: notify.Discard,
		logger:   zerolog.Nop(),
		state:    newState(map[string]any{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Definition returns the form's declaration.
func (f *Form) Definition() Definition {
	return f.def
}

// Open seeds the form. In create mode record overlays the defaults; in edit
// mode it is the record being edited. It returns ErrInFlight while a
// submission is outstanding.
func (f *Form) Open(mode Mode, record client.Record) error {
	var id string
	if mode == ModeEdit {
		id = validation.Text(record[f.def.idField()])
		if id == "" {
			id = client.ID(record)
		}
		if id == "" {
			return fmt.Errorf("form: %s: edited record has no %s", f.def.Name, f.def.idField())
		}
	}
	var rules validation.RuleSet
	if f.def.Rules != nil {
		rules = f.def.Rules(mode)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == PhaseSubmitting {
		return ErrInFlight
	}
	f.open = true
	f.mode = mode
	f.id = id
	f.seed = record
	f.engine = validation.NewEngine(rules)
	f.state = newState(f.def.seed(mode, record))
	f.phase = PhaseIdle
	return nil
}

// Reopen re-seeds the form from the record it was last opened with, also
// after Close.
func (f *Form) Reopen() error {
	f.mu.Lock()
	mode, seed := f.mode, f.seed
	f.mu.Unlock()
	return f.Open(mode, seed)
}

// Close discards the form state.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
}

func (f *Form) closeLocked() {
	f.open = false
	f.id = ""
	f.state = newState(map[string]any{})
}

// Snapshot returns a copy of the form state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		State: f.state.clone(),
		Open:  f.open,
		Mode:  f.mode,
		Phase: f.phase,
		ID:    f.id,
	}
}

// Phase returns the current phase.
func (f *Form) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Set updates a field, re-validates it together with its dependents and
// returns the field's message ("" when valid).
func (f *Form) Set(name string, value any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return "", ErrClosed
	}
	if field, ok := f.def.Field(name); ok && field.Kind == KindList {
		value = append([]string(nil), validation.Slots(value)...)
	}
	f.state.Values[name] = value
	f.engine.Revalidate(f.state.Errors, name, f.state.Values)
	f.editedLocked()
	return f.state.Errors[name], nil
}

// Validate runs every rule, stores and returns the errors without submitting.
func (f *Form) Validate() (validation.Errors, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return nil, ErrClosed
	}
	errs := f.engine.ValidateAll(f.state.Values)
	f.state.Errors = errs.Clone()
	return errs, nil
}

func (f *Form) editedLocked() {
	if f.phase == PhaseFailed || f.phase == PhaseSuccess {
		f.phase = PhaseIdle
	}
}

// Submit validates and, when valid, issues exactly one create or update call.
// A second call while the first is outstanding returns ErrInFlight without a
// request. On success the form closes and the saved callback runs; on failure
// the server's field errors are merged over the client errors and the form
// stays open.
func (f *Form) Submit(ctx context.Context) (client.Record, error) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.phase == PhaseSubmitting {
		f.mu.Unlock()
		return nil, ErrInFlight
	}

	f.phase = PhaseValidating
	errs := f.engine.ValidateAll(f.state.Values)
	if !errs.Valid() {
		f.state.Errors = errs.Clone()
		f.phase = PhaseIdle
		f.mu.Unlock()
		f.logger.Debug().Str("form", f.def.Name).Int("errors", len(errs)).Msg("submit blocked by validation")
		return nil, apierr.Validation(errs, ErrInvalid)
	}

	f.state.Errors = make(validation.Errors)
	f.state.Submitting = true
	f.phase = PhaseSubmitting
	mode, id := f.mode, f.id
	payload := f.def.payload(mode, f.state.Values)
	f.mu.Unlock()

	record, err := f.save(ctx, mode, id, payload)

	f.mu.Lock()
	f.state.Submitting = false
	if err == nil {
		f.phase = PhaseSuccess
		f.closeLocked()
		onSaved := f.onSaved
		f.mu.Unlock()

		f.logger.Info().Str("form", f.def.Name).Str("mode", mode.String()).Msg("record saved")
		f.notifier.Notify(notify.LevelSuccess, savedMessage(f.def.Name, mode))
		if onSaved != nil {
			onSaved(mode, record)
		}
		return record, nil
	}

	env := apierr.Normalize(err)
	f.phase = PhaseFailed
	if env.Unauthorized() {
		f.mu.Unlock()
		f.logger.Warn().Str("form", f.def.Name).Msg("submit unauthorized")
		if f.session != nil {
			if ierr := f.session.Invalidate(ctx); ierr != nil {
				f.logger.Error().Err(ierr).Msg("invalidate session")
			}
		}
		f.notifier.Notify(notify.LevelError, SessionExpiredMessage)
		return nil, env
	}

	if env.Kind() == apierr.KindServerValidation {
		for key, message := range env.FieldErrors {
			f.state.Errors[key] = message
		}
	}
	f.state.Errors[apierr.FormKey] = formMessage(env)
	f.mu.Unlock()

	f.logger.Error().
		Str("form", f.def.Name).
		Int("status", env.Status).
		Str("kind", string(env.Kind())).
		Str("message", env.Message).
		Msg("submit failed")
	f.notifier.Notify(notify.LevelError, formMessage(env))
	return nil, env
}

func (f *Form) save(ctx context.Context, mode Mode, id string, payload client.Record) (client.Record, error) {
	if f.saver == nil {
		return nil, errors.New("form: no saver configured")
	}
	if mode == ModeEdit {
		return f.saver.Update(ctx, f.def.Endpoint, id, payload)
	}
	return f.saver.Create(ctx, f.def.createEndpoint(), payload)
}

func formMessage(env *apierr.Envelope) string {
	if env.Message != "" {
		return env.Message
	}
	return apierr.DefaultMessage
}

func savedMessage(name string, mode Mode) string {
	if name == "" {
		name = "Record"
	}
	if mode == ModeEdit {
		return name + " updated successfully"
	}
	return name + " added successfully"
}
