package form_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/notify"
	"github.com/goliatone/go-leadconsole/pkg/session"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

type call struct {
	Method   string
	Endpoint string
	ID       string
	Payload  client.Record
}

type stubSaver struct {
	mu      sync.Mutex
	calls   []call
	err     error
	release chan struct{}
	entered chan struct{}
}

func (s *stubSaver) record(c call) error {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	err := s.err
	s.mu.Unlock()
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	return err
}

func (s *stubSaver) Create(_ context.Context, endpoint string, payload client.Record) (client.Record, error) {
	if err := s.record(call{Method: http.MethodPost, Endpoint: endpoint, Payload: payload}); err != nil {
		return nil, err
	}
	out := client.Record{"_id": "new-1"}
	for k, v := range payload {
		out[k] = v
	}
	return out, nil
}

func (s *stubSaver) Update(_ context.Context, endpoint, id string, payload client.Record) (client.Record, error) {
	if err := s.record(call{Method: http.MethodPut, Endpoint: endpoint, ID: id, Payload: payload}); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *stubSaver) Calls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func contactDefinition() form.Definition {
	return form.Definition{
		Name:           "Contact",
		Endpoint:       "auth",
		CreateEndpoint: "auth/register",
		Fields: []form.Field{
			{Name: "name", Label: "Name", Kind: form.KindText},
			{Name: "email", Label: "Email", Kind: form.KindList},
			{Name: "workEmail", Label: "Work Email", Kind: form.KindText},
			{Name: "phone", Label: "Phone", Kind: form.KindText},
			{Name: "password", Label: "Password", Kind: form.KindPassword},
			{Name: "confirm", Label: "Confirm", Kind: form.KindPassword, Transient: true},
		},
		Defaults: func() map[string]any {
			return map[string]any{"role": "Admin"}
		},
		Rules: func(mode form.Mode) validation.RuleSet {
			rules := validation.RuleSet{
				"name": validation.RequiredText("Name"),
				"email": {
					Label:          "Email",
					Required:       true,
					Pattern:        validation.EmailPattern,
					PatternMessage: "Email is invalid",
					Repeated:       true,
				},
				"workEmail": validation.Email("Work Email", "Work Email is invalid"),
				"phone": {
					Checks: []validation.Check{validation.MinDigits(10, "Phone must be at least 10 digits")},
				},
				"confirm": {
					Cross: []validation.CrossField{validation.EqualsField("password", "Passwords do not match")},
				},
			}
			if mode == form.ModeCreate {
				rules["password"] = validation.Rule{
					Label:    "Password",
					Required: true,
					Checks:   []validation.Check{validation.StrongPassword},
				}
			}
			return rules
		},
	}
}

func openValid(t *testing.T, f *form.Form) {
	t.Helper()
	if err := f.Open(form.ModeCreate, nil); err != nil {
		t.Fatalf("open: %v", err)
	}
	for name, value := range map[string]any{
		"name":      "Ada",
		"email":     []string{"ada@example.com"},
		"workEmail": "ada@work.example.com",
		"password":  "Secret1!",
		"confirm":   "Secret1!",
	} {
		if _, err := f.Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
}

func TestSubmitBlockedByValidation(t *testing.T) {
	saver := &stubSaver{}
	f := form.New(contactDefinition(), saver)
	openValid(t, f)
	if _, err := f.Set("phone", "12345"); err != nil {
		t.Fatalf("set: %v", err)
	}

	_, err := f.Submit(context.Background())
	if !errors.Is(err, form.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if !apierr.Is(err, apierr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	if len(saver.Calls()) != 0 {
		t.Fatalf("validation failure must not call the saver")
	}
	snap := f.Snapshot()
	if snap.Phase != form.PhaseIdle || !snap.Open {
		t.Fatalf("expected open idle form, got %v open=%v", snap.Phase, snap.Open)
	}
	if diff := cmp.Diff(validation.Errors{"phone": "Phone must be at least 10 digits"}, snap.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitCreateSuccess(t *testing.T) {
	saver := &stubSaver{}
	rec := &notify.Recorder{}
	var saved client.Record
	f := form.New(contactDefinition(), saver,
		form.WithNotifier(rec),
		form.OnSaved(func(_ form.Mode, r client.Record) { saved = r }),
	)
	openValid(t, f)

	out, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if client.ID(out) != "new-1" || client.ID(saved) != "new-1" {
		t.Fatalf("saved callback not invoked with record: %v", saved)
	}

	calls := saver.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	want := client.Record{
		"role":      "Admin",
		"name":      "Ada",
		"email":     []string{"ada@example.com"},
		"workEmail": "ada@work.example.com",
		"password":  "Secret1!",
	}
	if calls[0].Endpoint != "auth/register" {
		t.Fatalf("expected create endpoint, got %q", calls[0].Endpoint)
	}
	if diff := cmp.Diff(want, calls[0].Payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	snap := f.Snapshot()
	if snap.Open || snap.Phase != form.PhaseSuccess || len(snap.Values) != 0 {
		t.Fatalf("expected closed, reset form, got %+v", snap)
	}
	if diff := cmp.Diff([]notify.Notice{{Level: notify.LevelSuccess, Message: "Contact added successfully"}}, rec.Notices()); diff != "" {
		t.Fatalf("notices mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitIsSingleFlight(t *testing.T) {
	saver := &stubSaver{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	f := form.New(contactDefinition(), saver)
	openValid(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	select {
	case <-saver.entered:
	case <-time.After(time.Second):
		t.Fatalf("first submission never reached the saver")
	}
	if f.Phase() != form.PhaseSubmitting || !f.Snapshot().Submitting {
		t.Fatalf("expected submitting phase, got %v", f.Phase())
	}

	if _, err := f.Submit(context.Background()); !errors.Is(err, form.ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	close(saver.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if n := len(saver.Calls()); n != 1 {
		t.Fatalf("expected exactly one create call, got %d", n)
	}
}

func TestOpenIsRefusedWhileSubmitting(t *testing.T) {
	saver := &stubSaver{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	f := form.New(contactDefinition(), saver)
	openValid(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	select {
	case <-saver.entered:
	case <-time.After(time.Second):
		t.Fatalf("first submission never reached the saver")
	}

	if err := f.Open(form.ModeCreate, nil); !errors.Is(err, form.ErrInFlight) {
		t.Fatalf("expected ErrInFlight from Open, got %v", err)
	}
	if err := f.Reopen(); !errors.Is(err, form.ErrInFlight) {
		t.Fatalf("expected ErrInFlight from Reopen, got %v", err)
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, form.ErrInFlight) {
		t.Fatalf("expected ErrInFlight from Submit, got %v", err)
	}

	close(saver.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if n := len(saver.Calls()); n != 1 {
		t.Fatalf("expected exactly one create call, got %d", n)
	}
	if snap := f.Snapshot(); snap.Open || snap.Phase != form.PhaseSuccess {
		t.Fatalf("expected closed successful form, got open=%v phase=%v", snap.Open, snap.Phase)
	}

	// Once the request has settled the form can be opened again.
	openValid(t, f)
	if f.Phase() != form.PhaseIdle {
		t.Fatalf("expected idle after reopening, got %v", f.Phase())
	}
}

func TestServerErrorsMergeOverClientErrors(t *testing.T) {
	saver := &stubSaver{err: apierr.FromResponse(http.StatusBadRequest,
		[]byte(`{"message":"Validation failed","errors":{"workEmail":["Email already used"]}}`))}
	f := form.New(contactDefinition(), saver)
	openValid(t, f)

	_, err := f.Submit(context.Background())
	if !apierr.Is(err, apierr.KindServerValidation) {
		t.Fatalf("expected server validation error, got %v", err)
	}
	snap := f.Snapshot()
	want := validation.Errors{"workEmail": "Email already used", "form": "Validation failed"}
	if diff := cmp.Diff(want, snap.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if !snap.Open || snap.Phase != form.PhaseFailed {
		t.Fatalf("expected open failed form, got open=%v phase=%v", snap.Open, snap.Phase)
	}
	if snap.FormError() != "Validation failed" {
		t.Fatalf("unexpected form error %q", snap.FormError())
	}

	if _, err := f.Set("name", "Ada L"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if f.Phase() != form.PhaseIdle {
		t.Fatalf("edit must return the form to idle, got %v", f.Phase())
	}
}

func TestTransportFailureIsFormLevelOnly(t *testing.T) {
	saver := &stubSaver{err: errors.New("dial tcp: connection refused")}
	f := form.New(contactDefinition(), saver)
	openValid(t, f)

	_, err := f.Submit(context.Background())
	if !apierr.Is(err, apierr.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	errs := f.Snapshot().Errors
	if len(errs) != 1 || errs["form"] == "" {
		t.Fatalf("expected only a form-level message, got %v", errs)
	}
}

func TestUnauthorizedSubmitInvalidatesSession(t *testing.T) {
	ctx := context.Background()
	sess := session.New(nil)
	if err := sess.Begin(ctx, "tok", nil); err != nil {
		t.Fatalf("begin: %v", err)
	}
	saver := &stubSaver{err: &apierr.Envelope{Status: http.StatusUnauthorized, Message: "Unauthorized"}}
	f := form.New(contactDefinition(), saver, form.WithSession(sess))
	openValid(t, f)

	_, err := f.Submit(ctx)
	if !apierr.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if sess.Authenticated() {
		t.Fatalf("expected session to be invalidated")
	}
	if errs := f.Snapshot().Errors; len(errs) != 0 {
		t.Fatalf("401 must not surface as form errors, got %v", errs)
	}
}

func TestEditPayloadOmitsIdentityAndBlankPassword(t *testing.T) {
	saver := &stubSaver{}
	f := form.New(contactDefinition(), saver)
	err := f.Open(form.ModeEdit, client.Record{
		"_id":       "user-7",
		"name":      "Ada",
		"email":     "ada@example.com",
		"workEmail": "ada@work.example.com",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := f.Array("email").Values(); !cmp.Equal(got, []string{"ada@example.com"}) {
		t.Fatalf("single email must seed one slot, got %v", got)
	}

	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	calls := saver.Calls()
	if len(calls) != 1 || calls[0].Method != http.MethodPut || calls[0].ID != "user-7" || calls[0].Endpoint != "auth" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	want := client.Record{
		"name":      "Ada",
		"email":     []string{"ada@example.com"},
		"workEmail": "ada@work.example.com",
	}
	if diff := cmp.Diff(want, calls[0].Payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenEditRequiresID(t *testing.T) {
	f := form.New(contactDefinition(), &stubSaver{})
	if err := f.Open(form.ModeEdit, client.Record{"name": "x"}); err == nil {
		t.Fatalf("expected error for record without id")
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, form.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestReopenResetsState(t *testing.T) {
	f := form.New(contactDefinition(), &stubSaver{})
	openValid(t, f)
	if _, err := f.Set("name", ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if f.Snapshot().Errors["name"] == "" {
		t.Fatalf("expected name error")
	}
	if err := f.Reopen(); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	snap := f.Snapshot()
	if len(snap.Errors) != 0 || snap.Phase != form.PhaseIdle || snap.Text("role") != "Admin" {
		t.Fatalf("unexpected reopened state %+v", snap)
	}
}

func TestReopenAfterCloseInEditMode(t *testing.T) {
	f := form.New(contactDefinition(), &stubSaver{})
	err := f.Open(form.ModeEdit, client.Record{
		"_id":   "user-7",
		"name":  "Ada",
		"email": "ada@example.com",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.Close()
	if f.Snapshot().Open {
		t.Fatalf("expected closed form")
	}

	if err := f.Reopen(); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	snap := f.Snapshot()
	if !snap.Open || snap.Mode != form.ModeEdit || snap.ID != "user-7" || snap.Text("name") != "Ada" {
		t.Fatalf("unexpected reopened state %+v", snap)
	}
}
