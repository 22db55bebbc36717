package console

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-leadconsole/internal/fakeapi"
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/listing"
	"github.com/goliatone/go-leadconsole/pkg/resources"
	"github.com/goliatone/go-leadconsole/pkg/session"
	"github.com/goliatone/go-leadconsole/pkg/transport"
)

// stubDriver answers prompts from a script: strings for inputs, passwords
// and select labels, ints for select indices and bools for confirms. An
// exhausted script aborts.
type stubDriver struct {
	answers []any
	pos     int
	prompts []string
	infos   []string
}

func (s *stubDriver) next(message string) (any, error) {
	s.prompts = append(s.prompts, message)
	if s.pos >= len(s.answers) {
		return nil, ErrAborted
	}
	val := s.answers[s.pos]
	s.pos++
	return val, nil
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	val, err := s.next(cfg.Message)
	if err != nil {
		return "", err
	}
	text, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("input %q: scripted %T", cfg.Message, val)
	}
	return text, nil
}

func (s *stubDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	return s.Input(ctx, cfg)
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	val, err := s.next(cfg.Message)
	if err != nil {
		return false, err
	}
	answer, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("confirm %q: scripted %T", cfg.Message, val)
	}
	return answer, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	val, err := s.next(cfg.Message)
	if err != nil {
		return -1, err
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case string:
		if idx := indexOf(cfg.Options, v); idx >= 0 {
			return idx, nil
		}
		return -1, fmt.Errorf("select %q: %q not in %v", cfg.Message, v, cfg.Options)
	default:
		return -1, fmt.Errorf("select %q: scripted %T", cfg.Message, val)
	}
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

type harness struct {
	console *Console
	driver  *stubDriver
	out     *bytes.Buffer
	api     *client.Client
	sess    *session.Session
}

func newHarness(t *testing.T, state session.State, answers []any, fns ...fakeapi.OptionFn) *harness {
	t.Helper()
	return newWrappedHarness(t, state, answers, nil, fns...)
}

// newWrappedHarness serves the fake API through wrap, when set.
func newWrappedHarness(t *testing.T, state session.State, answers []any, wrap func(http.Handler) http.Handler, fns ...fakeapi.OptionFn) *harness {
	t.Helper()
	var handler http.Handler = fakeapi.New(fns...).Handler()
	if wrap != nil {
		handler = wrap(handler)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := session.New(session.NewMemoryStore(state))
	require.NoError(t, sess.Init(context.Background()))
	doer, err := transport.New(srv.URL+fakeapi.BasePath, transport.WithTokenSource(sess))
	require.NoError(t, err)

	h := &harness{
		driver: &stubDriver{answers: answers},
		out:    &bytes.Buffer{},
		api:    client.New(doer),
		sess:   sess,
	}
	h.console = New(h.api, sess, WithPromptDriver(h.driver), WithOutput(h.out))
	return h
}

func loginAnswers(rest ...any) []any {
	admin := fakeapi.DefaultOptions().Admin
	return append([]any{admin.Email, admin.Password}, rest...)
}

func TestLoginRepromptsInvalidEmail(t *testing.T) {
	admin := fakeapi.DefaultOptions().Admin
	h := newHarness(t, session.State{}, []any{"not-an-email", admin.Email, admin.Password, "Quit"})

	require.NoError(t, h.console.Run(context.Background()))

	assert.Contains(t, h.driver.infos, "  Email is invalid")
	assert.Contains(t, h.out.String(), "[ok] Login successful")
	assert.True(t, h.sess.Authenticated())
	user, ok := h.sess.User()
	require.True(t, ok)
	assert.Equal(t, admin.Email, user.Email)
}

func TestLoginFailureStaysOnLoginScreen(t *testing.T) {
	h := newHarness(t, session.State{}, []any{"admin@example.com", "Wrong123!"})

	require.NoError(t, h.console.Run(context.Background()))

	assert.Contains(t, h.out.String(), "[error] Invalid email or password")
	assert.False(t, h.sess.Authenticated())
	assert.Equal(t, []string{"Email", "Password", "Email"}, h.driver.prompts)
}

func TestCreateLeadFromConsole(t *testing.T) {
	h := newHarness(t, session.State{}, loginAnswers(
		"Leads", "Create",
		"Ada", "ada@home.test", listDone,
		"ada@acme.test", "https://acme.test", "https://linkedin.com/in/ada", "Software", "",
		resources.StatusActive, resources.PriorityHigh,
		actionBack, "Quit",
	))

	require.NoError(t, h.console.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "[ok] Lead added successfully")
	assert.Contains(t, out, "No leads found")
	assert.Contains(t, out, "ada@home.test")

	raw, err := h.api.List(context.Background(), "lead", client.ListParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	page := listing.CollectionNormalizer("leads")(raw)
	require.Len(t, page.Items, 1)
	user, _ := h.sess.User()
	assert.Equal(t, user.ID, page.Items[0]["userId"])
	assert.Equal(t, []any{"ada@home.test"}, page.Items[0]["email"])
	_, hasNumber := page.Items[0]["whatsUpNumber"]
	assert.True(t, hasNumber)
}

func TestServerFieldErrorsAreShown(t *testing.T) {
	h := newHarness(t, session.State{}, loginAnswers(
		"Leads", "Create",
		"Dup", "dup@home.test", listDone,
		"lead01@work.example.com", "https://dup.test", "https://linkedin.com/in/dup", "Retail", "",
		resources.StatusActive, resources.PriorityHigh,
		false,
		actionBack, "Quit",
	), fakeapi.WithDemoLeads(1))

	require.NoError(t, h.console.Run(context.Background()))

	assert.Contains(t, h.driver.infos, "  Work Email: Email already used")
	assert.Contains(t, h.out.String(), "[error] Validation failed")
	assert.Contains(t, h.out.String(), "[info] Cancelled")
}

func TestDeleteLead(t *testing.T) {
	h := newHarness(t, session.State{}, loginAnswers(
		"Leads", actionDelete, 0, true, actionBack, "Quit",
	), fakeapi.WithDemoLeads(2))

	require.NoError(t, h.console.Run(context.Background()))

	assert.Contains(t, h.out.String(), "[ok] Lead deleted successfully")
	raw, err := h.api.List(context.Background(), "lead", client.ListParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	page := listing.CollectionNormalizer("leads")(raw)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Lead 02", page.Items[0]["firstName"])
}

// rejectDeletes answers every DELETE with status and counts lead list fetches.
func rejectDeletes(status int, lists *int32) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodDelete:
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				fmt.Fprintf(w, `{"message":%q}`, http.StatusText(status))
				return
			case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/lead"):
				atomic.AddInt32(lists, 1)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TestDeleteFailureKeepsList(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var lists int32
			h := newWrappedHarness(t, session.State{}, loginAnswers(
				"Leads", actionDelete, 0, true, actionBack, "Quit",
			), rejectDeletes(status, &lists), fakeapi.WithDemoLeads(2))

			require.NoError(t, h.console.Run(context.Background()))

			out := h.out.String()
			assert.Contains(t, out, "[error] Failed to delete lead")
			assert.NotContains(t, out, "deleted successfully")
			assert.Equal(t, int32(1), atomic.LoadInt32(&lists), "a failed delete must not refresh the list")
			assert.True(t, h.sess.Authenticated())

			raw, err := h.api.List(context.Background(), "lead", client.ListParams{Page: 1, Limit: 10})
			require.NoError(t, err)
			assert.Len(t, listing.CollectionNormalizer("leads")(raw).Items, 2)
		})
	}
}

func TestUnauthorizedDeleteReturnsToLogin(t *testing.T) {
	var lists int32
	h := newWrappedHarness(t, session.State{}, loginAnswers(
		"Leads", actionDelete, 0, true,
	), rejectDeletes(http.StatusUnauthorized, &lists), fakeapi.WithDemoLeads(2))

	require.NoError(t, h.console.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "[error] Session expired. Please log in again.")
	assert.NotContains(t, out, "Failed to delete")
	assert.False(t, h.sess.Authenticated())
	assert.Equal(t, int32(1), atomic.LoadInt32(&lists))
	require.NotEmpty(t, h.driver.prompts)
	assert.Equal(t, "Email", h.driver.prompts[len(h.driver.prompts)-1])
}

func TestExpiredSessionReturnsToLogin(t *testing.T) {
	state := session.State{Token: "stale", User: &session.User{ID: "u1", Email: "old@example.com"}}
	h := newHarness(t, state, []any{"Leads"})

	require.NoError(t, h.console.Run(context.Background()))

	assert.Contains(t, h.out.String(), "[error] Session expired. Please log in again.")
	assert.False(t, h.sess.Authenticated())
	require.NotEmpty(t, h.driver.prompts)
	assert.Equal(t, "Email", h.driver.prompts[len(h.driver.prompts)-1])
}

func TestUsersFilterSendsEncodedRole(t *testing.T) {
	h := newHarness(t, session.State{}, loginAnswers(
		"Users", actionFilter, resources.RoleSuperAdmin, actionBack, "Quit",
	))

	require.NoError(t, h.console.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "role: SuperAdmin")
	assert.NotContains(t, out, "No users found")
}

type payloadSaver struct {
	created client.Record
}

func (s *payloadSaver) Create(_ context.Context, _ string, payload client.Record) (client.Record, error) {
	s.created = payload
	return payload, nil
}

func (s *payloadSaver) Update(_ context.Context, _, _ string, payload client.Record) (client.Record, error) {
	return payload, nil
}

func TestFillKeepsPasswordVerbatim(t *testing.T) {
	driver := &stubDriver{answers: []any{
		" Ada ", "Lovelace", "ada@example.com", "5551234567", "Abcd1 ", resources.RoleAdmin,
	}}
	c := New(nil, session.New(nil), WithPromptDriver(driver), WithOutput(&bytes.Buffer{}))
	saver := &payloadSaver{}
	f := form.New(resources.UserForm(), saver)
	require.NoError(t, f.Open(form.ModeCreate, nil))

	record, err := c.fill(context.Background(), f)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "Abcd1 ", saver.created["password"])
	assert.Equal(t, "Ada", saver.created["firstName"])
}

func TestRenderTablePlaceholders(t *testing.T) {
	out := &bytes.Buffer{}
	c := New(nil, session.New(nil), WithOutput(out), WithPromptDriver(&stubDriver{}))

	c.renderTable(resources.Leads(), listing.Snapshot{
		Query:        listing.Query{Page: 1, PageSize: 10},
		TotalPages:   1,
		Loading:      true,
		Placeholders: 3,
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "loading")
	for _, line := range lines[2:] {
		assert.Contains(t, line, placeholderCell)
	}
}

func TestCleanStripsMarkup(t *testing.T) {
	c := New(nil, session.New(nil), WithPromptDriver(&stubDriver{}))

	assert.Equal(t, "Tom & Jerry", c.clean("<b>Tom</b> & Jerry"))
	assert.Equal(t, "N/A", c.clean(resources.Display("")))
}
