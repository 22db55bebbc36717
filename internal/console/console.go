// Package console is the interactive terminal front end of the lead console.
// It renders list snapshots and form state produced by pkg/listing and
// pkg/form and feeds user intents back into them.
package console

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/notify"
	"github.com/goliatone/go-leadconsole/pkg/resources"
	"github.com/goliatone/go-leadconsole/pkg/session"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

var (
	errSignedOut = errors.New("console: signed out")
	errQuit      = errors.New("console: quit")
)

// Option configures a Console.
type Option func(*Console)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(c *Console) {
		if driver != nil {
			c.driver = driver
		}
	}
}

// WithOutput sets where tables, records and notifications are written.
func WithOutput(w io.Writer) Option {
	return func(c *Console) {
		if w != nil {
			c.out = w
		}
	}
}

// WithRegistry sets the resources offered in the main menu.
func WithRegistry(registry *resources.Registry) Option {
	return func(c *Console) {
		if registry != nil {
			c.registry = registry
		}
	}
}

// WithLogger sets the logger handed to controllers and forms.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// Console runs the login, menu, list and form screens.
type Console struct {
	api      *client.Client
	sess     *session.Session
	driver   PromptDriver
	out      io.Writer
	registry *resources.Registry
	logger   zerolog.Logger
	policy   *bluemonday.Policy
}

// New builds a console over api and sess.
func New(api *client.Client, sess *session.Session, opts ...Option) *Console {
	c := &Console{
		api:      api,
		sess:     sess,
		out:      os.Stdout,
		registry: resources.Default(),
		logger:   zerolog.Nop(),
		policy:   bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.driver == nil {
		c.driver = NewSurveyDriver(c.out)
	}
	return c
}

// Notify prints a notification line.
func (c *Console) Notify(level notify.Level, message string) {
	prefix := "[info]"
	switch level {
	case notify.LevelSuccess:
		prefix = "[ok]"
	case notify.LevelError:
		prefix = "[error]"
	}
	fmt.Fprintf(c.out, "%s %s\n", prefix, message)
}

// Run loops between the login screen and the main menu until the user quits,
// aborts a top level prompt or ctx is done. A session invalidated anywhere
// returns to the login screen.
func (c *Console) Run(ctx context.Context) error {
	cancel := c.sess.OnInvalidate(func() {
		c.logger.Info().Msg("session invalidated, returning to login")
	})
	defer cancel()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		if c.sess.Authenticated() {
			err = c.menu(ctx)
		} else {
			err = c.login(ctx)
		}
		switch {
		case err == nil, errors.Is(err, errSignedOut):
			continue
		case errors.Is(err, errQuit), errors.Is(err, ErrAborted):
			return nil
		default:
			return err
		}
	}
}

func (c *Console) login(ctx context.Context) error {
	engine := validation.NewEngine(resources.LoginRules())
	values := map[string]any{}

	c.info(ctx, "Sign in")
	email, err := c.ask(ctx, engine, values, "email", func() (string, error) {
		return c.driver.Input(ctx, InputConfig{Message: "Email"})
	})
	if err != nil {
		return err
	}
	password, err := c.ask(ctx, engine, values, "password", func() (string, error) {
		return c.driver.Password(ctx, InputConfig{Message: "Password"})
	})
	if err != nil {
		return err
	}

	res, err := c.api.Login(ctx, client.Credentials{Email: email, Password: password})
	if err != nil {
		env := apierr.Normalize(err)
		c.logger.Warn().Int("status", env.Status).Str("message", env.Message).Msg("login failed")
		c.Notify(notify.LevelError, env.Message)
		return nil
	}
	if err := c.sess.Begin(ctx, res.Token, userFrom(res.User)); err != nil {
		return err
	}
	c.Notify(notify.LevelSuccess, "Login successful")
	return nil
}

// ask prompts until the answer passes the rule stored under key.
func (c *Console) ask(ctx context.Context, engine *validation.Engine, values map[string]any, key string, prompt func() (string, error)) (string, error) {
	for {
		answer, err := prompt()
		if err != nil {
			return "", err
		}
		values[key] = answer
		if msg := engine.ValidateField(key, answer, values); msg != "" {
			c.info(ctx, "  "+msg)
			continue
		}
		return answer, nil
	}
}

func (c *Console) menu(ctx context.Context) error {
	type entry struct {
		label string
		run   func(context.Context) error
	}

	var entries []entry
	for _, name := range c.registry.List() {
		res, err := c.registry.Get(name)
		if err != nil {
			return err
		}
		entries = append(entries, entry{label: res.Title, run: func(ctx context.Context) error {
			return c.listScreen(ctx, res)
		}})
	}
	entries = append(entries,
		entry{label: "Profile", run: c.profile},
		entry{label: "Logout", run: c.logout},
		entry{label: "Quit", run: func(context.Context) error { return errQuit }},
	)
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.label
	}

	for {
		message := "Main menu"
		if user, ok := c.sess.User(); ok && user.Email != "" {
			message = fmt.Sprintf("Main menu (%s)", user.Email)
		}
		idx, err := c.driver.Select(ctx, SelectConfig{Message: message, Options: labels})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(entries) {
			continue
		}
		if err := entries[idx].run(ctx); err != nil {
			return err
		}
		if !c.sess.Authenticated() {
			return errSignedOut
		}
	}
}

func (c *Console) logout(ctx context.Context) error {
	if err := c.api.Logout(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("logout request failed")
	}
	if err := c.sess.Teardown(ctx); err != nil {
		return err
	}
	c.Notify(notify.LevelInfo, "Logged out")
	return errSignedOut
}

// expired reports a 401 that was handled outside a controller or form.
func (c *Console) expired(ctx context.Context) error {
	if err := c.sess.Invalidate(ctx); err != nil {
		c.logger.Error().Err(err).Msg("invalidate session")
	}
	c.Notify(notify.LevelError, "Session expired. Please log in again.")
	return errSignedOut
}

func (c *Console) info(ctx context.Context, msg string) {
	if err := c.driver.Info(ctx, msg); err != nil {
		c.logger.Debug().Err(err).Msg("info")
	}
}

// clean strips markup from server supplied text before it reaches the
// terminal.
func (c *Console) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(text)))
}

func userFrom(record client.Record) *session.User {
	if record == nil {
		return nil
	}
	return &session.User{
		ID:        client.ID(record),
		FirstName: validation.Text(record["firstName"]),
		LastName:  validation.Text(record["lastName"]),
		Email:     validation.Text(record["email"]),
		Role:      validation.Text(record["role"]),
	}
}
