// Package listing keeps a resource list in sync with its query: every query
// change triggers a fetch, and only the completion of the most recently
// issued fetch is applied.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/notify"
)

// ErrStale is returned by Refresh when a later fetch was issued before this
// one completed; its result was discarded.
var ErrStale = errors.New("listing: stale response discarded")

// SessionExpiredMessage is shown when a fetch is rejected with 401.
const SessionExpiredMessage = "Session expired. Please log in again."

// Lister fetches one page of a resource.
type Lister interface {
	List(ctx context.Context, endpoint string, params client.ListParams) (any, error)
}

// Invalidator clears the session after the server rejected its credential.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Snapshot is the renderable state of a controller.
type Snapshot struct {
	Query      Query
	Items      []client.Record
	TotalPages int
	Loading    bool
	// Placeholders is the number of placeholder rows to draw while loading.
	Placeholders int
}

// Option configures a Controller.
type Option func(*Controller)

// WithPageSize sets the initial page size.
func WithPageSize(size int) Option {
	return func(c *Controller) {
		if size >= 1 {
			c.query.PageSize = size
		}
	}
}

// WithFilters sets the initial filters.
func WithFilters(filters map[string]string) Option {
	return func(c *Controller) {
		for k, v := range filters {
			if c.query.Filters == nil {
				c.query.Filters = make(map[string]string)
			}
			c.query.Filters[k] = v
		}
	}
}

// WithNormalizer overrides the response normalizer.
func WithNormalizer(fn Normalizer) Option {
	return func(c *Controller) {
		if fn != nil {
			c.normalize = fn
		}
	}
}

// WithFilterEncoder rewrites filters before each request.
func WithFilterEncoder(fn FilterEncoder) Option {
	return func(c *Controller) {
		c.encode = fn
	}
}

// WithNotifier sets where failure notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithSession sets the session invalidated on 401 responses.
func WithSession(s Invalidator) Option {
	return func(c *Controller) {
		c.session = s
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// Controller synchronises one resource list.
type Controller struct {
	lister   Lister
	resource string
	endpoint string

	normalize Normalizer
	encode    FilterEncoder
	notifier  notify.Notifier
	session   Invalidator
	logger    zerolog.Logger

	mu        sync.Mutex
	query     Query
	result    Result
	loading   bool
	seq       uint64
	listeners map[int]func(Snapshot)
	nextID    int
}

// New builds a controller for resource (used in messages, e.g. "leads")
// served at endpoint.
func New(lister Lister, resource, endpoint string, opts ...Option) *Controller {
	c := &Controller{
		lister:    lister,
		resource:  resource,
		endpoint:  endpoint,
		normalize: CollectionNormalizer(resource),
		notifier:  notify.Discard,
		logger:    zerolog.Nop(),
		query:     Query{Page: 1, PageSize: 10},
		result:    Result{Items: []client.Record{}, TotalPages: 1},
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Resource returns the resource name.
func (c *Controller) Resource() string {
	return c.resource
}

// Endpoint returns the API endpoint.
func (c *Controller) Endpoint() string {
	return c.endpoint
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Query:      c.query.clone(),
		Items:      append([]client.Record(nil), c.result.Items...),
		TotalPages: c.result.TotalPages,
		Loading:    c.loading,
	}
	if snap.Loading {
		snap.Placeholders = c.query.PageSize
	}
	return snap
}

// OnChange registers fn for every state change. The returned function
// removes it.
func (c *Controller) OnChange(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Controller) emit(snap Snapshot) {
	c.mu.Lock()
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// SetQuery applies patch and refreshes. A patch that changes nothing still
// refreshes.
func (c *Controller) SetQuery(ctx context.Context, patch QueryPatch) (Snapshot, error) {
	c.mu.Lock()
	patch.apply(&c.query)
	query := c.query.clone()
	c.mu.Unlock()
	c.logger.Debug().
		Str("resource", c.resource).
		Int("page", query.Page).
		Str("search", query.Search).
		Interface("filters", query.Filters).
		Msg("query set")
	return c.Refresh(ctx)
}

// Refresh fetches the page for the current query. When a later refresh was
// issued before this one completed, the result is discarded and ErrStale is
// returned together with the current snapshot.
func (c *Controller) Refresh(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	query := c.query.clone()
	c.loading = true
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	var (
		raw any
		err error
	)
	if c.lister == nil {
		err = apierr.Normalize(errors.New("listing: no lister configured"))
	} else {
		raw, err = c.lister.List(ctx, c.endpoint, query.params(c.encode))
	}

	c.mu.Lock()
	if seq != c.seq {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Debug().
			Str("resource", c.resource).
			Uint64("seq", seq).
			Msg("discarding stale list response")
		// A rejected credential outlives the request that carried it.
		if err != nil {
			if env := apierr.Normalize(err); env.Unauthorized() {
				c.fail(ctx, env)
			}
		}
		return snap, ErrStale
	}
	c.loading = false

	if err != nil {
		env := apierr.Normalize(err)
		c.result = Result{Items: []client.Record{}, TotalPages: 1}
		c.query.Page = 1
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.emit(snap)
		c.fail(ctx, env)
		return snap, env
	}

	result := c.normalize(raw)
	if result.TotalPages < 1 {
		result.TotalPages = 1
	}
	if result.Items == nil {
		result.Items = []client.Record{}
	}
	c.result = result
	clamped := false
	if c.query.Page > result.TotalPages {
		c.query.Page = result.TotalPages
		clamped = true
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	if clamped {
		return c.Refresh(ctx)
	}
	return snap, nil
}

func (c *Controller) fail(ctx context.Context, env *apierr.Envelope) {
	if env.Unauthorized() {
		c.logger.Warn().Str("resource", c.resource).Msg("list fetch unauthorized")
		if c.session != nil {
			if err := c.session.Invalidate(ctx); err != nil {
				c.logger.Error().Err(err).Msg("invalidate session")
			}
		}
		c.notifier.Notify(notify.LevelError, SessionExpiredMessage)
		return
	}
	c.logger.Error().
		Str("resource", c.resource).
		Int("status", env.Status).
		Str("message", env.Message).
		Msg("list fetch failed")
	c.notifier.Notify(notify.LevelError, fmt.Sprintf("Failed to fetch %s", strings.TrimSpace(c.resource)))
}
