// Package fakeapi serves an in-memory version of the lead console API. The
// console uses it for --demo runs and the tests use it as a real backend.
package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// BasePath is where Handler mounts the API.
const BasePath = "/api"

// Server is the in-memory API.
type Server struct {
	opts   Options
	store  *store
	logger zerolog.Logger
}

// New returns a Server seeded with the admin account and demo leads.
func New(fns ...OptionFn) *Server {
	opts := NewOptions(fns...)
	s := &Server{
		opts:   opts,
		store:  newStore(),
		logger: opts.Logger,
	}
	s.seed()
	return s
}

func (s *Server) seed() {
	admin := s.opts.Admin
	if admin.Email != "" {
		_, err := s.store.create(usersCollection, record{
			"firstName":   admin.FirstName,
			"lastName":    admin.LastName,
			"email":       admin.Email,
			"phoneNumber": admin.Phone,
			"role":        admin.Role,
			"password":    admin.Password,
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("seed admin")
		}
	}
	for i := s.opts.DemoLeads; i >= 1; i-- {
		_, err := s.store.create(leadsCollection, demoLead(i))
		if err != nil {
			s.logger.Error().Err(err).Int("lead", i).Msg("seed lead")
		}
	}
}

var demoIndustries = []string{"Retail", "Finance", "Healthcare", "Logistics", "Education"}

func demoLead(n int) record {
	status := "ACTIVE"
	if n%3 == 0 {
		status = "INACTIVE"
	}
	return record{
		"firstName":     fmt.Sprintf("Lead %02d", n),
		"email":         []any{fmt.Sprintf("lead%02d@example.com", n)},
		"workEmail":     fmt.Sprintf("lead%02d@work.example.com", n),
		"websiteURL":    fmt.Sprintf("https://lead%02d.example.com", n),
		"linkdinURL":    fmt.Sprintf("https://linkedin.com/in/lead%02d", n),
		"industry":      demoIndustries[n%len(demoIndustries)],
		"whatsUpNumber": fmt.Sprintf("555000%04d", n),
		"status":        status,
		"priority":      "HIGH",
	}
}

// Handler returns a router with the API mounted under BasePath.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Route(BasePath, s.Routes)
	return r
}

// Routes registers the API on r. Users are created through /auth/register
// since POST /auth signs in.
func (s *Server) Routes(r chi.Router) {
	r.Post("/auth", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.guard)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/register", s.handleCreate(usersCollection))
		s.resource(r, usersCollection, false)
		s.resource(r, leadsCollection, true)
	})
}

func (s *Server) resource(r chi.Router, c collection, create bool) {
	base := "/" + c.endpoint
	r.Get(base, s.handleList(c))
	if create {
		r.Post(base, s.handleCreate(c))
	}
	r.Get(base+"/{id}", s.handleGet(c))
	r.Put(base+"/{id}", s.handleUpdate(c))
	r.Delete(base+"/{id}", s.handleDelete(c))
}

// Start serves the API on addr until ctx is done and returns the base URL
// clients should use.
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("fakeapi: listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("demo api stopped")
		}
	}()
	base := "http://" + ln.Addr().String() + BasePath
	s.logger.Info().Str("url", base).Msg("demo api listening")
	return base, nil
}

type tokenKey struct{}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if _, ok := s.store.owner(token); !ok {
			writeError(w, http.StatusUnauthorized, "Session expired")
			return
		}
		ctx := context.WithValue(r.Context(), tokenKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("demo api request")
	})
}
