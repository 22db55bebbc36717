package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

var reservedParams = map[string]bool{"page": true, "limit": true, "search": true}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	token, user, ok := s.store.login(creds.Email, creds.Password)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "Invalid email or password",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := r.Context().Value(tokenKey{}).(string); ok {
		s.store.logout(token)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleList(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := intParam(q.Get("page"), 1)
		limit := intParam(q.Get("limit"), s.opts.DefaultLimit)
		if limit > s.opts.MaxLimit {
			limit = s.opts.MaxLimit
		}

		filters := map[string]string{}
		for key, values := range q {
			if reservedParams[key] || len(values) == 0 || values[0] == "" {
				continue
			}
			filters[key] = values[0]
		}

		items, totalPages := paginate(s.store.list(c, q.Get("search"), filters), page, limit)
		writeJSON(w, http.StatusOK, map[string]any{
			c.key:        items,
			"totalPages": totalPages,
		})
	}
}

func (s *Server) handleGet(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.store.get(c, chi.URLParam(r, "id"))
		if err != nil {
			s.storeError(w, c, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": rec})
	}
}

func (s *Server) handleCreate(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input record
		if err := decodeJSON(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		rec, err := s.store.create(c, input)
		if err != nil {
			s.storeError(w, c, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": rec})
	}
}

func (s *Server) handleUpdate(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input record
		if err := decodeJSON(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		rec, err := s.store.update(c, chi.URLParam(r, "id"), input)
		if err != nil {
			s.storeError(w, c, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
	}
}

func (s *Server) handleDelete(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.remove(c, chi.URLParam(r, "id")); err != nil {
			s.storeError(w, c, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *Server) storeError(w http.ResponseWriter, c collection, err error) {
	var fields fieldErrors
	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Validation failed",
			"errors":  map[string][]string(fields),
		})
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, c.singular+" not found")
	default:
		s.logger.Error().Err(err).Str("collection", c.key).Msg("store failure")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func intParam(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
