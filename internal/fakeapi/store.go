package fakeapi

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type record = map[string]any

var errNotFound = errors.New("fakeapi: record not found")

// fieldErrors is a 400 response carrying per-field messages.
type fieldErrors map[string][]string

func (f fieldErrors) Error() string {
	return fmt.Sprintf("fakeapi: %d invalid fields", len(f))
}

// collection describes one resource of the remote contract.
type collection struct {
	endpoint string
	key      string
	singular string
	required []string
	unique   []string
	search   []string
	secret   []string
}

var leadsCollection = collection{
	endpoint: "lead",
	key:      "leads",
	singular: "Lead",
	required: []string{"firstName", "workEmail"},
	unique:   []string{"workEmail"},
	search:   []string{"firstName", "workEmail", "email", "industry"},
}

var usersCollection = collection{
	endpoint: "auth",
	key:      "users",
	singular: "User",
	required: []string{"firstName", "lastName", "email"},
	unique:   []string{"email"},
	search:   []string{"firstName", "lastName", "email", "role"},
	secret:   []string{"password", "currentPassword", "newPassword", "confirmPassword"},
}

// store keeps records newest first.
type store struct {
	mu        sync.RWMutex
	records   map[string][]record
	passwords map[string]string
	tokens    map[string]string
	now       func() time.Time
}

func newStore() *store {
	return &store{
		records:   make(map[string][]record),
		passwords: make(map[string]string),
		tokens:    make(map[string]string),
		now:       time.Now,
	}
}

func (s *store) list(c collection, query string, filters map[string]string) []record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(filterRecords(s.records[c.endpoint], c.search, query, filters))
}

func (s *store) get(c collection, id string) (record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, rec := s.find(c, id)
	if rec == nil {
		return nil, errNotFound
	}
	return clone(rec), nil
}

func (s *store) create(c collection, input record) (record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if errs := s.check(c, input, "", true); len(errs) > 0 {
		return nil, errs
	}

	rec := sanitize(c, input)
	id := uuid.NewString()
	rec["_id"] = id
	rec["createdAt"] = s.now().UTC().Format(time.RFC3339)
	if password, ok := input["password"].(string); ok && password != "" {
		s.passwords[id] = password
	}
	s.records[c.endpoint] = append([]record{rec}, s.records[c.endpoint]...)
	return clone(rec), nil
}

func (s *store) update(c collection, id string, input record) (record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, rec := s.find(c, id)
	if rec == nil {
		return nil, errNotFound
	}
	if errs := s.check(c, input, id, false); len(errs) > 0 {
		return nil, errs
	}

	if next, _ := input["newPassword"].(string); next != "" {
		current, _ := input["currentPassword"].(string)
		if s.passwords[id] != current {
			return nil, fieldErrors{"currentPassword": {"Current password is incorrect"}}
		}
		s.passwords[id] = next
	}

	updated := clone(rec)
	for k, v := range sanitize(c, input) {
		if k == "_id" || k == "id" || k == "createdAt" {
			continue
		}
		updated[k] = v
	}
	s.records[c.endpoint][idx] = updated
	return clone(updated), nil
}

func (s *store) remove(c collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, rec := s.find(c, id)
	if rec == nil {
		return errNotFound
	}
	items := s.records[c.endpoint]
	s.records[c.endpoint] = append(items[:idx:idx], items[idx+1:]...)
	delete(s.passwords, id)
	for token, owner := range s.tokens {
		if owner == id {
			delete(s.tokens, token)
		}
	}
	return nil
}

// login returns a fresh token and the user record for valid credentials.
func (s *store) login(email, password string) (string, record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records[usersCollection.endpoint] {
		stored, _ := rec["email"].(string)
		if !strings.EqualFold(stored, strings.TrimSpace(email)) {
			continue
		}
		id, _ := rec["_id"].(string)
		if s.passwords[id] != password {
			return "", nil, false
		}
		token := uuid.NewString()
		s.tokens[token] = id
		return token, clone(rec), true
	}
	return "", nil, false
}

func (s *store) logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *store) owner(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	return id, ok
}

func (s *store) find(c collection, id string) (int, record) {
	for i, rec := range s.records[c.endpoint] {
		if rec["_id"] == id {
			return i, rec
		}
	}
	return -1, nil
}

// check reports missing required fields and unique collisions. Required
// fields are only enforced on create.
func (s *store) check(c collection, input record, selfID string, creating bool) fieldErrors {
	errs := fieldErrors{}
	if creating {
		for _, field := range c.required {
			if strings.TrimSpace(fmt.Sprint(valueOr(input[field], ""))) == "" {
				errs[field] = append(errs[field], field+" is required")
			}
		}
	}
	for _, field := range c.unique {
		value, _ := input[field].(string)
		if strings.TrimSpace(value) == "" {
			continue
		}
		for _, rec := range s.records[c.endpoint] {
			if rec["_id"] == selfID {
				continue
			}
			if existing, _ := rec[field].(string); strings.EqualFold(existing, value) {
				errs[field] = append(errs[field], "Email already used")
				break
			}
		}
	}
	return errs
}

func sanitize(c collection, input record) record {
	out := make(record, len(input))
	for k, v := range input {
		out[k] = v
	}
	for _, field := range c.secret {
		delete(out, field)
	}
	return out
}

func valueOr(v any, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}

func clone(rec record) record {
	out := make(record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func cloneAll(records []record) []record {
	out := make([]record, len(records))
	for i, rec := range records {
		out[i] = clone(rec)
	}
	return out
}
