package apierr

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// FormKey is the error map key reserved for messages that are not attributable
// to a single field.
const FormKey = "form"

// DefaultMessage is used when neither the server nor the transport supplied a
// usable message.
const DefaultMessage = "Something went wrong"

// Kind classifies an Envelope so callers can decide how to surface it.
type Kind string

const (
	// KindValidation marks client-side validation failures that never reached
	// the server.
	KindValidation Kind = "validation"
	// KindNetwork marks connectivity failures and timeouts (no HTTP status).
	KindNetwork Kind = "network"
	// KindServerValidation marks 4xx responses that carried field errors.
	KindServerValidation Kind = "server_validation"
	// KindUnauthorized marks 401 responses; the session must be invalidated.
	KindUnauthorized Kind = "unauthorized"
	// KindNotFound marks 404 responses.
	KindNotFound Kind = "not_found"
	// KindServer marks 5xx responses.
	KindServer Kind = "server"
	// KindRequest marks the remaining 4xx responses.
	KindRequest Kind = "request"
)

// Envelope is the uniform failure shape produced for every failed request.
// Status is zero when no HTTP response was received.
type Envelope struct {
	Status      int               `json:"status,omitempty"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`

	// Err keeps the underlying cause (transport error, sentinel) for errors.Is.
	Err error `json:"-"`
}

// Validation builds a client-side envelope from a field error map.
func Validation(fields map[string]string, cause error) *Envelope {
	env := &Envelope{
		Message:     "Validation failed",
		FieldErrors: cloneFields(fields),
		Err:         cause,
	}
	if msg := strings.TrimSpace(fields[FormKey]); msg != "" {
		env.Message = msg
		delete(env.FieldErrors, FormKey)
	}
	return env
}

func (e *Envelope) Error() string {
	if e == nil {
		return ""
	}
	message := strings.TrimSpace(e.Message)
	if message == "" {
		message = DefaultMessage
	}
	if e.Status > 0 {
		message = fmt.Sprintf("http %d: %s", e.Status, message)
	}
	if len(e.FieldErrors) == 0 {
		return message
	}
	keys := make([]string, 0, len(e.FieldErrors))
	for key := range e.FieldErrors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.FieldErrors[key])
	}
	return message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *Envelope) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Kind reports the failure class.
func (e *Envelope) Kind() Kind {
	if e == nil {
		return ""
	}
	switch {
	case e.Status == 0 && len(e.FieldErrors) > 0:
		return KindValidation
	case e.Status == 0:
		return KindNetwork
	case e.Status == http.StatusUnauthorized:
		return KindUnauthorized
	case e.Status == http.StatusNotFound:
		return KindNotFound
	case e.Status >= 500:
		return KindServer
	case len(e.FieldErrors) > 0:
		return KindServerValidation
	default:
		return KindRequest
	}
}

// Unauthorized reports whether the envelope represents a 401.
func (e *Envelope) Unauthorized() bool {
	return e != nil && e.Status == http.StatusUnauthorized
}

// Retryable mirrors the classification used by HTTP clients in this codebase:
// throttling, request timeouts and 5xx responses may succeed on a later try.
func (e *Envelope) Retryable() bool {
	if e == nil {
		return false
	}
	if e.Status == http.StatusTooManyRequests || e.Status == http.StatusRequestTimeout {
		return true
	}
	return e.Status >= 500
}

func cloneFields(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
