package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Normalize converts any failure into an Envelope. Envelopes pass through
// untouched; everything else is treated as a transport failure.
func Normalize(err error) *Envelope {
	if err == nil {
		return nil
	}

	var env *Envelope
	if errors.As(err, &env) && env != nil {
		return env
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Envelope{Message: "Request timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &Envelope{Message: "Request canceled", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Envelope{Message: "Request timed out", Err: err}
	}

	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = DefaultMessage
	}
	return &Envelope{Message: fmt.Sprintf("Network error: %s", message), Err: err}
}

// Is reports whether err normalizes to the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return Normalize(err).Kind() == kind
}

// IsUnauthorized reports whether err is a 401 failure.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	return Normalize(err).Unauthorized()
}

// FromResponse builds an Envelope from an HTTP error status and its raw body.
// JSON bodies are inspected for a message (`message`, `error`, `msg`) and field
// errors (`errors` or `fieldErrors`, as a map or a list of {field, message}).
// Non-JSON bodies fall back to the trimmed text or the status text.
func FromResponse(status int, body []byte) *Envelope {
	env := &Envelope{Status: status}

	var payload any
	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			payload = nil
		}
	}

	var formMessages []string
	if obj, ok := payload.(map[string]any); ok {
		env.Message = firstString(obj, "message", "error", "msg")
		fields, form := collectFieldErrors(obj)
		if len(fields) > 0 {
			env.FieldErrors = fields
		}
		formMessages = form
	} else if payload == nil && trimmed != "" && len(trimmed) <= 200 && !strings.HasPrefix(trimmed, "<") {
		env.Message = trimmed
	}

	if env.Message == "" && len(formMessages) > 0 {
		env.Message = formMessages[0]
	}
	if env.Message == "" {
		env.Message = http.StatusText(status)
	}
	if env.Message == "" {
		env.Message = DefaultMessage
	}
	return env
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		switch value := obj[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		case map[string]any:
			if nested := firstString(value, "message", "msg"); nested != "" {
				return nested
			}
		}
	}
	return ""
}

func collectFieldErrors(obj map[string]any) (map[string]string, []string) {
	raw, ok := obj["errors"]
	if !ok || raw == nil {
		raw = obj["fieldErrors"]
	}

	fields := make(map[string]string)
	var form []string

	add := func(key string, messages []string) {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			return
		}
		path, formLevel := mapErrorKey(key)
		if formLevel {
			form = append(form, messages...)
			return
		}
		if _, exists := fields[path]; !exists {
			fields[path] = messages[0]
		}
	}

	switch typed := raw.(type) {
	case map[string]any:
		for key, value := range typed {
			add(key, messagesOf(value))
		}
	case []any:
		for _, entry := range typed {
			item, ok := entry.(map[string]any)
			if !ok {
				if text, ok := entry.(string); ok {
					form = append(form, text)
				}
				continue
			}
			key := firstString(item, "field", "path", "param", "key")
			add(key, []string{firstString(item, "message", "msg", "error")})
		}
	}

	if len(fields) == 0 {
		fields = nil
	}
	return fields, normalizeMessages(form)
}

func messagesOf(value any) []string {
	switch typed := value.(type) {
	case string:
		return []string{typed}
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, messagesOf(item)...)
		}
		return out
	case map[string]any:
		if msg := firstString(typed, "message", "msg"); msg != "" {
			return []string{msg}
		}
		return nil
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(typed)}
	}
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mapErrorKey turns server error paths (`body.workEmail`, `/body/email/0`,
// `email[1]`, `$.payload.firstName`) into the dotted keys used by form state.
func mapErrorKey(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}
	segments := dropWrapperSegments(parsePathSegments(trimmed))
	if len(segments) == 0 {
		return "", true
	}
	return strings.Join(segments, "."), false
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = clean[1:]
	}

	replacer := strings.NewReplacer("[", ".", "]", "")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	for len(segments) > 1 {
		switch strings.ToLower(segments[0]) {
		case "body", "request", "payload", "data", "attributes":
			segments = segments[1:]
			continue
		}
		break
	}
	return segments
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", FormKey, "base", "__all__", "non_field_errors", "non-field-errors", "general":
		return true
	default:
		return false
	}
}
