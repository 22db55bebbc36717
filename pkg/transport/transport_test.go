package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/transport"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestHTTPSendsTokenQueryAndBody(t *testing.T) {
	var (
		gotAuth      string
		gotRequestID string
		gotQuery     url.Values
		gotBody      map[string]any
		gotPath      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(transport.RequestIDHeader)
		gotQuery = r.URL.Query()
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &gotBody)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	h, err := transport.New(srv.URL+"/api", transport.WithTokenSource(staticToken("tok-1")))
	require.NoError(t, err)

	out, err := h.Do(context.Background(), transport.Request{
		Method: http.MethodPost,
		Path:   "/lead",
		Query:  url.Values{"page": {"2"}},
		Body:   map[string]any{"firstName": "Ada"},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"ok": true}, out)
	require.Equal(t, "tok-1", gotAuth)
	require.NotEmpty(t, gotRequestID)
	require.Equal(t, "/api/lead", gotPath)
	require.Equal(t, "2", gotQuery.Get("page"))
	require.Equal(t, "Ada", gotBody["firstName"])
}

func TestHTTPAuthScheme(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h, err := transport.New(srv.URL,
		transport.WithTokenSource(staticToken("abc")),
		transport.WithAuthScheme("Bearer"),
	)
	require.NoError(t, err)

	out, err := h.Do(context.Background(), transport.Request{Method: http.MethodDelete, Path: "lead/1"})
	require.NoError(t, err)
	require.Nil(t, out)
	require.Equal(t, "Bearer abc", gotAuth)
}

func TestHTTPMapsErrorResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Validation failed","errors":{"workEmail":["Already used"]}}`))
	}))
	defer srv.Close()

	h, err := transport.New(srv.URL)
	require.NoError(t, err)

	_, err = h.Do(context.Background(), transport.Request{Method: http.MethodPost, Path: "lead", Body: map[string]any{}})
	var env *apierr.Envelope
	require.ErrorAs(t, err, &env)
	require.Equal(t, http.StatusBadRequest, env.Status)
	require.Equal(t, "Validation failed", env.Message)
	require.Equal(t, map[string]string{"workEmail": "Already used"}, env.FieldErrors)
	require.Equal(t, apierr.KindServerValidation, env.Kind())
}

func TestHTTPNetworkFailureHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	h, err := transport.New(base, transport.WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = h.Do(context.Background(), transport.Request{Path: "lead"})
	var env *apierr.Envelope
	require.ErrorAs(t, err, &env)
	require.Zero(t, env.Status)
	require.Equal(t, apierr.KindNetwork, env.Kind())
}

func TestHTTPRejectsInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	h, err := transport.New(srv.URL)
	require.NoError(t, err)

	_, err = h.Do(context.Background(), transport.Request{Path: "lead"})
	var env *apierr.Envelope
	require.ErrorAs(t, err, &env)
	require.Equal(t, "Invalid response from server", env.Message)
}

func TestNewRequiresAbsoluteURL(t *testing.T) {
	_, err := transport.New("")
	require.Error(t, err)
	_, err = transport.New("localhost/api")
	require.Error(t, err)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h, err := transport.New(srv.URL, transport.WithRateLimit(0.001, 1))
	require.NoError(t, err)

	_, err = h.Do(context.Background(), transport.Request{Path: "lead"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.Do(ctx, transport.Request{Path: "lead"})
	var env *apierr.Envelope
	require.ErrorAs(t, err, &env)
	require.Equal(t, apierr.KindNetwork, env.Kind())
}
