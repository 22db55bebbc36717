// Package client exposes the CRUD and authentication calls of the remote API
// on top of a transport.Doer.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/transport"
)

// FilterAll is the filter value meaning "no filter".
const FilterAll = "all"

const (
	loginPath  = "auth"
	logoutPath = "auth/logout"
)

// Record is a single resource as returned by the API.
type Record = map[string]any

// ListParams describes one page request.
type ListParams struct {
	Page    int
	Limit   int
	Search  string
	Filters map[string]string
}

// Query encodes the params using only page, limit, search and the active
// filters. Blank search and blank or "all" filters are omitted.
func (p ListParams) Query() url.Values {
	values := url.Values{}
	page := p.Page
	if page < 1 {
		page = 1
	}
	values.Set("page", strconv.Itoa(page))
	if p.Limit > 0 {
		values.Set("limit", strconv.Itoa(p.Limit))
	}
	if search := strings.TrimSpace(p.Search); search != "" {
		values.Set("search", search)
	}
	for key, value := range p.Filters {
		value = strings.TrimSpace(value)
		if key == "" || value == "" || strings.EqualFold(value, FilterAll) {
			continue
		}
		values.Set(key, value)
	}
	return values
}

// Credentials are the login form values.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the decoded login response.
type LoginResult struct {
	Token string
	User  Record
}

// Client issues API calls.
type Client struct {
	doer transport.Doer
}

// New wraps doer.
func New(doer transport.Doer) *Client {
	return &Client{doer: doer}
}

// List fetches a page of endpoint. The raw response is returned for the
// caller's normalizer.
func (c *Client) List(ctx context.Context, endpoint string, params ListParams) (any, error) {
	path, err := endpointPath(endpoint, "")
	if err != nil {
		return nil, err
	}
	return c.do(ctx, transport.Request{Method: http.MethodGet, Path: path, Query: params.Query()})
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, endpoint, id string) (Record, error) {
	path, err := endpointPath(endpoint, id)
	if err != nil {
		return nil, err
	}
	out, err := c.do(ctx, transport.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	return recordOf(out), nil
}

// Create posts payload to endpoint.
func (c *Client) Create(ctx context.Context, endpoint string, payload Record) (Record, error) {
	path, err := endpointPath(endpoint, "")
	if err != nil {
		return nil, err
	}
	out, err := c.do(ctx, transport.Request{Method: http.MethodPost, Path: path, Body: payload})
	if err != nil {
		return nil, err
	}
	return recordOf(out), nil
}

// Update replaces the record identified by id.
func (c *Client) Update(ctx context.Context, endpoint, id string, payload Record) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apierr.Normalize(errors.New("client: update requires an id"))
	}
	path, err := endpointPath(endpoint, id)
	if err != nil {
		return nil, err
	}
	out, err := c.do(ctx, transport.Request{Method: http.MethodPut, Path: path, Body: payload})
	if err != nil {
		return nil, err
	}
	return recordOf(out), nil
}

// Remove deletes the record identified by id.
func (c *Client) Remove(ctx context.Context, endpoint, id string) error {
	if strings.TrimSpace(id) == "" {
		return apierr.Normalize(errors.New("client: remove requires an id"))
	}
	path, err := endpointPath(endpoint, id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, transport.Request{Method: http.MethodDelete, Path: path})
	return err
}

// Login exchanges credentials for a token. A response with success=false is
// reported as an envelope carrying the server message.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	out, err := c.do(ctx, transport.Request{Method: http.MethodPost, Path: loginPath, Body: creds})
	if err != nil {
		return LoginResult{}, err
	}
	body := recordOf(out)
	success, _ := body["success"].(bool)
	token, _ := body["token"].(string)
	if !success || strings.TrimSpace(token) == "" {
		message, _ := body["message"].(string)
		if strings.TrimSpace(message) == "" {
			message = "Login Failed"
		}
		return LoginResult{}, &apierr.Envelope{Status: http.StatusOK, Message: message}
	}
	user, _ := body["user"].(map[string]any)
	return LoginResult{Token: token, User: user}, nil
}

// Logout ends the server side session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, transport.Request{Method: http.MethodPost, Path: logoutPath})
	return err
}

func (c *Client) do(ctx context.Context, req transport.Request) (any, error) {
	if c == nil || c.doer == nil {
		return nil, apierr.Normalize(errors.New("client: transport is not configured"))
	}
	out, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, apierr.Normalize(err)
	}
	return out, nil
}

func endpointPath(endpoint, id string) (string, error) {
	endpoint = strings.Trim(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return "", apierr.Normalize(errors.New("client: endpoint is required"))
	}
	if id == "" {
		return endpoint, nil
	}
	return fmt.Sprintf("%s/%s", endpoint, strings.TrimSpace(id)), nil
}

// recordOf unwraps the common {data: {...}} envelope.
func recordOf(out any) Record {
	obj, ok := out.(map[string]any)
	if !ok {
		return Record{}
	}
	inner, ok := obj["data"].(map[string]any)
	if !ok || ID(obj) != "" {
		return obj
	}
	return inner
}

// ID extracts the identity of a record, accepting "_id" and "id".
func ID(record Record) string {
	for _, key := range []string{"_id", "id"} {
		switch v := record[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
