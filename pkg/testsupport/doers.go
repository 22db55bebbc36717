// Package testsupport provides scripted transports and record fixtures shared
// by the package tests.
package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-leadconsole/pkg/transport"
)

// Handler answers a scripted request.
type Handler func(ctx context.Context, req transport.Request) (any, error)

// ScriptedDoer records every request and answers through a handler.
type ScriptedDoer struct {
	mu      sync.Mutex
	calls   []transport.Request
	handler Handler
}

// NewScripted returns a doer answering with handler. A nil handler answers
// every request with (nil, nil).
func NewScripted(handler Handler) *ScriptedDoer {
	return &ScriptedDoer{handler: handler}
}

// Respond returns a doer that always answers with out and err.
func Respond(out any, err error) *ScriptedDoer {
	return NewScripted(func(context.Context, transport.Request) (any, error) {
		return out, err
	})
}

func (s *ScriptedDoer) Do(ctx context.Context, req transport.Request) (any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	handler := s.handler
	s.mu.Unlock()
	if handler == nil {
		return nil, nil
	}
	return handler(ctx, req)
}

// Calls returns a copy of the recorded requests.
func (s *ScriptedDoer) Calls() []transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Request(nil), s.calls...)
}

// Count reports how many requests were sent.
func (s *ScriptedDoer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Last returns the most recent request.
func (s *ScriptedDoer) Last() (transport.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return transport.Request{}, false
	}
	return s.calls[len(s.calls)-1], true
}

type reply struct {
	out any
	err error
}

// Pending is a request held by a GatedDoer until the test resolves it.
type Pending struct {
	Request transport.Request
	reply   chan reply
}

// Resolve completes the request successfully.
func (p *Pending) Resolve(out any) {
	p.reply <- reply{out: out}
}

// Fail completes the request with err.
func (p *Pending) Fail(err error) {
	p.reply <- reply{err: err}
}

// GatedDoer blocks every request until the test resolves it, so completion
// order can differ from issue order.
type GatedDoer struct {
	arrived chan *Pending
}

// NewGated returns an empty gated doer.
func NewGated() *GatedDoer {
	return &GatedDoer{arrived: make(chan *Pending, 16)}
}

func (g *GatedDoer) Do(ctx context.Context, req transport.Request) (any, error) {
	p := &Pending{Request: req, reply: make(chan reply, 1)}
	select {
	case g.arrived <- p:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-p.reply:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Next waits for the next request to arrive. It returns nil after timeout.
func (g *GatedDoer) Next(timeout time.Duration) *Pending {
	select {
	case p := <-g.arrived:
		return p
	case <-time.After(timeout):
		return nil
	}
}
