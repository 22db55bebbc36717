package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-leadconsole/pkg/session"
)

func TestSessionBeginAndInvalidate(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(session.State{})
	sess := session.New(store)

	if sess.Authenticated() {
		t.Fatalf("expected new session to be signed out")
	}

	user := &session.User{ID: "u1", FirstName: "Ada", Role: "Admin"}
	if err := sess.Begin(ctx, "tok-1", user); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if got := sess.Token(); got != "tok-1" {
		t.Fatalf("token = %q", got)
	}

	fired := 0
	cancel := sess.OnInvalidate(func() { fired++ })
	defer cancel()

	if err := sess.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := sess.Invalidate(ctx); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected listener to fire once, fired %d", fired)
	}
	if sess.Authenticated() {
		t.Fatalf("expected session to be cleared")
	}
	stored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(session.State{}, stored); diff != "" {
		t.Fatalf("store not cleared (-want +got):\n%s", diff)
	}
}

func TestSessionTeardownDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	sess := session.New(nil)
	if err := sess.Begin(ctx, "tok", nil); err != nil {
		t.Fatalf("begin: %v", err)
	}
	fired := false
	sess.OnInvalidate(func() { fired = true })
	if err := sess.Teardown(ctx); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if fired {
		t.Fatalf("teardown must not fire invalidation listeners")
	}
	if sess.Authenticated() {
		t.Fatalf("expected teardown to clear the token")
	}
}

func TestSessionBeginRequiresToken(t *testing.T) {
	sess := session.New(nil)
	if err := sess.Begin(context.Background(), "  ", nil); err != session.ErrTokenRequired {
		t.Fatalf("expected ErrTokenRequired, got %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	store := session.NewFileStore(path)

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if empty.Token != "" {
		t.Fatalf("expected empty state, got %+v", empty)
	}

	sess := session.New(store)
	want := &session.User{ID: "42", Email: "ada@example.com"}
	if err := sess.Begin(ctx, "tok-file", want); err != nil {
		t.Fatalf("begin: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	restored := session.New(store)
	if err := restored.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if restored.Token() != "tok-file" {
		t.Fatalf("token not restored: %q", restored.Token())
	}
	got, ok := restored.User()
	if !ok {
		t.Fatalf("expected user to be restored")
	}
	if diff := cmp.Diff(*want, got); diff != "" {
		t.Fatalf("user mismatch (-want +got):\n%s", diff)
	}

	if err := restored.Teardown(ctx); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected session file to be removed, stat err = %v", err)
	}
}
