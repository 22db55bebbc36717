package form_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

func openArrayForm(t *testing.T, emails ...string) *form.Form {
	t.Helper()
	f := form.New(contactDefinition(), &stubSaver{})
	if err := f.Open(form.ModeCreate, nil); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.Set("email", emails); err != nil {
		t.Fatalf("set email: %v", err)
	}
	return f
}

func TestFieldArrayAddRemoveRoundTrip(t *testing.T) {
	f := openArrayForm(t, "a@b.co", "c@d.io")
	arr := f.Array("email")
	before := arr.Values()

	if err := arr.Add(); err != nil {
		t.Fatalf("add: %v", err)
	}
	if arr.Len() != 3 {
		t.Fatalf("expected 3 slots, got %d", arr.Len())
	}
	removed, err := arr.RemoveAt(arr.Len() - 1)
	if err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	if diff := cmp.Diff(before, arr.Values()); diff != "" {
		t.Fatalf("round trip mismatch (-before +after):\n%s", diff)
	}
}

func TestFieldArrayRemoveReKeysErrors(t *testing.T) {
	f := openArrayForm(t, "bad-0", "ok@b.co", "bad-2", "")
	want := validation.Errors{
		"email.0": "Email is invalid",
		"email.2": "Email is invalid",
		"email.3": "Email is required",
	}
	if diff := cmp.Diff(want, f.Snapshot().Errors); diff != "" {
		t.Fatalf("initial errors mismatch (-want +got):\n%s", diff)
	}

	removed, err := f.Array("email").RemoveAt(1)
	if err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	want = validation.Errors{
		"email.0": "Email is invalid",
		"email.1": "Email is invalid",
		"email.2": "Email is required",
	}
	if diff := cmp.Diff(want, f.Snapshot().Errors); diff != "" {
		t.Fatalf("re-keyed errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bad-0", "bad-2", ""}, f.Array("email").Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldArrayRemoveLastSlotIsNoop(t *testing.T) {
	f := openArrayForm(t, "a@b.co")
	arr := f.Array("email")
	for _, index := range []int{0, -1, 5} {
		removed, err := arr.RemoveAt(index)
		if err != nil || removed {
			t.Fatalf("RemoveAt(%d) = %v, %v; want no-op", index, removed, err)
		}
	}
	if arr.Len() != 1 {
		t.Fatalf("expected single slot to remain, got %d", arr.Len())
	}
}

func TestFieldArraySetAtValidatesSlotOnly(t *testing.T) {
	f := openArrayForm(t, "a@b.co")
	arr := f.Array("email")
	if err := arr.Add(); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := arr.Add(); err != nil {
		t.Fatalf("add: %v", err)
	}

	msg, err := arr.SetAt(1, "nope")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if msg != "Email is invalid" {
		t.Fatalf("unexpected slot message %q", msg)
	}
	if diff := cmp.Diff(validation.Errors{"email.1": "Email is invalid"}, f.Snapshot().Errors); diff != "" {
		t.Fatalf("untouched blank slot must not be validated (-want +got):\n%s", diff)
	}

	if msg, _ := arr.SetAt(1, "x@y.io"); msg != "" {
		t.Fatalf("expected slot to clear, got %q", msg)
	}
	if len(f.Snapshot().Errors) != 0 {
		t.Fatalf("expected no errors, got %v", f.Snapshot().Errors)
	}
}
