package condition_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-leadconsole/pkg/condition"
)

func TestParseAndFields(t *testing.T) {
	c := condition.MustParse("currentPassword || confirmPassword")
	ok, err := c.Holds(map[string]any{"confirmPassword": "x"})
	if err != nil || !ok {
		t.Fatalf("expected condition to hold, got %v, %v", ok, err)
	}

	fn := condition.Func(func(values map[string]any) bool {
		return values["role"] == "Admin"
	}, "role")

	want := []string{"confirmPassword", "currentPassword", "role"}
	if diff := cmp.Diff(want, condition.FieldsOf(c, fn, nil, condition.Always)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsInvalidSource(t *testing.T) {
	if _, err := condition.Parse("a &&"); err == nil {
		t.Fatalf("expected parse error")
	}
}
