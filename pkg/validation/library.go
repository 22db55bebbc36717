package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/goliatone/go-leadconsole/pkg/condition"
)

var (
	// EmailPattern is the strict address shape used by lead and user forms.
	EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// LooseEmailPattern is the unanchored shape used by login and profile.
	LooseEmailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// StrongPasswordMessage is reported by StrongPassword.
const StrongPasswordMessage = "Password must be at least 6 characters and include uppercase, lowercase, number and symbol"

// RequiredText is a required free-text field.
func RequiredText(label string) Rule {
	return Rule{Label: label, Required: true, RequiredMessage: label + " is required"}
}

// Email is a required email field with the given invalid message.
func Email(label, invalid string) Rule {
	return Rule{
		Label:           label,
		Required:        true,
		RequiredMessage: label + " is required",
		Pattern:         EmailPattern,
		PatternMessage:  invalid,
	}
}

// DigitsOnly rejects values containing anything but ASCII digits.
func DigitsOnly(message string) Check {
	return func(value string) string {
		for _, r := range value {
			if r < '0' || r > '9' {
				return message
			}
		}
		return ""
	}
}

// MinDigits requires at least n characters of digits only.
func MinDigits(n int, message string) Check {
	only := DigitsOnly(message)
	return func(value string) string {
		if msg := only(value); msg != "" {
			return msg
		}
		if len(value) < n {
			return message
		}
		return ""
	}
}

// ExactDigits requires exactly n digits.
func ExactDigits(n int, message string) Check {
	pattern := regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, n))
	return func(value string) string {
		if !pattern.MatchString(value) {
			return message
		}
		return ""
	}
}

// StrongPassword requires at least six characters with an ASCII lower-case
// letter, an ASCII upper-case letter, a digit and a symbol. Anything outside
// [A-Za-z0-9] counts as a symbol, spaces and non-ASCII letters included.
// Line breaks are rejected.
func StrongPassword(value string) string {
	var lower, upper, digit, symbol bool
	for _, r := range value {
		switch {
		case r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029':
			return StrongPasswordMessage
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	if utf8.RuneCountInString(value) < 6 || !(lower && upper && digit && symbol) {
		return StrongPasswordMessage
	}
	return ""
}

// RequiredWhen makes a field required while the expression holds, e.g.
// RequiredWhen("newPassword || confirmPassword", "...").
func RequiredWhen(source, message string) CrossField {
	return CrossField{
		When: condition.MustParse(source),
		Predicate: func(value any, _ map[string]any) bool {
			return condition.Present(value)
		},
		Message: message,
	}
}

// EqualsField requires the value to equal the other field's value.
func EqualsField(other, message string) CrossField {
	return CrossField{
		Predicate: func(value any, values map[string]any) bool {
			return Text(value) == Text(values[other])
		},
		Message:   message,
		DependsOn: []string{other},
	}
}
