package resources

import (
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

var passwordFields = []string{"currentPassword", "newPassword", "confirmPassword"}

// ProfileForm declares the signed-in user's profile form. It is always opened
// in edit mode with the current user's record. Password fields are only sent
// when the user is changing the password; the confirmation never is.
func ProfileForm() form.Definition {
	return form.Definition{
		Name:     "Profile",
		Endpoint: "auth",
		Fields: []form.Field{
			{Name: "firstName", Label: "First Name", Kind: form.KindText},
			{Name: "lastName", Label: "Last Name", Kind: form.KindText},
			{Name: "email", Label: "Email", Kind: form.KindText},
			{Name: "currentPassword", Label: "Current Password", Kind: form.KindPassword, Help: "Leave blank to keep your password"},
			{Name: "newPassword", Label: "New Password", Kind: form.KindPassword},
			{Name: "confirmPassword", Label: "Confirm Password", Kind: form.KindPassword, Transient: true},
		},
		FromRecord: func(record client.Record) map[string]any {
			return map[string]any{
				"firstName":       stringOr(record["firstName"], ""),
				"lastName":        stringOr(record["lastName"], ""),
				"email":           stringOr(record["email"], ""),
				"currentPassword": "",
				"newPassword":     "",
				"confirmPassword": "",
			}
		},
		Rules: func(form.Mode) validation.RuleSet {
			return validation.RuleSet{
				"firstName": {Required: true, RequiredMessage: "First name is required"},
				"lastName":  {Required: true, RequiredMessage: "Last name is required"},
				"email": {
					Required:        true,
					RequiredMessage: "Email is required",
					Pattern:         validation.LooseEmailPattern,
					PatternMessage:  "Email is invalid",
				},
				"currentPassword": {
					Cross: []validation.CrossField{
						validation.RequiredWhen("newPassword || confirmPassword",
							"Current password is required to change password"),
					},
				},
				"newPassword": {
					MinLength:        6,
					MinLengthMessage: "New password must be at least 6 characters",
					Verbatim:         true,
					Cross: []validation.CrossField{
						validation.RequiredWhen("currentPassword || confirmPassword", "New password is required"),
					},
				},
				"confirmPassword": {
					Cross: []validation.CrossField{
						validation.EqualsField("newPassword", "Passwords do not match"),
					},
				},
			}
		},
		Payload: func(_ form.Mode, payload client.Record) client.Record {
			changing := false
			for _, name := range passwordFields {
				if validation.Text(payload[name]) != "" {
					changing = true
				}
			}
			if !changing {
				for _, name := range passwordFields {
					delete(payload, name)
				}
			}
			return payload
		},
	}
}

// LoginForm declares the sign-in form. It is validated locally and submitted
// through client.Login rather than a Saver.
func LoginForm() form.Definition {
	return form.Definition{
		Name: "Login",
		Fields: []form.Field{
			{Name: "email", Label: "Email", Kind: form.KindText},
			{Name: "password", Label: "Password", Kind: form.KindPassword},
		},
		Rules: func(form.Mode) validation.RuleSet {
			return LoginRules()
		},
	}
}

// LoginRules are the sign-in field rules.
func LoginRules() validation.RuleSet {
	return validation.RuleSet{
		"email": {
			Required:        true,
			RequiredMessage: "Email is required",
			Pattern:         validation.LooseEmailPattern,
			PatternMessage:  "Email is invalid",
		},
		"password": {
			Required:        true,
			RequiredMessage: "Password is required",
			Checks:          []validation.Check{validation.StrongPassword},
			Verbatim:        true,
		},
	}
}
