package resources

import (
	"strings"

	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/listing"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

// User roles as shown in the console.
const (
	RoleAdmin      = "Admin"
	RoleSuperAdmin = "SuperAdmin"
)

// Users is the users resource. The API spells the super admin role filter
// "Superadmin".
func Users() Resource {
	return Resource{
		Name:          "users",
		Title:         "Users",
		Singular:      "User",
		Endpoint:      "auth",
		Collection:    "users",
		PageSize:      3,
		FilterKey:     "role",
		FilterOptions: []string{client.FilterAll, RoleAdmin, RoleSuperAdmin},
		EncodeFilters: listing.RenameFilterValue("role", RoleSuperAdmin, "Superadmin"),
		Columns: []Column{
			{Header: "Full Name", Value: fullName},
			{Header: "Email", Field: "email"},
			{Header: "Role", Field: "role"},
			{Header: "Phone", Field: "phoneNumber"},
		},
		Details: []Detail{
			{Label: "First Name", Field: "firstName"},
			{Label: "Last Name", Field: "lastName"},
			{Label: "Email", Field: "email"},
			{Label: "Phone Number", Field: "phoneNumber"},
			{Label: "Role", Field: "role"},
		},
		Form: UserForm(),
	}
}

func fullName(record client.Record) string {
	name := strings.TrimSpace(validation.Text(record["firstName"]) + " " + validation.Text(record["lastName"]))
	return Display(name)
}

// UserForm declares the user create/edit form. The password is create-only.
func UserForm() form.Definition {
	return form.Definition{
		Name:           "User",
		Endpoint:       "auth",
		CreateEndpoint: "auth/register",
		Fields: []form.Field{
			{Name: "firstName", Label: "First Name", Kind: form.KindText},
			{Name: "lastName", Label: "Last Name", Kind: form.KindText},
			{Name: "email", Label: "Email", Kind: form.KindText},
			{Name: "phoneNumber", Label: "Phone Number", Kind: form.KindText, Help: "10 digits"},
			{Name: "password", Label: "Password", Kind: form.KindPassword, CreateOnly: true},
			{Name: "role", Label: "Role", Kind: form.KindSelect, Options: []string{RoleAdmin, RoleSuperAdmin}},
		},
		Defaults: func() map[string]any {
			return map[string]any{"role": RoleAdmin}
		},
		FromRecord: func(record client.Record) map[string]any {
			return map[string]any{
				"firstName":   stringOr(record["firstName"], ""),
				"lastName":    stringOr(record["lastName"], ""),
				"email":       stringOr(record["email"], ""),
				"phoneNumber": stringOr(record["phoneNumber"], ""),
				"role":        stringOr(record["role"], RoleAdmin),
			}
		},
		Rules: func(mode form.Mode) validation.RuleSet {
			rules := validation.RuleSet{
				"firstName": validation.RequiredText("First Name"),
				"lastName":  validation.RequiredText("Last Name"),
				"email":     validation.Email("Email", "Invalid email format"),
				"phoneNumber": {
					Label:           "Phone Number",
					Required:        true,
					RequiredMessage: "Phone Number is required",
					Checks:          []validation.Check{validation.ExactDigits(10, "Phone number must be 10 digits")},
				},
			}
			if mode == form.ModeCreate {
				rules["password"] = validation.Rule{
					Label:           "Password",
					Required:        true,
					RequiredMessage: "Password is required",
					Checks:          []validation.Check{validation.StrongPassword},
					Verbatim:        true,
				}
			}
			return rules
		},
	}
}
