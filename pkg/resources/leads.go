package resources

import (
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

// Lead status and priority values.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"

	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// WhatsAppMessage is reported for a short or non-numeric WhatsApp number.
const WhatsAppMessage = "WhatsApp number must be at least 10 digits"

// Leads is the leads resource.
func Leads() Resource {
	return Resource{
		Name:          "leads",
		Title:         "Leads",
		Singular:      "Lead",
		Endpoint:      "lead",
		Collection:    "leads",
		PageSize:      10,
		FilterKey:     "status",
		FilterOptions: []string{client.FilterAll, "active", "inactive"},
		Columns: []Column{
			{Header: "First Name", Field: "firstName"},
			{Header: "Email", Field: "email"},
			{Header: "WhatsApp", Field: "whatsUpNumber"},
			{Header: "Status", Field: "status"},
		},
		Details: []Detail{
			{Label: "Website URL", Field: "websiteURL"},
			{Label: "LinkedIn URL", Field: "linkdinURL"},
			{Label: "Industry", Field: "industry"},
			{Label: "WhatsApp Number", Field: "whatsUpNumber"},
			{Label: "Status", Field: "status"},
			{Label: "Priority", Field: "priority"},
		},
		Form: LeadForm(),
	}
}

// LeadForm declares the lead create/edit form. Callers add "userId" to the
// create seed.
func LeadForm() form.Definition {
	return form.Definition{
		Name:     "Lead",
		Endpoint: "lead",
		Fields: []form.Field{
			{Name: "firstName", Label: "First Name", Kind: form.KindText},
			{Name: "email", Label: "Email", Kind: form.KindList},
			{Name: "workEmail", Label: "Work Email", Kind: form.KindText},
			{Name: "websiteURL", Label: "Website URL", Kind: form.KindText},
			{Name: "linkdinURL", Label: "LinkedIn URL", Kind: form.KindText},
			{Name: "industry", Label: "Industry", Kind: form.KindText},
			{Name: "whatsUpNumber", Label: "WhatsApp Number", Kind: form.KindText, Help: "Digits only, at least 10"},
			{Name: "status", Label: "Status", Kind: form.KindSelect, Options: []string{StatusActive, StatusInactive}},
			{Name: "priority", Label: "Priority", Kind: form.KindSelect, Options: []string{PriorityHigh, PriorityMedium, PriorityLow}},
			{Name: "userId", Kind: form.KindHidden},
		},
		Defaults: func() map[string]any {
			return map[string]any{
				"email":    []string{""},
				"status":   StatusActive,
				"priority": PriorityHigh,
			}
		},
		FromRecord: func(record client.Record) map[string]any {
			emails := validation.Slots(record["email"])
			if len(emails) == 0 {
				emails = []string{""}
			}
			return map[string]any{
				"firstName":     stringOr(record["firstName"], ""),
				"email":         emails,
				"workEmail":     stringOr(record["workEmail"], ""),
				"websiteURL":    stringOr(record["websiteURL"], ""),
				"linkdinURL":    stringOr(record["linkdinURL"], ""),
				"industry":      stringOr(record["industry"], ""),
				"whatsUpNumber": stringOr(record["whatsUpNumber"], ""),
				"status":        stringOr(record["status"], StatusActive),
				"priority":      stringOr(record["priority"], PriorityHigh),
				"userId":        stringOr(record["userId"], ""),
			}
		},
		Rules: func(form.Mode) validation.RuleSet {
			return validation.RuleSet{
				"firstName": validation.RequiredText("First Name"),
				"email": {
					Label:          "Email",
					Required:       true,
					Pattern:        validation.EmailPattern,
					PatternMessage: "Email is invalid",
					Repeated:       true,
				},
				"workEmail":  validation.Email("Work Email", "Work Email is invalid"),
				"websiteURL": validation.RequiredText("Website URL"),
				"linkdinURL": validation.RequiredText("LinkedIn URL"),
				"industry":   validation.RequiredText("Industry"),
				"whatsUpNumber": {
					Label:  "WhatsApp Number",
					Checks: []validation.Check{validation.MinDigits(10, WhatsAppMessage)},
				},
			}
		},
		Payload: func(_ form.Mode, payload client.Record) client.Record {
			if id, ok := payload["userId"]; ok && validation.Text(id) == "" {
				delete(payload, "userId")
			}
			return payload
		},
	}
}
