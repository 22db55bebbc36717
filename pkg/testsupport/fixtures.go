package testsupport

import "fmt"

// Lead builds a lead record numbered n.
func Lead(n int) map[string]any {
	return map[string]any{
		"_id":           fmt.Sprintf("lead-%d", n),
		"firstName":     fmt.Sprintf("Lead %d", n),
		"email":         []any{fmt.Sprintf("lead%d@example.com", n)},
		"workEmail":     fmt.Sprintf("lead%d@work.example.com", n),
		"websiteURL":    "https://example.com",
		"linkdinURL":    "https://linkedin.com/in/lead",
		"industry":      "Software",
		"whatsUpNumber": "5551234567",
		"status":        "ACTIVE",
		"priority":      "HIGH",
	}
}

// User builds a user record numbered n.
func User(n int, role string) map[string]any {
	return map[string]any{
		"_id":         fmt.Sprintf("user-%d", n),
		"firstName":   fmt.Sprintf("User%d", n),
		"lastName":    "Example",
		"email":       fmt.Sprintf("user%d@example.com", n),
		"phoneNumber": "5551234567",
		"role":        role,
	}
}

// Leads builds records first..last inclusive.
func Leads(first, last int) []any {
	out := make([]any, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, Lead(i))
	}
	return out
}

// Page wraps items under collection with a totalPages count, the shape the
// API answers list requests with.
func Page(collection string, items []any, totalPages int) map[string]any {
	return map[string]any{
		collection:   items,
		"totalPages": float64(totalPages),
	}
}
