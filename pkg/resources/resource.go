// Package resources declares the console's resources (leads and users) and
// its standalone forms (profile and login).
package resources

import (
	"strings"

	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/listing"
	"github.com/goliatone/go-leadconsole/pkg/validation"
)

// Column is one list table column.
type Column struct {
	Header string
	Field  string
	// Value overrides reading Field directly.
	Value func(record client.Record) string
}

// Render returns the cell text for record.
func (c Column) Render(record client.Record) string {
	if c.Value != nil {
		return c.Value(record)
	}
	return Display(record[c.Field])
}

// Detail is one labelled line of the record view.
type Detail struct {
	Label string
	Field string
}

// Resource describes a listable, editable collection.
type Resource struct {
	Name       string
	Title      string
	Singular   string
	Endpoint   string
	Collection string
	PageSize   int

	FilterKey     string
	FilterOptions []string
	EncodeFilters listing.FilterEncoder

	Columns []Column
	Details []Detail
	Form    form.Definition
}

// Controller builds a list controller for the resource.
func (r Resource) Controller(lister listing.Lister, opts ...listing.Option) *listing.Controller {
	base := []listing.Option{
		listing.WithPageSize(r.PageSize),
		listing.WithNormalizer(listing.CollectionNormalizer(r.Collection)),
	}
	if r.FilterKey != "" {
		base = append(base, listing.WithFilters(map[string]string{r.FilterKey: client.FilterAll}))
	}
	if r.EncodeFilters != nil {
		base = append(base, listing.WithFilterEncoder(r.EncodeFilters))
	}
	return listing.New(lister, r.Name, r.Endpoint, append(base, opts...)...)
}

// Display renders a record value for humans; blanks become "N/A".
func Display(value any) string {
	var text string
	switch v := value.(type) {
	case []any, []string:
		text = strings.Join(validation.Slots(v), ", ")
	default:
		text = validation.Text(v)
	}
	if strings.TrimSpace(text) == "" {
		return "N/A"
	}
	return text
}

func stringOr(value any, fallback string) string {
	text := strings.TrimSpace(validation.Text(value))
	if text == "" {
		return fallback
	}
	return text
}
