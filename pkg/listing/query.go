package listing

import (
	"strings"

	"github.com/goliatone/go-leadconsole/pkg/client"
)

// Query is the list state a page is fetched for.
type Query struct {
	Page     int
	PageSize int
	Search   string
	Filters  map[string]string
}

func (q Query) clone() Query {
	out := q
	if q.Filters != nil {
		out.Filters = make(map[string]string, len(q.Filters))
		for k, v := range q.Filters {
			out.Filters[k] = v
		}
	}
	return out
}

// Filter returns the active value for key, "" when unset.
func (q Query) Filter(key string) string {
	return q.Filters[key]
}

func (q Query) params(encode FilterEncoder) client.ListParams {
	filters := q.clone().Filters
	if encode != nil {
		filters = encode(filters)
	}
	return client.ListParams{
		Page:    q.Page,
		Limit:   q.PageSize,
		Search:  q.Search,
		Filters: filters,
	}
}

// QueryPatch is a partial query update. Nil fields are left unchanged; a
// filter set to "" is removed.
type QueryPatch struct {
	Page     *int
	PageSize *int
	Search   *string
	Filters  map[string]string
}

// Page returns a patch moving to page n.
func Page(n int) QueryPatch {
	return QueryPatch{Page: &n}
}

// Search returns a patch replacing the search text.
func Search(text string) QueryPatch {
	return QueryPatch{Search: &text}
}

// Filter returns a patch setting one filter.
func Filter(key, value string) QueryPatch {
	return QueryPatch{Filters: map[string]string{key: value}}
}

// apply merges p into q. Changing the search, a filter or the page size
// resets the page to 1.
func (p QueryPatch) apply(q *Query) {
	resetPage := false

	if p.Search != nil {
		search := strings.TrimSpace(*p.Search)
		if search != q.Search {
			q.Search = search
			resetPage = true
		}
	}
	for key, value := range p.Filters {
		value = strings.TrimSpace(value)
		current, ok := q.Filters[key]
		switch {
		case value == "" && ok:
			delete(q.Filters, key)
			resetPage = true
		case value != "" && current != value:
			if q.Filters == nil {
				q.Filters = make(map[string]string)
			}
			q.Filters[key] = value
			resetPage = true
		}
	}
	if p.PageSize != nil && *p.PageSize >= 1 && *p.PageSize != q.PageSize {
		q.PageSize = *p.PageSize
		resetPage = true
	}
	if resetPage {
		q.Page = 1
		return
	}
	if p.Page != nil {
		q.Page = max(*p.Page, 1)
	}
}
