package fakeapi

import (
	"sort"
	"strings"
)

type match struct {
	index    int
	isPrefix bool
}

// filterRecords keeps records whose search fields contain query (case
// insensitive) and whose filter fields equal the requested values. Records
// with a field starting with the query sort first; ties keep store order.
func filterRecords(records []record, fields []string, query string, filters map[string]string) []record {
	q := strings.ToLower(strings.TrimSpace(query))
	matches := make([]match, 0, len(records))
	for i, rec := range records {
		if !matchesFilters(rec, filters) {
			continue
		}
		if q == "" {
			matches = append(matches, match{index: i})
			continue
		}
		found, prefix := false, false
		for _, field := range fields {
			for _, value := range textValues(rec[field]) {
				lower := strings.ToLower(value)
				if strings.Contains(lower, q) {
					found = true
					if strings.HasPrefix(lower, q) {
						prefix = true
					}
				}
			}
		}
		if found {
			matches = append(matches, match{index: i, isPrefix: prefix})
		}
	}

	if q != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].isPrefix && !matches[j].isPrefix
		})
	}

	out := make([]record, 0, len(matches))
	for _, m := range matches {
		out = append(out, records[m.index])
	}
	return out
}

func matchesFilters(rec record, filters map[string]string) bool {
	for field, want := range filters {
		ok := false
		for _, value := range textValues(rec[field]) {
			if strings.EqualFold(value, want) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func textValues(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func paginate(records []record, page, limit int) ([]record, int) {
	total := (len(records) + limit - 1) / limit
	if total < 1 {
		total = 1
	}
	start := (page - 1) * limit
	if start >= len(records) {
		return []record{}, total
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], total
}
