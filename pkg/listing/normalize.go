package listing

import (
	"strconv"

	"github.com/goliatone/go-leadconsole/pkg/client"
)

// Result is one fetched page.
type Result struct {
	Items      []client.Record
	TotalPages int
}

// Normalizer turns a raw list response into a Result.
type Normalizer func(raw any) Result

// FilterEncoder rewrites filter values before they are sent.
type FilterEncoder func(filters map[string]string) map[string]string

// CollectionNormalizer reads items from key, then "data", then a bare array.
// Total pages come from "totalPages" or "meta.totalPages" and default to 1.
func CollectionNormalizer(key string) Normalizer {
	return func(raw any) Result {
		result := Result{TotalPages: 1}
		switch body := raw.(type) {
		case []any:
			result.Items = records(body)
		case map[string]any:
			if items, ok := body[key].([]any); ok && key != "" {
				result.Items = records(items)
			} else if items, ok := body["data"].([]any); ok {
				result.Items = records(items)
			}
			total, ok := positive(body["totalPages"])
			if !ok {
				if meta, isMap := body["meta"].(map[string]any); isMap {
					total, ok = positive(meta["totalPages"])
				}
			}
			if ok {
				result.TotalPages = total
			}
		}
		if result.Items == nil {
			result.Items = []client.Record{}
		}
		return result
	}
}

func records(items []any) []client.Record {
	out := make([]client.Record, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}

func positive(value any) (int, bool) {
	var n int
	switch v := value.(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if n < 1 {
		n = 1
	}
	return n, true
}

// RenameFilterValue returns an encoder that sends from as to for key, e.g.
// the "SuperAdmin" role option as "Superadmin".
func RenameFilterValue(key, from, to string) FilterEncoder {
	return func(filters map[string]string) map[string]string {
		if filters[key] == from {
			filters[key] = to
		}
		return filters
	}
}
