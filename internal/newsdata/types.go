// Package newsdata provides a client for NewsData-compatible news feeds.
//
// This package enables newstream to:
// - Fetch the latest articles with optional query/country/category filters
// - Walk the feed's opaque cursor pagination with loop protection
// - Expose raw article records without assuming any field is present
package newsdata

// Article is one raw record as received from the feed. No field is
// guaranteed present; use the accessors instead of indexing directly.
type Article map[string]any

// Field returns the value for key when it is present and non-null.
func (a Article) Field(key string) (any, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the first non-empty string value among keys, or "".
func (a Article) String(keys ...string) string {
	for _, k := range keys {
		if v, ok := a[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// StringOr returns String(keys...) or fallback when every key is absent,
// null, non-string, or empty.
func (a Article) StringOr(fallback string, keys ...string) string {
	if s := a.String(keys...); s != "" {
		return s
	}
	return fallback
}
