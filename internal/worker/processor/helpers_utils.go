package processor

import "strings"

// mergeMaps layers override on top of base without mutating either.
// Template defaults are the base; record input wins key by key.
func mergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}
	return result
}

func stringProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// truncate bounds error text before it lands in the DB.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
