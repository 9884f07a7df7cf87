package openapi

// Fragment is a nested documentation mapping. Fragments from every level of
// a resource are combined with Merge.
type Fragment = map[string]any

// leaf wraps a value that Merge must treat as opaque, such as a raw schema
// used as a validator reference.
type leaf struct {
	value any
}

// Merge combines base and overlay and returns a new value.
//
// When overlay is not a mapping it is returned as is. Otherwise keys only in
// base are kept, keys only in overlay are added, and keys present in both are
// merged recursively when both values are mappings; in every other case the
// overlay value wins. Neither input is modified.
func Merge(base, overlay any) any {
	om, ok := overlay.(map[string]any)
	if !ok {
		return overlay
	}

	bm, _ := base.(map[string]any)
	result := make(map[string]any, len(bm)+len(om))
	for k, v := range bm {
		result[k] = copyValue(v)
	}

	for k, v := range om {
		if existing, ok := result[k].(map[string]any); ok {
			if _, isMap := v.(map[string]any); isMap {
				result[k] = Merge(existing, v)
				continue
			}
		}
		result[k] = copyValue(v)
	}

	return result
}

// MergeFragments is Merge restricted to fragments. A nil result is never
// returned.
func MergeFragments(base, overlay Fragment) Fragment {
	if overlay == nil {
		overlay = Fragment{}
	}
	return Merge(base, overlay).(map[string]any)
}

// copyValue deep copies maps and slices. Other values are shared.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = copyValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = copyValue(vv)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// copyMap deep copies m, returning nil for a nil input.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return copyValue(m).(map[string]any)
}

// pruneNil drops nil entries from nested maps so omitted values never
// serialize as null.
func pruneNil(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, vv := range t {
			if vv == nil {
				delete(t, k)
				continue
			}
			t[k] = pruneNil(vv)
		}
		return t
	case []any:
		for i, vv := range t {
			t[i] = pruneNil(vv)
		}
		return t
	default:
		return v
	}
}
