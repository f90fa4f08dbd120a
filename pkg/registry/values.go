package registry

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// normalize round-trips v through JSON so Go structs, typed slices and
// numeric types compare the way a page-side value would.
func normalize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, core.ErrInvalidArgument.WithMessagef("value %v (%T) is not serializable", v, v).WithCause(err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, core.ErrInvalidArgument.WithCause(err)
	}
	return out, nil
}

// lookup reads a dotted property path out of v.
func lookup(v interface{}, path string) (interface{}, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false, core.ErrInvalidArgument.WithMessagef("value %v (%T) is not serializable", v, v).WithCause(err)
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return nil, false, nil
	}
	return res.Value(), true, nil
}

// deepEqual compares after JSON normalization.
func deepEqual(a, b interface{}) (bool, error) {
	na, err := normalize(a)
	if err != nil {
		return false, err
	}
	nb, err := normalize(b)
	if err != nil {
		return false, err
	}
	return reflect.DeepEqual(na, nb), nil
}

// length returns the length of a string, slice, array or map.
func length(v interface{}) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// isEmpty reports whether v has no length, or no keys when it is an object.
func isEmpty(v interface{}) (bool, error) {
	if v == nil {
		return true, nil
	}
	if n, ok := length(v); ok {
		return n == 0, nil
	}
	nv, err := normalize(v)
	if err != nil {
		return false, err
	}
	if obj, ok := nv.(map[string]interface{}); ok {
		return len(obj) == 0, nil
	}
	return false, core.ErrInvalidArgument.WithMessagef("empty: %v (%T) has no length", v, v)
}

// includes reports whether haystack contains needle: a substring of a
// string, an element of a list, or a key/value subset of an object.
func includes(haystack, needle interface{}) (bool, error) {
	if s, ok := haystack.(string); ok {
		return strings.Contains(s, fmt.Sprint(needle)), nil
	}
	h, err := normalize(haystack)
	if err != nil {
		return false, err
	}
	n, err := normalize(needle)
	if err != nil {
		return false, err
	}
	switch h := h.(type) {
	case []interface{}:
		for _, el := range h {
			if reflect.DeepEqual(el, n) {
				return true, nil
			}
		}
		return false, nil
	case map[string]interface{}:
		sub, ok := n.(map[string]interface{})
		if !ok {
			return false, core.ErrInvalidArgument.WithMessagef("include: expected an object to compare with, got %v", needle)
		}
		for k, want := range sub {
			got, ok := h[k]
			if !ok || !reflect.DeepEqual(got, want) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, core.ErrInvalidArgument.WithMessagef("include: %v (%T) cannot contain values", haystack, haystack)
	}
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
