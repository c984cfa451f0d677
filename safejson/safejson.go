// Package safejson serializes arbitrary values to JSON, replacing circular
// references with a marker instead of failing
package safejson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Plain converts v into a tree of maps, slices and scalars that
// encoding/json can always marshal. A reference back to one of its own
// ancestors becomes "[Circular ~]" or "[Circular ~.path.to.ancestor]".
func Plain(v any) any {
	w := &walker{}
	return w.walk(reflect.ValueOf(v), nil)
}

// Marshal returns the canonical JSON text of v (object keys sorted) using
// the given indent, without HTML escaping
func Marshal(v any, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(Plain(v)); err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

type ancestor struct {
	ptr  uintptr
	path []string
}

type walker struct {
	ancestors []ancestor
}

func (w *walker) circular(ptr uintptr) (string, bool) {
	for _, a := range w.ancestors {
		if a.ptr == ptr {
			if len(a.path) == 0 {
				return "[Circular ~]", true
			}
			return "[Circular ~." + strings.Join(a.path, ".") + "]", true
		}
	}
	return "", false
}

func (w *walker) enter(ptr uintptr, path []string) func() {
	w.ancestors = append(w.ancestors, ancestor{ptr: ptr, path: path})
	return func() { w.ancestors = w.ancestors[:len(w.ancestors)-1] }
}

func child(path []string, key string) []string {
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return append(next, key)
}

func (w *walker) walk(v reflect.Value, path []string) any {
	if !v.IsValid() {
		return nil
	}

	if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface || !v.IsNil() {
		if plain, ok := w.special(v); ok {
			return plain
		}
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if marker, ok := w.circular(v.Pointer()); ok {
			return marker
		}
		defer w.enter(v.Pointer(), path)()
		return w.walk(v.Elem(), path)
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return w.walk(v.Elem(), path)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if marker, ok := w.circular(v.Pointer()); ok {
			return marker
		}
		defer w.enter(v.Pointer(), path)()
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			out[key] = w.walk(iter.Value(), child(path, key))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
		if marker, ok := w.circular(v.Pointer()); ok {
			return marker
		}
		defer w.enter(v.Pointer(), path)()
		return w.list(v, path)
	case reflect.Array:
		return w.list(v, path)
	case reflect.Struct:
		return w.record(v, path)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v.Interface())
	default:
		if !v.CanInterface() {
			return nil
		}
		return v.Interface()
	}
}

// special handles values that know how to present themselves
func (w *walker) special(v reflect.Value) (any, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	switch x := v.Interface().(type) {
	case json.Marshaler:
		data, err := x.MarshalJSON()
		if err != nil {
			return nil, false
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, false
		}
		return out, true
	case error:
		return x.Error(), true
	}
	return nil, false
}

func (w *walker) list(v reflect.Value, path []string) any {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = w.walk(v.Index(i), child(path, fmt.Sprint(i)))
	}
	return out
}

func (w *walker) record(v reflect.Value, path []string) any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = w.walk(v.Field(i), child(path, name))
	}
	return out
}
