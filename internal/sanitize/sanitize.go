// Package sanitize turns arbitrary Go values into plain JSON data before
// anything is persisted or sent to the remote store.
//
// Value never fails: cyclic references, host-bound handles and properties
// that panic while being read become "undefined" (the bool result is false)
// and are dropped from their parent object or list.
package sanitize

import (
	"context"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// HostObject marks values bound to a live runtime resource (a widget, a
// connection, a handle). They never reach storage.
type HostObject interface {
	HostObject()
}

// Back-references that point from a node to its owner.
var droppedKeys = map[string]struct{}{
	"ownerDocument": {},
	"parentNode":    {},
	"parentElement": {},
	"owner":         {},
	"parent":        {},
}

var (
	hostObjectType    = reflect.TypeFor[HostObject]()
	contextType       = reflect.TypeFor[context.Context]()
	lockerType        = reflect.TypeFor[sync.Locker]()
	closerType        = reflect.TypeFor[io.Closer]()
	reflectValueType  = reflect.TypeFor[reflect.Value]()
	timeType          = reflect.TypeFor[time.Time]()
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	jsonNumberType    = reflect.TypeFor[json.Number]()
	jsonRawType       = reflect.TypeFor[json.RawMessage]()
)

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type walker struct {
	chain map[visitKey]struct{}
}

// Value returns a JSON-safe copy of v built from nil, bool, float64,
// int64, uint64, string, []any and map[string]any. ok is false when v
// itself is undefined.
func Value(v any) (out any, ok bool) {
	w := &walker{chain: make(map[visitKey]struct{})}
	return w.walk(reflect.ValueOf(v))
}

// DropKey reports whether an object key is stripped.
func DropKey(k string) bool {
	if strings.HasPrefix(k, "_") {
		return true
	}
	_, ok := droppedKeys[k]
	return ok
}

func (w *walker) walk(v reflect.Value) (out any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = nil, false
		}
	}()

	if !v.IsValid() {
		return nil, true
	}

	if isHost(v) {
		return nil, false
	}

	t := v.Type()
	switch {
	case t == timeType:
		return v.Interface().(time.Time).UTC().Format("2006-01-02T15:04:05.000Z07:00"), true
	case t == jsonNumberType:
		return v.Interface().(json.Number), true
	case t == jsonRawType:
		return w.fromJSON(v.Bytes())
	}

	if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface && t.Implements(jsonMarshalerType) {
		return w.marshaler(v)
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, true
		}
		return w.walk(v.Elem())

	case reflect.Pointer:
		if v.IsNil() {
			return nil, true
		}
		key := visitKey{ptr: v.Pointer(), typ: t}
		if !w.enter(key) {
			return nil, false
		}
		defer w.leave(key)
		if t.Implements(jsonMarshalerType) && !t.Elem().Implements(jsonMarshalerType) {
			return w.marshaler(v)
		}
		return w.walk(v.Elem())

	case reflect.Bool:
		return v.Bool(), true

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), true

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true

	case reflect.String:
		return v.String(), true

	case reflect.Slice:
		if v.IsNil() {
			return nil, true
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes()), true
		}
		key := visitKey{ptr: v.Pointer(), typ: t, n: v.Len()}
		if !w.enter(key) {
			return nil, false
		}
		defer w.leave(key)
		return w.list(v), true

	case reflect.Array:
		return w.list(v), true

	case reflect.Map:
		if v.IsNil() {
			return nil, true
		}
		key := visitKey{ptr: v.Pointer(), typ: t}
		if !w.enter(key) {
			return nil, false
		}
		defer w.leave(key)
		return w.mapping(v)

	case reflect.Struct:
		obj := make(map[string]any)
		w.structFields(v, obj)
		return obj, true

	default:
		// Chan, Func, UnsafePointer, Complex
		return nil, false
	}
}

func (w *walker) enter(k visitKey) bool {
	if _, seen := w.chain[k]; seen {
		return false
	}
	w.chain[k] = struct{}{}
	return true
}

func (w *walker) leave(k visitKey) {
	delete(w.chain, k)
}

func (w *walker) list(v reflect.Value) []any {
	out := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if item, ok := w.walk(v.Index(i)); ok {
			out = append(out, item)
		}
	}
	return out
}

func (w *walker) mapping(v reflect.Value) (any, bool) {
	obj := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, ok := mapKey(iter.Key())
		if !ok {
			return nil, false
		}
		if DropKey(k) {
			continue
		}
		if item, ok := w.walk(iter.Value()); ok {
			obj[k] = item
		}
	}
	if looksLikeNode(obj) {
		return nil, false
	}
	return obj, true
}

func mapKey(k reflect.Value) (string, bool) {
	if k.Kind() == reflect.String {
		return k.String(), true
	}
	if k.Type().Implements(textMarshalerType) {
		b, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", false
		}
		return string(b), true
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), true
	}
	return "", false
}

// structFields writes the exported fields of v into obj under their JSON
// names. Untagged embedded structs are flattened; outer fields win.
func (w *walker) structFields(v reflect.Value, obj map[string]any) {
	t := v.Type()
	var embedded []reflect.Value

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, omitEmpty, skip := fieldName(f)
		if skip {
			continue
		}

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				embedded = append(embedded, v.Field(i))
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if DropKey(name) {
			continue
		}

		item, ok := w.field(v, i, omitEmpty)
		if ok {
			obj[name] = item
		}
	}

	for _, ev := range embedded {
		inner := make(map[string]any)
		w.embedded(ev, inner)
		for k, val := range inner {
			if _, taken := obj[k]; !taken {
				obj[k] = val
			}
		}
	}
}

func (w *walker) embedded(v reflect.Value, obj map[string]any) {
	defer func() { _ = recover() }()
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	w.structFields(v, obj)
}

func (w *walker) field(v reflect.Value, i int, omitEmpty bool) (out any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = nil, false
		}
	}()
	fv := v.Field(i)
	if omitEmpty && isEmpty(fv) {
		return nil, false
	}
	return w.walk(fv)
}

func fieldName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func (w *walker) marshaler(v reflect.Value) (any, bool) {
	b, err := v.Interface().(json.Marshaler).MarshalJSON()
	if err != nil {
		return nil, false
	}
	return w.fromJSON(b)
}

func (w *walker) fromJSON(b []byte) (any, bool) {
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return nil, false
	}
	return w.walk(reflect.ValueOf(decoded))
}

func isHost(v reflect.Value) bool {
	t := v.Type()
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	}
	if t == reflectValueType {
		return true
	}
	if t.Kind() == reflect.Interface {
		return false
	}
	return t.Implements(hostObjectType) ||
		t.Implements(contextType) ||
		t.Implements(lockerType) ||
		t.Implements(closerType)
}

// looksLikeNode catches decoded DOM-like nodes: objects carrying a numeric
// nodeType.
func looksLikeNode(obj map[string]any) bool {
	nt, ok := obj["nodeType"]
	if !ok {
		return false
	}
	switch nt.(type) {
	case int64, uint64, float64, json.Number:
		return true
	}
	return false
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}
