// Package form encodes request parameters into the bracketed
// application/x-www-form-urlencoded notation the Service expects, for both
// query strings and request bodies.
//
// Nested structs and maps become key[sub]=value, slices become key[0]=value.
// Struct fields are named with the `form` tag:
//
//	type CreateCustomer struct {
//	    Email    *string           `form:"email"`
//	    Metadata map[string]string `form:"metadata"`
//	    Address  *Address          `form:"address"`
//	    Expand   []string          `form:"expand"`
//	}
//
// Nil pointers, nil slices and nil maps are omitted. Fields tagged
// `form:",omitempty"` are also omitted when they hold their zero value.
// Values of string kind (including generated enums) are emitted verbatim.
package form

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupportedType is returned when a parameter has a kind that has no form
// representation (channels, functions, complex numbers).
var ErrUnsupportedType = errors.New("form: unsupported parameter type")

// Appender is implemented by types that control their own encoding.
type Appender interface {
	AppendForm(key string, values *Values) error
}

// Pair is one encoded key/value.
type Pair struct {
	Key   string
	Value string
}

// Values is an ordered list of key/value pairs. Unlike url.Values it keeps
// insertion order so the encoded output is stable.
type Values struct {
	pairs []Pair
}

// Add appends a pair.
func (v *Values) Add(key, value string) {
	v.pairs = append(v.pairs, Pair{Key: key, Value: value})
}

// Set replaces every pair named key with a single pair, keeping the position
// of the first occurrence. The pair is appended when key is absent.
func (v *Values) Set(key, value string) {
	out := make([]Pair, 0, len(v.pairs)+1)
	found := false
	for _, p := range v.pairs {
		if p.Key != key {
			out = append(out, p)
			continue
		}
		if !found {
			out = append(out, Pair{Key: key, Value: value})
			found = true
		}
	}
	v.pairs = out
	if !found {
		v.Add(key, value)
	}
}

// Get returns the first value for key, or "".
func (v Values) Get(key string) string {
	for _, p := range v.pairs {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Has reports whether key is present.
func (v Values) Has(key string) bool {
	for _, p := range v.pairs {
		if p.Key == key {
			return true
		}
	}
	return false
}

// Del removes every pair named key.
func (v *Values) Del(key string) {
	out := make([]Pair, 0, len(v.pairs))
	for _, p := range v.pairs {
		if p.Key != key {
			out = append(out, p)
		}
	}
	v.pairs = out
}

// Len returns the number of pairs.
func (v Values) Len() int { return len(v.pairs) }

// Pairs returns a copy of the pairs in order.
func (v Values) Pairs() []Pair {
	out := make([]Pair, len(v.pairs))
	copy(out, v.pairs)
	return out
}

// Clone returns an independent copy.
func (v Values) Clone() Values {
	return Values{pairs: v.Pairs()}
}

// Encode renders the pairs as a URL-encoded string. Brackets in keys are left
// readable; everything else is escaped.
func (v Values) Encode() string {
	var b strings.Builder
	for i, p := range v.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeKey(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func escapeKey(key string) string {
	k := url.QueryEscape(key)
	k = strings.ReplaceAll(k, "%5B", "[")
	return strings.ReplaceAll(k, "%5D", "]")
}

// Encode serializes params, a struct, a map with string keys, or a Values, into
// ordered pairs. A nil params yields no pairs.
func Encode(params any) (Values, error) {
	var values Values
	if params == nil {
		return values, nil
	}
	if v, ok := params.(Values); ok {
		return v.Clone(), nil
	}
	if v, ok := params.(*Values); ok {
		if v == nil {
			return values, nil
		}
		return v.Clone(), nil
	}

	rv := reflect.ValueOf(params)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return values, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		if err := appendStruct(&values, "", rv); err != nil {
			return Values{}, err
		}
	case reflect.Map:
		if err := appendMap(&values, "", rv); err != nil {
			return Values{}, err
		}
	default:
		return Values{}, fmt.Errorf("%w: top-level %s", ErrUnsupportedType, rv.Type())
	}
	return values, nil
}

// AppendValue encodes a single value under key. It is the building block used
// by Appender implementations for their nested fields.
func AppendValue(values *Values, key string, value any) error {
	if value == nil {
		return nil
	}
	return appendValue(values, key, reflect.ValueOf(value))
}

var (
	appenderType = reflect.TypeOf((*Appender)(nil)).Elem()
	timeType     = reflect.TypeOf(time.Time{})
)

func appendValue(values *Values, key string, rv reflect.Value) error {
	if !rv.IsValid() {
		return nil
	}

	if rv.Type().Implements(appenderType) {
		if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
			return nil
		}
		return rv.Interface().(Appender).AppendForm(key, values)
	}
	if rv.CanAddr() && rv.Addr().Type().Implements(appenderType) {
		return rv.Addr().Interface().(Appender).AppendForm(key, values)
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return appendValue(values, key, rv.Elem())
	case reflect.String:
		values.Add(key, rv.String())
	case reflect.Bool:
		values.Add(key, strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		values.Add(key, strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		values.Add(key, strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		values.Add(key, strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits()))
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		return appendSlice(values, key, rv)
	case reflect.Array:
		return appendSlice(values, key, rv)
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		return appendMap(values, key, rv)
	case reflect.Struct:
		if rv.Type() == timeType {
			values.Add(key, strconv.FormatInt(rv.Interface().(time.Time).Unix(), 10))
			return nil
		}
		return appendStruct(values, key, rv)
	default:
		return fmt.Errorf("%w: %s at %q", ErrUnsupportedType, rv.Type(), key)
	}
	return nil
}

func appendSlice(values *Values, key string, rv reflect.Value) error {
	for i := 0; i < rv.Len(); i++ {
		if err := appendValue(values, nest(key, strconv.Itoa(i)), rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func appendMap(values *Values, key string, rv reflect.Value) error {
	if rv.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("%w: map key %s at %q", ErrUnsupportedType, rv.Type().Key(), key)
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		if err := appendValue(values, nest(key, k.String()), rv.MapIndex(k)); err != nil {
			return err
		}
	}
	return nil
}

func appendStruct(values *Values, key string, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := parseTag(field)
		if skip {
			continue
		}

		fv := rv.Field(i)

		// Untagged embedded structs are flattened into the parent.
		if field.Anonymous && name == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				if err := appendStruct(values, key, inner); err != nil {
					return err
				}
				continue
			}
		}

		if name == "" {
			name = strings.ToLower(field.Name)
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		if err := appendValue(values, nest(key, name), fv); err != nil {
			return err
		}
	}
	return nil
}

func parseTag(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := field.Tag.Lookup("form")
	if !ok {
		return "", false, false
	}
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty, false
}

func nest(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "[" + child + "]"
}
