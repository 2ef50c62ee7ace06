// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package decode

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// ErrDecode is wrapped by every error this package returns.
var ErrDecode = errors.New("decode failed")

// FieldError describes a value that could not be coerced to its field type.
type FieldError struct {
	Path   string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	path := e.Path
	if path == "" {
		path = "(root)"
	}
	return fmt.Sprintf("decode %s: %s (got %T %v)", path, e.Reason, e.Value, e.Value)
}

// Unwrap returns ErrDecode so callers can match with errors.Is.
func (e *FieldError) Unwrap() error {
	return ErrDecode
}

// Defaulter is implemented by types that need non-zero values for absent fields.
type Defaulter interface {
	Defaults()
}

// Normalizer is implemented by types that fix up values after decoding.
type Normalizer interface {
	Normalize()
}

// Parse reads JSON into a generic tree, keeping numbers as json.Number.
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %w", ErrDecode, err)
	}
	return raw, nil
}

// Decode parses data and decodes it into the value pointed to by v.
func Decode(data []byte, v any) error {
	raw, err := Parse(data)
	if err != nil {
		return err
	}
	return Value(raw, v)
}

// Value decodes an already parsed tree (as produced by Parse or by
// unmarshalling into any) into the value pointed to by v.
func Value(raw any, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer, got %T", ErrDecode, v)
	}
	return decodeValue(raw, rv.Elem(), "")
}

func decodeValue(raw any, dst reflect.Value, path string) error {
	if s, ok := raw.(string); ok && isNullLiteral(s) {
		raw = nil
	}

	t := dst.Type()
	if coerce, ok := typeCoercions[t]; ok {
		if raw == nil {
			return nil
		}
		return coerce(raw, dst, path)
	}

	switch t.Kind() {
	case reflect.Pointer:
		if raw == nil {
			dst.SetZero()
			return nil
		}
		elem := reflect.New(t.Elem())
		if err := decodeValue(raw, elem.Elem(), path); err != nil {
			return err
		}
		dst.Set(elem)
		return nil

	case reflect.Slice:
		return decodeSlice(raw, dst, path)

	case reflect.Map:
		return decodeMap(raw, dst, path)

	case reflect.Struct:
		return decodeStruct(raw, dst, path)

	case reflect.Interface:
		if raw == nil {
			dst.SetZero()
			return nil
		}
		dst.Set(reflect.ValueOf(plain(raw)))
		return nil
	}

	coerce, ok := kindCoercions[t.Kind()]
	if !ok {
		return &FieldError{Path: path, Value: raw, Reason: "unsupported field type " + t.String()}
	}
	if raw == nil {
		return nil
	}
	return coerce(raw, dst, path)
}

func decodeSlice(raw any, dst reflect.Value, path string) error {
	if raw == nil {
		dst.Set(reflect.MakeSlice(dst.Type(), 0, 0))
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return &FieldError{Path: path, Value: raw, Reason: "expected array"}
	}

	out := reflect.MakeSlice(dst.Type(), len(items), len(items))
	for i, item := range items {
		if err := decodeValue(item, out.Index(i), path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	dst.Set(out)
	return nil
}

func decodeMap(raw any, dst reflect.Value, path string) error {
	t := dst.Type()
	if raw == nil {
		dst.Set(reflect.MakeMap(t))
		return nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return &FieldError{Path: path, Value: raw, Reason: "expected object"}
	}

	out := reflect.MakeMapWithSize(t, len(obj))
	for k, v := range obj {
		elemPath := joinPath(path, k)

		key := reflect.New(t.Key()).Elem()
		if err := decodeValue(k, key, elemPath); err != nil {
			return err
		}
		val := reflect.New(t.Elem()).Elem()
		if err := decodeValue(v, val, elemPath); err != nil {
			return err
		}
		out.SetMapIndex(key, val)
	}
	dst.Set(out)
	return nil
}

func decodeStruct(raw any, dst reflect.Value, path string) error {
	var obj map[string]any
	if raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return &FieldError{Path: path, Value: raw, Reason: "expected object"}
		}
		obj = m
	}

	if d, ok := dst.Addr().Interface().(Defaulter); ok {
		d.Defaults()
	}

	for _, f := range fieldsOf(dst.Type()) {
		if err := decodeValue(obj[f.name], dst.Field(f.index), joinPath(path, f.name)); err != nil {
			return err
		}
	}

	if n, ok := dst.Addr().Interface().(Normalizer); ok {
		n.Normalize()
	}
	return nil
}

type fieldInfo struct {
	name  string
	index int
}

var fieldCache sync.Map // reflect.Type -> []fieldInfo

func fieldsOf(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}

	fields := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields = append(fields, fieldInfo{name: name, index: i})
	}

	fieldCache.Store(t, fields)
	return fields
}

func isNullLiteral(s string) bool {
	return strings.EqualFold(s, "none") || strings.EqualFold(s, "null")
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// plain converts json.Number leaves to float64, matching what an untyped
// unmarshal would produce.
func plain(raw any) any {
	switch v := raw.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = plain(v[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k := range v {
			out[k] = plain(v[k])
		}
		return out
	default:
		return raw
	}
}
