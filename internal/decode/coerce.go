// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package decode

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// coercer writes a non-null raw value into dst.
type coercer func(raw any, dst reflect.Value, path string) error

// kindCoercions is the scalar coercion table, keyed by destination kind.
var kindCoercions = map[reflect.Kind]coercer{
	reflect.Int:     coerceInt,
	reflect.Int8:    coerceInt,
	reflect.Int16:   coerceInt,
	reflect.Int32:   coerceInt,
	reflect.Int64:   coerceInt,
	reflect.Uint:    coerceUint,
	reflect.Uint8:   coerceUint,
	reflect.Uint16:  coerceUint,
	reflect.Uint32:  coerceUint,
	reflect.Uint64:  coerceUint,
	reflect.Float32: coerceFloat,
	reflect.Float64: coerceFloat,
	reflect.Bool:    coerceBool,
	reflect.String:  coerceString,
}

// typeCoercions takes precedence over kindCoercions for specific types.
var typeCoercions = map[reflect.Type]coercer{
	reflect.TypeOf(time.Time{}): coerceTime,
}

func coerceInt(raw any, dst reflect.Value, path string) error {
	n, ok := integral(raw)
	if !ok {
		return &FieldError{Path: path, Value: raw, Reason: "expected integer"}
	}
	if dst.OverflowInt(n) {
		return &FieldError{Path: path, Value: raw, Reason: "integer overflows " + dst.Type().String()}
	}
	dst.SetInt(n)
	return nil
}

func coerceUint(raw any, dst reflect.Value, path string) error {
	n, ok := integral(raw)
	if !ok || n < 0 {
		return &FieldError{Path: path, Value: raw, Reason: "expected unsigned integer"}
	}
	if dst.OverflowUint(uint64(n)) {
		return &FieldError{Path: path, Value: raw, Reason: "integer overflows " + dst.Type().String()}
	}
	dst.SetUint(uint64(n))
	return nil
}

func coerceFloat(raw any, dst reflect.Value, path string) error {
	f, ok := number(raw)
	if !ok {
		return &FieldError{Path: path, Value: raw, Reason: "expected number"}
	}
	if dst.OverflowFloat(f) {
		return &FieldError{Path: path, Value: raw, Reason: "number overflows " + dst.Type().String()}
	}
	dst.SetFloat(f)
	return nil
}

func coerceBool(raw any, dst reflect.Value, path string) error {
	switch v := raw.(type) {
	case bool:
		dst.SetBool(v)
		return nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			dst.SetBool(true)
			return nil
		case "false":
			dst.SetBool(false)
			return nil
		}
	case json.Number, float64:
		if f, ok := number(v); ok && (f == 0 || f == 1) {
			dst.SetBool(f == 1)
			return nil
		}
	}
	return &FieldError{Path: path, Value: raw, Reason: "expected boolean"}
}

func coerceString(raw any, dst reflect.Value, path string) error {
	switch v := raw.(type) {
	case string:
		dst.SetString(v)
	case json.Number:
		dst.SetString(v.String())
	case float64:
		dst.SetString(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		dst.SetString(strconv.FormatBool(v))
	default:
		return &FieldError{Path: path, Value: raw, Reason: "expected string"}
	}
	return nil
}

// coerceTime accepts RFC 3339 strings and Unix seconds (number or numeric string).
func coerceTime(raw any, dst reflect.Value, path string) error {
	if s, ok := raw.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
			dst.Set(reflect.ValueOf(t.UTC()))
			return nil
		}
	}
	if f, ok := number(raw); ok {
		sec, frac := math.Modf(f)
		t := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	return &FieldError{Path: path, Value: raw, Reason: "expected RFC 3339 timestamp or unix seconds"}
}

// number parses raw as a float from a JSON number or numeric string.
func number(raw any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case json.Number:
		f, err = v.Float64()
	case float64:
		f = v
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// integral parses raw as an int64. Floating-point input must have no
// fractional part.
func integral(raw any) (int64, bool) {
	var s string
	switch v := raw.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
