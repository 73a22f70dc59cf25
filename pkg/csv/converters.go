// Built-in conversions for scalar types, plus enum and char helpers.
package csv

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reflect types handled specially, ahead of the kind switch.
var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
)

// parseBuiltin converts raw text to the target type using the built-in
// table. ok is false when the target is not a built-in.
func parseBuiltin(raw string, target reflect.Type, ctx *ConvertContext) (reflect.Value, bool, error) {
	culture := ctx.Culture
	if culture == nil {
		culture = Invariant
	}

	switch target {
	case timeType:
		t, err := culture.ParseDateTime(raw)
		if err != nil {
			// Time-only input (e.g. "13:45") falls back to the time layouts.
			if tod, terr := culture.ParseTimeOfDay(raw); terr == nil {
				return reflect.ValueOf(tod), true, nil
			}
			return reflect.Value{}, true, err
		}
		return reflect.ValueOf(t), true, nil
	case decimalType:
		d, err := culture.ParseDecimal(raw)
		if err != nil {
			return reflect.Value{}, true, err
		}
		return reflect.ValueOf(d), true, nil
	case uuidType:
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return reflect.Value{}, true, err
		}
		return reflect.ValueOf(id), true, nil
	}

	switch target.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(target), true, nil

	case reflect.Bool:
		b, err := parseBool(raw)
		if err != nil {
			return reflect.Value{}, true, err
		}
		v := reflect.New(target).Elem()
		v.SetBool(b)
		return v, true, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := culture.ParseInt(raw, target.Bits())
		if err != nil {
			return reflect.Value{}, true, err
		}
		v := reflect.New(target).Elem()
		v.SetInt(i)
		return v, true, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := culture.ParseUint(raw, target.Bits())
		if err != nil {
			return reflect.Value{}, true, err
		}
		v := reflect.New(target).Elem()
		v.SetUint(u)
		return v, true, nil

	case reflect.Float32, reflect.Float64:
		f, err := culture.ParseFloat(raw, target.Bits())
		if err != nil {
			return reflect.Value{}, true, err
		}
		v := reflect.New(target).Elem()
		v.SetFloat(f)
		return v, true, nil
	}

	return reflect.Value{}, false, nil
}

// formatBuiltin formats a built-in value. ok is false when the value's
// type is not a built-in.
func formatBuiltin(v reflect.Value, ctx *ConvertContext) (string, bool, error) {
	culture := ctx.Culture
	if culture == nil {
		culture = Invariant
	}

	switch v.Type() {
	case timeType:
		return culture.FormatDateTime(v.Interface().(time.Time)), true, nil
	case decimalType:
		return culture.FormatDecimal(v.Interface().(decimal.Decimal)), true, nil
	case uuidType:
		return v.Interface().(uuid.UUID).String(), true, nil
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), true, nil
	case reflect.Bool:
		if v.Bool() {
			return "true", true, nil
		}
		return "false", true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", v.Int()), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", v.Uint()), true, nil
	case reflect.Float32:
		return culture.FormatFloat(v.Float(), 32), true, nil
	case reflect.Float64:
		return culture.FormatFloat(v.Float(), 64), true, nil
	}

	return "", false, nil
}

// parseBool accepts true/false and 1/0, case-insensitively.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("csv: cannot parse %q as bool", s)
	}
}

// EnumConverter maps between names and values of an enum-like type,
// matching names case-insensitively on parse.
type EnumConverter[T comparable] struct {
	byName  map[string]T
	byValue map[T]string
}

// NewEnumConverter builds a converter from a name-to-value table.
//
// Example:
//
//	conv := csv.NewEnumConverter(map[string]Color{
//	    "Red":   ColorRed,
//	    "Green": ColorGreen,
//	})
func NewEnumConverter[T comparable](values map[string]T) *EnumConverter[T] {
	c := &EnumConverter[T]{
		byName:  make(map[string]T, len(values)),
		byValue: make(map[T]string, len(values)),
	}
	for name, v := range values {
		c.byName[strings.ToLower(name)] = v
		c.byValue[v] = name
	}
	return c
}

// Parse implements TypeConverter.
func (c *EnumConverter[T]) Parse(value string, ctx *ConvertContext) (interface{}, error) {
	v, ok := c.byName[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return nil, fmt.Errorf("csv: %q is not a known name", value)
	}
	return v, nil
}

// Format implements TypeConverter.
func (c *EnumConverter[T]) Format(v interface{}, ctx *ConvertContext) (string, error) {
	tv, ok := v.(T)
	if !ok {
		return "", fmt.Errorf("csv: unexpected value %v", v)
	}
	name, ok := c.byValue[tv]
	if !ok {
		return "", fmt.Errorf("csv: value %v has no registered name", v)
	}
	return name, nil
}

// CharConverter converts a field that must hold exactly one code point.
// rune aliases int32 in Go, so single-character semantics are opted
// into per column rather than keyed by type.
type CharConverter struct{}

// Parse implements TypeConverter.
func (CharConverter) Parse(value string, ctx *ConvertContext) (interface{}, error) {
	if utf8.RuneCountInString(value) != 1 {
		return nil, fmt.Errorf("csv: %q is not a single character", value)
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r, nil
}

// Format implements TypeConverter.
func (CharConverter) Format(v interface{}, ctx *ConvertContext) (string, error) {
	r, ok := v.(rune)
	if !ok {
		return "", fmt.Errorf("csv: expected a character, got %T", v)
	}
	return string(r), nil
}
