// Converter chain: per-member converter, per-type registry, built-in
// table, then the encoding.Text fallback.
package csv

import (
	"encoding"
	"fmt"
	"reflect"
)

// ConvertContext carries the position and culture of a conversion.
// It is passed by reference to every parse and format call.
type ConvertContext struct {
	Culture    *Culture
	RowIndex   int
	FieldIndex int
	ColumnName string
}

// TypeConverter converts field text to a typed value and back.
// Parse receives the raw field text; Format mirrors it. Both receive
// the conversion context.
type TypeConverter interface {
	Parse(value string, ctx *ConvertContext) (interface{}, error)
	Format(v interface{}, ctx *ConvertContext) (string, error)
}

// ConverterFuncs adapts a pair of functions to the TypeConverter
// interface. Either function may be nil; calling the matching method
// then returns an error, and the chain does not fall through to the
// next layer.
type ConverterFuncs struct {
	ParseFunc  func(value string, ctx *ConvertContext) (interface{}, error)
	FormatFunc func(v interface{}, ctx *ConvertContext) (string, error)
}

// Parse implements TypeConverter.
func (c ConverterFuncs) Parse(value string, ctx *ConvertContext) (interface{}, error) {
	if c.ParseFunc == nil {
		return nil, fmt.Errorf("csv: converter has no parse function")
	}
	return c.ParseFunc(value, ctx)
}

// Format implements TypeConverter.
func (c ConverterFuncs) Format(v interface{}, ctx *ConvertContext) (string, error) {
	if c.FormatFunc == nil {
		return "", fmt.Errorf("csv: converter has no format function")
	}
	return c.FormatFunc(v, ctx)
}

// ConverterRegistry holds custom converters keyed by target type.
type ConverterRegistry struct {
	converters map[reflect.Type]TypeConverter
}

// NewConverterRegistry creates an empty registry.
func NewConverterRegistry() *ConverterRegistry {
	return &ConverterRegistry{converters: make(map[reflect.Type]TypeConverter)}
}

// Register adds a converter for the given target type.
func (r *ConverterRegistry) Register(t reflect.Type, conv TypeConverter) {
	r.converters[t] = conv
}

// RegisterFor registers a converter for the type of the zero value T.
func RegisterFor[T any](r *ConverterRegistry, conv TypeConverter) {
	var zero T
	r.Register(reflect.TypeOf(zero), conv)
}

// Lookup retrieves the converter registered for t, if any.
func (r *ConverterRegistry) Lookup(t reflect.Type) (TypeConverter, bool) {
	if r == nil {
		return nil, false
	}
	conv, ok := r.converters[t]
	return conv, ok
}

// convertValue runs the parse side of the converter chain and returns
// a value assignable to target. An empty input yields the zero value,
// or nil for pointer targets.
func convertValue(raw string, target reflect.Type, member TypeConverter, reg *ConverterRegistry, ctx *ConvertContext) (reflect.Value, error) {
	// Strip an optional wrapper: *T converts as T and wraps the result.
	if target.Kind() == reflect.Ptr {
		if raw == "" {
			return reflect.Zero(target), nil
		}
		inner, err := convertValue(raw, target.Elem(), member, reg, ctx)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(inner)
		return p, nil
	}

	if raw == "" && target.Kind() != reflect.String {
		return reflect.Zero(target), nil
	}

	// 1. Per-member converter.
	if member != nil {
		v, err := member.Parse(raw, ctx)
		if err != nil {
			return reflect.Value{}, err
		}
		return coerce(v, target)
	}

	// 2. Per-type custom converter.
	if conv, ok := reg.Lookup(target); ok {
		v, err := conv.Parse(raw, ctx)
		if err != nil {
			return reflect.Value{}, err
		}
		return coerce(v, target)
	}

	// 3. Built-in conversion table.
	if v, ok, err := parseBuiltin(raw, target, ctx); ok {
		return v, err
	}

	// 4. Fallback: encoding.TextUnmarshaler.
	ptr := reflect.New(target)
	if tu, ok := ptr.Interface().(encoding.TextUnmarshaler); ok {
		if err := tu.UnmarshalText([]byte(raw)); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	return reflect.Value{}, fmt.Errorf("csv: no conversion from %q to %s", raw, target)
}

// coerce adapts a converter result to the target type.
func coerce(v interface{}, target reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(target), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == target {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("csv: converter returned %s, want %s", rv.Type(), target)
}

// formatValue runs the format side of the converter chain.
// A nil or invalid value formats to the empty string.
func formatValue(v reflect.Value, member TypeConverter, reg *ConverterRegistry, ctx *ConvertContext) (string, error) {
	if !v.IsValid() {
		return "", nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", nil
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", nil
		}
		v = v.Elem()
	}

	// 1. Per-member converter.
	if member != nil {
		return member.Format(v.Interface(), ctx)
	}

	// 2. Per-type custom converter.
	if conv, ok := reg.Lookup(v.Type()); ok {
		return conv.Format(v.Interface(), ctx)
	}

	// 3. Built-in formatting table.
	if s, ok, err := formatBuiltin(v, ctx); ok {
		return s, err
	}

	// 4. Fallback: encoding.TextMarshaler, fmt.Stringer, then %v.
	iv := v.Interface()
	if tm, ok := iv.(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if s, ok := iv.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return fmt.Sprintf("%v", iv), nil
}
