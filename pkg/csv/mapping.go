// Column maps: metadata binding record fields to CSV columns.
package csv

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// MemberMapping binds one record field to a CSV column.
type MemberMapping struct {
	// Name is the column header the member binds to.
	Name string
	// Index is the explicit column position, or -1 when unset.
	Index int
	// Ignore excludes the member from reading and writing.
	Ignore bool
	// Type is the member's declared type.
	Type reflect.Type
	// Converter overrides the converter chain for this member.
	Converter TypeConverter
	// Validate, when set, checks the raw field text before conversion.
	Validate func(value string) error

	// ordinal is the member's position among non-ignored mappings,
	// used as the binding fallback when neither Index nor the header
	// resolves a column.
	ordinal int

	// Pre-computed accessors over the struct field; ignored mappings
	// never receive calls to either.
	getter func(record reflect.Value) reflect.Value
	setter func(record reflect.Value, v reflect.Value)
}

// ColumnMap is the ordered collection of member mappings for one
// record type. Built once per type and cached.
type ColumnMap struct {
	Type     reflect.Type
	Mappings []MemberMapping
}

// MapRegistry builds and caches column maps per record type.
// Lazy insertion is thread-safe; each Reader and Writer owns one.
type MapRegistry struct {
	cache sync.Map // map[reflect.Type]*ColumnMap
}

// NewMapRegistry creates an empty registry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{}
}

// GetOrCreate returns the cached map for t, building it from struct
// tags on first use.
func (r *MapRegistry) GetOrCreate(t reflect.Type) (*ColumnMap, error) {
	if cached, ok := r.cache.Load(t); ok {
		return cached.(*ColumnMap), nil
	}
	m, err := buildMapFromTags(t)
	if err != nil {
		return nil, err
	}
	actual, _ := r.cache.LoadOrStore(t, m)
	return actual.(*ColumnMap), nil
}

// put installs a fluent-built map, overriding any tag-built entry.
func (r *MapRegistry) put(m *ColumnMap) {
	r.cache.Store(m.Type, m)
}

// buildMapFromTags discovers the exported fields of a struct type and
// derives a mapping from each field's csv tag.
//
// Tag forms:
//
//	Field int `csv:"amount"`          // column name
//	Field int `csv:"amount,index=2"`  // name plus explicit position
//	Field int `csv:",index=2"`        // position only, name defaults
//	Field int `csv:"-"`               // ignored
func buildMapFromTags(t reflect.Type) (*ColumnMap, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("csv: record type must be a struct, got %s", t)
	}

	m := &ColumnMap{Type: t}
	ordinal := 0
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			// Unexported fields are not mappable.
			continue
		}

		mapping := MemberMapping{
			Name:  field.Name,
			Index: -1,
			Type:  field.Type,
		}

		tag := field.Tag.Get("csv")
		if tag == "-" {
			mapping.Ignore = true
		} else if tag != "" {
			name, opts, _ := strings.Cut(tag, ",")
			if name != "" {
				mapping.Name = name
			}
			for _, opt := range strings.Split(opts, ",") {
				if opt == "" {
					continue
				}
				key, val, _ := strings.Cut(opt, "=")
				switch key {
				case "index":
					idx, err := strconv.Atoi(val)
					if err != nil || idx < 0 {
						return nil, fmt.Errorf("csv: bad index %q in tag on %s.%s", val, t.Name(), field.Name)
					}
					mapping.Index = idx
				default:
					return nil, fmt.Errorf("csv: unknown tag option %q on %s.%s", key, t.Name(), field.Name)
				}
			}
		}

		mapping.bindAccessors(i)
		if !mapping.Ignore {
			mapping.ordinal = ordinal
			ordinal++
		}
		m.Mappings = append(m.Mappings, mapping)
	}
	return m, nil
}

// bindAccessors installs the getter and setter closures over the
// struct field index so the hot path never walks field metadata.
func (mm *MemberMapping) bindAccessors(fieldIndex int) {
	mm.getter = func(record reflect.Value) reflect.Value {
		return record.Field(fieldIndex)
	}
	mm.setter = func(record reflect.Value, v reflect.Value) {
		record.Field(fieldIndex).Set(v)
	}
}

// MapBuilder declares a column map fluently. Entries override the
// tag-derived mapping for the same member.
//
// Example:
//
//	csv.RegisterMap[Trade](reg, func(m *csv.MapBuilder[Trade]) {
//	    m.Map("Amount").Name("amount").Index(2)
//	    m.Map("Internal").Ignore()
//	})
type MapBuilder[T any] struct {
	overrides map[string]*MemberBuilder
	order     []string
	err       error
}

// MemberBuilder is the chain returned by MapBuilder.Map.
type MemberBuilder struct {
	name      string
	index     int
	hasName   bool
	ignore    bool
	converter TypeConverter
	validate  func(string) error
}

// Map starts (or continues) the declaration for the named struct field.
func (b *MapBuilder[T]) Map(fieldName string) *MemberBuilder {
	if b.overrides == nil {
		b.overrides = make(map[string]*MemberBuilder)
	}
	mb, ok := b.overrides[fieldName]
	if !ok {
		mb = &MemberBuilder{index: -1}
		b.overrides[fieldName] = mb
		b.order = append(b.order, fieldName)
	}
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if _, ok := t.FieldByName(fieldName); !ok && b.err == nil {
		b.err = fmt.Errorf("csv: %s has no field %q", t, fieldName)
	}
	return mb
}

// Name sets the column header the member binds to.
func (mb *MemberBuilder) Name(name string) *MemberBuilder {
	mb.name = name
	mb.hasName = true
	return mb
}

// Index sets the explicit column position.
func (mb *MemberBuilder) Index(i int) *MemberBuilder {
	mb.index = i
	return mb
}

// Converter sets a per-member converter.
func (mb *MemberBuilder) Converter(c TypeConverter) *MemberBuilder {
	mb.converter = c
	return mb
}

// Validate installs a raw-text validator run before conversion.
func (mb *MemberBuilder) Validate(fn func(value string) error) *MemberBuilder {
	mb.validate = fn
	return mb
}

// Ignore excludes the member from reading and writing.
func (mb *MemberBuilder) Ignore() *MemberBuilder {
	mb.ignore = true
	return mb
}

// RegisterMap installs a fluently declared column map for T in the
// registry, overriding tag-derived entries member by member.
func RegisterMap[T any](reg *MapRegistry, build func(*MapBuilder[T])) error {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	b := &MapBuilder[T]{}
	build(b)
	if b.err != nil {
		return b.err
	}

	m, err := buildMapFromTags(t)
	if err != nil {
		return err
	}

	// Apply overrides onto the tag-derived base.
	byField := make(map[string]*MemberMapping, len(m.Mappings))
	for i := range m.Mappings {
		field := t.Field(indexOfMapping(t, i))
		byField[field.Name] = &m.Mappings[i]
	}
	for _, fieldName := range b.order {
		mb := b.overrides[fieldName]
		mm, ok := byField[fieldName]
		if !ok {
			return fmt.Errorf("csv: %s has no mappable field %q", t, fieldName)
		}
		if mb.ignore {
			mm.Ignore = true
			continue
		}
		mm.Ignore = false
		if mb.hasName {
			mm.Name = mb.name
		}
		if mb.index >= 0 {
			mm.Index = mb.index
		}
		if mb.converter != nil {
			mm.Converter = mb.converter
		}
		if mb.validate != nil {
			mm.Validate = mb.validate
		}
	}

	// Re-number ordinals after ignore flags settled.
	ordinal := 0
	for i := range m.Mappings {
		if m.Mappings[i].Ignore {
			continue
		}
		m.Mappings[i].ordinal = ordinal
		ordinal++
	}

	reg.put(m)
	return nil
}

// indexOfMapping recovers the struct field index for the i-th mapping.
// Mappings are appended in field declaration order, skipping only
// unexported fields.
func indexOfMapping(t reflect.Type, mappingIdx int) int {
	seen := 0
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).PkgPath != "" {
			continue
		}
		if seen == mappingIdx {
			return i
		}
		seen++
	}
	return -1
}
