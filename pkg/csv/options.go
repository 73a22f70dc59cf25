// Package csv is a streaming, low-allocation CSV codec: a tokenizing
// parser, an object-to-row mapper, a culture-aware value-conversion
// layer, and a quoting-aware emitter.
package csv

import (
	"unicode/utf8"

	"github.com/gabisonia/CsvToolkit/internal/parser"
)

// Mode is the global parser policy: raise on bad data or continue.
type Mode int

const (
	// ModeStrict raises a *CsvError on any bad-data condition.
	ModeStrict Mode = iota
	// ModeLenient invokes the BadDataFound callback and continues.
	ModeLenient
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	return parser.Mode(m).String()
}

// TrimMode controls whitespace trimming around field values.
type TrimMode int

const (
	TrimNone TrimMode = iota
	TrimStart
	TrimEnd
	TrimBoth
)

// String returns the string representation of TrimMode.
func (t TrimMode) String() string {
	return parser.TrimMode(t).String()
}

// Options configures CSV reading and writing. The value is cloned and
// validated at construction of a Reader or Writer and never mutated.
type Options struct {
	// Delimiter is the field separator.
	// It must differ from Quote and must not be \r or \n.
	// Default: ','
	Delimiter rune

	// Quote is the character surrounding quoted fields.
	// Default: '"'
	Quote rune

	// Escape is the character escaping a quote inside a quoted field.
	// 0 means "same as Quote", in which case doubling is the escape
	// mechanism.
	// Default: 0
	Escape rune

	// Comment, if not 0, marks lines to skip. A row whose first
	// character is Comment is discarded.
	// Default: 0 (disabled)
	Comment rune

	// HasHeader treats the first logical row as the header.
	// Default: true
	HasHeader bool

	// Newline is the record terminator used for writing. Empty means
	// the platform default. Reading always accepts \n, \r\n, and \r.
	Newline string

	// Trim is the whitespace trim policy applied to fields.
	// Default: TrimNone
	Trim TrimMode

	// Mode selects strict (raise) or lenient (recover) error handling.
	// Default: ModeStrict
	Mode Mode

	// DetectColumnCount fixes the expected field count from the first
	// row; rows that differ are bad data.
	DetectColumnCount bool

	// IgnoreBlankLines discards rows consisting of a single empty field.
	IgnoreBlankLines bool

	// Culture controls numeric and date parsing and formatting.
	// nil means the invariant culture.
	Culture *Culture

	// CharBufferSize is a pool rental hint for the character buffers,
	// in characters. Must be at least 16 when set; 0 means default.
	CharBufferSize int

	// ByteBufferSize is a pool rental hint for the underlying byte
	// buffers. Must be at least 16 when set; 0 means default.
	ByteBufferSize int

	// BadDataFound is invoked in lenient mode with the context of each
	// bad-data event.
	BadDataFound func(BadDataContext)

	// Converters holds custom per-type converters consulted after any
	// per-member converter and before the built-in table.
	Converters *ConverterRegistry
}

// Default buffer sizes used when the corresponding option is zero.
const (
	defaultCharBufferSize = 1024
	defaultByteBufferSize = 4096
)

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		Delimiter:      ',',
		Quote:          '"',
		HasHeader:      true,
		Trim:           TrimNone,
		Mode:           ModeStrict,
		CharBufferSize: defaultCharBufferSize,
		ByteBufferSize: defaultByteBufferSize,
	}
}

// validRune reports whether r is usable as a delimiter or quote.
func validRune(r rune) bool {
	return r != 0 && utf8.ValidRune(r) && r != utf8.RuneError
}

// Validate checks the option bundle. It returns an *OptionsError
// naming the offending field.
func (o Options) Validate() error {
	if !validRune(o.Delimiter) {
		return &OptionsError{Field: "Delimiter", Message: "invalid delimiter"}
	}
	if o.Delimiter == '\r' || o.Delimiter == '\n' {
		return &OptionsError{Field: "Delimiter", Message: "delimiter must not be a line terminator"}
	}
	if !validRune(o.Quote) {
		return &OptionsError{Field: "Quote", Message: "invalid quote character"}
	}
	if o.Delimiter == o.Quote {
		return &OptionsError{Field: "Quote", Message: "quote character same as delimiter"}
	}
	if o.Escape != 0 && !validRune(o.Escape) {
		return &OptionsError{Field: "Escape", Message: "invalid escape character"}
	}
	if o.Comment != 0 && o.Comment == o.Delimiter {
		return &OptionsError{Field: "Comment", Message: "comment character same as delimiter"}
	}
	if o.CharBufferSize != 0 && o.CharBufferSize < 16 {
		return &OptionsError{Field: "CharBufferSize", Message: "buffer size must be at least 16"}
	}
	if o.ByteBufferSize != 0 && o.ByteBufferSize < 16 {
		return &OptionsError{Field: "ByteBufferSize", Message: "buffer size must be at least 16"}
	}
	return nil
}

// normalized returns a copy with defaults applied. Options are never
// mutated after construction.
func (o Options) normalized() Options {
	if o.Escape == 0 {
		o.Escape = o.Quote
	}
	if o.Culture == nil {
		o.Culture = Invariant
	}
	if o.CharBufferSize == 0 {
		o.CharBufferSize = defaultCharBufferSize
	}
	if o.ByteBufferSize == 0 {
		o.ByteBufferSize = defaultByteBufferSize
	}
	return o
}

// parserConfig translates the options into the internal parser config.
func (o Options) parserConfig() parser.Config {
	cfg := parser.Config{
		Delimiter:         o.Delimiter,
		Quote:             o.Quote,
		Escape:            o.Escape,
		Comment:           o.Comment,
		Trim:              parser.TrimMode(o.Trim),
		Mode:              parser.Mode(o.Mode),
		DetectColumnCount: o.DetectColumnCount,
		IgnoreBlankLines:  o.IgnoreBlankLines,
		CharBufferSize:    o.CharBufferSize,
	}
	if o.BadDataFound != nil {
		cb := o.BadDataFound
		cfg.BadDataFound = func(bd parser.BadData) {
			cb(BadDataContext{
				RowIndex:   bd.RowIndex,
				LineNumber: bd.LineNumber,
				FieldIndex: bd.FieldIndex,
				Message:    bd.Message,
				RawField:   bd.RawField,
			})
		}
	}
	return cfg
}
