package csv

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gabisonia/CsvToolkit/internal/parser"
)

// Writer emits CSV records field by field with quoting and escaping.
//
// Like Reader, a Writer is single-threaded; independent writers are
// fully parallel.
//
// Example usage:
//
//	w, _ := csv.NewWriter(file, csv.DefaultOptions())
//	defer w.Close()
//	csv.WriteHeader[Trade](w)
//	for _, t := range trades {
//	    csv.WriteRecord(w, t)
//	}
//	w.Flush()
type Writer struct {
	opts    Options
	sink    parser.ContextCharSink
	maps    *MapRegistry
	newline string

	// scratch holds the delimiter and quote for single-character
	// emission.
	scratch [2]rune
	// fieldBuf is reused to compose quoted fields and formatted
	// primitives. Seeded at 128 bytes; grows on demand.
	fieldBuf []byte

	fieldIndex int
	rowIndex   int
	closed     bool
}

// NewWriter creates a Writer over w with the given options.
func NewWriter(w io.Writer, opts Options) (*Writer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.normalized()

	newline := opts.Newline
	if newline == "" {
		newline = platformNewline()
	}

	return &Writer{
		opts:     opts,
		sink:     parser.NewWriterSink(w, opts.ByteBufferSize),
		maps:     NewMapRegistry(),
		newline:  newline,
		scratch:  [2]rune{opts.Delimiter, opts.Quote},
		fieldBuf: make([]byte, 0, 128),
	}, nil
}

// platformNewline is the record terminator used when Options.Newline
// is empty.
func platformNewline() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Maps exposes the writer's map registry for fluent registration.
func (w *Writer) Maps() *MapRegistry {
	return w.maps
}

// WriteField writes one field, quoting and escaping as needed.
// Delimiters are emitted only between fields, never before the first
// field of a row.
func (w *Writer) WriteField(value string) error {
	return w.writeField(nil, value)
}

// WriteFieldContext is the cooperative twin of WriteField.
func (w *Writer) WriteFieldContext(ctx context.Context, value string) error {
	return w.writeField(ctx, value)
}

func (w *Writer) writeField(ctx context.Context, value string) error {
	if w.closed {
		return ErrClosed
	}
	if w.fieldIndex > 0 {
		if err := w.emit(ctx, string(w.scratch[:1])); err != nil {
			return err
		}
	}
	w.fieldIndex++

	if !w.fieldNeedsQuotes(value) {
		return w.emit(ctx, value)
	}

	buf := append(w.fieldBuf[:0], string(w.scratch[1:2])...)
	for _, r := range value {
		if r == w.opts.Quote {
			buf = appendRune(buf, w.opts.Escape)
		}
		buf = appendRune(buf, r)
	}
	buf = appendRune(buf, w.opts.Quote)
	quoted := string(buf)
	w.fieldBuf = buf[:0]
	return w.emit(ctx, quoted)
}

// fieldNeedsQuotes reports whether a field must be quoted: it is
// non-empty and either starts or ends with whitespace, or contains the
// delimiter, the quote, or a line terminator.
func (w *Writer) fieldNeedsQuotes(value string) bool {
	if value == "" {
		return false
	}
	if isEdgeSpace(value[0]) || isEdgeSpace(value[len(value)-1]) {
		return true
	}
	return strings.ContainsRune(value, w.opts.Delimiter) ||
		strings.ContainsRune(value, w.opts.Quote) ||
		strings.ContainsAny(value, "\r\n")
}

func isEdgeSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

func appendRune(buf []byte, r rune) []byte {
	if r < 0x80 {
		return append(buf, byte(r))
	}
	return append(buf, string(r)...)
}

// NextRecord terminates the current record with the configured newline
// and starts the next one.
func (w *Writer) NextRecord() error {
	return w.nextRecord(nil)
}

// NextRecordContext is the cooperative twin of NextRecord.
func (w *Writer) NextRecordContext(ctx context.Context) error {
	return w.nextRecord(ctx)
}

func (w *Writer) nextRecord(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.emit(ctx, w.newline); err != nil {
		return err
	}
	w.fieldIndex = 0
	w.rowIndex++
	return nil
}

// RowIndex reports the 0-based index of the record being written.
func (w *Writer) RowIndex() int {
	return w.rowIndex
}

// Flush forces buffered output through to the underlying stream.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	return w.sink.Flush()
}

// FlushContext is the cooperative twin of Flush. Cancellation is
// checked before the flush begins.
func (w *Writer) FlushContext(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	return w.sink.FlushContext(ctx)
}

// Close flushes and marks the writer unusable. Idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.sink.Flush()
	w.closed = true
	return err
}

// emit is the single suspension point on the write path.
func (w *Writer) emit(ctx context.Context, s string) error {
	if ctx != nil {
		return w.sink.WriteCharsContext(ctx, s)
	}
	return w.sink.WriteChars(s)
}

// WriteValue writes one typed field. Strings, byte slices, and
// span-formattable primitives take fast paths over the reused field
// buffer; everything else goes through the converter chain.
func (w *Writer) WriteValue(v interface{}) error {
	return w.writeValue(nil, v, nil)
}

// WriteValueContext is the cooperative twin of WriteValue.
func (w *Writer) WriteValueContext(ctx context.Context, v interface{}) error {
	return w.writeValue(ctx, v, nil)
}

func (w *Writer) writeValue(ctx context.Context, v interface{}, member TypeConverter) error {
	if w.closed {
		return ErrClosed
	}
	if member == nil {
		switch tv := v.(type) {
		case nil:
			return w.writeField(ctx, "")
		case string:
			return w.writeField(ctx, tv)
		case []byte:
			return w.writeField(ctx, string(tv))
		case bool:
			if tv {
				return w.writeField(ctx, "true")
			}
			return w.writeField(ctx, "false")
		case int:
			return w.writeField(ctx, string(strconv.AppendInt(w.fieldBuf[:0], int64(tv), 10)))
		case int64:
			return w.writeField(ctx, string(strconv.AppendInt(w.fieldBuf[:0], tv, 10)))
		case uint64:
			return w.writeField(ctx, string(strconv.AppendUint(w.fieldBuf[:0], tv, 10)))
		case float64:
			return w.writeField(ctx, w.opts.Culture.FormatFloat(tv, 64))
		case float32:
			return w.writeField(ctx, w.opts.Culture.FormatFloat(float64(tv), 32))
		case time.Time:
			return w.writeField(ctx, w.opts.Culture.FormatDateTime(tv))
		case decimal.Decimal:
			return w.writeField(ctx, w.opts.Culture.FormatDecimal(tv))
		case uuid.UUID:
			return w.writeField(ctx, tv.String())
		}
	}

	cctx := ConvertContext{Culture: w.opts.Culture, RowIndex: w.rowIndex, FieldIndex: w.fieldIndex}
	s, err := formatValue(reflect.ValueOf(v), member, w.opts.Converters, &cctx)
	if err != nil {
		return err
	}
	return w.writeField(ctx, s)
}

// WriteHeader emits each non-ignored mapping's column name for T,
// then terminates the record.
func WriteHeader[T any](w *Writer) error {
	return writeHeader[T](w, nil)
}

// WriteHeaderContext is the cooperative twin of WriteHeader.
func WriteHeaderContext[T any](ctx context.Context, w *Writer) error {
	return writeHeader[T](w, ctx)
}

func writeHeader[T any](w *Writer, ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	var zero T
	m, err := w.maps.GetOrCreate(reflect.TypeOf(zero))
	if err != nil {
		return err
	}
	for i := range m.Mappings {
		if m.Mappings[i].Ignore {
			continue
		}
		if err := w.writeField(ctx, m.Mappings[i].Name); err != nil {
			return err
		}
	}
	return w.nextRecord(ctx)
}

// WriteRecord projects a record through its column map, writes each
// member field honoring per-member converters, and terminates the
// record.
func WriteRecord[T any](w *Writer, record T) error {
	return writeRecord(w, nil, record)
}

// WriteRecordContext is the cooperative twin of WriteRecord.
func WriteRecordContext[T any](ctx context.Context, w *Writer, record T) error {
	return writeRecord(w, ctx, record)
}

func writeRecord[T any](w *Writer, ctx context.Context, record T) error {
	if w.closed {
		return ErrClosed
	}
	rv := reflect.ValueOf(record)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return fmt.Errorf("csv: WriteRecord(nil record)")
		}
		rv = rv.Elem()
	}
	m, err := w.maps.GetOrCreate(rv.Type())
	if err != nil {
		return err
	}
	for i := range m.Mappings {
		mm := &m.Mappings[i]
		if mm.Ignore {
			continue
		}
		cctx := ConvertContext{
			Culture:    w.opts.Culture,
			RowIndex:   w.rowIndex,
			FieldIndex: w.fieldIndex,
			ColumnName: mm.Name,
		}
		s, err := formatValue(mm.getter(rv), mm.Converter, w.opts.Converters, &cctx)
		if err != nil {
			return err
		}
		if err := w.writeField(ctx, s); err != nil {
			return err
		}
	}
	return w.nextRecord(ctx)
}

// WriteRecords writes every record in the slice.
func WriteRecords[T any](w *Writer, records []T) error {
	for _, rec := range records {
		if err := WriteRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}
