package csv

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/gabisonia/CsvToolkit/internal/parser"
)

// Reader reads CSV records from a character stream. It owns a parser
// and a map registry, captures the header on the first read, and
// materializes typed records through the converter chain.
//
// A Reader is single-threaded: it is not safe for concurrent use, but
// independent readers are fully parallel.
//
// Example usage:
//
//	r, _ := csv.NewReader(file, csv.DefaultOptions())
//	defer r.Close()
//	for r.Read() {
//	    rec, err := csv.GetRecord[Trade](r)
//	    // ...
//	}
//	if err := r.Err(); err != nil {
//	    // handle error
//	}
type Reader struct {
	opts Options
	p    *parser.Parser
	maps *MapRegistry

	header      []string
	headerIndex map[string]int
	synth       map[int]string
	headerDone  bool

	row    *parser.Row
	err    error
	closed bool
}

// NewReader creates a Reader over r with the given options.
// The options are validated once and cloned; later mutation of the
// caller's copy has no effect.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.normalized()
	src := parser.NewReaderSource(r, opts.ByteBufferSize)
	return &Reader{
		opts: opts,
		p:    parser.New(src, opts.parserConfig()),
		maps: NewMapRegistry(),
	}, nil
}

// Maps exposes the reader's map registry for fluent registration.
func (r *Reader) Maps() *MapRegistry {
	return r.maps
}

// Read advances to the next record. It returns false at end of input
// or on error; Err distinguishes the two. The previous row view is
// invalidated.
func (r *Reader) Read() bool {
	return r.read(nil)
}

// ReadContext is the cooperative twin of Read. Cancellation is checked
// at the start of each input refill.
func (r *Reader) ReadContext(ctx context.Context) bool {
	return r.read(ctx)
}

func (r *Reader) read(ctx context.Context) bool {
	if r.closed {
		r.err = ErrClosed
		return false
	}
	// A strict-mode failure leaves the parser in a reset position;
	// reading again advances past the offending row.
	r.err = nil
	r.row = nil

	if !r.headerDone {
		if r.opts.HasHeader {
			row, err := r.readRow(ctx)
			if err != nil {
				r.setErr(err)
				return false
			}
			r.captureHeader(row)
			r.p.RewindRowIndex()
		}
		r.headerDone = true
	}

	row, err := r.readRow(ctx)
	if err != nil {
		r.setErr(err)
		return false
	}
	r.row = row
	return true
}

func (r *Reader) readRow(ctx context.Context) (*parser.Row, error) {
	if ctx != nil {
		return r.p.ReadRowContext(ctx)
	}
	return r.p.ReadRow()
}

func (r *Reader) setErr(err error) {
	if err == io.EOF {
		return
	}
	r.err = fromParserError(err)
}

func (r *Reader) captureHeader(row *parser.Row) {
	r.header = row.Strings()
	r.headerIndex = make(map[string]int, len(r.header))
	for i, name := range r.header {
		key := strings.ToLower(name)
		if _, exists := r.headerIndex[key]; !exists {
			r.headerIndex[key] = i
		}
	}
}

// Err returns the error from the most recent failed read, or nil.
// End of input is not an error.
func (r *Reader) Err() error {
	return r.err
}

// Header returns the captured header row, nil when HasHeader is false
// or nothing has been read yet.
func (r *Reader) Header() []string {
	return r.header
}

// FieldCount reports the number of fields in the current row.
func (r *Reader) FieldCount() int {
	if r.row == nil {
		return 0
	}
	return r.row.Len()
}

// FieldBytes returns the zero-copy slice for field i of the current
// row. The slice is valid only until the next row-advancing call.
func (r *Reader) FieldBytes(i int) []byte {
	if r.row == nil || i < 0 || i >= r.row.Len() {
		return nil
	}
	return r.row.Field(i)
}

// Field returns field i of the current row as an owned string.
func (r *Reader) Field(i int) string {
	return string(r.FieldBytes(i))
}

// Record copies all fields of the current row into a fresh slice.
func (r *Reader) Record() []string {
	if r.row == nil {
		return nil
	}
	return r.row.Strings()
}

// RowIndex reports the 0-based index of the current row among rows
// returned to the caller. -1 before the first successful read.
func (r *Reader) RowIndex() int {
	if r.row == nil {
		return -1
	}
	return r.row.Index
}

// LineNumber reports the 1-based line number the current row started
// on, counting only line separators outside quoted fields. 0 before
// the first successful read.
func (r *Reader) LineNumber() int {
	if r.row == nil {
		return 0
	}
	return r.row.Line
}

// DetectedNewline reports the first line separator observed while
// parsing: "\n", "\r\n", or "\r".
func (r *Reader) DetectedNewline() string {
	return r.p.DetectedNewline()
}

// columnName resolves the display name for column i, synthesizing and
// caching Column<N> names for columns beyond the header.
func (r *Reader) columnName(i int) string {
	if i < len(r.header) {
		return r.header[i]
	}
	if name, ok := r.synth[i]; ok {
		return name
	}
	if r.synth == nil {
		r.synth = make(map[int]string)
	}
	name := "Column" + strconv.Itoa(i+1)
	r.synth[i] = name
	return name
}

// ReadDictionary advances to the next record and returns it as an
// ordered name-to-value mapping. Missing header names synthesize
// cached Column<N> entries.
func (r *Reader) ReadDictionary() (*Dictionary, bool) {
	return r.readDictionary(nil)
}

// ReadDictionaryContext is the cooperative twin of ReadDictionary.
func (r *Reader) ReadDictionaryContext(ctx context.Context) (*Dictionary, bool) {
	return r.readDictionary(ctx)
}

func (r *Reader) readDictionary(ctx context.Context) (*Dictionary, bool) {
	if !r.read(ctx) {
		return nil, false
	}
	n := r.row.Len()
	d := &Dictionary{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
	for i := 0; i < n; i++ {
		name := r.columnName(i)
		d.keys = append(d.keys, name)
		d.values[name] = r.Field(i)
	}
	return d, true
}

// Close releases the parser's pool rentals. Idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.p.Close()
	return nil
}

// GetRecord materializes the current row as a T, binding each member
// mapping to a column by explicit index, then header name, then
// declaration order.
//
// In strict mode a missing column or failed conversion raises a
// *CsvError; in lenient mode the member keeps its default value and
// the BadDataFound callback is invoked.
func GetRecord[T any](r *Reader) (T, error) {
	var rec T
	if r.row == nil {
		return rec, fmt.Errorf("csv: GetRecord called without a successful Read")
	}

	rv := reflect.ValueOf(&rec).Elem()
	if rv.Kind() == reflect.Ptr {
		rv.Set(reflect.New(rv.Type().Elem()))
		rv = rv.Elem()
	}
	m, err := r.maps.GetOrCreate(rv.Type())
	if err != nil {
		return rec, err
	}

	for i := range m.Mappings {
		mm := &m.Mappings[i]
		if mm.Ignore {
			continue
		}
		col := r.resolveColumn(mm)

		if col < 0 || col >= r.row.Len() {
			msg := fmt.Sprintf("Missing field for column %q", mm.Name)
			if r.opts.Mode == ModeStrict {
				return rec, &CsvError{
					RowIndex:   r.row.Index,
					LineNumber: r.row.Line,
					FieldIndex: col,
					Message:    msg,
				}
			}
			if r.opts.BadDataFound != nil {
				r.opts.BadDataFound(BadDataContext{
					RowIndex:   r.row.Index,
					LineNumber: r.row.Line,
					FieldIndex: col,
					Message:    msg,
				})
			}
			continue
		}

		raw := r.row.FieldString(col)
		cctx := ConvertContext{
			Culture:    r.opts.Culture,
			RowIndex:   r.row.Index,
			FieldIndex: col,
			ColumnName: r.columnName(col),
		}

		var convErr error
		if mm.Validate != nil {
			convErr = mm.Validate(raw)
		}
		if convErr == nil {
			var v reflect.Value
			v, convErr = convertValue(raw, mm.Type, mm.Converter, r.opts.Converters, &cctx)
			if convErr == nil {
				mm.setter(rv, v)
				continue
			}
		}

		if r.opts.Mode == ModeStrict {
			return rec, &CsvError{
				RowIndex:   r.row.Index,
				LineNumber: r.row.Line,
				FieldIndex: col,
				Message:    convErr.Error(),
			}
		}
		if r.opts.BadDataFound != nil {
			r.opts.BadDataFound(BadDataContext{
				RowIndex:   r.row.Index,
				LineNumber: r.row.Line,
				FieldIndex: col,
				Message:    convErr.Error(),
				RawField:   r.row.Field(col),
			})
		}
	}
	return rec, nil
}

// resolveColumn applies the binding order: explicit index, header
// lookup by name, then the member's declaration-order position.
func (r *Reader) resolveColumn(mm *MemberMapping) int {
	if mm.Index >= 0 {
		return mm.Index
	}
	if idx, ok := r.headerIndex[strings.ToLower(mm.Name)]; ok {
		return idx
	}
	return mm.ordinal
}

// ReadAll reads every remaining record as a T.
func ReadAll[T any](r *Reader) ([]T, error) {
	return readAll[T](r, nil)
}

// ReadAllContext is the cooperative twin of ReadAll.
func ReadAllContext[T any](ctx context.Context, r *Reader) ([]T, error) {
	return readAll[T](r, ctx)
}

func readAll[T any](r *Reader, ctx context.Context) ([]T, error) {
	var out []T
	for r.read(ctx) {
		rec, err := GetRecord[T](r)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	if err := r.Err(); err != nil {
		return out, err
	}
	return out, nil
}
