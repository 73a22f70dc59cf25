// Error types for CSV reading and writing.
package csv

import (
	"errors"
	"fmt"

	"github.com/gabisonia/CsvToolkit/internal/parser"
)

// CsvError is the single read-side error kind. It carries the position
// of the failure; the parser is left in a safe reset position, so the
// caller may advance past the offending row by reading again.
type CsvError struct {
	// RowIndex is the 0-based index of the row among rows returned to
	// the caller (the header is not counted).
	RowIndex int
	// LineNumber is the 1-based line number the row started on,
	// counting only line separators outside quoted fields.
	LineNumber int
	// FieldIndex is the 0-based index of the field where the failure
	// occurred.
	FieldIndex int
	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *CsvError) Error() string {
	return fmt.Sprintf("csv: %s on line %d, field %d (row %d)", e.Message, e.LineNumber, e.FieldIndex, e.RowIndex)
}

// BadDataContext is the structured event delivered to the BadDataFound
// callback in lenient mode. RawField is a view into the row buffer and
// is only valid for the duration of the callback.
type BadDataContext struct {
	RowIndex   int
	LineNumber int
	FieldIndex int
	Message    string
	RawField   []byte
}

// OptionsError reports an invalid option configuration.
type OptionsError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *OptionsError) Error() string {
	return "csv: invalid " + e.Field + ": " + e.Message
}

// ErrClosed is returned when a Reader or Writer is used after Close.
var ErrClosed = errors.New("csv: use of closed instance")

// fromParserError lifts an internal parser error into the public kind.
func fromParserError(err error) error {
	var pe *parser.Error
	if errors.As(err, &pe) {
		return &CsvError{
			RowIndex:   pe.RowIndex,
			LineNumber: pe.LineNumber,
			FieldIndex: pe.FieldIndex,
			Message:    pe.Message,
		}
	}
	if errors.Is(err, parser.ErrClosed) {
		return ErrClosed
	}
	return err
}
