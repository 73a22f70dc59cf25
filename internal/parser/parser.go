package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Mode is the global error policy: raise on bad data or recover and continue.
type Mode int

const (
	// ModeStrict raises an *Error on any bad-data condition.
	ModeStrict Mode = iota
	// ModeLenient invokes the bad-data callback and continues with the
	// per-transition recovery action.
	ModeLenient
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeLenient:
		return "lenient"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
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
	switch t {
	case TrimNone:
		return "none"
	case TrimStart:
		return "start"
	case TrimEnd:
		return "end"
	case TrimBoth:
		return "both"
	default:
		return fmt.Sprintf("TrimMode(%d)", int(t))
	}
}

// BadData carries the context delivered to the bad-data callback in
// lenient mode. RawField is a view into the row buffer and is only
// valid for the duration of the callback.
type BadData struct {
	RowIndex   int
	LineNumber int
	FieldIndex int
	Message    string
	RawField   []byte
}

// Error is the single read-side error kind, raised in strict mode.
type Error struct {
	RowIndex   int
	LineNumber int
	FieldIndex int
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("csv: %s on line %d, field %d (row %d)", e.Message, e.LineNumber, e.FieldIndex, e.RowIndex)
}

// ErrClosed is returned when a parser is used after Close.
var ErrClosed = errors.New("csv: use of closed parser")

// Config configures a Parser. The zero value is not usable; callers
// normalize and validate before construction.
type Config struct {
	Delimiter rune
	Quote     rune
	// Escape is the character escaping a quote inside a quoted field.
	// When it equals Quote, doubling is the only escape mechanism.
	Escape            rune
	Comment           rune
	Trim              TrimMode
	Mode              Mode
	DetectColumnCount bool
	IgnoreBlankLines  bool
	CharBufferSize    int
	BadDataFound      func(BadData)
}

type parseState int

const (
	stateInField parseState = iota
	stateInQuotedField
	stateAfterClosingQuote
)

// Parser is the character-level state machine producing rows.
// One instance is single-threaded; independent instances are
// parallel-safe and share only the process-wide pools.
type Parser struct {
	cfg Config
	src CharSource

	look        []rune
	pos, limit  int
	pushback    rune
	hasPushback bool
	eof         bool

	buf *rowBuffer
	row Row

	rowIndex        int
	line            int
	detectedNewline string
	expectedFields  int

	// ctx is set for the duration of a ReadRowContext call; refills
	// check it so the blocking path never awaits internally.
	ctx    context.Context
	closed bool
}

// New creates a Parser reading from src.
func New(src CharSource, cfg Config) *Parser {
	if cfg.Escape == 0 {
		cfg.Escape = cfg.Quote
	}
	return &Parser{
		cfg:            cfg,
		src:            src,
		look:           getRuneBuffer(cfg.CharBufferSize),
		buf:            newRowBuffer(cfg.CharBufferSize),
		line:           1,
		expectedFields: -1,
	}
}

// ReadRow parses the next row. It returns io.EOF when the stream is
// exhausted. The returned Row is valid only until the next call.
func (p *Parser) ReadRow() (*Row, error) {
	p.ctx = nil
	return p.readRow()
}

// ReadRowContext is the cooperative twin of ReadRow. Cancellation is
// checked at the start of each character refill.
func (p *Parser) ReadRowContext(ctx context.Context) (*Row, error) {
	p.ctx = ctx
	defer func() { p.ctx = nil }()
	return p.readRow()
}

// DetectedNewline reports the first line separator observed in the
// input: "\n", "\r\n", or "\r". Empty until one has been seen.
func (p *Parser) DetectedNewline() string {
	return p.detectedNewline
}

// RewindRowIndex discounts the most recently emitted row from the
// user-visible row numbering. The reader uses it after consuming the
// header so data rows start at index 0.
func (p *Parser) RewindRowIndex() {
	if p.rowIndex > 0 {
		p.rowIndex--
	}
}

// Close releases the pooled buffers. Idempotent.
func (p *Parser) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.buf.release()
	putRuneBuffer(p.look)
	p.look = nil
}

func (p *Parser) readRow() (*Row, error) {
	if p.closed {
		return nil, ErrClosed
	}
	for {
		row, err := p.scanOne()
		if err != nil {
			return nil, err
		}
		if row == nil {
			// Blank line suppressed; keep going.
			continue
		}
		return row, nil
	}
}

// scanOne parses one physical row. It returns (nil, nil) when the row
// was a suppressed blank line, and (nil, io.EOF) at end of stream.
func (p *Parser) scanOne() (*Row, error) {
	p.buf.reset()

	startLine := p.line
	state := stateInField
	fieldIndex := 0
	trimStart := p.cfg.Trim == TrimStart || p.cfg.Trim == TrimBoth
	trimEnd := p.cfg.Trim == TrimEnd || p.cfg.Trim == TrimBoth
	consumed := false

rowLoop:
	for {
		c, ok, err := p.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			// End of stream.
			if !consumed {
				return nil, io.EOF
			}
			if state == stateInQuotedField {
				if err := p.badData(startLine, fieldIndex, "Unexpected end of file while inside a quoted field"); err != nil {
					return nil, err
				}
			}
			p.buf.complete(trimEnd)
			break rowLoop
		}

		if p.cfg.Comment != 0 && !consumed && c == p.cfg.Comment {
			if err := p.skipLine(); err != nil {
				return nil, err
			}
			startLine = p.line
			continue
		}
		consumed = true

		switch state {
		case stateInField:
			switch {
			case c == p.cfg.Delimiter:
				p.buf.complete(trimEnd)
				fieldIndex++
			case c == p.cfg.Quote && p.buf.pendingLen() == 0:
				state = stateInQuotedField
			case c == p.cfg.Quote:
				if err := p.badData(startLine, fieldIndex, "Unexpected quote in unquoted field"); err != nil {
					return nil, err
				}
				p.buf.appendRune(c)
			case c == '\r' || c == '\n':
				if err := p.consumeNewline(c); err != nil {
					return nil, err
				}
				p.buf.complete(trimEnd)
				break rowLoop
			case p.buf.pendingLen() == 0 && trimStart && isFieldSpace(c):
				// Leading whitespace dropped while the field is still empty.
			default:
				p.buf.appendRune(c)
			}

		case stateInQuotedField:
			switch {
			case p.cfg.Escape != p.cfg.Quote && c == p.cfg.Escape:
				d, ok2, err := p.next()
				if err != nil {
					return nil, err
				}
				switch {
				case ok2 && d == p.cfg.Quote:
					p.buf.appendRune(p.cfg.Quote)
				case ok2:
					p.pushBack(d)
					p.buf.appendRune(c)
				default:
					// Escape at end of stream stands for itself.
					p.buf.appendRune(c)
				}
			case c == p.cfg.Quote:
				d, ok2, err := p.next()
				if err != nil {
					return nil, err
				}
				if ok2 && d == p.cfg.Quote {
					p.buf.appendRune(p.cfg.Quote)
				} else {
					if ok2 {
						p.pushBack(d)
					}
					state = stateAfterClosingQuote
				}
			default:
				// Delimiters and newlines inside quotes are literal.
				p.buf.appendRune(c)
			}

		case stateAfterClosingQuote:
			switch {
			case c == p.cfg.Delimiter:
				p.buf.complete(trimEnd)
				fieldIndex++
				state = stateInField
			case c == '\r' || c == '\n':
				if err := p.consumeNewline(c); err != nil {
					return nil, err
				}
				p.buf.complete(trimEnd)
				break rowLoop
			case isFieldSpace(c):
				// Trailing whitespace after the closing quote is dropped.
			default:
				if err := p.badData(startLine, fieldIndex, "Unexpected character after closing quote"); err != nil {
					return nil, err
				}
				p.buf.appendRune(c)
				state = stateInField
			}
		}
	}

	// A row of exactly one empty field is a blank line.
	if p.cfg.IgnoreBlankLines && p.buf.numFields() == 1 && p.buf.tokens[0].Length == 0 {
		return nil, nil
	}

	if p.cfg.DetectColumnCount {
		n := p.buf.numFields()
		if p.expectedFields < 0 {
			p.expectedFields = n
		} else if n != p.expectedFields {
			msg := fmt.Sprintf("Expected %d fields, found %d", p.expectedFields, n)
			if p.cfg.Mode == ModeStrict {
				return nil, &Error{RowIndex: p.rowIndex, LineNumber: startLine, FieldIndex: 0, Message: msg}
			}
			if p.cfg.BadDataFound != nil {
				p.cfg.BadDataFound(BadData{RowIndex: p.rowIndex, LineNumber: startLine, FieldIndex: 0, Message: msg})
			}
		}
	}

	p.row = Row{buf: p.buf.buf, tokens: p.buf.tokens, Index: p.rowIndex, Line: startLine}
	p.rowIndex++
	return &p.row, nil
}

// badData raises in strict mode and invokes the callback in lenient mode.
func (p *Parser) badData(startLine, fieldIndex int, msg string) error {
	if p.cfg.Mode == ModeStrict {
		return &Error{RowIndex: p.rowIndex, LineNumber: startLine, FieldIndex: fieldIndex, Message: msg}
	}
	if p.cfg.BadDataFound != nil {
		p.cfg.BadDataFound(BadData{
			RowIndex:   p.rowIndex,
			LineNumber: startLine,
			FieldIndex: fieldIndex,
			Message:    msg,
			RawField:   p.buf.pending(),
		})
	}
	return nil
}

// consumeNewline consumes the suffix of a line separator that began
// with c, records the first separator seen, and advances the line count.
func (p *Parser) consumeNewline(c rune) error {
	sep := "\n"
	if c == '\r' {
		sep = "\r"
		d, ok, err := p.next()
		if err != nil {
			return err
		}
		if ok {
			if d == '\n' {
				sep = "\r\n"
			} else {
				p.pushBack(d)
			}
		}
	}
	if p.detectedNewline == "" {
		p.detectedNewline = sep
	}
	p.line++
	return nil
}

// skipLine advances past the rest of the current physical line.
func (p *Parser) skipLine() error {
	for {
		c, ok, err := p.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if c == '\r' || c == '\n' {
			return p.consumeNewline(c)
		}
	}
}

// next yields one character, honoring the pushback slot.
// ok is false at end of stream.
func (p *Parser) next() (c rune, ok bool, err error) {
	if p.hasPushback {
		p.hasPushback = false
		return p.pushback, true, nil
	}
	if p.pos >= p.limit {
		if p.eof {
			return 0, false, nil
		}
		if err := p.fill(); err != nil {
			return 0, false, err
		}
		if p.pos >= p.limit {
			return 0, false, nil
		}
	}
	c = p.look[p.pos]
	p.pos++
	return c, true, nil
}

// pushBack stores one character to be re-delivered by the next call.
func (p *Parser) pushBack(c rune) {
	p.pushback = c
	p.hasPushback = true
}

// fill refills the lookahead buffer from the source. This is the only
// suspension point on the read path.
func (p *Parser) fill() error {
	var (
		n   int
		err error
	)
	if p.ctx != nil {
		if cs, ok := p.src.(ContextCharSource); ok {
			n, err = cs.ReadCharsContext(p.ctx, p.look)
		} else {
			if cerr := p.ctx.Err(); cerr != nil {
				return cerr
			}
			n, err = p.src.ReadChars(p.look)
		}
	} else {
		n, err = p.src.ReadChars(p.look)
	}
	p.pos, p.limit = 0, n
	if err == io.EOF || (err == nil && n == 0) {
		p.eof = true
		return nil
	}
	return err
}

// isFieldSpace reports whether c counts as trimmable field whitespace.
func isFieldSpace(c rune) bool {
	return c == ' ' || c == '\t'
}
