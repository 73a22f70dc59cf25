package csv

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(t *testing.T, input string, opts Options) *Reader {
	t.Helper()
	r, err := NewReader(strings.NewReader(input), opts)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestReaderHeaderAndFields(t *testing.T) {
	r := newTestReader(t, "id,name\n1,\"Ada,Lovelace\"\n", DefaultOptions())

	require.True(t, r.Read())
	assert.Equal(t, []string{"id", "name"}, r.Header())
	assert.Equal(t, 2, r.FieldCount())
	assert.Equal(t, "1", r.Field(0))
	assert.Equal(t, "Ada,Lovelace", r.Field(1))
	assert.Equal(t, 0, r.RowIndex())

	assert.False(t, r.Read())
	assert.NoError(t, r.Err(), "end of input is not an error")
}

func TestReaderFieldBytesMatchesField(t *testing.T) {
	r := newTestReader(t, "a,b\nhello,world\n", DefaultOptions())
	require.True(t, r.Read())
	for i := 0; i < r.FieldCount(); i++ {
		assert.Equal(t, r.Field(i), string(r.FieldBytes(i)))
	}
	assert.Nil(t, r.FieldBytes(99))
}

func TestReaderNoHeader(t *testing.T) {
	opts := DefaultOptions()
	opts.HasHeader = false
	r := newTestReader(t, "1,2\n3,4\n", opts)

	require.True(t, r.Read())
	assert.Nil(t, r.Header())
	assert.Equal(t, []string{"1", "2"}, r.Record())
	require.True(t, r.Read())
	assert.Equal(t, []string{"3", "4"}, r.Record())
}

type person struct {
	ID   int    `csv:"id"`
	Name string `csv:"name"`
	Age  int    `csv:"age"`
}

func TestGetRecordByHeaderName(t *testing.T) {
	// Column order differs from declaration order; header wins.
	r := newTestReader(t, "age,id,name\n30,1,Ada\n", DefaultOptions())

	require.True(t, r.Read())
	rec, err := GetRecord[person](r)
	require.NoError(t, err)
	assert.Equal(t, person{ID: 1, Name: "Ada", Age: 30}, rec)
}

func TestGetRecordCaseInsensitiveHeader(t *testing.T) {
	r := newTestReader(t, "ID,NAME,AGE\n1,Ada,30\n", DefaultOptions())
	require.True(t, r.Read())
	rec, err := GetRecord[person](r)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ID)
}

func TestGetRecordByExplicitIndex(t *testing.T) {
	type rec struct {
		B string `csv:",index=1"`
		A string `csv:",index=0"`
	}
	opts := DefaultOptions()
	opts.HasHeader = false
	r := newTestReader(t, "x,y\n", opts)

	require.True(t, r.Read())
	got, err := GetRecord[rec](r)
	require.NoError(t, err)
	assert.Equal(t, "y", got.B)
	assert.Equal(t, "x", got.A)
}

func TestGetRecordByDeclarationOrder(t *testing.T) {
	type rec struct {
		First  string
		Second string
	}
	opts := DefaultOptions()
	opts.HasHeader = false
	r := newTestReader(t, "x,y\n", opts)

	require.True(t, r.Read())
	got, err := GetRecord[rec](r)
	require.NoError(t, err)
	assert.Equal(t, rec{First: "x", Second: "y"}, got)
}

func TestGetRecordMissingFieldStrict(t *testing.T) {
	type rec struct {
		A string `csv:",index=5"`
	}
	opts := DefaultOptions()
	opts.HasHeader = false
	r := newTestReader(t, "x\n", opts)

	require.True(t, r.Read())
	_, err := GetRecord[rec](r)
	var ce *CsvError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "Missing field")
}

func TestGetRecordMissingFieldLenient(t *testing.T) {
	type rec struct {
		A string `csv:",index=5"`
	}
	opts := DefaultOptions()
	opts.HasHeader = false
	opts.Mode = ModeLenient
	r := newTestReader(t, "x\n", opts)

	require.True(t, r.Read())
	got, err := GetRecord[rec](r)
	require.NoError(t, err)
	assert.Equal(t, "", got.A, "missing column reads as empty")
}

func TestGetRecordConversionFailure(t *testing.T) {
	t.Run("strict raises", func(t *testing.T) {
		r := newTestReader(t, "id,name,age\n1,Ada,not-a-number\n", DefaultOptions())
		require.True(t, r.Read())
		_, err := GetRecord[person](r)
		var ce *CsvError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, 0, ce.RowIndex)
		assert.Equal(t, 2, ce.FieldIndex)
	})

	t.Run("lenient leaves default and calls back", func(t *testing.T) {
		var events []BadDataContext
		opts := DefaultOptions()
		opts.Mode = ModeLenient
		opts.BadDataFound = func(bd BadDataContext) { events = append(events, bd) }

		r := newTestReader(t, "id,name,age\n1,Ada,not-a-number\n", opts)
		require.True(t, r.Read())
		rec, err := GetRecord[person](r)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.ID)
		assert.Zero(t, rec.Age)
		require.Len(t, events, 1)
		assert.Equal(t, 2, events[0].FieldIndex)
	})
}

// Scenario: custom delimiter with culture-aware decimal and date.
func TestFrenchCultureRecord(t *testing.T) {
	type payment struct {
		Amount float64   `csv:"amount"`
		Date   time.Time `csv:"date"`
	}

	opts := DefaultOptions()
	opts.Delimiter = ';'
	opts.Culture = MustCulture("fr-FR")

	r := newTestReader(t, "amount;date\n12,5;31/12/2025\n", opts)
	require.True(t, r.Read())
	rec, err := GetRecord[payment](r)
	require.NoError(t, err)
	assert.Equal(t, 12.5, rec.Amount)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), rec.Date)
}

func TestFrenchCultureDecimal(t *testing.T) {
	type payment struct {
		Amount decimal.Decimal `csv:"amount"`
	}
	opts := DefaultOptions()
	opts.Delimiter = ';'
	opts.Culture = MustCulture("fr-FR")

	r := newTestReader(t, "amount\n1 234,56\n", opts)
	require.True(t, r.Read())
	rec, err := GetRecord[payment](r)
	require.NoError(t, err)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("1234.56")))
}

// Scenario: strict column-count mismatch.
func TestStrictColumnCountMismatch(t *testing.T) {
	opts := DefaultOptions()
	opts.DetectColumnCount = true

	r := newTestReader(t, "a,b\n1,2\n3\n", opts)

	require.True(t, r.Read())
	assert.Equal(t, []string{"1", "2"}, r.Record())

	require.False(t, r.Read())
	var ce *CsvError
	require.ErrorAs(t, r.Err(), &ce)
	assert.Equal(t, 1, ce.RowIndex)
	assert.Equal(t, 3, ce.LineNumber)
	assert.Equal(t, 0, ce.FieldIndex)
}

// Scenario: lenient bad data surfaces through the callback once.
func TestLenientBadDataCallback(t *testing.T) {
	var events []BadDataContext
	opts := DefaultOptions()
	opts.Mode = ModeLenient
	opts.BadDataFound = func(bd BadDataContext) {
		bd.RawField = append([]byte(nil), bd.RawField...)
		events = append(events, bd)
	}

	r := newTestReader(t, "a,b\n1,te\"st\n", opts)
	require.True(t, r.Read())
	assert.Equal(t, []string{"1", "te\"st"}, r.Record())

	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].FieldIndex)
	assert.Equal(t, "Unexpected quote in unquoted field", events[0].Message)
}

func TestIgnoreBlankLinesWithHeader(t *testing.T) {
	opts := DefaultOptions()
	opts.IgnoreBlankLines = true
	r := newTestReader(t, "\nid,name\n\n1,Ada\n\n", opts)

	require.True(t, r.Read())
	assert.Equal(t, []string{"id", "name"}, r.Header())
	assert.Equal(t, []string{"1", "Ada"}, r.Record())
	assert.False(t, r.Read())
	assert.NoError(t, r.Err())
}

func TestReadDictionary(t *testing.T) {
	r := newTestReader(t, "id,name\n1,Ada,extra\n", DefaultOptions())

	dict, ok := r.ReadDictionary()
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name", "Column3"}, dict.Keys())

	v, ok := dict.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Ada", v)

	v, ok = dict.Get("Column3")
	require.True(t, ok)
	assert.Equal(t, "extra", v)

	_, ok = dict.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, 3, dict.Len())
}

func TestReadAll(t *testing.T) {
	r := newTestReader(t, "id,name,age\n1,Ada,30\n2,Grace,40\n", DefaultOptions())

	people, err := ReadAll[person](r)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Grace", people[1].Name)
}

func TestReaderDetectedNewline(t *testing.T) {
	r := newTestReader(t, "a,b\r\n1,2\r\n", DefaultOptions())
	require.True(t, r.Read())
	assert.Equal(t, "\r\n", r.DetectedNewline())
}

func TestReadContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestReader(t, "a,b\n1,2\n", DefaultOptions())
	assert.False(t, r.ReadContext(ctx))
	assert.ErrorIs(t, r.Err(), context.Canceled)

	// The reader remains usable from the blocking path.
	assert.True(t, r.Read())
}

func TestReaderAfterClose(t *testing.T) {
	r := newTestReader(t, "a\n1\n", DefaultOptions())
	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "close is idempotent")
	assert.False(t, r.Read())
	assert.ErrorIs(t, r.Err(), ErrClosed)
}

func TestGetRecordWithoutRead(t *testing.T) {
	r := newTestReader(t, "a\n1\n", DefaultOptions())
	_, err := GetRecord[person](r)
	assert.Error(t, err)
}

func TestGetRecordIgnoredMember(t *testing.T) {
	type rec struct {
		ID    int    `csv:"id"`
		Skip  string `csv:"-"`
		Name  string `csv:"name"`
	}
	r := newTestReader(t, "id,name\n7,Ada\n", DefaultOptions())
	require.True(t, r.Read())
	got, err := GetRecord[rec](r)
	require.NoError(t, err)
	assert.Equal(t, 7, got.ID)
	assert.Equal(t, "", got.Skip)
	assert.Equal(t, "Ada", got.Name)
}

func TestGetRecordFluentMap(t *testing.T) {
	type rec struct {
		Who string
		N   int
	}
	r := newTestReader(t, "count,label\n3,widgets\n", DefaultOptions())
	err := RegisterMap[rec](r.Maps(), func(m *MapBuilder[rec]) {
		m.Map("Who").Name("label")
		m.Map("N").Name("count")
	})
	require.NoError(t, err)

	require.True(t, r.Read())
	got, err := GetRecord[rec](r)
	require.NoError(t, err)
	assert.Equal(t, rec{Who: "widgets", N: 3}, got)
}

func TestGetRecordOptionalPointer(t *testing.T) {
	type rec struct {
		ID   int  `csv:"id"`
		Rank *int `csv:"rank"`
	}
	r := newTestReader(t, "id,rank\n1,\n2,9\n", DefaultOptions())

	require.True(t, r.Read())
	got, err := GetRecord[rec](r)
	require.NoError(t, err)
	assert.Nil(t, got.Rank)

	require.True(t, r.Read())
	got, err = GetRecord[rec](r)
	require.NoError(t, err)
	require.NotNil(t, got.Rank)
	assert.Equal(t, 9, *got.Rank)
}
