package csv

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvariantNumbers(t *testing.T) {
	f, err := Invariant.ParseFloat("12.5", 64)
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)

	f, err = Invariant.ParseFloat("1,234.5", 64)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, f)

	_, err = Invariant.ParseFloat("abc", 64)
	assert.Error(t, err)
}

func TestFrenchNumbers(t *testing.T) {
	fr := MustCulture("fr-FR")

	f, err := fr.ParseFloat("12,5", 64)
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)

	f, err = fr.ParseFloat("1 234,5", 64)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, f)

	d, err := fr.ParseDecimal("99,99")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("99.99")))

	assert.Equal(t, "12,5", fr.FormatFloat(12.5, 64))
}

func TestGermanNumbers(t *testing.T) {
	de := MustCulture("de-DE")

	f, err := de.ParseFloat("1.234,56", 64)
	require.NoError(t, err)
	assert.Equal(t, 1234.56, f)
}

func TestCultureDates(t *testing.T) {
	fr := MustCulture("fr-FR")

	d, err := fr.ParseDate("31/12/2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), d)

	d, err = fr.ParseDateTime("31/12/2025")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())

	d, err = Invariant.ParseDate("2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, time.December, d.Month())

	d, err = Invariant.ParseDateTime("2025-12-31 13:45:00")
	require.NoError(t, err)
	assert.Equal(t, 13, d.Hour())

	_, err = Invariant.ParseDate("not a date")
	assert.Error(t, err)
}

func TestCultureTimeOfDay(t *testing.T) {
	tm, err := Invariant.ParseTimeOfDay("13:45:30")
	require.NoError(t, err)
	assert.Equal(t, 13, tm.Hour())
	assert.Equal(t, 45, tm.Minute())

	tm, err = Invariant.ParseTimeOfDay("08:15")
	require.NoError(t, err)
	assert.Equal(t, 8, tm.Hour())
}

func TestNewCulture(t *testing.T) {
	_, err := NewCulture("fr-FR")
	require.NoError(t, err)

	_, err = NewCulture("not a tag!!")
	assert.Error(t, err)

	assert.Panics(t, func() { MustCulture("!!") })
}

func TestFormatDateTime(t *testing.T) {
	midnight := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-12-31", Invariant.FormatDateTime(midnight))

	afternoon := time.Date(2025, 12, 31, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, "2025-12-31 13:45:00", Invariant.FormatDateTime(afternoon))
}
