// Culture handles for locale-aware parsing and formatting.
package csv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// Culture bundles the locale rules used for numeric and date
// conversion: decimal and group separators plus the date and time
// layouts tried in order. Cultures are immutable after construction.
type Culture struct {
	tag      language.Tag
	decSep   rune
	groupSep rune

	dateLayouts     []string
	timeLayouts     []string
	dateTimeLayouts []string
}

// Invariant is the culture-neutral default: '.' decimal separator,
// ',' group separator, ISO-style date layouts first.
var Invariant = &Culture{
	tag:      language.Und,
	decSep:   '.',
	groupSep: ',',
	dateLayouts: []string{
		"2006-01-02",
		"01/02/2006",
	},
	timeLayouts: []string{
		"15:04:05",
		"15:04",
	},
	dateTimeLayouts: []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"01/02/2006 15:04:05",
	},
}

// commaDecimalLanguages lists base languages writing decimals with a
// comma and day-first dates.
var commaDecimalLanguages = map[string]bool{
	"fr": true, "de": true, "es": true, "it": true, "pt": true,
	"nl": true, "ru": true, "pl": true, "sv": true, "da": true,
	"nb": true, "fi": true, "tr": true, "cs": true, "hu": true,
	"el": true, "id": true, "uk": true, "ro": true, "ka": true,
}

// NewCulture builds a Culture for a BCP 47 tag such as "fr-FR".
func NewCulture(name string) (*Culture, error) {
	tag, err := language.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("csv: unknown culture %q: %w", name, err)
	}
	return cultureForTag(tag), nil
}

// MustCulture is NewCulture that panics on an invalid tag.
// Intended for package-level variables with fixed tags.
func MustCulture(name string) *Culture {
	c, err := NewCulture(name)
	if err != nil {
		panic(err)
	}
	return c
}

// cultureForTag derives the separator and layout set for a tag.
func cultureForTag(tag language.Tag) *Culture {
	base, _ := tag.Base()
	lang := base.String()

	c := &Culture{tag: tag}
	if commaDecimalLanguages[lang] {
		c.decSep = ','
		c.groupSep = '.'
		if lang == "fr" || lang == "ru" || lang == "sv" || lang == "fi" || lang == "cs" || lang == "pl" || lang == "uk" {
			c.groupSep = ' '
		}
		c.dateLayouts = []string{
			"2006-01-02",
			"02/01/2006",
			"02.01.2006",
			"02-01-2006",
		}
		c.dateTimeLayouts = []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"02/01/2006 15:04:05",
			"02.01.2006 15:04:05",
		}
	} else {
		c.decSep = '.'
		c.groupSep = ','
		c.dateLayouts = Invariant.dateLayouts
		c.dateTimeLayouts = Invariant.dateTimeLayouts
	}
	c.timeLayouts = Invariant.timeLayouts
	return c
}

// Tag returns the culture's language tag.
func (c *Culture) Tag() language.Tag {
	return c.tag
}

// normalizeNumber rewrites a culture-formatted number into the form
// strconv accepts: group separators stripped, decimal separator
// replaced by '.'. Spaces and non-breaking spaces are always accepted
// as group separators.
func (c *Culture) normalizeNumber(s string, allowGroups bool) string {
	if c.decSep == '.' && !allowGroups {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == c.decSep:
			b.WriteByte('.')
		case allowGroups && (r == c.groupSep || r == ' ' || r == '\u00a0' || r == '\u202f'):
			// group separator dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseInt parses a signed integer of the given bit size.
func (c *Culture) ParseInt(s string, bitSize int) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, bitSize)
}

// ParseUint parses an unsigned integer of the given bit size.
func (c *Culture) ParseUint(s string, bitSize int) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 10, bitSize)
}

// ParseFloat parses a floating-point number, accepting the culture's
// decimal separator and thousands grouping.
func (c *Culture) ParseFloat(s string, bitSize int) (float64, error) {
	return strconv.ParseFloat(c.normalizeNumber(strings.TrimSpace(s), true), bitSize)
}

// ParseDecimal parses an arbitrary-precision decimal, accepting the
// culture's decimal separator and thousands grouping.
func (c *Culture) ParseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(c.normalizeNumber(strings.TrimSpace(s), true))
}

// ParseDate parses a calendar date using the culture's date layouts.
func (c *Culture) ParseDate(s string) (time.Time, error) {
	return c.parseLayouts(s, c.dateLayouts)
}

// ParseTimeOfDay parses a wall-clock time using the culture's layouts.
func (c *Culture) ParseTimeOfDay(s string) (time.Time, error) {
	return c.parseLayouts(s, c.timeLayouts)
}

// ParseDateTime parses a combined date and time, falling back to the
// date-only layouts for inputs without a time component.
func (c *Culture) ParseDateTime(s string) (time.Time, error) {
	t, err := c.parseLayouts(s, c.dateTimeLayouts)
	if err == nil {
		return t, nil
	}
	return c.parseLayouts(s, c.dateLayouts)
}

func (c *Culture) parseLayouts(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("csv: cannot parse %q as a date/time in culture %q", s, c.tag)
}

// FormatFloat formats a float with the culture's decimal separator.
func (c *Culture) FormatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if c.decSep != '.' {
		s = strings.ReplaceAll(s, ".", string(c.decSep))
	}
	return s
}

// FormatDecimal formats a decimal with the culture's decimal separator,
// keeping the decimal's scale (12.50 stays 12.50).
func (c *Culture) FormatDecimal(d decimal.Decimal) string {
	s := d.String()
	if d.Exponent() < 0 {
		s = d.StringFixed(-d.Exponent())
	}
	if c.decSep != '.' {
		s = strings.ReplaceAll(s, ".", string(c.decSep))
	}
	return s
}

// FormatDateTime formats a time using the culture's primary layout.
func (c *Culture) FormatDateTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(c.dateLayouts[0])
	}
	return t.Format(c.dateTimeLayouts[1])
}
