package csv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, ',', int32(opts.Delimiter))
	assert.Equal(t, '"', int32(opts.Quote))
	assert.True(t, opts.HasHeader)
	assert.Equal(t, ModeStrict, opts.Mode)
	assert.Equal(t, TrimNone, opts.Trim)
	require.NoError(t, opts.Validate())
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{
			name:   "delimiter equals quote",
			mutate: func(o *Options) { o.Delimiter = '"' },
			field:  "Quote",
		},
		{
			name:   "delimiter is newline",
			mutate: func(o *Options) { o.Delimiter = '\n' },
			field:  "Delimiter",
		},
		{
			name:   "delimiter is carriage return",
			mutate: func(o *Options) { o.Delimiter = '\r' },
			field:  "Delimiter",
		},
		{
			name:   "zero delimiter",
			mutate: func(o *Options) { o.Delimiter = 0 },
			field:  "Delimiter",
		},
		{
			name:   "comment equals delimiter",
			mutate: func(o *Options) { o.Comment = ',' },
			field:  "Comment",
		},
		{
			name:   "char buffer too small",
			mutate: func(o *Options) { o.CharBufferSize = 8 },
			field:  "CharBufferSize",
		},
		{
			name:   "byte buffer too small",
			mutate: func(o *Options) { o.ByteBufferSize = 15 },
			field:  "ByteBufferSize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			var oe *OptionsError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.field, oe.Field)
		})
	}
}

func TestOptionsNormalized(t *testing.T) {
	opts := DefaultOptions()
	opts.CharBufferSize = 0
	opts.ByteBufferSize = 0
	n := opts.normalized()
	assert.Equal(t, opts.Quote, n.Escape, "escape defaults to quote")
	assert.Same(t, Invariant, n.Culture)
	assert.GreaterOrEqual(t, n.CharBufferSize, 16)
	assert.GreaterOrEqual(t, n.ByteBufferSize, 16)
}

func TestModeAndTrimStrings(t *testing.T) {
	assert.Equal(t, "strict", ModeStrict.String())
	assert.Equal(t, "lenient", ModeLenient.String())
	assert.Equal(t, "none", TrimNone.String())
	assert.Equal(t, "both", TrimBoth.String())
}
