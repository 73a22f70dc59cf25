package parser

import (
	"io"
	"strings"
	"testing"
)

// FuzzReadRow checks that arbitrary input never panics and that the
// lenient mode always reaches end of stream.
func FuzzReadRow(f *testing.F) {
	f.Add("a,b,c\n1,2,3\n")
	f.Add("\"quoted,field\"\n")
	f.Add("\"unterminated")
	f.Add("a,\"b\"\"c\",d\r\nx\ry\n")
	f.Add(",,,\n")
	f.Add("\"a\" junk,b\n")

	f.Fuzz(func(t *testing.T, input string) {
		cfg := Config{
			Delimiter:      ',',
			Quote:          '"',
			Mode:           ModeLenient,
			CharBufferSize: 16,
		}
		p := New(NewReaderSource(strings.NewReader(input), 16), cfg)
		defer p.Close()

		for i := 0; i < 10_000; i++ {
			_, err := p.ReadRow()
			if err == io.EOF {
				return
			}
			if err != nil {
				t.Fatalf("lenient parse failed: %v", err)
			}
		}
	})
}
