package parser

import (
	"sync"
	"unsafe"
)

// minBufferSize is the smallest buffer a pool rental will hand out.
const minBufferSize = 16

// charBufferPool is a sync.Pool for the byte buffers backing row data.
// One buffer is rented per parser instance and reset between rows.
var charBufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 1024)
		return &b
	},
}

// tokenPool is a sync.Pool for field token slices.
var tokenPool = sync.Pool{
	New: func() interface{} {
		t := make([]FieldToken, 0, 8)
		return &t
	},
}

// runeBufferPool is a sync.Pool for lookahead rune buffers.
var runeBufferPool = sync.Pool{
	New: func() interface{} {
		r := make([]rune, 256)
		return &r
	},
}

// getCharBuffer gets a byte buffer from the pool with at least the
// requested capacity. The buffer is returned with length 0.
func getCharBuffer(size int) []byte {
	if size < minBufferSize {
		size = minBufferSize
	}
	p := charBufferPool.Get().(*[]byte)
	buf := (*p)[:0]
	if cap(buf) < size {
		buf = make([]byte, 0, size)
	}
	return buf
}

// putCharBuffer returns a byte buffer to the pool.
func putCharBuffer(buf []byte) {
	// Only return reasonably sized buffers (avoid keeping huge rows alive).
	const maxCapacity = 1 << 20
	if cap(buf) > maxCapacity {
		return
	}
	buf = buf[:0]
	charBufferPool.Put(&buf)
}

// getTokenSlice gets a token slice from the pool with length 0.
func getTokenSlice() []FieldToken {
	p := tokenPool.Get().(*[]FieldToken)
	return (*p)[:0]
}

// putTokenSlice returns a token slice to the pool.
func putTokenSlice(tokens []FieldToken) {
	const maxCapacity = 4096
	if cap(tokens) > maxCapacity {
		return
	}
	tokens = tokens[:0]
	tokenPool.Put(&tokens)
}

// getRuneBuffer gets a lookahead buffer with at least the requested length.
func getRuneBuffer(size int) []rune {
	if size < minBufferSize {
		size = minBufferSize
	}
	p := runeBufferPool.Get().(*[]rune)
	buf := *p
	if len(buf) < size {
		buf = make([]rune, size)
	}
	return buf
}

// putRuneBuffer returns a lookahead buffer to the pool.
func putRuneBuffer(buf []rune) {
	const maxCapacity = 1 << 16
	if cap(buf) > maxCapacity {
		return
	}
	runeBufferPool.Put(&buf)
}

// unsafeString converts a []byte to a string without allocation.
//
// The conversion creates a string sharing the underlying byte array,
// so the slice must not be modified while the string is in use. The
// parser only hands out views over a row buffer that stays untouched
// until the next row-advancing call.
func unsafeString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
