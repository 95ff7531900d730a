/*
Package rle implements the run-length encoding used for X16 pixel streams.

The stream is a sequence of tokens, each starting with a control byte:

	1nnnnnnn vv        repeat vv n+1 times (2..127)
	0nnnnnnn b0 .. bn  copy the following n+1 bytes (1..128)
	11111111           end of stream

A repeat run is capped at 127 so the control byte can never be 0xff, which
is reserved for the terminator.
*/
package rle

import (
	"bytes"
	"fmt"
	"io"
)

const (
	// Terminator marks the end of an encoded stream
	Terminator = 0xff

	// MaxRepeat is the longest run a single repeat token can describe
	MaxRepeat = 127

	// MaxLiteral is the longest run a single literal token can describe
	MaxLiteral = 128

	repeatFlag = 0x80
	lengthMask = 0x7f
)

// A FormatError reports a truncated or malformed encoded stream.
type FormatError struct {
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("rle: %s at offset %d", e.Reason, e.Offset)
}

func repeatLength(data []byte, i int) int {
	n := 1
	for n < MaxRepeat && i+n < len(data) && data[i+n] == data[i] {
		n++
	}
	return n
}

// Encode compresses data. An empty input produces an empty output, anything
// else is followed by the terminator.
func Encode(data []byte) []byte {
	if len(data) == 0 {
		return []byte{}
	}

	out := make([]byte, 0, len(data)+len(data)/MaxLiteral+2)
	for i := 0; i < len(data); {
		if n := repeatLength(data, i); n > 1 {
			out = append(out, repeatFlag|byte(n-1), data[i])
			i += n
			continue
		}

		// Extend the literal until the next two bytes would start a
		// repeat run
		start := i
		for i++; i < len(data) && i-start < MaxLiteral; i++ {
			if i+1 < len(data) && data[i] == data[i+1] {
				break
			}
		}
		out = append(out, byte(i-start-1))
		out = append(out, data[start:i]...)
	}

	return append(out, Terminator)
}

// Reader decompresses a stream read from an underlying io.ByteReader. It
// stops at the terminator and never reads beyond it.
type Reader struct {
	r      io.ByteReader
	strict bool
	offset int64

	repeat  bool
	value   byte
	pending int
	err     error
}

// NewReader returns a Reader decoding from r. In strict mode a stream that
// ends without a terminator is a FormatError, otherwise it is accepted as
// long as it ends on a token boundary.
func NewReader(r io.ByteReader, strict bool) *Reader {
	return &Reader{r: r, strict: strict}
}

func (r *Reader) readByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, err
	}
	r.offset++
	return b, nil
}

func (r *Reader) next() error {
	start := r.offset
	c, err := r.readByte()
	switch {
	case err == io.EOF:
		if r.strict {
			return &FormatError{start, "missing terminator"}
		}
		return io.EOF
	case err != nil:
		return err
	case c == Terminator:
		return io.EOF
	}

	r.pending = int(c&lengthMask) + 1
	r.repeat = c&repeatFlag != 0
	if r.repeat {
		if r.value, err = r.readByte(); err != nil {
			if err == io.EOF {
				return &FormatError{start, "repeat token without value"}
			}
			return err
		}
	}
	return nil
}

// Read implements the io.Reader interface.
func (r *Reader) Read(p []byte) (int, error) {
	var n int
	for n < len(p) {
		if r.err != nil {
			return n, r.err
		}
		if r.pending == 0 {
			if err := r.next(); err != nil {
				r.err = err
				continue
			}
		}
		if r.repeat {
			for ; r.pending > 0 && n < len(p); r.pending-- {
				p[n] = r.value
				n++
			}
			continue
		}
		for ; r.pending > 0 && n < len(p); r.pending-- {
			b, err := r.readByte()
			if err != nil {
				if err == io.EOF {
					err = &FormatError{r.offset, "literal run past end of stream"}
				}
				r.pending = 0
				r.err = err
				break
			}
			p[n] = b
			n++
		}
	}
	return n, nil
}

// Offset returns the number of encoded bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

func decode(stream []byte, strict bool) ([]byte, error) {
	r := NewReader(bytes.NewReader(stream), strict)
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decode decompresses stream, stopping at the terminator. A stream that ends
// cleanly on a token boundary without a terminator is accepted.
func Decode(stream []byte) ([]byte, error) {
	return decode(stream, false)
}

// DecodeStrict is like Decode but requires the terminator to be present.
func DecodeStrict(stream []byte) ([]byte, error) {
	if len(stream) == 0 {
		return []byte{}, nil
	}
	return decode(stream, true)
}
