package vital

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

// gunzip inflates the whole container into memory. A complete file is
// materialized; the decompressed length drives the integrity check.
func gunzip(r io.Reader) ([]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptContainer, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptContainer, err)
	}
	return raw, nil
}

// reader is a bounded little-endian cursor over a byte slice. Every codec
// consumes exactly the bytes it decodes.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: want %d bytes, have %d", ErrTruncated, n, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// sub returns a bounded sub-view of the next n bytes. The parent position
// advances past all n bytes regardless of how much the sub-view consumes,
// which implements the padding discipline: residual bytes are discarded.
func (r *reader) sub(n int) (*reader, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	return &reader{buf: b}, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) i16() (int16, error) {
	v, err := r.u16()
	return int16(v), err
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *reader) f64() (float64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// str reads a u32 length followed by that many UTF-8 bytes. Zero length is
// valid and decodes to the empty string.
func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %q", ErrEncoding, b)
	}
	return string(b), nil
}

// timestamp reads a float64 of seconds since the Unix epoch, preserving
// fractional seconds.
func (r *reader) timestamp() (time.Time, error) {
	s, err := r.f64()
	if err != nil {
		return time.Time{}, err
	}
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
}

// element reads one raw sample of the given format, widened to float64.
func (r *reader) element(f RecFmt) (float64, error) {
	switch f {
	case FmtFloat:
		v, err := r.f32()
		return float64(v), err
	case FmtDouble:
		return r.f64()
	case FmtChar, FmtByte:
		v, err := r.u8()
		return float64(v), err
	case FmtShort:
		v, err := r.i16()
		return float64(v), err
	case FmtWord:
		v, err := r.u16()
		return float64(v), err
	case FmtLong:
		v, err := r.i32()
		return float64(v), err
	case FmtDword:
		v, err := r.u32()
		return float64(v), err
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownRecFmt, f)
}
