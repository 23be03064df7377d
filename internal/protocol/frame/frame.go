package frame

import (
	"bytes"
	"errors"
	"strings"
)

const Delimiter byte = '\n'

var ErrLineTooLarge = errors.New("frame: line too large")

// Limits constrains accumulator memory use.
type Limits struct {
	// MaxLineBytes caps the unterminated remainder. Zero means unbounded.
	MaxLineBytes int
}

// DefaultLimits is unbounded: a line without a delimiter accumulates until one
// arrives or the stream ends.
func DefaultLimits() Limits {
	return Limits{}
}

// Framer recovers newline-delimited messages from an arbitrarily chunked byte
// stream. Bytes are buffered raw, so a UTF-8 sequence split across chunks is
// only decoded once its line is complete.
//
// A Framer is owned by a single reader goroutine and is not safe for
// concurrent use.
type Framer struct {
	buf    []byte
	limits Limits
}

func NewFramer(limits Limits) *Framer {
	return &Framer{limits: limits}
}

// Feed appends chunk and returns every message completed by it, in arrival
// order. Messages are trimmed of surrounding whitespace; lines that trim to
// empty are skipped. On ErrLineTooLarge the accumulator is discarded and the
// messages completed before the overflow are still returned.
func (f *Framer) Feed(chunk []byte) ([]string, error) {
	f.buf = append(f.buf, chunk...)

	var lines []string
	off := 0
	for {
		i := bytes.IndexByte(f.buf[off:], Delimiter)
		if i < 0 {
			break
		}
		line := strings.TrimSpace(strings.ToValidUTF8(string(f.buf[off:off+i]), "�"))
		off += i + 1
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	if off > 0 {
		n := copy(f.buf, f.buf[off:])
		f.buf = f.buf[:n]
	}
	if f.limits.MaxLineBytes > 0 && len(f.buf) > f.limits.MaxLineBytes {
		f.buf = f.buf[:0]
		return lines, ErrLineTooLarge
	}
	return lines, nil
}

// Buffered reports how many bytes are waiting for a delimiter.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Pending returns a copy of the unterminated remainder.
func (f *Framer) Pending() []byte {
	out := make([]byte, len(f.buf))
	copy(out, f.buf)
	return out
}
