package tabular

// sanitize.go holds the readers every upload passes through before parsing:
//
//   - sizeLimitReader: fails with ErrFileTooLarge past the configured cap
//   - BOMSkippingReader: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - StreamingUTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//
// WrapForLoad chains them in that order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WrapForLoad applies the size cap, BOM removal and UTF-8 repair to r.
// The cap counts raw bytes, before any rewriting.
func WrapForLoad(r io.Reader, maxBytes int64) io.Reader {
	if maxBytes > 0 {
		r = &sizeLimitReader{reader: r, max: maxBytes}
	}
	return NewStreamingUTF8Sanitizer(NewBOMSkippingReader(r))
}

type sizeLimitReader struct {
	reader io.Reader
	max    int64
	read   int64
}

func (l *sizeLimitReader) Read(p []byte) (int, error) {
	if l.read > l.max {
		return 0, ErrFileTooLarge
	}
	// Allow one byte past the cap so an exact-size file is not rejected.
	if room := l.max + 1 - l.read; int64(len(p)) > room {
		p = p[:room]
	}
	n, err := l.reader.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		return 0, ErrFileTooLarge
	}
	return n, err
}

// BOMSkippingReader removes a UTF-8 byte order mark from the start of the
// stream. Windows spreadsheet exports commonly add one, and left in place it
// becomes part of the first header name.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// StreamingUTF8Sanitizer replaces invalid UTF-8 bytes with '?' as data
// flows through. A multi-byte sequence split across two reads is carried
// over rather than mistaken for garbage.
type StreamingUTF8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

// NewStreamingUTF8Sanitizer wraps r.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isASCII(p[:n]) {
		return n, err
	}
	return s.repair(p[:n], err == io.EOF), err
}

// repair rewrites data in place and returns the number of bytes to hand to
// the caller. Unless atEOF, an incomplete trailing sequence is held back.
func (s *StreamingUTF8Sanitizer) repair(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			// One byte in, one byte out: the buffer never grows.
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
