// Package tokenstream reads and writes the length-prefixed string framing used by
// spring test machine data files.
//
// Every token is a 4-byte unsigned big-endian length followed by that many bytes
// of UTF-8 text. There is no file header, no record delimiter and no checksum;
// the token sequence is the whole file.
package tokenstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// prefixSize is the width of the big-endian length prefix
const prefixSize = 4

// Reader decodes tokens one at a time from a seekable source
type Reader struct {
	stream *kaitai.Stream
	index  int
}

// NewReader creates a Reader over r
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{stream: kaitai.NewStream(r)}
}

// Offset returns the byte offset of the next token
func (r *Reader) Offset() int64 {
	pos, err := r.stream.Pos()
	if err != nil {
		return -1
	}
	return pos
}

// Next returns the next token. It returns io.EOF once the stream is exhausted
// on a token boundary.
func (r *Reader) Next() (string, error) {
	eof, err := r.stream.EOF()
	if err != nil {
		return "", fmt.Errorf("checking end of stream: %w", err)
	}
	if eof {
		return "", io.EOF
	}

	offset := r.Offset()
	remaining, err := r.remaining()
	if err != nil {
		return "", err
	}
	if remaining < prefixSize {
		return "", &TruncatedStreamError{Offset: offset, Declared: prefixSize, Remaining: remaining}
	}

	length, err := r.stream.ReadU4be()
	if err != nil {
		return "", fmt.Errorf("reading length prefix at offset %d: %w", offset, err)
	}

	remaining -= prefixSize
	if int64(length) > remaining {
		return "", &TruncatedStreamError{Offset: offset, Declared: int64(length), Remaining: remaining}
	}

	payload, err := r.stream.ReadBytes(int(length))
	if err != nil {
		return "", fmt.Errorf("reading %d byte payload at offset %d: %w", length, offset, err)
	}
	if !utf8.Valid(payload) {
		return "", &EncodingError{Offset: offset, Index: r.index}
	}

	r.index++
	return string(payload), nil
}

func (r *Reader) remaining() (int64, error) {
	size, err := r.stream.Size()
	if err != nil {
		return 0, fmt.Errorf("measuring stream: %w", err)
	}
	pos, err := r.stream.Pos()
	if err != nil {
		return 0, fmt.Errorf("locating stream position: %w", err)
	}
	return size - pos, nil
}

// Read decodes a complete token stream
func Read(data []byte) ([]string, error) {
	reader := NewReader(bytes.NewReader(data))
	var tokens []string
	for {
		token, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return tokens, nil
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
}

// Writer encodes tokens onto an io.Writer
type Writer struct {
	writer *kaitai.Writer
	index  int
}

// NewWriter creates a Writer over w
func NewWriter(w io.Writer) *Writer {
	return &Writer{writer: kaitai.NewWriter(w)}
}

// WriteToken frames and writes a single token
func (w *Writer) WriteToken(token string) error {
	if err := checkTokenSize(w.index, len(token)); err != nil {
		return err
	}
	if err := w.writer.WriteU4be(uint32(len(token))); err != nil {
		return fmt.Errorf("writing length prefix of token %d: %w", w.index, err)
	}
	if err := w.writer.WriteBytes([]byte(token)); err != nil {
		return fmt.Errorf("writing payload of token %d: %w", w.index, err)
	}
	w.index++
	return nil
}

// Write encodes tokens into a complete token stream
func Write(tokens []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)
	for _, token := range tokens {
		if err := writer.WriteToken(token); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// checkTokenSize rejects payloads that cannot be described by a 32-bit prefix
func checkTokenSize(index, size int) error {
	if uint64(size) > math.MaxUint32 {
		return &TokenTooLargeError{Index: index, Size: uint64(size)}
	}
	return nil
}
