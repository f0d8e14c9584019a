// Package framing converts between protocol messages and newline-delimited frames.
//
// Each frame is one JSON document followed by '\n'. A Decoder buffers partial
// reads until a full frame is available. A malformed or oversized frame yields a
// FramingError and the decoder resynchronizes on the next newline, so one bad
// frame never ends the stream.
package framing

import (
	"bufio"
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

// MaxFrameSize is the default upper bound for a single frame.
const MaxFrameSize = 1024 * 1024 // 1MB

// maxRawInError caps how much of a bad frame is kept in a FramingError.
const maxRawInError = 512

// Encode serializes msg into a single newline-terminated frame.
func Encode(msg *jsonrpc.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	return append(data, '\n'), nil
}

// Decode parses one frame. Surrounding whitespace, including the trailing
// newline, is ignored.
func Decode(frame []byte) (*jsonrpc.Message, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, &errors.FramingError{Err: stderrors.New("empty frame")}
	}

	var msg jsonrpc.Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, &errors.FramingError{Raw: truncate(frame), Err: err}
	}

	return &msg, nil
}

// Decoder reads frames from a byte stream.
type Decoder struct {
	r       *bufio.Reader
	maxSize int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxFrameSize overrides MaxFrameSize.
func WithMaxFrameSize(n int) DecoderOption {
	return func(d *Decoder) {
		d.maxSize = n
	}
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{maxSize: MaxFrameSize}
	for _, opt := range opts {
		opt(d)
	}

	d.r = bufio.NewReaderSize(r, d.maxSize)

	return d
}

// Decode returns the next message.
//
// A *errors.FramingError means the frame was dropped and the caller may call
// Decode again. io.EOF means the stream ended cleanly. Any other error comes from
// the underlying reader and is final.
func (d *Decoder) Decode() (*jsonrpc.Message, error) {
	for {
		line, err := d.r.ReadSlice('\n')

		switch {
		case stderrors.Is(err, bufio.ErrBufferFull):
			head := truncate(line)
			if derr := d.discardLine(); derr != nil && !stderrors.Is(derr, io.EOF) {
				return nil, derr
			}

			return nil, &errors.FramingError{
				Raw: head,
				Err: fmt.Errorf("%w: exceeds %d bytes", errors.ErrFrameTooLarge, d.maxSize),
			}

		case err != nil && !stderrors.Is(err, io.EOF):
			return nil, err
		}

		if len(bytes.TrimSpace(line)) == 0 {
			if err != nil {
				return nil, err
			}

			continue
		}

		// A final frame without a trailing newline is still a frame.
		return Decode(line)
	}
}

// discardLine drops input up to and including the next newline.
func (d *Decoder) discardLine() error {
	for {
		_, err := d.r.ReadSlice('\n')
		if stderrors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		return err
	}
}

func truncate(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > maxRawInError {
		return string(b[:maxRawInError]) + "..."
	}

	return string(b)
}
