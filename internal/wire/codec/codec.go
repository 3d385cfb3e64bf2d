package codec

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	errMalformedCobs = errors.New("codec: malformed cobs frame")
	// ErrTimeout is returned by Decoder.Next when the read deadline set
	// by the caller on the underlying connection elapses before a
	// complete frame arrives. It is not treated as a protocol error;
	// callers retry or treat it as "no message yet".
	ErrTimeout = errors.New("codec: read timeout")
)

// Encode serializes msg with msgpack, COBS-stuffs the result, and appends
// the 0x00 frame delimiter.
func Encode(msg any) ([]byte, error) {
	payload, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, err
	}
	stuffed := cobsEncode(payload)
	return append(stuffed, 0x00), nil
}

// Decoder reads COBS-stuffed, 0x00-delimited msgpack frames from an
// underlying reader.
type Decoder struct {
	r   *bufio.Reader
	buf []byte
	// LastDecoded holds the most recently COBS-decoded raw frame, kept
	// even when subsequent msgpack decoding of that frame fails. This
	// lets a caller inspect the raw bytes of a frame that failed typed
	// decoding, which is how a Hello version mismatch is diagnosed: the
	// peer's Hello-shaped frame decodes at the COBS layer but fails
	// msgpack decoding under an incompatible schema.
	LastDecoded []byte
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next reads and decodes the next frame into out (a pointer to a Message).
// It returns ErrTimeout if the underlying reader returns a timeout error
// (callers are expected to configure read deadlines on the underlying
// connection themselves), and io.EOF if the peer closed the stream
// cleanly with no partial frame pending.
func (d *Decoder) Next(out any) error {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return ErrTimeout
			}
			return err
		}
		if b != 0x00 {
			d.buf = append(d.buf, b)
			continue
		}

		frame := d.buf
		d.buf = nil

		decoded, derr := cobsDecode(frame)
		if derr != nil {
			return derr
		}
		d.LastDecoded = decoded

		return msgpack.Unmarshal(decoded, out)
	}
}
