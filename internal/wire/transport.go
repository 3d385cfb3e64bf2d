package wire

import (
	"net"
	"time"

	"tracey/internal/wire/codec"
)

// Transport adapts a net.Conn plus a codec.Decoder to the frameIO
// interface the handshake and connection loop use.
type Transport struct {
	conn net.Conn
	dec  *codec.Decoder
}

// NewTransport wraps conn.
func NewTransport(conn net.Conn) *Transport {
	return &Transport{conn: conn, dec: codec.NewDecoder(conn)}
}

// Send encodes and writes msg.
func (t *Transport) Send(msg Message) error {
	frame, err := codec.Encode(msg)
	if err != nil {
		return err
	}
	_, err = t.conn.Write(frame)
	return err
}

// Recv reads the next frame, failing with a timeout-shaped error if
// deadline elapses first.
func (t *Transport) Recv(deadline time.Time, out *Message) error {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	return t.dec.Next(out)
}

// LastDecoded exposes the decoder's last successfully COBS-decoded raw
// frame, used for the Hello-version-mismatch diagnostic.
func (t *Transport) LastDecoded() []byte {
	return t.dec.LastDecoded
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// IsTimeout reports whether err is codec.ErrTimeout.
func IsTimeout(err error) bool {
	return err == codec.ErrTimeout
}
