package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Role identifies which side of a connection a peer plays.
type Role int

const (
	RoleAcceptor Role = iota
	RoleInitiator
)

// Negotiated holds the transport parameters agreed during the handshake,
// the element-wise minimum of both peers' Hello values.
type Negotiated struct {
	MaxPayloadSize      uint32
	InitialStreamCredit uint32
}

// ViolationError is returned when the peer violates the protocol. Reason
// is one of the Reason* constants in message.go.
type ViolationError struct {
	Reason  string
	Context string
}

func (e *ViolationError) Error() string {
	if e.Context == "" {
		return "wire: protocol violation: " + e.Reason
	}
	return fmt.Sprintf("wire: protocol violation: %s (%s)", e.Reason, e.Context)
}

// ErrClosed is returned when the peer closes before completing the
// handshake.
var ErrClosed = errors.New("wire: connection closed before hello")

const (
	helloTimeout = 5 * time.Second
	idleTimeout  = 30 * time.Second
)

// frameIO is the subset of Transport operations Handshake needs.
type frameIO interface {
	Send(msg Message) error
	Recv(deadline time.Time, out *Message) error
	LastDecoded() []byte
}

// Handshake performs the Hello exchange: both sides send Hello
// immediately, then each awaits the peer's Hello within 5s. Any
// non-Hello message received before the peer's Hello is a protocol
// violation (ReasonHelloOrdering). Returns the negotiated parameters.
func Handshake(conn frameIO, ourHello Hello) (Negotiated, error) {
	if err := conn.Send(Message{Kind: KindHello, Hello: &ourHello}); err != nil {
		return Negotiated{}, err
	}

	var msg Message
	err := conn.Recv(time.Now().Add(helloTimeout), &msg)
	if err != nil {
		if raw := conn.LastDecoded(); len(raw) >= 2 && raw[0] == 0x00 && raw[1] != 0x00 {
			_ = conn.Send(Message{Kind: KindGoodbye, Goodbye: &Goodbye{Reason: ReasonHelloUnknownVersion}})
			return Negotiated{}, &ViolationError{Reason: ReasonHelloUnknownVersion}
		}
		if errors.Is(err, io.EOF) {
			return Negotiated{}, ErrClosed
		}
		return Negotiated{}, err
	}

	if msg.Kind != KindHello {
		_ = conn.Send(Message{Kind: KindGoodbye, Goodbye: &Goodbye{Reason: ReasonHelloOrdering}})
		return Negotiated{}, &ViolationError{Reason: ReasonHelloOrdering}
	}

	peer := msg.Hello
	return Negotiated{
		MaxPayloadSize:      min32(ourHello.MaxPayloadSize, peer.MaxPayloadSize),
		InitialStreamCredit: min32(ourHello.InitialStreamCredit, peer.InitialStreamCredit),
	}, nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// ValidatePayloadSize reports a ReasonPayloadLimit violation if size
// exceeds the negotiated maximum.
func ValidatePayloadSize(n Negotiated, size int) error {
	if uint32(size) > n.MaxPayloadSize {
		return &ViolationError{Reason: ReasonPayloadLimit}
	}
	return nil
}

// ValidateStreamID reports a ReasonStreamZeroReserved violation for any
// stream-scoped message bearing the reserved id 0.
func ValidateStreamID(id uint64) error {
	if id == 0 {
		return &ViolationError{Reason: ReasonStreamZeroReserved}
	}
	return nil
}

// netErrIsTimeout reports whether err is a net.Error with Timeout() true.
func netErrIsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
