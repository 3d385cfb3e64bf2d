// Package wire defines the daemon's framed RPC protocol: message types,
// the Hello/Goodbye handshake, and the post-handshake connection state
// machine, including the exact protocol-violation reason strings clients
// can match on.
package wire

// Kind discriminates the Message union.
type Kind int

const (
	KindHello Kind = iota
	KindGoodbye
	KindRequest
	KindResponse
	KindCancel
	KindData
	KindClose
	KindReset
	KindCredit
)

// Hello is sent immediately by both peers on connect to negotiate
// transport parameters.
type Hello struct {
	Version             uint32
	MaxPayloadSize       uint32
	InitialStreamCredit uint32
}

// Goodbye announces a clean or protocol-violation close. Reason is one of
// the stable rule-id-shaped strings below, or empty for a voluntary close.
type Goodbye struct {
	Reason string
}

// Request carries a unary RPC call.
type Request struct {
	RequestID uint64
	MethodID  uint32
	Metadata  map[string]string
	Payload   []byte
}

// Response answers a Request with the same RequestID.
type Response struct {
	RequestID uint64
	Metadata  map[string]string
	Payload   []byte
}

// Cancel asks the peer to abandon a pending Request.
type Cancel struct {
	RequestID uint64
}

// Data carries one chunk of stream payload. StreamID 0 is reserved and
// never valid on a Data/Close/Reset/Credit message.
type Data struct {
	StreamID uint64
	Payload  []byte
}

// Close signals the sender is done writing to StreamID.
type Close struct {
	StreamID uint64
}

// Reset abruptly terminates StreamID from either side.
type Reset struct {
	StreamID uint64
}

// Credit grants the peer additional flow-control window on StreamID.
type Credit struct {
	StreamID uint64
	Amount   uint32
}

// Message is the tagged union of all wire messages, encoded over the wire
// as a 2-element array [Kind, payload] by MarshalMsgpack/UnmarshalMsgpack.
type Message struct {
	Kind     Kind
	Hello    *Hello
	Goodbye  *Goodbye
	Request  *Request
	Response *Response
	Cancel   *Cancel
	Data     *Data
	Close    *Close
	Reset    *Reset
	Credit   *Credit
}

// Protocol-violation reason strings. Exact values matter: they are part of
// the wire contract and clients may match on them.
const (
	ReasonHelloOrdering        = "message.hello.ordering"
	ReasonHelloUnknownVersion  = "message.hello.unknown-version"
	ReasonPayloadLimit         = "flow.unary.payload-limit"
	ReasonStreamZeroReserved   = "streaming.id.zero-reserved"
	ReasonStreamUnknown        = "streaming.unknown"
	ReasonStreamDataAfterClose = "streaming.data-after-close"
)
