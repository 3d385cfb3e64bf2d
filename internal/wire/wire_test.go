package wire

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageMarshalRoundTrip(t *testing.T) {
	msg := Message{Kind: KindRequest, Request: &Request{RequestID: 7, MethodID: 3, Payload: []byte("hi")}}
	encoded, err := msg.MarshalMsgpack()
	require.NoError(t, err)

	var out Message
	require.NoError(t, out.UnmarshalMsgpack(encoded))
	require.Equal(t, KindRequest, out.Kind)
	require.Equal(t, uint64(7), out.Request.RequestID)
	require.Equal(t, []byte("hi"), out.Request.Payload)
}

func TestHandshakeNegotiatesMinimums(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	ta, tb := NewTransport(a), NewTransport(b)

	type result struct {
		n   Negotiated
		err error
	}
	doneA := make(chan result, 1)
	doneB := make(chan result, 1)

	go func() {
		n, err := Handshake(ta, Hello{Version: 1, MaxPayloadSize: 1000, InitialStreamCredit: 4})
		doneA <- result{n, err}
	}()
	go func() {
		n, err := Handshake(tb, Hello{Version: 1, MaxPayloadSize: 500, InitialStreamCredit: 8})
		doneB <- result{n, err}
	}()

	ra := <-doneA
	rb := <-doneB
	require.NoError(t, ra.err)
	require.NoError(t, rb.err)
	require.Equal(t, uint32(500), ra.n.MaxPayloadSize)
	require.Equal(t, uint32(4), ra.n.InitialStreamCredit)
	require.Equal(t, ra.n, rb.n)
}

func TestHandshakeOrderingViolation(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	ta, tb := NewTransport(a), NewTransport(b)

	go func() {
		// Peer sends a non-Hello message first.
		_ = tb.Send(Message{Kind: KindGoodbye, Goodbye: &Goodbye{}})
	}()

	_, err := Handshake(ta, Hello{Version: 1, MaxPayloadSize: 100, InitialStreamCredit: 1})
	require.Error(t, err)
	var verr *ViolationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ReasonHelloOrdering, verr.Reason)
}

func TestValidateStreamIDZeroReserved(t *testing.T) {
	err := ValidateStreamID(0)
	require.Error(t, err)
	var verr *ViolationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ReasonStreamZeroReserved, verr.Reason)
}

func TestValidatePayloadSizeLimit(t *testing.T) {
	n := Negotiated{MaxPayloadSize: 4}
	require.NoError(t, ValidatePayloadSize(n, 4))
	require.Error(t, ValidatePayloadSize(n, 5))
}

func TestServeEchoesResponse(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	ta, tb := NewTransport(a), NewTransport(b)

	go func() {
		_, _ = Handshake(tb, Hello{Version: 1, MaxPayloadSize: 1024, InitialStreamCredit: 1})
		_ = tb.Send(Message{Kind: KindRequest, Request: &Request{RequestID: 1, MethodID: 9, Payload: []byte("ping")}})
		var resp Message
		_ = tb.Recv(time.Now().Add(time.Second), &resp)
		_ = tb.Send(Message{Kind: KindGoodbye, Goodbye: &Goodbye{}})
		_ = resp
	}()

	negotiated, err := Handshake(ta, Hello{Version: 1, MaxPayloadSize: 1024, InitialStreamCredit: 1})
	require.NoError(t, err)

	err = Serve(ta, negotiated, echoDispatcher{}, testLogger())
	require.NoError(t, err)
}

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(methodID uint32, payload []byte) ([]byte, error) {
	return payload, nil
}
