// Package rpcclient is a thin unary-RPC client over the daemon's framed
// wire protocol: dial, handshake, send a Request, wait for the matching
// Response, decode its msgpack envelope.
package rpcclient

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"tracey/internal/rpcerrors"
	"tracey/internal/wire"
)

const defaultRecvTimeout = 10 * time.Second

// Client is a single-connection RPC client. Not safe for concurrent
// Call invocations on the same connection; callers needing concurrency
// should dial one Client per goroutine, or serialize calls themselves.
type Client struct {
	transport  *wire.Transport
	negotiated wire.Negotiated
	nextID     atomic.Uint64
}

// Dial connects to a unix socket at path, performs the Hello handshake,
// and returns a ready Client.
func Dial(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: dial %s: %w", path, err)
	}
	t := wire.NewTransport(conn)

	negotiated, err := wire.Handshake(t, wire.Hello{
		Version:             1,
		MaxPayloadSize:      4 << 20,
		InitialStreamCredit: 0,
	})
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("rpcclient: handshake: %w", err)
	}
	return &Client{transport: t, negotiated: negotiated}, nil
}

// Close sends a voluntary Goodbye and closes the connection.
func (c *Client) Close() error {
	_ = c.transport.Send(wire.Message{Kind: wire.KindGoodbye, Goodbye: &wire.Goodbye{}})
	return c.transport.Close()
}

// MaxPayloadSize reports the negotiated unary payload limit.
func (c *Client) MaxPayloadSize() uint32 { return c.negotiated.MaxPayloadSize }

// responseEnvelope mirrors the rpcserver package's wire shape without
// importing it: {result, error}.
type responseEnvelope struct {
	Result msgpack.RawMessage `msgpack:"result"`
	Err    *rpcerrors.Error   `msgpack:"error"`
}

// Call sends req (msgpack-encoded) to methodID and decodes the matching
// Response's result into out. Responses and Cancels that don't match the
// request id (there should be none on a single-connection client, but a
// server retains the right to send one) are discarded.
func (c *Client) Call(methodID uint32, req any, out any) error {
	var payload []byte
	if req != nil {
		p, err := msgpack.Marshal(req)
		if err != nil {
			return fmt.Errorf("rpcclient: encode request: %w", err)
		}
		payload = p
	}
	if err := wire.ValidatePayloadSize(c.negotiated, len(payload)); err != nil {
		return err
	}

	id := c.nextID.Add(1)
	if err := c.transport.Send(wire.Message{
		Kind:    wire.KindRequest,
		Request: &wire.Request{RequestID: id, MethodID: methodID, Payload: payload},
	}); err != nil {
		return fmt.Errorf("rpcclient: send request: %w", err)
	}

	for {
		var msg wire.Message
		if err := c.transport.Recv(time.Now().Add(defaultRecvTimeout), &msg); err != nil {
			return fmt.Errorf("rpcclient: recv response: %w", err)
		}
		if msg.Kind != wire.KindResponse || msg.Response == nil || msg.Response.RequestID != id {
			continue
		}

		var env responseEnvelope
		if err := msgpack.Unmarshal(msg.Response.Payload, &env); err != nil {
			return fmt.Errorf("rpcclient: decode response: %w", err)
		}
		if env.Err != nil {
			return env.Err
		}
		if out == nil {
			return nil
		}
		return msgpack.Unmarshal(env.Result, out)
	}
}
