package wire

import (
	"errors"
	"io"
	"log/slog"
	"time"
)

// Dispatcher handles a decoded unary Request payload and returns the
// Response payload bytes, or an error to report as an RPC-level failure
// (not a protocol violation — method errors are carried in-band on the
// Response, never as a Goodbye).
type Dispatcher interface {
	Dispatch(methodID uint32, payload []byte) ([]byte, error)
}

// Serve runs the post-handshake connection loop for one accepted
// connection until the peer disconnects, sends Goodbye, or violates the
// protocol. On a violation it sends a Goodbye carrying the reason and then
// returns that *ViolationError; callers only need to log the returned error.
func Serve(t *Transport, negotiated Negotiated, dispatcher Dispatcher, logger *slog.Logger) error {
	registry := NewStreamRegistry()

	for {
		var msg Message
		err := t.Recv(time.Now().Add(idleTimeout), &msg)
		if err != nil {
			if IsTimeout(err) {
				continue // idle timeout is not an error condition
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if raw := t.LastDecoded(); len(raw) >= 2 && raw[0] == 0x00 && raw[1] != 0x00 {
				_ = t.Send(Message{Kind: KindGoodbye, Goodbye: &Goodbye{Reason: ReasonHelloUnknownVersion}})
				return &ViolationError{Reason: ReasonHelloUnknownVersion}
			}
			return err
		}

		if violation := handleMessage(t, &msg, negotiated, dispatcher, registry, logger); violation != nil {
			return violation
		}
		if msg.Kind == KindGoodbye {
			return nil
		}
	}
}

func handleMessage(t *Transport, msg *Message, negotiated Negotiated, dispatcher Dispatcher, registry *StreamRegistry, logger *slog.Logger) error {
	switch msg.Kind {
	case KindHello:
		return nil // duplicate Hello, ignored

	case KindGoodbye:
		return nil // caller treats this as clean close

	case KindRequest:
		return handleRequest(t, msg.Request, negotiated, dispatcher, logger)

	case KindResponse, KindCancel:
		return nil // acceptor never sent a Request; silently discarded

	case KindData:
		if err := ValidateStreamID(msg.Data.StreamID); err != nil {
			return sendGoodbyeAndReturn(t, err.(*ViolationError))
		}
		kind, ok := registry.RouteData(msg.Data.StreamID)
		if !ok {
			reason := ReasonStreamUnknown
			if kind == StreamErrDataAfterClose {
				reason = ReasonStreamDataAfterClose
			}
			return sendGoodbyeAndReturn(t, &ViolationError{Reason: reason})
		}
		return nil

	case KindClose:
		if err := ValidateStreamID(msg.Close.StreamID); err != nil {
			return sendGoodbyeAndReturn(t, err.(*ViolationError))
		}
		if !registry.Close(msg.Close.StreamID) {
			return sendGoodbyeAndReturn(t, &ViolationError{Reason: ReasonStreamUnknown})
		}
		return nil

	case KindReset:
		if err := ValidateStreamID(msg.Reset.StreamID); err != nil {
			return sendGoodbyeAndReturn(t, err.(*ViolationError))
		}
		if !registry.Reset(msg.Reset.StreamID) {
			return sendGoodbyeAndReturn(t, &ViolationError{Reason: ReasonStreamUnknown})
		}
		return nil

	case KindCredit:
		if err := ValidateStreamID(msg.Credit.StreamID); err != nil {
			return sendGoodbyeAndReturn(t, err.(*ViolationError))
		}
		if !registry.Contains(msg.Credit.StreamID) {
			return sendGoodbyeAndReturn(t, &ViolationError{Reason: ReasonStreamUnknown})
		}
		return nil

	default:
		return nil
	}
}

func handleRequest(t *Transport, req *Request, negotiated Negotiated, dispatcher Dispatcher, logger *slog.Logger) error {
	if err := ValidatePayloadSize(negotiated, len(req.Payload)); err != nil {
		return sendGoodbyeAndReturn(t, err.(*ViolationError))
	}

	respPayload, err := dispatcher.Dispatch(req.MethodID, req.Payload)
	if err != nil {
		logger.Warn("rpc dispatch error", "method_id", req.MethodID, "error", err)
		respPayload = nil
	}

	return t.Send(Message{
		Kind: KindResponse,
		Response: &Response{
			RequestID: req.RequestID,
			Metadata:  nil,
			Payload:   respPayload,
		},
	})
}

func sendGoodbyeAndReturn(t *Transport, v *ViolationError) error {
	_ = t.Send(Message{Kind: KindGoodbye, Goodbye: &Goodbye{Reason: v.Reason}})
	return v
}
