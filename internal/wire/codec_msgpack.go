package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// payload returns the typed payload for m.Kind, which MarshalMsgpack pairs
// with the kind as [kind, payload].
func (m Message) payload() any {
	switch m.Kind {
	case KindHello:
		return m.Hello
	case KindGoodbye:
		return m.Goodbye
	case KindRequest:
		return m.Request
	case KindResponse:
		return m.Response
	case KindCancel:
		return m.Cancel
	case KindData:
		return m.Data
	case KindClose:
		return m.Close
	case KindReset:
		return m.Reset
	case KindCredit:
		return m.Credit
	default:
		return nil
	}
}

// MarshalMsgpack implements msgpack.CustomEncoder.
func (m Message) MarshalMsgpack() ([]byte, error) {
	return msgpack.Marshal([]any{int(m.Kind), m.payload()})
}

// UnmarshalMsgpack implements msgpack.CustomDecoder.
func (m *Message) UnmarshalMsgpack(data []byte) error {
	var raw [2]msgpack.RawMessage
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return err
	}
	var kind int
	if err := msgpack.Unmarshal(raw[0], &kind); err != nil {
		return err
	}
	m.Kind = Kind(kind)

	switch m.Kind {
	case KindHello:
		m.Hello = &Hello{}
		return msgpack.Unmarshal(raw[1], m.Hello)
	case KindGoodbye:
		m.Goodbye = &Goodbye{}
		return msgpack.Unmarshal(raw[1], m.Goodbye)
	case KindRequest:
		m.Request = &Request{}
		return msgpack.Unmarshal(raw[1], m.Request)
	case KindResponse:
		m.Response = &Response{}
		return msgpack.Unmarshal(raw[1], m.Response)
	case KindCancel:
		m.Cancel = &Cancel{}
		return msgpack.Unmarshal(raw[1], m.Cancel)
	case KindData:
		m.Data = &Data{}
		return msgpack.Unmarshal(raw[1], m.Data)
	case KindClose:
		m.Close = &Close{}
		return msgpack.Unmarshal(raw[1], m.Close)
	case KindReset:
		m.Reset = &Reset{}
		return msgpack.Unmarshal(raw[1], m.Reset)
	case KindCredit:
		m.Credit = &Credit{}
		return msgpack.Unmarshal(raw[1], m.Credit)
	default:
		return fmt.Errorf("wire: unknown message kind %d", kind)
	}
}
