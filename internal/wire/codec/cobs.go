// Package codec implements the on-wire framing: COBS (Consistent Overhead
// Byte Stuffing) byte-stuffing of a msgpack-encoded message, terminated by
// a single 0x00 delimiter byte.
package codec

// cobsEncode returns the COBS encoding of data. The result never contains a
// 0x00 byte; the caller appends the frame delimiter separately.
func cobsEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/254+1)
	codeIdx := len(out)
	out = append(out, 0) // placeholder for first code byte
	code := byte(1)

	flush := func() {
		out[codeIdx] = code
		code = 1
	}

	for _, b := range data {
		if b == 0 {
			flush()
			codeIdx = len(out)
			out = append(out, 0)
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			flush()
			codeIdx = len(out)
			out = append(out, 0)
		}
	}
	flush()
	return out
}

// cobsDecode reverses cobsEncode. It returns an error if data is malformed
// (a code byte points past the end of the buffer).
func cobsDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		code := int(data[i])
		if code == 0 {
			return nil, errMalformedCobs
		}
		i++
		end := i + code - 1
		if end > len(data) {
			return nil, errMalformedCobs
		}
		out = append(out, data[i:end]...)
		i = end
		if code != 0xFF && i < len(data) {
			out = append(out, 0)
		}
	}
	return out, nil
}
