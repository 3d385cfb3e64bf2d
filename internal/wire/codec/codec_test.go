package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCobsRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{1, 2, 3},
		{0},
		{0, 0, 0},
		bytes.Repeat([]byte{1}, 300),
		{1, 0, 2, 0, 3},
	}
	for _, c := range cases {
		encoded := cobsEncode(c)
		for _, b := range encoded {
			require.NotEqual(t, byte(0), b)
		}
		decoded, err := cobsDecode(encoded)
		require.NoError(t, err)
		require.Equal(t, c, decoded)
	}
}

type sample struct {
	A int
	B string
}

func TestEncodeDecodeFrame(t *testing.T) {
	in := sample{A: 42, B: "hello"}
	frame, err := Encode(in)
	require.NoError(t, err)
	require.Equal(t, byte(0x00), frame[len(frame)-1])

	var buf bytes.Buffer
	buf.Write(frame)
	dec := NewDecoder(&buf)

	var out sample
	require.NoError(t, dec.Next(&out))
	require.Equal(t, in, out)
}

func TestDecodeMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	f1, _ := Encode(sample{A: 1, B: "x"})
	f2, _ := Encode(sample{A: 2, B: "y"})
	buf.Write(f1)
	buf.Write(f2)

	dec := NewDecoder(&buf)
	var a, b sample
	require.NoError(t, dec.Next(&a))
	require.NoError(t, dec.Next(&b))
	require.Equal(t, 1, a.A)
	require.Equal(t, 2, b.A)
}
