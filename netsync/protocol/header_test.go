package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		cases := []struct {
			flags      uint8
			seq, ack   uint16
			ackBits    uint32
			payloadLen int32
		}{
			{0, 0, 0, 0, 0},
			{Flags(true, TypeTransform), 1, 2, 0b1101, 48},
			{Flags(false, TypeProperty), math.MaxUint16, 65530, math.MaxUint32, math.MaxInt32},
			{Flags(true, TypeData), 32768, 1, 1 << 31, 16},
		}
		for _, c := range cases {
			require := require.New(t)
			hdr := NewHeader(c.flags, c.seq, c.ack, c.ackBits, c.payloadLen)
			parsed, err := ParseHeader(hdr[:])
			require.Nil(err)
			require.Equal(c.flags, parsed.Flags())
			require.Equal(c.seq, parsed.Seq())
			require.Equal(c.ack, parsed.Ack())
			require.Equal(c.ackBits, parsed.AckBits())
			require.Equal(c.payloadLen, parsed.PayloadLen())
		}
	})

	t.Run("flags", func(t *testing.T) {
		require := require.New(t)
		for _, typ := range []MessageType{TypeFull, TypeProperty, TypeData, TypeTransform} {
			hdr := NewHeader(Flags(true, typ), 0, 0, 0, 0)
			require.True(hdr.Compressed())
			require.Equal(typ, hdr.Type())

			hdr = NewHeader(Flags(false, typ), 0, 0, 0, 0)
			require.False(hdr.Compressed())
			require.Equal(typ, hdr.Type())
		}
	})

	t.Run("little endian layout", func(t *testing.T) {
		require := require.New(t)
		hdr := NewHeader(0x05, 0x0102, 0x0304, 0x05060708, 0x090A0B0C)
		require.Equal([]byte{
			0x4E, 0x53, 0x59, 0x05,
			0x02, 0x01, 0x04, 0x03,
			0x08, 0x07, 0x06, 0x05,
			0x0C, 0x0B, 0x0A, 0x09,
		}, hdr[:])
	})

	t.Run("invalid", func(t *testing.T) {
		require := require.New(t)
		hdr := NewHeader(0, 1, 0, 0, 0)
		_, err := ParseHeader(hdr[:HeaderSize-1])
		require.Equal(ErrShortHeader, err)

		hdr[1] = 0
		_, err = ParseHeader(hdr[:])
		require.Equal(ErrBadMarker, err)
		require.False(HasMarker(hdr[:]))
		require.False(HasMarker(hdr[:2]))
	})
}
