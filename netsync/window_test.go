package netsync

import (
	"datagram-sync/netsync/protocol"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequenceWindow(t *testing.T) {
	t.Run("local sequence", func(t *testing.T) {
		require := require.New(t)
		sw := NewSequenceWindow()
		require.Equal(uint16(1), sw.NextLocal())
		require.Equal(uint16(2), sw.NextLocal())

		sw.local = protocol.MaxSequence - 1
		require.Equal(uint16(protocol.MaxSequence), sw.NextLocal())
		require.Equal(uint16(0), sw.NextLocal())
		require.Equal(uint16(1), sw.NextLocal())
		require.Equal(uint16(1), sw.LocalSeq())
	})

	t.Run("ack bitfield", func(t *testing.T) {
		require := require.New(t)
		sw := NewSequenceWindow()
		for _, seq := range []uint16{10, 11, 13, 14} {
			require.True(sw.Record(seq))
		}
		ack, bits := sw.BuildAck()
		require.Equal(uint16(14), ack)
		// 13 at offset 1, 11 at offset 3, 10 at offset 4
		require.Equal(uint32(0b1101), bits)
		require.Zero(bits & (1 << 1))
	})

	t.Run("empty", func(t *testing.T) {
		require := require.New(t)
		ack, bits := NewSequenceWindow().BuildAck()
		require.Equal(uint16(0), ack)
		require.Equal(uint32(0), bits)
	})

	t.Run("eviction", func(t *testing.T) {
		require := require.New(t)
		sw := NewSequenceWindow()
		for seq := uint16(1); seq <= 40; seq++ {
			sw.Record(seq)
		}
		require.Equal(protocol.WindowSize, sw.Len())
		snapshot := sw.Snapshot()
		require.Equal(uint16(8), snapshot[0])
		require.Equal(uint16(40), snapshot[len(snapshot)-1])
		require.False(sw.Contains(7))
		require.True(sw.Contains(8))

		ack, bits := sw.BuildAck()
		require.Equal(uint16(40), ack)
		require.Equal(^uint32(0), bits)
	})

	t.Run("late and duplicate arrivals", func(t *testing.T) {
		require := require.New(t)
		sw := NewSequenceWindow()
		require.True(sw.Record(20))
		require.False(sw.Record(20))
		require.False(sw.Record(15))
		require.Equal([]uint16{20}, sw.Snapshot())
	})

	t.Run("wraparound", func(t *testing.T) {
		require := require.New(t)
		sw := NewSequenceWindow()
		for _, seq := range []uint16{65534, 65535, 1} {
			require.True(sw.Record(seq))
		}
		require.False(sw.Record(65533))
		ack, bits := sw.BuildAck()
		require.Equal(uint16(1), ack)
		// 65535 at offset 2, 65534 at offset 3
		require.Equal(uint32(0b110), bits)
	})

	t.Run("gap beyond bitfield", func(t *testing.T) {
		require := require.New(t)
		sw := NewSequenceWindow()
		sw.Record(1)
		sw.Record(2)
		sw.Record(100)
		ack, bits := sw.BuildAck()
		require.Equal(uint16(100), ack)
		require.Equal(uint32(0), bits)
	})
}
