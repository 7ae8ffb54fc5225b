package netem

import (
	"context"
	"datagram-sync/util/mocks"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetem(t *testing.T) {
	rand := rand.New(rand.NewSource(0))
	expectedLen := 64
	expected := make([]byte, expectedLen)
	_, err := io.ReadFull(rand, expected)
	require.Nil(t, err)

	s1, s2 := mocks.Pair()
	defer s1.Close()
	defer s2.Close()
	ne := New(s1, Config{})

	receiveAll := func(require *require.Assertions) [][]byte {
		var datagrams [][]byte
		for s2.Available() > 0 {
			b, err := s2.Receive(context.Background())
			require.Nil(err)
			datagrams = append(datagrams, b)
		}
		return datagrams
	}

	t.Run("normal", func(t *testing.T) {
		require := require.New(t)
		require.Nil(ne.Send(expected))
		require.Equal([][]byte{expected}, receiveAll(require))
	})

	t.Run("fragmentation", func(t *testing.T) {
		require := require.New(t)
		ne.Update(Config{FragmentSize: 16})
		require.Nil(ne.Send(expected))
		datagrams := receiveAll(require)
		require.Len(datagrams, 4)
		for i, d := range datagrams {
			require.Equal(expected[i*16:(i+1)*16], d)
		}
	})

	t.Run("fragmentation+loss", func(t *testing.T) {
		require := require.New(t)
		ne.Update(Config{FragmentSize: 16, LossNth: 2})
		require.Nil(ne.Send(expected))
		datagrams := receiveAll(require)
		require.Len(datagrams, 2)
		require.Equal(expected[0:16], datagrams[0])
		require.Equal(expected[32:48], datagrams[1])
	})

	t.Run("fragmentation+duplication", func(t *testing.T) {
		require := require.New(t)
		ne.Update(Config{FragmentSize: 16, DuplicateNth: 3})
		require.Nil(ne.Send(expected))
		datagrams := receiveAll(require)
		require.Len(datagrams, 5)
		require.Equal(datagrams[2], datagrams[3])
	})

	t.Run("fragmentation+reordering", func(t *testing.T) {
		require := require.New(t)
		ne.Update(Config{FragmentSize: 16, ReorderNth: 2})
		require.Nil(ne.Send(expected))
		datagrams := receiveAll(require)
		// The last fragment is held back until it is overtaken or flushed
		require.Len(datagrams, 3)
		require.Equal(expected[0:16], datagrams[0])
		require.Equal(expected[32:48], datagrams[1])
		require.Equal(expected[16:32], datagrams[2])
		require.Nil(ne.Flush())
		require.Equal([][]byte{expected[48:64]}, receiveAll(require))
	})

	t.Run("update discards held fragment", func(t *testing.T) {
		require := require.New(t)
		ne.Update(Config{FragmentSize: 16, ReorderNth: 4})
		require.Nil(ne.Send(expected))
		require.Len(receiveAll(require), 3)
		ne.Update(Config{})
		require.Nil(ne.Flush())
		require.Empty(receiveAll(require))
	})

	t.Run("flush", func(t *testing.T) {
		require := require.New(t)
		ne.Update(Config{ReorderNth: 1})
		require.Nil(ne.Send(expected))
		require.Empty(receiveAll(require))
		require.Nil(ne.Flush())
		require.Equal([][]byte{expected}, receiveAll(require))
	})

	t.Run("closed", func(t *testing.T) {
		require := require.New(t)
		ne.Reset()
		require.Nil(ne.Close())
		require.Equal(ErrNetemClosed, ne.Send(expected))
		require.Equal(ErrNetemClosed, ne.Close())
	})
}
