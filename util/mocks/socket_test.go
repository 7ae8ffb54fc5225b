package mocks

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSocket(t *testing.T) {
	require := require.New(t)
	s1, s2 := PairSize(1)
	expected := []byte("Hello, world!")
	ctx := context.Background()

	require.Nil(s1.Send(expected))
	// Backlog of one, the second datagram is dropped
	require.Nil(s1.Send([]byte("dropped")))
	require.Equal(1, s2.Available())

	actual, err := s2.Receive(ctx)
	require.Nil(err)
	require.Equal(expected, actual)
	require.Zero(s2.Available())

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = s2.Receive(ctx)
	require.Equal(context.DeadlineExceeded, err)

	require.Nil(s1.Close())
	require.Equal(io.ErrClosedPipe, s1.Send(expected))
	require.Nil(s2.Close())
}
