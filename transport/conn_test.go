package transport

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func listenLoopback(t *testing.T) *net.UDPConn {
	laddr, err := net.ResolveUDPAddr("udp4", "127.0.0.1:0")
	require.Nil(t, err)
	conn, err := net.ListenUDP("udp4", laddr)
	require.Nil(t, err)
	return conn
}

func TestConn(t *testing.T) {
	expected := []byte("This is a message")

	raw1 := listenLoopback(t)
	raw2 := listenLoopback(t)
	opts := DefaultOptions()
	opts.ReadBacklog = 2
	c1 := NewConn(raw1, raw2.LocalAddr().(*net.UDPAddr), opts)
	c2 := NewConn(raw2, raw1.LocalAddr().(*net.UDPAddr), opts)
	defer c1.Close()
	defer c2.Close()

	t.Run("send and receive", func(t *testing.T) {
		require := require.New(t)
		require.Nil(c1.Send(expected))
		require.Eventually(func() bool {
			return c2.Available() == 1
		}, time.Second, time.Millisecond)
		b, err := c2.Receive(context.Background())
		require.Nil(err)
		require.Equal(expected, b)
		require.Zero(c2.Available())
	})

	t.Run("backlog full", func(t *testing.T) {
		require := require.New(t)
		for i := 0; i < 3; i++ {
			require.Nil(c2.Send(expected))
		}
		require.Eventually(func() bool {
			return c1.Available() == 2 && c1.Dropped() == 1
		}, time.Second, time.Millisecond)
		for c1.Available() > 0 {
			_, err := c1.Receive(context.Background())
			require.Nil(err)
		}
	})

	t.Run("deadline", func(t *testing.T) {
		require := require.New(t)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := c1.Receive(ctx)
		require.Equal(context.DeadlineExceeded, err)
	})

	t.Run("closed", func(t *testing.T) {
		require := require.New(t)
		require.Nil(c1.Close())
		require.Equal(ErrClosed, c1.Close())
		require.Equal(ErrClosed, c1.Send(expected))
		_, err := c1.Receive(context.Background())
		require.Equal(ErrClosed, err)
	})
}

func TestOptions(t *testing.T) {
	require := require.New(t)
	opts := sanitizeOptions(Options{TTL: -1, ReadBufferSize: 1})
	require.Equal(defaultGroup, opts.Group)
	require.Equal(defaultTTL, opts.TTL)
	require.Equal(minReadBufferSize, opts.ReadBufferSize)
	require.Equal(minReadBacklog, opts.ReadBacklog)
	require.NotNil(opts.Logger)
}

// Reserves a free UDP port for the multicast group.
func freePort(t *testing.T) int {
	conn := listenLoopback(t)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func multicastOptions(t *testing.T) Options {
	opts := DefaultOptions()
	opts.Group = net.JoinHostPort("239.255.77.77", strconv.Itoa(freePort(t)))
	opts.Loopback = true
	return opts
}

// receiveOrSkip skips the test when the host drops multicast traffic.
func receiveOrSkip(t *testing.T, c *Conn) []byte {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b, err := c.Receive(ctx)
	if err == context.DeadlineExceeded {
		t.Skip("multicast loopback not delivered on this host")
	}
	require.Nil(t, err)
	return b
}

func TestMulticast(t *testing.T) {
	expected := []byte("This is a broadcast")

	t.Run("peer", func(t *testing.T) {
		require := require.New(t)
		opts := multicastOptions(t)
		peer, err := Peer(opts)
		if err != nil {
			t.Skipf("no multicast route: %v", err)
		}
		defer peer.Close()
		require.Equal(opts.Group, peer.RemoteAddr().String())

		if err := peer.Send(expected); err != nil {
			t.Skipf("no multicast route: %v", err)
		}
		require.Equal(expected, receiveOrSkip(t, peer))
	})

	t.Run("server and client", func(t *testing.T) {
		require := require.New(t)
		opts := multicastOptions(t)
		server, err := Server("0.0.0.0:0", opts)
		require.Nil(err)
		defer server.Close()
		serverAddr := net.JoinHostPort("127.0.0.1", strconv.Itoa(server.LocalAddr().Port))

		client, err := Client(serverAddr, opts)
		if err != nil {
			t.Skipf("no multicast route: %v", err)
		}
		defer client.Close()
		require.Equal(serverAddr, client.RemoteAddr().String())

		// Client to server is plain unicast
		require.Nil(client.Send(expected))
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		b, err := server.Receive(ctx)
		require.Nil(err)
		require.Equal(expected, b)

		// Server to client goes through the group
		if err := server.Send(expected); err != nil {
			t.Skipf("no multicast route: %v", err)
		}
		require.Equal(expected, receiveOrSkip(t, client))
	})
}
