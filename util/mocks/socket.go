package mocks

import (
	"context"
	"io"
	"sync"
)

const defaultBacklog = 512

// Socket is an in-memory datagram endpoint. Datagrams sent on one end of a
// pair are received on the other; a full backlog drops them like UDP would.
type Socket struct {
	in   chan []byte
	peer *Socket

	die       chan struct{}
	closeOnce sync.Once
}

func Pair() (*Socket, *Socket) {
	return PairSize(defaultBacklog)
}

func PairSize(backlog int) (*Socket, *Socket) {
	s1 := newSocket(backlog)
	s2 := newSocket(backlog)
	s1.peer = s2
	s2.peer = s1
	return s1, s2
}

func newSocket(backlog int) *Socket {
	return &Socket{
		in:  make(chan []byte, backlog),
		die: make(chan struct{}),
	}
}

func (s *Socket) Send(b []byte) error {
	select {
	case <-s.die:
		return io.ErrClosedPipe
	default:
	}
	data := make([]byte, len(b))
	copy(data, b)
	select {
	case s.peer.in <- data:
	default:
	}
	return nil
}

func (s *Socket) Available() int {
	return len(s.in)
}

func (s *Socket) Receive(ctx context.Context) ([]byte, error) {
	select {
	case b := <-s.in:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.die:
		return nil, io.ErrClosedPipe
	}
}

func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		close(s.die)
	})
	return nil
}
