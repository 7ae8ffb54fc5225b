package netsync

import (
	"datagram-sync/netsync/protocol"
	"sync"
)

type outgoing struct {
	seq  uint16
	typ  protocol.MessageType
	data []byte
}

// sendQueue is a FIFO of framed packets, filled by broadcast workers and
// emptied once per tick.
type sendQueue struct {
	items []outgoing
	mu    sync.Mutex
}

func (q *sendQueue) push(o outgoing) {
	q.mu.Lock()
	q.items = append(q.items, o)
	q.mu.Unlock()
}

// drain removes and returns everything queued so far.
func (q *sendQueue) drain() []outgoing {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
