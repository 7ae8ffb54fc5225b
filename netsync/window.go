package netsync

import (
	"datagram-sync/netsync/protocol"
	"sync"
)

// SequenceWindow generates local sequence numbers and remembers the most
// recent remote ones, oldest first, for building acknowledgments.
type SequenceWindow struct {
	local  uint16
	remote []uint16

	mu sync.Mutex
}

func NewSequenceWindow() *SequenceWindow {
	return &SequenceWindow{
		remote: make([]uint16, 0, protocol.WindowSize+1),
	}
}

func (sw *SequenceWindow) NextLocal() uint16 {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	// Wraps from MaxSequence to 0
	sw.local++
	return sw.local
}

func (sw *SequenceWindow) LocalSeq() uint16 {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.local
}

// Record remembers a received remote sequence. Only sequences newer than the
// newest entry advance the window; late or duplicate arrivals are ignored.
func (sw *SequenceWindow) Record(seq uint16) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if n := len(sw.remote); n > 0 && !protocol.SeqGreater(seq, sw.remote[n-1]) {
		return false
	}
	sw.remote = append(sw.remote, seq)
	if len(sw.remote) > protocol.WindowSize {
		copy(sw.remote, sw.remote[1:])
		sw.remote = sw.remote[:protocol.WindowSize]
	}
	return true
}

func (sw *SequenceWindow) Contains(seq uint16) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	for _, s := range sw.remote {
		if s == seq {
			return true
		}
	}
	return false
}

// BuildAck returns the newest remote sequence and a bitfield where bit n-1
// is set when sequence ack-n was also received, for n in [1, 32].
func (sw *SequenceWindow) BuildAck() (ack uint16, bits uint32) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	n := len(sw.remote)
	if n <= 0 {
		return 0, 0
	}
	ack = sw.remote[n-1]
	for i := n - 2; i >= 0; i-- {
		d := protocol.SeqDiff(ack, sw.remote[i])
		if d > protocol.AckBits {
			break
		}
		if d > 0 {
			bits |= 1 << uint(d-1)
		}
	}
	return ack, bits
}

func (sw *SequenceWindow) Len() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return len(sw.remote)
}

// Snapshot returns a copy of the remote sequences, oldest first.
func (sw *SequenceWindow) Snapshot() []uint16 {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	seqs := make([]uint16, len(sw.remote))
	copy(seqs, sw.remote)
	return seqs
}
