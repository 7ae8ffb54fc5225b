package netem

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var ErrNetemClosed = errors.New("netem closed")

// Socket is the datagram endpoint being impaired.
type Socket interface {
	Send(b []byte) error
	Available() int
	Receive(ctx context.Context) ([]byte, error)
}

type Config struct {
	// Datagrams are split into fragments of this size before sending.
	// Zero value means no emulation of fragmentation.
	FragmentSize int
	// Fragment at every nth would be discarded to emulate packet loss.
	// Zero value means no emulation of packet loss.
	LossNth int
	// Fragment at every nth would be sent twice to emulate packet duplication.
	// Zero value means no emulation of packet duplication.
	DuplicateNth int
	// Fragment at every nth would be held back and sent after the next one
	// to emulate packet reordering. A held fragment waits for the next Send
	// or Flush.
	// Zero value means no emulation of packet reordering.
	ReorderNth int
}

// Netem impairs the datagrams sent through a Socket. Receiving is passed
// through untouched.
type Netem struct {
	Socket

	fragmentSize uint32
	lossNth      uint32
	duplicateNth uint32
	reorderNth   uint32

	counter uint32
	// Fragment held back for reordering
	held []byte

	mu     sync.Mutex
	closed atomic.Bool
}

func New(sock Socket, cfg Config) *Netem {
	ne := &Netem{Socket: sock}
	ne.Update(cfg)
	return ne
}

// Update the config for network emulation.
// Takes effect on the next send. A fragment held back for reordering is
// discarded.
func (ne *Netem) Update(cfg Config) {
	ne.mu.Lock()
	ne.held = nil
	ne.mu.Unlock()
	atomic.StoreUint32(&ne.fragmentSize, uint32(cfg.FragmentSize))
	atomic.StoreUint32(&ne.lossNth, uint32(cfg.LossNth))
	atomic.StoreUint32(&ne.duplicateNth, uint32(cfg.DuplicateNth))
	atomic.StoreUint32(&ne.reorderNth, uint32(cfg.ReorderNth))
	atomic.StoreUint32(&ne.counter, 0)
}

func (ne *Netem) Reset() {
	ne.Update(Config{})
}

func (ne *Netem) Send(b []byte) error {
	if ne.closed.Load() {
		return ErrNetemClosed
	}
	ne.mu.Lock()
	defer ne.mu.Unlock()
	fs := int(atomic.LoadUint32(&ne.fragmentSize))
	if fs <= 0 || fs > len(b) {
		fs = len(b)
	}
	for len(b) > 0 {
		if fs > len(b) {
			fs = len(b)
		}
		if err := ne.sendFragment(b[:fs]); err != nil {
			return err
		}
		b = b[fs:]
	}
	return nil
}

// Flush sends the fragment held back for reordering, if any.
func (ne *Netem) Flush() error {
	ne.mu.Lock()
	defer ne.mu.Unlock()
	if ne.held == nil {
		return nil
	}
	held := ne.held
	ne.held = nil
	return ne.Socket.Send(held)
}

func (ne *Netem) Close() error {
	if ne.closed.Swap(true) {
		return ErrNetemClosed
	}
	return nil
}

func (ne *Netem) sendFragment(b []byte) error {
	c := atomic.AddUint32(&ne.counter, 1)
	l := atomic.LoadUint32(&ne.lossNth)
	d := atomic.LoadUint32(&ne.duplicateNth)
	r := atomic.LoadUint32(&ne.reorderNth)

	logFields := logrus.Fields{
		"op":      "send",
		"counter": c,
		"size":    len(b),
	}

	if l > 0 && c%l == 0 {
		log.WithFields(logFields).Debug("Simulating packet loss")
		return nil
	}
	if r > 0 && c%r == 0 && ne.held == nil {
		log.WithFields(logFields).Debug("Simulating packet reordering")
		ne.held = append([]byte(nil), b...)
		return nil
	}

	if err := ne.Socket.Send(b); err != nil {
		return err
	}
	if d > 0 && c%d == 0 {
		log.WithFields(logFields).Debug("Simulating packet duplication")
		if err := ne.Socket.Send(b); err != nil {
			return err
		}
	}

	// Release the held fragment after the one that overtook it
	if ne.held != nil {
		held := ne.held
		ne.held = nil
		return ne.Socket.Send(held)
	}
	return nil
}
