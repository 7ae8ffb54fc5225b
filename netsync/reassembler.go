package netsync

import (
	"datagram-sync/netsync/protocol"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrBufferOverflow    = errors.New("receive buffer overflow")
	ErrNegativeAvailable = errors.New("negative available length")
)

// PacketHandler is called for every packet whose body decoded successfully.
type PacketHandler func(hdr protocol.Header, id ObjectID, payload []byte)

// Reassembler turns socket reads into packets. Reads may split a packet at
// any byte and may carry several packets; noise between packets is skipped
// one byte at a time until the protocol marker is found.
//
// A Reassembler is not safe for concurrent use.
type Reassembler struct {
	buf       []byte
	readOff   int
	available int

	// Header whose payload has not fully arrived yet
	pending *protocol.Header

	maxBufferSize  int
	maxPayloadSize int

	compressor Compressor
	window     *SequenceWindow
	rtt        *RTTTable
	handler    PacketHandler
	metrics    *Metrics
	logger     logrus.FieldLogger

	now func() time.Time
}

func NewReassembler(cfg Config, window *SequenceWindow, rtt *RTTTable, handler PacketHandler) *Reassembler {
	cfg = sanitizeConfig(cfg)
	r := &Reassembler{
		buf:            make([]byte, cfg.InitialBufferSize),
		maxBufferSize:  cfg.MaxBufferSize,
		maxPayloadSize: cfg.MaxPayloadSize,
		compressor:     cfg.Compressor,
		window:         window,
		rtt:            rtt,
		handler:        handler,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		now:            time.Now,
	}
	r.metrics.buffer(len(r.buf))
	return r
}

// Feed appends b to the buffer and processes every complete packet.
func (r *Reassembler) Feed(b []byte) error {
	if err := r.write(b); err != nil {
		return err
	}
	r.metrics.received(len(b))
	r.process()
	return nil
}

// Buffered returns the number of bytes not yet consumed.
func (r *Reassembler) Buffered() int {
	return r.available
}

// Pending reports whether a header is waiting for the rest of its payload.
func (r *Reassembler) Pending() bool {
	return r.pending != nil
}

func (r *Reassembler) Cap() int {
	return len(r.buf)
}

func (r *Reassembler) write(b []byte) error {
	end := r.readOff + r.available
	if end+len(b) > len(r.buf) && r.readOff > 0 {
		// Move unread bytes to the front before growing
		copy(r.buf, r.buf[r.readOff:end])
		r.readOff = 0
		end = r.available
	}
	if need := end + len(b); need > len(r.buf) {
		if need > r.maxBufferSize {
			r.logger.WithFields(logrus.Fields{
				"buffered": r.available,
				"incoming": len(b),
				"max":      r.maxBufferSize,
			}).Warn("Receive buffer overflow, discarding buffered data")
			r.reset()
			return ErrBufferOverflow
		}
		size := len(r.buf)
		for size < need {
			size *= 2
		}
		if size > r.maxBufferSize {
			size = r.maxBufferSize
		}
		buf := make([]byte, size)
		copy(buf, r.buf[:end])
		r.buf = buf
		r.metrics.buffer(size)
	}
	copy(r.buf[end:], b)
	r.available += len(b)
	return nil
}

func (r *Reassembler) process() {
	skipped := 0
	for r.enoughDataLeft() {
		if r.pending != nil {
			hdr := *r.pending
			r.pending = nil
			r.consume(hdr)
			continue
		}
		data := r.buf[r.readOff : r.readOff+r.available]
		if !protocol.HasMarker(data) {
			r.advance(1)
			skipped++
			continue
		}
		hdr, err := protocol.ParseHeader(data)
		if err != nil || !r.validHeader(hdr) {
			r.advance(1)
			skipped++
			continue
		}
		r.advance(protocol.HeaderSize)
		r.acknowledge(hdr)
		if r.available < int(hdr.PayloadLen()) {
			r.pending = &hdr
			break
		}
		r.consume(hdr)
	}
	if r.available == 0 {
		r.readOff = 0
	}
	if skipped > 0 {
		r.logger.WithField("bytes", skipped).Debug("Skipped bytes while resynchronizing")
		r.metrics.resync(skipped)
	}
}

func (r *Reassembler) enoughDataLeft() bool {
	if r.pending != nil {
		return r.available >= int(r.pending.PayloadLen())
	}
	return r.available >= protocol.HeaderSize
}

func (r *Reassembler) validHeader(hdr protocol.Header) bool {
	n := int(hdr.PayloadLen())
	if n < 0 || n > r.maxPayloadSize {
		return false
	}
	if !hdr.Compressed() && n < protocol.IdentifierSize {
		return false
	}
	return true
}

func (r *Reassembler) acknowledge(hdr protocol.Header) {
	r.window.Record(hdr.Seq())
	bits := hdr.AckBits()
	if bits == 0 {
		return
	}
	now := r.now()
	ack := hdr.Ack()
	for i := 0; i < protocol.AckBits; i++ {
		if bits&(1<<uint(i)) == 0 {
			continue
		}
		r.rtt.Acknowledge(ack-uint16(i)-1, now)
	}
	r.metrics.rtt(r.rtt.Seconds())
}

func (r *Reassembler) consume(hdr protocol.Header) {
	n := int(hdr.PayloadLen())
	body := make([]byte, n)
	copy(body, r.buf[r.readOff:r.readOff+n])
	r.advance(n)

	id, payload, err := DecodeBody(body, hdr.Compressed(), r.compressor, r.maxPayloadSize)
	if err != nil {
		r.logger.WithError(err).WithField("seq", hdr.Seq()).Warn("Failed to decode packet body")
		r.metrics.decodeFailed()
		return
	}
	r.metrics.decoded(hdr.Type())
	if r.handler != nil {
		r.handler(hdr, id, payload)
	}
}

func (r *Reassembler) advance(n int) {
	r.readOff += n
	r.available -= n
	if r.available < 0 {
		panic(ErrNegativeAvailable)
	}
}

func (r *Reassembler) reset() {
	r.readOff = 0
	r.available = 0
	r.pending = nil
}
