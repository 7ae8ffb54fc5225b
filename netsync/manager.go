package netsync

import (
	"context"
	"datagram-sync/netsync/protocol"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Manager owns the protocol state of one networking role: the local and
// remote sequence numbers, the RTT table, the outgoing queue and the receive
// buffer. Tick must be called regularly to move packets in both directions.
type Manager struct {
	role   Role
	cfg    Config
	logger logrus.FieldLogger

	window      *SequenceWindow
	rtt         *RTTTable
	reassembler *Reassembler
	dispatcher  *Dispatcher

	queue   sendQueue
	workers *workerPool
	// Held from sequence assignment until the packet is queued
	sendMu sync.Mutex

	sock   Socket
	sockMu sync.RWMutex

	// Serializes reads, the reassembler is single-threaded
	readLock sync.Mutex

	closed atomic.Bool

	now func() time.Time
}

func NewManager(role Role, cfg Config) *Manager {
	cfg = sanitizeConfig(cfg)
	cfg.Logger = cfg.Logger.WithField("role", role.String())
	m := &Manager{
		role:    role,
		cfg:     cfg,
		logger:  cfg.Logger,
		window:  NewSequenceWindow(),
		rtt:     NewRTTTable(cfg.InitialRTT, cfg.RTTSmoothing),
		workers: newWorkerPool(cfg.Workers, cfg.WorkBacklog),
		now:     time.Now,
	}
	m.dispatcher = NewDispatcher(cfg.Registry, cfg.Serializer, cfg.Metrics, m.logger)
	m.reassembler = NewReassembler(cfg, m.window, m.rtt, m.handlePacket)
	return m
}

func (m *Manager) Role() Role {
	return m.role
}

func (m *Manager) Window() *SequenceWindow {
	return m.window
}

func (m *Manager) RTT() *RTTTable {
	return m.rtt
}

// Pending returns the number of framed packets waiting for the next tick.
func (m *Manager) Pending() int {
	return m.queue.len()
}

// Attach sets the socket used for sending and receiving.
func (m *Manager) Attach(sock Socket) {
	m.sockMu.Lock()
	defer m.sockMu.Unlock()
	m.sock = sock
}

func (m *Manager) Detach() {
	m.Attach(nil)
}

func (m *Manager) socket() Socket {
	m.sockMu.RLock()
	defer m.sockMu.RUnlock()
	return m.sock
}

// Send frames payload for id and queues it for the next tick. It returns
// payload itself, not the wire bytes. Without a socket it does nothing.
func (m *Manager) Send(id ObjectID, compress bool, payload []byte, t protocol.MessageType) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if m.socket() == nil {
		return payload, nil
	}
	var c Compressor
	if compress {
		c = m.cfg.Compressor
	}
	body := EncodeBody(id, payload, c)
	if len(body) > m.cfg.MaxPayloadSize {
		return nil, fmt.Errorf("%d bytes: %w", len(body), ErrBodyTooLarge)
	}

	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	seq := m.window.NextLocal()
	ack, ackBits := m.window.BuildAck()
	data, err := EncodePacket(protocol.Flags(compress, t), seq, ack, ackBits, body)
	if err != nil {
		return nil, err
	}
	m.queue.push(outgoing{seq: seq, typ: t, data: data})
	return payload, nil
}

// BroadcastFull sends a snapshot of obj. obj is serialized on a worker
// goroutine and must not be modified until the next tick.
func (m *Manager) BroadcastFull(id ObjectID, obj interface{}, compress bool) error {
	return m.broadcast(id, protocol.TypeFull, compress, func() ([]byte, error) {
		return m.cfg.Serializer.Marshal(obj)
	})
}

func (m *Manager) BroadcastProperty(id ObjectID, name string, value interface{}, compress bool) error {
	return m.broadcast(id, protocol.TypeProperty, compress, func() ([]byte, error) {
		raw, err := m.cfg.Serializer.Marshal(value)
		if err != nil {
			return nil, err
		}
		return m.cfg.Serializer.Marshal(PropertyUpdate{Name: name, Value: raw})
	})
}

func (m *Manager) BroadcastData(id ObjectID, key string, value interface{}, compress bool) error {
	return m.broadcast(id, protocol.TypeData, compress, func() ([]byte, error) {
		raw, err := m.cfg.Serializer.Marshal(value)
		if err != nil {
			return nil, err
		}
		return m.cfg.Serializer.Marshal(DataMessage{Key: key, Value: raw})
	})
}

func (m *Manager) BroadcastTransform(id ObjectID, transform TransformEncoder, compress bool) error {
	return m.broadcast(id, protocol.TypeTransform, compress, transform.EncodeToBytes)
}

func (m *Manager) broadcast(id ObjectID, t protocol.MessageType, compress bool, encode func() ([]byte, error)) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.socket() == nil {
		return nil
	}
	return m.workers.submit(func() {
		logger := m.logger.WithFields(logrus.Fields{
			"id":   id,
			"type": t,
		})
		payload, err := encode()
		if err != nil {
			logger.WithError(err).Error("Failed to serialize broadcast")
			return
		}
		if _, err := m.Send(id, compress, payload, t); err != nil {
			logger.WithError(err).Error("Failed to queue broadcast")
		}
	})
}

// Tick reads every datagram already available and writes every queued
// packet. Both directions run concurrently and Tick returns once both are
// done. Without a socket it does nothing.
func (m *Manager) Tick(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	sock := m.socket()
	if sock == nil {
		return nil
	}
	var (
		wg               sync.WaitGroup
		readErr, sendErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		readErr = m.read(ctx, sock)
	}()
	go func() {
		defer wg.Done()
		sendErr = m.drain(sock)
	}()
	wg.Wait()
	return errors.Join(readErr, sendErr)
}

func (m *Manager) read(ctx context.Context, sock Socket) error {
	m.readLock.Lock()
	defer m.readLock.Unlock()
	var firstErr error
	for n := sock.Available(); n > 0; n-- {
		b, err := sock.Receive(ctx)
		if err != nil {
			return err
		}
		if err := m.reassembler.Feed(b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) drain(sock Socket) error {
	now := m.now()
	if evicted := m.rtt.EvictStale(now, m.cfg.MaxRoundTrip); len(evicted) > 0 {
		m.logger.WithField("seqs", evicted).Debug("Packets failed to return")
		m.cfg.Metrics.evicted(len(evicted))
	}
	var firstErr error
	for _, o := range m.queue.drain() {
		m.rtt.RecordSent(o.seq, now)
		if err := sock.Send(o.data); err != nil {
			m.logger.WithError(err).WithField("seq", o.seq).Warn("Failed to send packet")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.cfg.Metrics.sent(o.typ, len(o.data))
	}
	return firstErr
}

func (m *Manager) handlePacket(hdr protocol.Header, id ObjectID, payload []byte) {
	if err := m.dispatcher.Dispatch(id, hdr.Type(), payload); err != nil {
		m.logger.WithError(err).WithField("seq", hdr.Seq()).Warn("Failed to apply payload")
	}
}

// Close stops the broadcast workers. Broadcasts not yet serialized are lost.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return ErrClosed
	}
	m.workers.close()
	m.Detach()
	return nil
}
