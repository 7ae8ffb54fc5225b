package transport

import (
	"context"
	"datagram-sync/netsync"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

var ErrClosed = errors.New("transport closed")

// Conn is a UDP socket that queues received datagrams until they are
// consumed and sends every datagram to a single destination.
type Conn struct {
	conn  *net.UDPConn
	raddr *net.UDPAddr

	readCh  chan []byte
	readErr atomic.Value
	dropped uint64

	logger logrus.FieldLogger

	wg  sync.WaitGroup
	die chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
}

var _ netsync.Socket = (*Conn)(nil)

// Server receives unicast datagrams on laddr and broadcasts to the group.
func Server(laddr string, opts Options) (*Conn, error) {
	opts = sanitizeOptions(opts)
	addr, err := net.ResolveUDPAddr("udp4", laddr)
	if err != nil {
		return nil, err
	}
	group, err := net.ResolveUDPAddr("udp4", opts.Group)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, err
	}
	if err := configureMulticast(conn, opts, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return NewConn(conn, group, opts), nil
}

// Client receives the group broadcast and sends unicast to server.
func Client(server string, opts Options) (*Conn, error) {
	opts = sanitizeOptions(opts)
	raddr, err := net.ResolveUDPAddr("udp4", server)
	if err != nil {
		return nil, err
	}
	return joinGroup(opts, raddr)
}

// Peer receives from and sends to the group.
func Peer(opts Options) (*Conn, error) {
	return joinGroup(sanitizeOptions(opts), nil)
}

func joinGroup(opts Options, raddr *net.UDPAddr) (*Conn, error) {
	group, err := net.ResolveUDPAddr("udp4", opts.Group)
	if err != nil {
		return nil, err
	}
	if raddr == nil {
		raddr = group
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: group.Port})
	if err != nil {
		return nil, err
	}
	if err := configureMulticast(conn, opts, group); err != nil {
		conn.Close()
		return nil, err
	}
	return NewConn(conn, raddr, opts), nil
}

func configureMulticast(conn *net.UDPConn, opts Options, group *net.UDPAddr) error {
	var ifi *net.Interface
	if opts.Interface != "" {
		var err error
		if ifi, err = net.InterfaceByName(opts.Interface); err != nil {
			return err
		}
	}
	pc := ipv4.NewPacketConn(conn)
	if group != nil {
		if err := pc.JoinGroup(ifi, &net.UDPAddr{IP: group.IP}); err != nil {
			return fmt.Errorf("join group %s: %w", group, err)
		}
	}
	if ifi != nil {
		if err := pc.SetMulticastInterface(ifi); err != nil {
			return err
		}
	}
	if err := pc.SetMulticastTTL(opts.TTL); err != nil {
		return err
	}
	return pc.SetMulticastLoopback(opts.Loopback)
}

// NewConn takes ownership of conn and sends every datagram to raddr.
func NewConn(conn *net.UDPConn, raddr *net.UDPAddr, opts Options) *Conn {
	opts = sanitizeOptions(opts)
	c := &Conn{
		conn:   conn,
		raddr:  raddr,
		readCh: make(chan []byte, opts.ReadBacklog),
		logger: opts.Logger.WithFields(logrus.Fields{
			"laddr": conn.LocalAddr(),
			"raddr": raddr,
		}),
		die: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.readRoutine(opts.ReadBufferSize)
	return c
}

func (c *Conn) LocalAddr() *net.UDPAddr {
	return c.conn.LocalAddr().(*net.UDPAddr)
}

func (c *Conn) RemoteAddr() *net.UDPAddr {
	return c.raddr
}

func (c *Conn) Send(b []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	_, err := c.conn.WriteToUDP(b, c.raddr)
	return err
}

func (c *Conn) Available() int {
	return len(c.readCh)
}

func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case b := <-c.readCh:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.die:
		if err := c.getReadError(); err != nil {
			return nil, err
		}
		return nil, ErrClosed
	}
}

// Dropped returns the number of datagrams discarded on a full backlog.
func (c *Conn) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}

func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return ErrClosed
	}
	c.closeOnce.Do(func() {
		close(c.die)
	})
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

func (c *Conn) readRoutine(size int) {
	defer c.wg.Done()
	buf := make([]byte, size)
	for {
		n, raddr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			c.handleReadError(err)
			return
		}
		data := make([]byte, n)
		copy(data, buf)
		select {
		case c.readCh <- data:
		default:
			atomic.AddUint64(&c.dropped, 1)
			c.logger.WithField("from", raddr).Debug("Read backlog full, dropping datagram")
		}
	}
}

func (c *Conn) handleReadError(err error) {
	if c.closed.Load() {
		return
	}
	c.logger.WithError(err).Error("Read failed")
	c.readErr.Store(err)
	c.closeOnce.Do(func() {
		close(c.die)
	})
}

func (c *Conn) getReadError() error {
	if err, ok := c.readErr.Load().(error); ok {
		return err
	}
	return nil
}
