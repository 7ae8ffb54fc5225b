package netsync

import "context"

// Socket is the role-specific datagram endpoint a Manager writes to and
// reads from.
type Socket interface {
	Send(b []byte) error
	// Available returns the number of datagrams that can be received
	// without blocking.
	Available() int
	Receive(ctx context.Context) ([]byte, error)
}

type Role uint8

const (
	RoleServer Role = iota + 1
	RoleClient
	RolePeer
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	case RolePeer:
		return "peer"
	default:
		return "unknown"
	}
}

func ParseRole(s string) (Role, bool) {
	for _, r := range []Role{RoleServer, RoleClient, RolePeer} {
		if r.String() == s {
			return r, true
		}
	}
	return 0, false
}
