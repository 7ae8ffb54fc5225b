package shared

import (
	"datagram-sync/netsync"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// CrateID is shared by every node of the demo.
var CrateID = uuid.MustParse("5d1c7f36-8a41-4c1e-9a0d-2f6b3c9e7a10")

var errShortTransform = errors.New("transform shorter than 8 bytes")

// Transform is the position of a Crate on the wire, two little-endian floats.
type Transform struct {
	X, Y float32
}

func (t Transform) EncodeToBytes() ([]byte, error) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, math.Float32bits(t.X))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(t.Y))
	return b, nil
}

// CrateState is the serialized form of a Crate.
type CrateState struct {
	Name   string  `msgpack:"name"`
	Health int     `msgpack:"health"`
	X      float32 `msgpack:"x"`
	Y      float32 `msgpack:"y"`
}

// Crate is the replicated demo object. Full snapshots go through
// EncodeMsgpack and DecodeMsgpack so they observe the lock.
type Crate struct {
	state   CrateState
	lastMsg string

	mu sync.Mutex
}

var (
	_ netsync.PropertySetter   = (*Crate)(nil)
	_ netsync.DataReceiver     = (*Crate)(nil)
	_ netsync.TransformDecoder = (*Crate)(nil)
	_ msgpack.CustomEncoder    = (*Crate)(nil)
	_ msgpack.CustomDecoder    = (*Crate)(nil)
)

func NewCrate(name string, health int) *Crate {
	return &Crate{state: CrateState{Name: name, Health: health}}
}

func (c *Crate) Move(dx, dy float32) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.X += dx
	c.state.Y += dy
	return Transform{c.state.X, c.state.Y}
}

func (c *Crate) State() CrateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastMessage returns the most recent Data message as "key: value".
func (c *Crate) LastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMsg
}

func (c *Crate) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(c.State())
}

func (c *Crate) DecodeMsgpack(dec *msgpack.Decoder) error {
	var state CrateState
	if err := dec.Decode(&state); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	return nil
}

func (c *Crate) DecodeFromBytes(b []byte) error {
	if len(b) < 8 {
		return errShortTransform
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.X = math.Float32frombits(binary.LittleEndian.Uint32(b))
	c.state.Y = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	return nil
}

func (c *Crate) SetReplicatedProperty(name string, value netsync.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case "name":
		return value.Decode(&c.state.Name)
	case "health":
		return value.Decode(&c.state.Health)
	default:
		return fmt.Errorf("crate has no property %q", name)
	}
}

func (c *Crate) ReceiveData(key string, value netsync.Value) error {
	var msg string
	if err := value.Decode(&msg); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastMsg = key + ": " + msg
	return nil
}
