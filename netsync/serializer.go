package netsync

import "github.com/vmihailenco/msgpack/v5"

type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(b []byte, v interface{}) error
}

type MsgpackSerializer struct{}

var _ Serializer = MsgpackSerializer{}

func (MsgpackSerializer) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackSerializer) Unmarshal(b []byte, v interface{}) error {
	return msgpack.Unmarshal(b, v)
}

// PropertyUpdate is the payload of a Property message.
type PropertyUpdate struct {
	Name  string             `msgpack:"name"`
	Value msgpack.RawMessage `msgpack:"value"`
}

// DataMessage is the payload of a Data message.
type DataMessage struct {
	Key   string             `msgpack:"key"`
	Value msgpack.RawMessage `msgpack:"value"`
}

// Value is a serialized value carried by a Property or Data message,
// decoded on demand by the receiving object.
type Value struct {
	raw        []byte
	serializer Serializer
}

func (v Value) Decode(out interface{}) error {
	return v.serializer.Unmarshal(v.raw, out)
}

func (v Value) Raw() []byte {
	return v.raw
}
