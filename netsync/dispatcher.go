package netsync

import (
	"datagram-sync/netsync/protocol"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var ErrUnsupported = errors.New("object does not support message type")

// PropertySetter receives Property messages.
type PropertySetter interface {
	SetReplicatedProperty(name string, value Value) error
}

// DataReceiver receives Data messages.
type DataReceiver interface {
	ReceiveData(key string, value Value) error
}

// TransformEncoder produces the payload of a Transform message.
type TransformEncoder interface {
	EncodeToBytes() ([]byte, error)
}

// TransformDecoder applies the payload of a Transform message.
type TransformDecoder interface {
	DecodeFromBytes(b []byte) error
}

// TransformCodec is implemented by objects that both send and receive
// Transform messages in their own binary format.
type TransformCodec interface {
	TransformEncoder
	TransformDecoder
}

// Dispatcher applies decoded payloads to the objects they target.
//
// Payloads are applied in arrival order. Sequence numbers are not consulted,
// so a late Full snapshot overwrites any newer Property update.
type Dispatcher struct {
	registry   Registry
	serializer Serializer
	metrics    *Metrics
	logger     logrus.FieldLogger
}

func NewDispatcher(registry Registry, serializer Serializer, metrics *Metrics, logger logrus.FieldLogger) *Dispatcher {
	if logger == nil {
		logger = log
	}
	return &Dispatcher{
		registry:   registry,
		serializer: serializer,
		metrics:    metrics,
		logger:     logger,
	}
}

// Dispatch routes payload to the object registered under id. Unknown
// objects are dropped without error.
func (d *Dispatcher) Dispatch(id ObjectID, t protocol.MessageType, payload []byte) error {
	obj, ok := d.registry.Resolve(id)
	if !ok {
		d.logger.WithField("id", id).Debug("Dropping payload for unknown object")
		d.metrics.dropped(t)
		return nil
	}

	var err error
	switch t {
	case protocol.TypeFull:
		err = d.serializer.Unmarshal(payload, obj)
	case protocol.TypeProperty:
		err = d.applyProperty(obj, payload)
	case protocol.TypeData:
		err = d.applyData(obj, payload)
	case protocol.TypeTransform:
		err = d.applyTransform(obj, payload)
	default:
		err = fmt.Errorf("message type %d: %w", t, ErrUnsupported)
	}
	if err != nil {
		d.metrics.dispatchFailed(t)
		return fmt.Errorf("dispatch %s to %s: %w", t, id, err)
	}
	return nil
}

func (d *Dispatcher) applyProperty(obj interface{}, payload []byte) error {
	setter, ok := obj.(PropertySetter)
	if !ok {
		return ErrUnsupported
	}
	var update PropertyUpdate
	if err := d.serializer.Unmarshal(payload, &update); err != nil {
		return err
	}
	return setter.SetReplicatedProperty(update.Name, Value{update.Value, d.serializer})
}

func (d *Dispatcher) applyData(obj interface{}, payload []byte) error {
	receiver, ok := obj.(DataReceiver)
	if !ok {
		return ErrUnsupported
	}
	var msg DataMessage
	if err := d.serializer.Unmarshal(payload, &msg); err != nil {
		return err
	}
	return receiver.ReceiveData(msg.Key, Value{msg.Value, d.serializer})
}

// Transforms own their binary format; the bytes are passed through as-is.
func (d *Dispatcher) applyTransform(obj interface{}, payload []byte) error {
	decoder, ok := obj.(TransformDecoder)
	if !ok {
		return ErrUnsupported
	}
	return decoder.DecodeFromBytes(payload)
}
