package protocol

type MessageType uint8

const (
	TypeFull      MessageType = 0
	TypeProperty  MessageType = 1
	TypeData      MessageType = 2
	TypeTransform MessageType = 3
)

func (t MessageType) Valid() bool {
	return t <= TypeTransform
}

func (t MessageType) String() string {
	switch t {
	case TypeFull:
		return "Full"
	case TypeProperty:
		return "Property"
	case TypeData:
		return "Data"
	case TypeTransform:
		return "Transform"
	default:
		return "Unknown"
	}
}
