package protocol

const (
	// 3 bytes marker + u8 Flags + u16 Seq + u16 Ack + u32 AckBits + i32 PayloadLen
	HeaderSize = 16
	MarkerSize = 3
	// uuid.UUID, always precedes the payload body
	IdentifierSize = 16
)

const (
	// Number of earlier sequences described by the ack bitfield
	AckBits = 32
	// Newest remote sequence plus the AckBits sequences before it
	WindowSize = AckBits + 1

	MaxSequence  = 65535
	HalfSequence = 32768
)

const (
	marker0 byte = 0x4E
	marker1 byte = 0x53
	marker2 byte = 0x59
)

const FlagCompressed uint8 = 1 << 0

const (
	typeShift       = 1
	typeMask  uint8 = 0x3
)

// HasMarker reports whether b starts with the protocol marker.
func HasMarker(b []byte) bool {
	if len(b) < MarkerSize {
		return false
	}
	return b[0] == marker0 && b[1] == marker1 && b[2] == marker2
}

func Flags(compressed bool, t MessageType) uint8 {
	flags := (uint8(t) & typeMask) << typeShift
	if compressed {
		flags |= FlagCompressed
	}
	return flags
}
