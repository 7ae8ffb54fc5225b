package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrShortHeader = errors.New("short header")
	ErrBadMarker   = errors.New("protocol marker mismatch")
)

type Header [HeaderSize]byte

func NewHeader(flags uint8, seq, ack uint16, ackBits uint32, payloadLen int32) Header {
	var hdr Header
	hdr[0] = marker0
	hdr[1] = marker1
	hdr[2] = marker2
	hdr[3] = flags
	binary.LittleEndian.PutUint16(hdr[4:], seq)
	binary.LittleEndian.PutUint16(hdr[6:], ack)
	binary.LittleEndian.PutUint32(hdr[8:], ackBits)
	binary.LittleEndian.PutUint32(hdr[12:], uint32(payloadLen))
	return hdr
}

// ParseHeader copies the header at the start of b. The marker is verified
// before any other field is trusted.
func ParseHeader(b []byte) (hdr Header, err error) {
	if len(b) < HeaderSize {
		return hdr, ErrShortHeader
	}
	if !HasMarker(b) {
		return hdr, ErrBadMarker
	}
	copy(hdr[:], b)
	return hdr, nil
}

func (hdr Header) Flags() uint8 {
	return hdr[3]
}

func (hdr Header) Compressed() bool {
	return hdr[3]&FlagCompressed != 0
}

func (hdr Header) Type() MessageType {
	return MessageType(hdr[3] >> typeShift & typeMask)
}

func (hdr Header) Seq() uint16 {
	return binary.LittleEndian.Uint16(hdr[4:])
}

func (hdr Header) Ack() uint16 {
	return binary.LittleEndian.Uint16(hdr[6:])
}

func (hdr Header) AckBits() uint32 {
	return binary.LittleEndian.Uint32(hdr[8:])
}

func (hdr Header) PayloadLen() int32 {
	return int32(binary.LittleEndian.Uint32(hdr[12:]))
}

func (hdr Header) String() string {
	return fmt.Sprintf("Header(Type: %s, Compressed: %t, Seq: %d, Ack: %d, AckBits: %032b, PayloadLen: %d)",
		hdr.Type(), hdr.Compressed(), hdr.Seq(), hdr.Ack(), hdr.AckBits(), hdr.PayloadLen())
}
