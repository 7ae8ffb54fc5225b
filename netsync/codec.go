package netsync

import (
	"datagram-sync/netsync/protocol"
	"errors"
	"fmt"
	"math"
)

var (
	ErrShortBody    = errors.New("body shorter than identifier")
	ErrNoCompressor = errors.New("compressed body without compressor")
	ErrBodyTooLarge = errors.New("body too large")
)

// EncodeBody concatenates the identifier and payload, compressing both
// together when c is not nil.
func EncodeBody(id ObjectID, payload []byte, c Compressor) []byte {
	body := make([]byte, protocol.IdentifierSize+len(payload))
	copy(body, id[:])
	copy(body[protocol.IdentifierSize:], payload)
	if c == nil {
		return body
	}
	return c.Compress(nil, body)
}

// DecodeBody splits b into identifier and payload. A compressed body is
// rejected before decompression when it would exceed maxSize bytes.
func DecodeBody(b []byte, compressed bool, c Compressor, maxSize int) (id ObjectID, payload []byte, err error) {
	if compressed {
		if c == nil {
			return id, nil, ErrNoCompressor
		}
		n, err := c.DecodedLen(b)
		if err != nil {
			return id, nil, fmt.Errorf("decompress body: %w", err)
		}
		if n > maxSize {
			return id, nil, fmt.Errorf("decompressed to %d bytes: %w", n, ErrBodyTooLarge)
		}
		if b, err = c.Decompress(nil, b); err != nil {
			return id, nil, fmt.Errorf("decompress body: %w", err)
		}
	}
	if len(b) < protocol.IdentifierSize {
		return id, nil, ErrShortBody
	}
	copy(id[:], b)
	return id, b[protocol.IdentifierSize:], nil
}

// EncodePacket frames body behind a header whose payload length is len(body).
func EncodePacket(flags uint8, seq, ack uint16, ackBits uint32, body []byte) ([]byte, error) {
	if len(body) > math.MaxInt32 {
		return nil, ErrBodyTooLarge
	}
	hdr := protocol.NewHeader(flags, seq, ack, ackBits, int32(len(body)))
	buf := make([]byte, protocol.HeaderSize+len(body))
	n := copy(buf, hdr[:])
	copy(buf[n:], body)
	return buf, nil
}
