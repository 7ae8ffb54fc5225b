package netsync

import "github.com/klauspost/compress/s2"

type Compressor interface {
	// Compress returns the compressed form of src, reusing dst when it is
	// large enough.
	Compress(dst, src []byte) []byte
	// DecodedLen returns the length src will decompress to without
	// decompressing it.
	DecodedLen(src []byte) (int, error)
	Decompress(dst, src []byte) ([]byte, error)
}

// S2Compressor uses the S2 block format, which carries the decoded length
// so the wire header only needs the compressed length.
type S2Compressor struct{}

var _ Compressor = S2Compressor{}

func (S2Compressor) Compress(dst, src []byte) []byte {
	return s2.Encode(dst, src)
}

func (S2Compressor) DecodedLen(src []byte) (int, error) {
	return s2.DecodedLen(src)
}

func (S2Compressor) Decompress(dst, src []byte) ([]byte, error) {
	return s2.Decode(dst, src)
}
