// Package compressx provides the reversible byte-stream transform applied
// to payloads above the configured size threshold. It uses zstd with pooled
// encoders/decoders so concurrent store/retrieve operations do not allocate
// a coder per call.
package compressx

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

var encoderPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	},
}

var decoderPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

// Compress returns the zstd-compressed form of data.
func Compress(data []byte) []byte {
	enc := encoderPool.Get().(*zstd.Encoder)
	defer encoderPool.Put(enc)
	return enc.EncodeAll(data, nil)
}

// Decompress reverses Compress. It returns an error when data is not a
// valid zstd stream.
func Decompress(data []byte) ([]byte, error) {
	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)
	return dec.DecodeAll(data, nil)
}
