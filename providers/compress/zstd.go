// Package compress implements providers.Compressor for every entry in
// the CompressionID enumeration. It has no should-compress heuristic;
// the only such check is pipeline.EncodeChunk keeping the compressed
// bytes only when they are smaller than the input.
package compress

import (
	"bytes"
	"io"
	"sync"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"github.com/klauspost/compress/zstd"
)

// Zstd wraps klauspost/compress/zstd. Encoders and decoders are pooled:
// zstd's own docs recommend reusing them across calls to amortize the
// dictionary-table allocation.
type Zstd struct {
	level    zstd.EncoderLevel
	encoders sync.Pool
	decoders sync.Pool
}

// NewZstd builds a Zstd compressor at the given level (zstd.SpeedFastest
// through zstd.SpeedBestCompression).
func NewZstd(level zstd.EncoderLevel) *Zstd {
	z := &Zstd{level: level}
	z.encoders.New = func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.level))
		return enc
	}
	z.decoders.New = func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	}
	return z
}

func (z *Zstd) ID() apack.CompressionID { return apack.CompressionZstd }

func (z *Zstd) Compress(dst io.Writer, src []byte) error {
	enc := z.encoders.Get().(*zstd.Encoder)
	defer z.encoders.Put(enc)
	enc.Reset(dst)
	if _, err := enc.Write(src); err != nil {
		return apackerr.New(apackerr.KindIO, "zstd-compress", err)
	}
	if err := enc.Close(); err != nil {
		return apackerr.New(apackerr.KindIO, "zstd-compress", err)
	}
	return nil
}

func (z *Zstd) Decompress(dst io.Writer, src []byte) error {
	dec := z.decoders.Get().(*zstd.Decoder)
	defer z.decoders.Put(dec)
	if err := dec.Reset(bytes.NewReader(src)); err != nil {
		return apackerr.New(apackerr.KindIntegrity, "zstd-decompress", err)
	}
	if _, err := io.Copy(dst, dec); err != nil {
		return apackerr.New(apackerr.KindIntegrity, "zstd-decompress", err)
	}
	return nil
}
