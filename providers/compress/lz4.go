package compress

import (
	"bytes"
	"io"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"github.com/pierrec/lz4/v4"
)

// LZ4 wraps pierrec/lz4. Chosen over zstd when an archive's profile
// favors decode speed over ratio.
type LZ4 struct{}

func (LZ4) ID() apack.CompressionID { return apack.CompressionLZ4 }

func (LZ4) Compress(dst io.Writer, src []byte) error {
	w := lz4.NewWriter(dst)
	if _, err := w.Write(src); err != nil {
		return apackerr.New(apackerr.KindIO, "lz4-compress", err)
	}
	if err := w.Close(); err != nil {
		return apackerr.New(apackerr.KindIO, "lz4-compress", err)
	}
	return nil
}

func (LZ4) Decompress(dst io.Writer, src []byte) error {
	r := lz4.NewReader(bytes.NewReader(src))
	if _, err := io.Copy(dst, r); err != nil {
		return apackerr.New(apackerr.KindIntegrity, "lz4-decompress", err)
	}
	return nil
}
