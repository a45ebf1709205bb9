package apack

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kenneth/apack/apackerr"
)

// ChunkHeader is the fixed 24-byte record preceding every chunk's stored
// bytes: index(4) | stored_len(4) | original_len(4) | checksum(8) |
// flags(2) | reserved(2).
type ChunkHeader struct {
	Index        uint32
	StoredLen    uint32
	OriginalLen  uint32
	Checksum     uint64
	ECCParity    bool
	Uncompressed bool
}

func (c *ChunkHeader) flags() uint16 {
	var f uint16
	if c.ECCParity {
		f |= ChunkFlagECCParity
	}
	if c.Uncompressed {
		f |= ChunkFlagUncompressed
	}
	return f
}

// Encode serializes the ChunkHeader to exactly ChunkHeaderSize bytes.
func (c *ChunkHeader) Encode() []byte {
	buf := make([]byte, ChunkHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], c.Index)
	binary.LittleEndian.PutUint32(buf[4:8], c.StoredLen)
	binary.LittleEndian.PutUint32(buf[8:12], c.OriginalLen)
	binary.LittleEndian.PutUint64(buf[12:20], c.Checksum)
	binary.LittleEndian.PutUint16(buf[20:22], c.flags())
	// buf[22:24] reserved
	return buf
}

// DecodeChunkHeader parses a ChunkHeader. maxChunkSize and ratio bound
// OriginalLen, and maxStoredLen bounds StoredLen, all before any
// allocation is made downstream — enforcing the decompression-bomb
// guard at the framing layer itself, on both length fields a corrupted
// or adversarial header could inflate.
func DecodeChunkHeader(r io.Reader, maxChunkSize uint32, maxRatio uint32, maxStoredLen uint32) (*ChunkHeader, error) {
	buf := make([]byte, ChunkHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-chunk-header", err)
	}
	c := &ChunkHeader{
		Index:       binary.LittleEndian.Uint32(buf[0:4]),
		StoredLen:   binary.LittleEndian.Uint32(buf[4:8]),
		OriginalLen: binary.LittleEndian.Uint32(buf[8:12]),
		Checksum:    binary.LittleEndian.Uint64(buf[12:20]),
	}
	flags := binary.LittleEndian.Uint16(buf[20:22])
	c.ECCParity = flags&ChunkFlagECCParity != 0
	c.Uncompressed = flags&ChunkFlagUncompressed != 0

	if c.StoredLen > maxStoredLen {
		return nil, apackerr.New(apackerr.KindBomb, "decode-chunk-header",
			fmt.Errorf("stored_len %d exceeds configured maximum %d", c.StoredLen, maxStoredLen))
	}

	limit := uint64(maxChunkSize) * uint64(maxRatio)
	if uint64(c.OriginalLen) > limit {
		return nil, apackerr.New(apackerr.KindBomb, "decode-chunk-header",
			fmt.Errorf("original_len %d exceeds limit %d (chunk_size=%d ratio=%d)", c.OriginalLen, limit, maxChunkSize, maxRatio))
	}
	if c.OriginalLen > maxChunkSize {
		return nil, apackerr.New(apackerr.KindFormat, "decode-chunk-header",
			fmt.Errorf("original_len %d exceeds configured chunk size %d", c.OriginalLen, maxChunkSize))
	}
	return c, nil
}
