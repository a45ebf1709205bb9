// Package pipeline composes the checksum, compression, encryption, and
// ECC providers into the per-chunk transform: checksum -> compress ->
// encrypt -> ecc on write, and the inverse on read. Each stage is a
// discrete, independently testable step rather than one fused
// reader/writer, so a chunk can be re-verified or re-decrypted without
// re-running stages that already succeeded.
package pipeline

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"github.com/kenneth/apack/providers"
)

// Options configures the per-chunk transform for one entry.
type Options struct {
	ChunkSize         uint32
	MaxRatio          uint32
	MaxStoredChunkLen uint32 // upper bound on a chunk's on-disk stored_len, enforced before allocation
	Checksum          providers.Checksum
	Compressor        providers.Compressor // nil means store chunks uncompressed
	AEAD              providers.AEAD       // nil means no per-chunk encryption
	Key               []byte               // content-encryption key, required when AEAD != nil
}

// aad returns the additional authenticated data binding a chunk to its
// entry id and position, so chunks cannot be reordered or spliced
// across entries without the AEAD tag failing to verify.
func aad(entryID uint64, chunkIndex uint32) []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint64(buf[0:8], entryID)
	binary.LittleEndian.PutUint32(buf[8:12], chunkIndex)
	return buf
}

// EncodeChunk runs one chunk of plaintext through checksum, compress,
// and encrypt, returning the ChunkHeader and stored bytes. ECC parity
// is computed at the entry level, not here; see EncodeEntry.
func EncodeChunk(opts Options, entryID uint64, index uint32, plaintext []byte) (*apack.ChunkHeader, []byte, error) {
	checksum := opts.Checksum.Sum(plaintext)

	stored := plaintext
	uncompressed := true
	if opts.Compressor != nil && len(plaintext) > 0 {
		var buf bytes.Buffer
		if err := opts.Compressor.Compress(&buf, plaintext); err != nil {
			return nil, nil, err
		}
		if buf.Len() < len(plaintext) {
			stored = buf.Bytes()
			uncompressed = false
		}
	}

	if opts.AEAD != nil {
		sealed, err := opts.AEAD.Seal(opts.Key, nil, stored, aad(entryID, index))
		if err != nil {
			return nil, nil, err
		}
		stored = sealed
	}

	header := &apack.ChunkHeader{
		Index:        index,
		StoredLen:    uint32(len(stored)),
		OriginalLen:  uint32(len(plaintext)),
		Checksum:     checksum,
		Uncompressed: uncompressed,
	}
	return header, stored, nil
}

// DecodeChunk runs stored chunk bytes back through decrypt, decompress,
// and checksum verification, in that order (the inverse of EncodeChunk).
func DecodeChunk(opts Options, entryID uint64, header *apack.ChunkHeader, stored []byte) ([]byte, error) {
	data := stored
	if opts.AEAD != nil {
		opened, err := opts.AEAD.Open(opts.Key, nil, data, aad(entryID, header.Index))
		if err != nil {
			return nil, err
		}
		data = opened
	}

	if !header.Uncompressed && opts.Compressor != nil {
		var buf bytes.Buffer
		if err := opts.Compressor.Decompress(&buf, data); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	}

	if uint32(len(data)) != header.OriginalLen {
		return nil, apackerr.New(apackerr.KindIntegrity, "decode-chunk", fmt.Errorf("decoded length %d does not match header original_len %d", len(data), header.OriginalLen))
	}
	if opts.Checksum.Sum(data) != header.Checksum {
		return nil, apackerr.New(apackerr.KindIntegrity, "decode-chunk", fmt.Errorf("checksum mismatch on chunk %d", header.Index))
	}
	return data, nil
}
