// Package providers defines the pluggable-algorithm contracts the
// pipeline composes: Checksum, Compression, AEAD, and KDF. Each
// sub-package implements one closed apack.*ID enumeration; there is no global
// registry — a Bundle is built explicitly by the caller.
package providers

import (
	"context"
	"io"

	"github.com/kenneth/apack"
)

// Checksum computes a fixed-width digest over a byte slice, folded to a
// uint64 so it fits the FileHeader, EntryHeader, ChunkHeader and Trailer checksum fields
// uniformly regardless of the underlying algorithm's native width.
type Checksum interface {
	ID() apack.ChecksumID
	Sum(data []byte) uint64
}

// Compressor implements one entry in the CompressionID enumeration.
// Compress and Decompress operate on whole in-memory chunks: the
// pipeline already bounds chunk size, so streaming compression inside a
// single chunk buys nothing and costs an extra layer of readers.
type Compressor interface {
	ID() apack.CompressionID
	Compress(dst io.Writer, src []byte) error
	Decompress(dst io.Writer, src []byte) error
}

// AEAD implements one entry in the EncryptionID enumeration. aad binds
// ciphertext to its position in the archive (entry id and chunk index),
// preventing chunk reordering or splicing across entries. Seal generates
// a fresh random nonce from a CSPRNG on every call and prepends it to
// the returned bytes (nonce || ciphertext || tag), so the sealed output
// is self-contained and Open never needs a nonce passed in separately.
type AEAD interface {
	ID() apack.EncryptionID
	KeySize() int
	NonceSize() int
	Seal(key, dst, plaintext, aad []byte) ([]byte, error)
	Open(key, dst, ciphertext, aad []byte) ([]byte, error)
}

// KDF implements one entry in the KDFID enumeration, deriving a
// fixed-length key-encryption key from a password and salt.
type KDF interface {
	ID() apack.KDFID
	Derive(ctx context.Context, password, salt []byte, keyLen int) ([]byte, error)
}

// Bundle is the explicit set of providers a Writer or Reader was built
// with. There is no implicit fallback: an archive encoded with a
// provider absent from the Bundle fails closed with KindConfiguration.
type Bundle struct {
	Checksums    map[apack.ChecksumID]Checksum
	Compressors  map[apack.CompressionID]Compressor
	AEADs        map[apack.EncryptionID]AEAD
	KDFs         map[apack.KDFID]KDF
}

// NewBundle builds an empty Bundle ready for With* registration.
func NewBundle() *Bundle {
	return &Bundle{
		Checksums:   make(map[apack.ChecksumID]Checksum),
		Compressors: make(map[apack.CompressionID]Compressor),
		AEADs:       make(map[apack.EncryptionID]AEAD),
		KDFs:        make(map[apack.KDFID]KDF),
	}
}

func (b *Bundle) WithChecksum(c Checksum) *Bundle {
	b.Checksums[c.ID()] = c
	return b
}

func (b *Bundle) WithCompressor(c Compressor) *Bundle {
	b.Compressors[c.ID()] = c
	return b
}

func (b *Bundle) WithAEAD(a AEAD) *Bundle {
	b.AEADs[a.ID()] = a
	return b
}

func (b *Bundle) WithKDF(k KDF) *Bundle {
	b.KDFs[k.ID()] = k
	return b
}

// Checksum looks up the registered Checksum provider for id.
func (b *Bundle) Checksum(id apack.ChecksumID) (Checksum, error) {
	c, ok := b.Checksums[id]
	if !ok {
		return nil, unknownChecksum(id)
	}
	return c, nil
}

// ChecksumFunc adapts a registered Checksum to apack.ChecksumFunc for
// use by the format-primitive Encode/Decode methods.
func (b *Bundle) ChecksumFunc(id apack.ChecksumID) (apack.ChecksumFunc, error) {
	c, err := b.Checksum(id)
	if err != nil {
		return nil, err
	}
	return c.Sum, nil
}

func (b *Bundle) Compressor(id apack.CompressionID) (Compressor, error) {
	c, ok := b.Compressors[id]
	if !ok {
		return nil, unknownCompressor(id)
	}
	return c, nil
}

func (b *Bundle) AEAD(id apack.EncryptionID) (AEAD, error) {
	a, ok := b.AEADs[id]
	if !ok {
		return nil, unknownAEAD(id)
	}
	return a, nil
}

func (b *Bundle) KDF(id apack.KDFID) (KDF, error) {
	k, ok := b.KDFs[id]
	if !ok {
		return nil, unknownKDF(id)
	}
	return k, nil
}
