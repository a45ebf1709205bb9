// Package apack implements the on-disk APACK archive format: fixed
// binary headers, chunk framing, the encryption metadata block, and the
// trailer/TOC. It holds only format primitives — serialization,
// validation, and the closed algorithm-id enumerations. The writer,
// reader, and pipeline live in sibling packages.
package apack

// Magic is the fixed 5-byte file signature at offset 0 of every APACK
// archive.
var Magic = [5]byte{'A', 'P', 'A', 'C', 'K'}

// CompressionID is the closed, on-disk enumeration of compression
// algorithms.
type CompressionID uint8

const (
	CompressionNone CompressionID = 0
	CompressionZstd CompressionID = 1
	CompressionLZ4  CompressionID = 2
)

func (c CompressionID) Valid() bool {
	return c == CompressionNone || c == CompressionZstd || c == CompressionLZ4
}

// EncryptionID is the closed, on-disk enumeration of AEAD ciphers.
type EncryptionID uint8

const (
	EncryptionNone           EncryptionID = 0
	EncryptionAES256GCM      EncryptionID = 1
	EncryptionChaCha20Poly1305 EncryptionID = 2
)

func (e EncryptionID) Valid() bool {
	return e == EncryptionNone || e == EncryptionAES256GCM || e == EncryptionChaCha20Poly1305
}

// KDFID is the closed, on-disk enumeration of key-derivation functions.
type KDFID uint8

const (
	KDFArgon2id     KDFID = 1
	KDFPBKDF2SHA256 KDFID = 2
)

func (k KDFID) Valid() bool {
	return k == KDFArgon2id || k == KDFPBKDF2SHA256
}

// ChecksumID is the closed, on-disk enumeration of checksum algorithms.
type ChecksumID uint8

const (
	ChecksumCRC32   ChecksumID = 0
	ChecksumXXH3_64  ChecksumID = 1
	ChecksumXXH3_128 ChecksumID = 2
)

func (c ChecksumID) Valid() bool {
	return c == ChecksumCRC32 || c == ChecksumXXH3_64 || c == ChecksumXXH3_128
}

// Flags on the FileHeader.
const (
	FlagRandomAccess uint16 = 1 << 0
	FlagEncrypted    uint16 = 1 << 1
	FlagStreamMode   uint16 = 1 << 2
)

// Flags on the EntryHeader.
const (
	EntryFlagCompressed    uint16 = 1 << 0
	EntryFlagEncrypted     uint16 = 1 << 1
	EntryFlagHasECC        uint16 = 1 << 2
	EntryFlagHasAttributes uint16 = 1 << 3
)

// Flags on the ChunkHeader.
const (
	ChunkFlagECCParity    uint16 = 1 << 0
	ChunkFlagUncompressed uint16 = 1 << 1
)

// FormatVersionMajor and FormatVersionMinor identify the on-disk layout
// this package reads and writes.
const (
	FormatVersionMajor uint8 = 1
	FormatVersionMinor uint8 = 0
)

// FileHeaderSize is the fixed size in bytes of the FileHeader record.
const FileHeaderSize = 64

// ChunkHeaderSize is the fixed size in bytes of the ChunkHeader record.
const ChunkHeaderSize = 24
