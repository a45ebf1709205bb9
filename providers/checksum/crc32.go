// Package checksum implements providers.Checksum for every entry in the
// ChecksumID enumeration.
package checksum

import (
	"hash/crc32"

	"github.com/kenneth/apack"
)

// CRC32 wraps the standard library's IEEE CRC-32: cheap,
// hardware-accelerated on amd64/arm64 by the runtime, and adequate for
// detecting the accidental corruption APACK targets — there is no
// third-party CRC-32 implementation in the corpus worth preferring over
// hash/crc32 for this. It is not the default; XXH3_64 is.
type CRC32 struct{}

func (CRC32) ID() apack.ChecksumID { return apack.ChecksumCRC32 }

func (CRC32) Sum(data []byte) uint64 {
	return uint64(crc32.ChecksumIEEE(data))
}
