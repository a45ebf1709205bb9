package apack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/kenneth/apack/apackerr"
)

// FileHeader is the fixed 64-byte record at the start of every archive.
// All multi-byte integers are little-endian.
type FileHeader struct {
	VersionMajor    uint8
	VersionMinor    uint8
	Flags           uint16
	DefaultChunkSize uint32
	ChecksumAlgo    ChecksumID
	CreatedAtMillis int64
	EntryCount      uint64
	TrailerOffset   uint64
}

// RandomAccess reports whether the archive carries a Trailer/TOC.
func (h *FileHeader) RandomAccess() bool { return h.Flags&FlagRandomAccess != 0 }

// Encrypted reports whether an EncryptionBlock follows the FileHeader.
func (h *FileHeader) Encrypted() bool { return h.Flags&FlagEncrypted != 0 }

// StreamMode reports whether the archive was written to a non-seekable
// sink with a minimized trailer.
func (h *FileHeader) StreamMode() bool { return h.Flags&FlagStreamMode != 0 }

// NewFileHeader builds a provisional FileHeader for a fresh archive.
// EntryCount and TrailerOffset are finalized at Writer.Close.
func NewFileHeader(chunkSize uint32, checksumAlgo ChecksumID, randomAccess, encrypted, streamMode bool) *FileHeader {
	var flags uint16
	if randomAccess {
		flags |= FlagRandomAccess
	}
	if encrypted {
		flags |= FlagEncrypted
	}
	if streamMode {
		flags |= FlagStreamMode
	}
	return &FileHeader{
		VersionMajor:     FormatVersionMajor,
		VersionMinor:     FormatVersionMinor,
		Flags:            flags,
		DefaultChunkSize: chunkSize,
		ChecksumAlgo:     checksumAlgo,
		CreatedAtMillis:  time.Now().UnixMilli(),
	}
}

// Encode serializes the FileHeader to exactly FileHeaderSize bytes,
// computing the self-checksum over bytes [0, FileHeaderSize-8) with sum.
func (h *FileHeader) Encode(sum ChecksumFunc) ([]byte, error) {
	buf := make([]byte, FileHeaderSize)
	copy(buf[0:5], Magic[:])
	buf[5] = h.VersionMajor
	buf[6] = h.VersionMinor
	buf[7] = 0 // reserved
	binary.LittleEndian.PutUint16(buf[8:10], h.Flags)
	binary.LittleEndian.PutUint16(buf[10:12], 0) // reserved
	binary.LittleEndian.PutUint32(buf[12:16], h.DefaultChunkSize)
	buf[16] = byte(h.ChecksumAlgo)
	// buf[17:24] reserved
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.CreatedAtMillis))
	binary.LittleEndian.PutUint64(buf[32:40], h.EntryCount)
	binary.LittleEndian.PutUint64(buf[40:48], h.TrailerOffset)
	// buf[48:56] reserved

	checksum := sum(buf[0 : FileHeaderSize-8])
	binary.LittleEndian.PutUint64(buf[FileHeaderSize-8:FileHeaderSize], checksum)
	return buf, nil
}

// DecodeFileHeader parses and validates a FileHeader, verifying the
// magic bytes and self-checksum before trusting any other field.
func DecodeFileHeader(r io.Reader, sum ChecksumFunc) (*FileHeader, error) {
	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-file-header", err)
	}
	if !bytes.Equal(buf[0:5], Magic[:]) {
		return nil, apackerr.New(apackerr.KindFormat, "decode-file-header", fmt.Errorf("bad magic %x", buf[0:5]))
	}

	wantChecksum := binary.LittleEndian.Uint64(buf[FileHeaderSize-8 : FileHeaderSize])
	gotChecksum := sum(buf[0 : FileHeaderSize-8])
	if wantChecksum != gotChecksum {
		return nil, apackerr.New(apackerr.KindFormat, "decode-file-header", fmt.Errorf("header self-checksum mismatch"))
	}

	h := &FileHeader{
		VersionMajor:     buf[5],
		VersionMinor:     buf[6],
		Flags:            binary.LittleEndian.Uint16(buf[8:10]),
		DefaultChunkSize: binary.LittleEndian.Uint32(buf[12:16]),
		ChecksumAlgo:     ChecksumID(buf[16]),
		CreatedAtMillis:  int64(binary.LittleEndian.Uint64(buf[24:32])),
		EntryCount:       binary.LittleEndian.Uint64(buf[32:40]),
		TrailerOffset:    binary.LittleEndian.Uint64(buf[40:48]),
	}
	if !h.ChecksumAlgo.Valid() {
		return nil, apackerr.New(apackerr.KindFormat, "decode-file-header", fmt.Errorf("unknown checksum id %d", h.ChecksumAlgo))
	}
	if h.RandomAccess() && h.TrailerOffset == 0 {
		return nil, apackerr.New(apackerr.KindFormat, "decode-file-header", fmt.Errorf("random-access set but trailer offset is zero"))
	}
	return h, nil
}
