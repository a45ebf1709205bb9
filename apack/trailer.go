package apack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kenneth/apack/apackerr"
)

// TOCEntry is one row of the Trailer's table of contents.
type TOCEntry struct {
	ID           uint64
	Name         string
	HeaderOffset uint64
	OriginalSize uint64
	StoredSize   uint64
}

// The Writer writes a Trailer in every mode; its TOC rows are filled in
// only when FileHeader.RandomAccess() is true. BackPointerSize is the
// width of the scan-from-end back-pointer the Writer appends
// immediately after the encoded Trailer.
const BackPointerSize = 8

// Trailer is the archive's table of contents plus integrity checksums.
type Trailer struct {
	Entries        []TOCEntry
	GlobalChecksum uint64
	HasGlobal      bool
}

// Encode serializes the Trailer. The returned bytes do NOT include the
// trailing 8-byte back-pointer; the Writer appends that separately once
// it knows this Trailer's own offset.
func (t *Trailer) Encode(sum ChecksumFunc) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(1) // trailer format version

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(t.Entries)))
	buf.Write(countBuf[:])

	for _, e := range t.Entries {
		var idBuf [8]byte
		binary.LittleEndian.PutUint64(idBuf[:], e.ID)
		buf.Write(idBuf[:])
		if err := writeString(&buf, e.Name); err != nil {
			return nil, err
		}
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], e.HeaderOffset)
		buf.Write(u64[:])
		binary.LittleEndian.PutUint64(u64[:], e.OriginalSize)
		buf.Write(u64[:])
		binary.LittleEndian.PutUint64(u64[:], e.StoredSize)
		buf.Write(u64[:])
	}

	hasGlobal := byte(0)
	if t.HasGlobal {
		hasGlobal = 1
	}
	buf.WriteByte(hasGlobal)
	var globalBuf [8]byte
	binary.LittleEndian.PutUint64(globalBuf[:], t.GlobalChecksum)
	buf.Write(globalBuf[:])

	checksum := sum(buf.Bytes())
	var checksumBuf [8]byte
	binary.LittleEndian.PutUint64(checksumBuf[:], checksum)
	buf.Write(checksumBuf[:])
	return buf.Bytes(), nil
}

// DecodeTrailer parses and validates a Trailer at the reader's current
// position. It does not consume the 8-byte back-pointer that follows.
func DecodeTrailer(r io.Reader, sum ChecksumFunc) (*Trailer, error) {
	var buf bytes.Buffer
	tee := io.TeeReader(r, &buf)

	var versionByte [1]byte
	if _, err := io.ReadFull(tee, versionByte[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-trailer", err)
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(tee, countBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-trailer", err)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	entries := make([]TOCEntry, 0, count)
	var lastID uint64
	for i := uint32(0); i < count; i++ {
		var idBuf [8]byte
		if _, err := io.ReadFull(tee, idBuf[:]); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "decode-trailer", err)
		}
		id := binary.LittleEndian.Uint64(idBuf[:])
		if i > 0 && id <= lastID {
			return nil, apackerr.New(apackerr.KindFormat, "decode-trailer", fmt.Errorf("entry ids not strictly increasing: %d after %d", id, lastID))
		}
		lastID = id
		name, err := readString(tee)
		if err != nil {
			return nil, err
		}
		var u64 [8]byte
		if _, err := io.ReadFull(tee, u64[:]); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "decode-trailer", err)
		}
		headerOffset := binary.LittleEndian.Uint64(u64[:])
		if _, err := io.ReadFull(tee, u64[:]); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "decode-trailer", err)
		}
		origSize := binary.LittleEndian.Uint64(u64[:])
		if _, err := io.ReadFull(tee, u64[:]); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "decode-trailer", err)
		}
		storedSize := binary.LittleEndian.Uint64(u64[:])
		entries = append(entries, TOCEntry{
			ID: id, Name: name, HeaderOffset: headerOffset,
			OriginalSize: origSize, StoredSize: storedSize,
		})
	}

	var hasGlobalBuf [1]byte
	if _, err := io.ReadFull(tee, hasGlobalBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-trailer", err)
	}
	var globalBuf [8]byte
	if _, err := io.ReadFull(tee, globalBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-trailer", err)
	}

	wantChecksum := sum(buf.Bytes())
	var gotBuf [8]byte
	if _, err := io.ReadFull(r, gotBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-trailer", err)
	}
	if wantChecksum != binary.LittleEndian.Uint64(gotBuf[:]) {
		return nil, apackerr.New(apackerr.KindFormat, "decode-trailer", fmt.Errorf("trailer checksum mismatch"))
	}

	return &Trailer{
		Entries:        entries,
		HasGlobal:      hasGlobalBuf[0] != 0,
		GlobalChecksum: binary.LittleEndian.Uint64(globalBuf[:]),
	}, nil
}

// EncodeBackPointer serializes the 8-byte scan-from-end back-pointer,
// repeating the trailer's own offset.
func EncodeBackPointer(trailerOffset uint64) []byte {
	buf := make([]byte, BackPointerSize)
	binary.LittleEndian.PutUint64(buf, trailerOffset)
	return buf
}

// DecodeBackPointer parses the 8-byte back-pointer.
func DecodeBackPointer(buf []byte) (uint64, error) {
	if len(buf) != BackPointerSize {
		return 0, apackerr.New(apackerr.KindFormat, "decode-back-pointer", fmt.Errorf("expected %d bytes, got %d", BackPointerSize, len(buf)))
	}
	return binary.LittleEndian.Uint64(buf), nil
}
