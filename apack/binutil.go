package apack

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/kenneth/apack/apackerr"
)

// ChecksumFunc computes a checksum over data. Format primitives accept
// one as a parameter rather than importing a concrete provider, so that
// header self-checksums can use whichever algorithm the archive selected
// without a package cycle back to the providers package.
type ChecksumFunc func(data []byte) uint64

// writeString writes a length-prefixed UTF-8 string with an unsigned
// 16-bit length prefix, used for entry names and MIME types.
func writeString(w io.Writer, s string) error {
	if !utf8.ValidString(s) {
		return apackerr.New(apackerr.KindFormat, "write-string", fmt.Errorf("not valid UTF-8"))
	}
	if len(s) > 0xFFFF {
		return apackerr.New(apackerr.KindFormat, "write-string", fmt.Errorf("string too long: %d bytes", len(s)))
	}
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return apackerr.New(apackerr.KindIO, "write-string", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return apackerr.New(apackerr.KindIO, "write-string", err)
	}
	return nil
}

// readString reads a length-prefixed UTF-8 string with an unsigned
// 16-bit length prefix.
func readString(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", apackerr.New(apackerr.KindIO, "read-string", err)
	}
	n := binary.LittleEndian.Uint16(lenBuf[:])
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", apackerr.New(apackerr.KindIO, "read-string", err)
		}
	}
	if !utf8.Valid(buf) {
		return "", apackerr.New(apackerr.KindFormat, "read-string", fmt.Errorf("not valid UTF-8"))
	}
	return string(buf), nil
}

// writeBytes32 writes a length-prefixed byte slice with an unsigned
// 32-bit length prefix, used for attribute values that may exceed 64KiB.
func writeBytes32(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return apackerr.New(apackerr.KindIO, "write-bytes32", err)
	}
	if len(b) > 0 {
		if _, err := w.Write(b); err != nil {
			return apackerr.New(apackerr.KindIO, "write-bytes32", err)
		}
	}
	return nil
}

func readBytes32(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "read-bytes32", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "read-bytes32", err)
		}
	}
	return buf, nil
}
