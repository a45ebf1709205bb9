package apack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kenneth/apack/apackerr"
)

// AttributeKind is the tagged-union discriminant for Attribute.Value.
type AttributeKind uint8

const (
	AttrString AttributeKind = iota
	AttrInt64
	AttrBool
	AttrBytes
)

// Attribute is a single (key, tagged value) pair attached to an entry.
type Attribute struct {
	Key   string
	Kind  AttributeKind
	Str   string
	Int   int64
	Bool  bool
	Bytes []byte
}

func writeAttribute(w io.Writer, a Attribute) error {
	if err := writeString(w, a.Key); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(a.Kind)}); err != nil {
		return apackerr.New(apackerr.KindIO, "write-attribute", err)
	}
	switch a.Kind {
	case AttrString:
		return writeString(w, a.Str)
	case AttrInt64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(a.Int))
		_, err := w.Write(b[:])
		if err != nil {
			return apackerr.New(apackerr.KindIO, "write-attribute", err)
		}
		return nil
	case AttrBool:
		v := byte(0)
		if a.Bool {
			v = 1
		}
		_, err := w.Write([]byte{v})
		if err != nil {
			return apackerr.New(apackerr.KindIO, "write-attribute", err)
		}
		return nil
	case AttrBytes:
		return writeBytes32(w, a.Bytes)
	default:
		return apackerr.New(apackerr.KindFormat, "write-attribute", fmt.Errorf("unknown attribute kind %d", a.Kind))
	}
}

func readAttribute(r io.Reader) (Attribute, error) {
	key, err := readString(r)
	if err != nil {
		return Attribute{}, err
	}
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return Attribute{}, apackerr.New(apackerr.KindIO, "read-attribute", err)
	}
	a := Attribute{Key: key, Kind: AttributeKind(kindBuf[0])}
	switch a.Kind {
	case AttrString:
		a.Str, err = readString(r)
		return a, err
	case AttrInt64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Attribute{}, apackerr.New(apackerr.KindIO, "read-attribute", err)
		}
		a.Int = int64(binary.LittleEndian.Uint64(b[:]))
		return a, nil
	case AttrBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Attribute{}, apackerr.New(apackerr.KindIO, "read-attribute", err)
		}
		a.Bool = b[0] != 0
		return a, nil
	case AttrBytes:
		a.Bytes, err = readBytes32(r)
		return a, err
	default:
		return Attribute{}, apackerr.New(apackerr.KindFormat, "read-attribute", fmt.Errorf("unknown attribute kind %d", a.Kind))
	}
}

// EntryHeader describes one stored entry.
type EntryHeader struct {
	HeaderVersion  uint8
	ID             uint64
	OriginalSize   uint64
	StoredSize     uint64
	ChunkCount     uint32
	CompressionID  CompressionID
	EncryptionID   EncryptionID
	HasECC         bool
	Attributes     []Attribute
	Name           string
	MIMEType       string
}

func (e *EntryHeader) flags() uint16 {
	var f uint16
	if e.CompressionID != CompressionNone {
		f |= EntryFlagCompressed
	}
	if e.EncryptionID != EncryptionNone {
		f |= EntryFlagEncrypted
	}
	if e.HasECC {
		f |= EntryFlagHasECC
	}
	if len(e.Attributes) > 0 {
		f |= EntryFlagHasAttributes
	}
	return f
}

// Validate checks the invariants an EntryHeader must satisfy.
func (e *EntryHeader) Validate(archiveEncrypted bool) error {
	if e.Name == "" {
		return apackerr.New(apackerr.KindFormat, "entry-header-validate", fmt.Errorf("empty entry name"))
	}
	if bytes.ContainsRune([]byte(e.Name), '\\') {
		return apackerr.New(apackerr.KindFormat, "entry-header-validate", fmt.Errorf("entry name must use '/' separators: %q", e.Name))
	}
	if e.EncryptionID != EncryptionNone && !archiveEncrypted {
		return apackerr.New(apackerr.KindConfiguration, "entry-header-validate", fmt.Errorf("entry marked encrypted but archive is not"))
	}
	return nil
}

// Encode serializes the EntryHeader with a checksum computed over every
// preceding field (the checksum field itself excluded).
func (e *EntryHeader) Encode(archiveEncrypted bool, sum ChecksumFunc) ([]byte, error) {
	if err := e.Validate(archiveEncrypted); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte(e.HeaderVersion)
	var flagsBuf [2]byte
	binary.LittleEndian.PutUint16(flagsBuf[:], e.flags())
	buf.Write(flagsBuf[:])
	var idBuf [8]byte
	binary.LittleEndian.PutUint64(idBuf[:], e.ID)
	buf.Write(idBuf[:])
	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], e.OriginalSize)
	buf.Write(sizeBuf[:])
	binary.LittleEndian.PutUint64(sizeBuf[:], e.StoredSize)
	buf.Write(sizeBuf[:])
	var chunkCountBuf [4]byte
	binary.LittleEndian.PutUint32(chunkCountBuf[:], e.ChunkCount)
	buf.Write(chunkCountBuf[:])
	buf.WriteByte(byte(e.CompressionID))
	buf.WriteByte(byte(e.EncryptionID))

	var attrCountBuf [4]byte
	binary.LittleEndian.PutUint32(attrCountBuf[:], uint32(len(e.Attributes)))
	buf.Write(attrCountBuf[:])
	for _, a := range e.Attributes {
		if err := writeAttribute(&buf, a); err != nil {
			return nil, err
		}
	}
	if err := writeString(&buf, e.Name); err != nil {
		return nil, err
	}
	if err := writeString(&buf, e.MIMEType); err != nil {
		return nil, err
	}

	checksum := sum(buf.Bytes())
	var checksumBuf [8]byte
	binary.LittleEndian.PutUint64(checksumBuf[:], checksum)
	buf.Write(checksumBuf[:])
	return buf.Bytes(), nil
}

// DecodeEntryHeader parses and validates an EntryHeader, verifying its
// checksum and the compressed/encrypted/has-attributes flag invariants.
func DecodeEntryHeader(r io.Reader, archiveEncrypted bool, sum ChecksumFunc) (*EntryHeader, error) {
	var buf bytes.Buffer
	tee := io.TeeReader(r, &buf)

	var versionByte [1]byte
	if _, err := io.ReadFull(tee, versionByte[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-entry-header", err)
	}
	var flagsBuf [2]byte
	if _, err := io.ReadFull(tee, flagsBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-entry-header", err)
	}
	flags := binary.LittleEndian.Uint16(flagsBuf[:])

	var idBuf [8]byte
	if _, err := io.ReadFull(tee, idBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-entry-header", err)
	}
	var origBuf, storedBuf [8]byte
	if _, err := io.ReadFull(tee, origBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-entry-header", err)
	}
	if _, err := io.ReadFull(tee, storedBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-entry-header", err)
	}
	var chunkCountBuf [4]byte
	if _, err := io.ReadFull(tee, chunkCountBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-entry-header", err)
	}
	var algoBuf [2]byte
	if _, err := io.ReadFull(tee, algoBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-entry-header", err)
	}
	var attrCountBuf [4]byte
	if _, err := io.ReadFull(tee, attrCountBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-entry-header", err)
	}
	attrCount := binary.LittleEndian.Uint32(attrCountBuf[:])
	attrs := make([]Attribute, 0, attrCount)
	for i := uint32(0); i < attrCount; i++ {
		a, err := readAttribute(tee)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	name, err := readString(tee)
	if err != nil {
		return nil, err
	}
	mime, err := readString(tee)
	if err != nil {
		return nil, err
	}

	wantChecksum := sum(buf.Bytes())
	var gotChecksumBuf [8]byte
	if _, err := io.ReadFull(r, gotChecksumBuf[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-entry-header", err)
	}
	gotChecksum := binary.LittleEndian.Uint64(gotChecksumBuf[:])
	if wantChecksum != gotChecksum {
		return nil, apackerr.New(apackerr.KindFormat, "decode-entry-header", fmt.Errorf("entry header checksum mismatch"))
	}

	compID := CompressionID(algoBuf[0])
	encID := EncryptionID(algoBuf[1])
	if !compID.Valid() {
		return nil, apackerr.New(apackerr.KindFormat, "decode-entry-header", fmt.Errorf("unknown compression id %d", compID))
	}
	if !encID.Valid() {
		return nil, apackerr.New(apackerr.KindFormat, "decode-entry-header", fmt.Errorf("unknown encryption id %d", encID))
	}
	if (flags&EntryFlagCompressed != 0) != (compID != CompressionNone) {
		return nil, apackerr.New(apackerr.KindFormat, "decode-entry-header", fmt.Errorf("compressed flag/id mismatch"))
	}
	if (flags&EntryFlagEncrypted != 0) != (encID != EncryptionNone) {
		return nil, apackerr.New(apackerr.KindFormat, "decode-entry-header", fmt.Errorf("encrypted flag/id mismatch"))
	}
	if (flags&EntryFlagHasAttributes != 0) != (len(attrs) > 0) {
		return nil, apackerr.New(apackerr.KindFormat, "decode-entry-header", fmt.Errorf("has-attributes flag mismatch"))
	}

	e := &EntryHeader{
		HeaderVersion: versionByte[0],
		ID:            binary.LittleEndian.Uint64(idBuf[:]),
		OriginalSize:  binary.LittleEndian.Uint64(origBuf[:]),
		StoredSize:    binary.LittleEndian.Uint64(storedBuf[:]),
		ChunkCount:    binary.LittleEndian.Uint32(chunkCountBuf[:]),
		CompressionID: compID,
		EncryptionID:  encID,
		HasECC:        flags&EntryFlagHasECC != 0,
		Attributes:    attrs,
		Name:          name,
		MIMEType:      mime,
	}
	if err := e.Validate(archiveEncrypted); err != nil {
		return nil, err
	}
	return e, nil
}
