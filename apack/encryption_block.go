package apack

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kenneth/apack/apackerr"
)

// EncryptionBlock carries the parameters needed to reproduce the
// key-derivation step and unwrap the content-encryption key. It is
// present immediately after the FileHeader iff FileHeader.Encrypted()
// is true.
type EncryptionBlock struct {
	KDFAlgo        KDFID
	CipherAlgo     EncryptionID
	KDFIterations  uint32
	KDFMemoryKiB   uint32
	KDFParallelism uint32
	Salt           []byte
	WrappedKey     []byte
	WrappedKeyTag  []byte
}

// MinSaltLength is the minimum accepted salt length.
const MinSaltLength = 16

// Validate checks the invariants an EncryptionBlock must satisfy.
func (b *EncryptionBlock) Validate() error {
	if len(b.Salt) < MinSaltLength {
		return apackerr.New(apackerr.KindConfiguration, "encryption-block-validate",
			fmt.Errorf("salt too short: %d < %d", len(b.Salt), MinSaltLength))
	}
	if !b.CipherAlgo.Valid() || b.CipherAlgo == EncryptionNone {
		return apackerr.New(apackerr.KindFormat, "encryption-block-validate",
			fmt.Errorf("unrecognized cipher id %d", b.CipherAlgo))
	}
	if !b.KDFAlgo.Valid() {
		return apackerr.New(apackerr.KindFormat, "encryption-block-validate",
			fmt.Errorf("unrecognized kdf id %d", b.KDFAlgo))
	}
	return nil
}

// Encode serializes the EncryptionBlock.
func (b *EncryptionBlock) Encode(w io.Writer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	var fixed [14]byte
	fixed[0] = byte(b.KDFAlgo)
	fixed[1] = byte(b.CipherAlgo)
	binary.LittleEndian.PutUint32(fixed[2:6], b.KDFIterations)
	binary.LittleEndian.PutUint32(fixed[6:10], b.KDFMemoryKiB)
	binary.LittleEndian.PutUint32(fixed[10:14], b.KDFParallelism)
	if _, err := w.Write(fixed[:]); err != nil {
		return apackerr.New(apackerr.KindIO, "encode-encryption-block", err)
	}
	if err := writeBytes32(w, b.Salt); err != nil {
		return err
	}
	if err := writeBytes32(w, b.WrappedKey); err != nil {
		return err
	}
	if err := writeBytes32(w, b.WrappedKeyTag); err != nil {
		return err
	}
	return nil
}

// DecodeEncryptionBlock parses an EncryptionBlock and validates it.
func DecodeEncryptionBlock(r io.Reader) (*EncryptionBlock, error) {
	var fixed [14]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "decode-encryption-block", err)
	}
	b := &EncryptionBlock{
		KDFAlgo:        KDFID(fixed[0]),
		CipherAlgo:     EncryptionID(fixed[1]),
		KDFIterations:  binary.LittleEndian.Uint32(fixed[2:6]),
		KDFMemoryKiB:   binary.LittleEndian.Uint32(fixed[6:10]),
		KDFParallelism: binary.LittleEndian.Uint32(fixed[10:14]),
	}
	var err error
	if b.Salt, err = readBytes32(r); err != nil {
		return nil, err
	}
	if b.WrappedKey, err = readBytes32(r); err != nil {
		return nil, err
	}
	if b.WrappedKeyTag, err = readBytes32(r); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
