package keywrap

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"github.com/kenneth/apack/providers"
)

// LocalWrapper builds and opens EncryptionBlocks from a password using a
// local KDF and AEAD, with no external KMS involved.
type LocalWrapper struct {
	KDF            providers.KDF
	AEAD           providers.AEAD
	KDFIterations  uint32
	KDFMemoryKiB   uint32
	KDFParallelism uint32
}

// NewLocalWrapper builds a LocalWrapper from the given KDF and AEAD
// providers, recording their tunable parameters for storage in the
// EncryptionBlock.
func NewLocalWrapper(kdf providers.KDF, aead providers.AEAD, iterations, memoryKiB uint32, parallelism uint32) *LocalWrapper {
	return &LocalWrapper{
		KDF: kdf, AEAD: aead,
		KDFIterations: iterations, KDFMemoryKiB: memoryKiB, KDFParallelism: parallelism,
	}
}

// Wrap derives a KEK from password and a fresh random salt, seals cek
// under it, and returns the resulting EncryptionBlock. The AEAD
// generates its own fresh nonce per call and prepends it to the sealed
// output, so WrappedKey carries nonce || ciphertext and WrappedKeyTag
// carries the authentication tag.
func (w *LocalWrapper) Wrap(ctx context.Context, password, cek []byte) (*apack.EncryptionBlock, error) {
	salt := make([]byte, apack.MinSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "local-wrap", err)
	}
	kek, err := w.KDF.Derive(ctx, password, salt, w.AEAD.KeySize())
	if err != nil {
		return nil, apackerr.New(apackerr.KindConfiguration, "local-wrap", err)
	}
	sealed, err := w.AEAD.Seal(kek, nil, cek, nil)
	if err != nil {
		return nil, err
	}
	tagSize := len(sealed) - w.AEAD.NonceSize() - len(cek)
	if tagSize < 0 {
		return nil, apackerr.New(apackerr.KindConfiguration, "local-wrap", fmt.Errorf("aead produced shorter output than nonce plus input"))
	}
	block := &apack.EncryptionBlock{
		KDFAlgo:        w.KDF.ID(),
		CipherAlgo:     w.AEAD.ID(),
		KDFIterations:  w.KDFIterations,
		KDFMemoryKiB:   w.KDFMemoryKiB,
		KDFParallelism: w.KDFParallelism,
		Salt:           salt,
		WrappedKey:     sealed[:len(sealed)-tagSize],
		WrappedKeyTag:  sealed[len(sealed)-tagSize:],
	}
	if err := block.Validate(); err != nil {
		return nil, err
	}
	return block, nil
}

// Unwrap re-derives the KEK from password and block.Salt and opens the
// wrapped CEK, whose leading bytes carry the nonce Wrap generated for
// it. A wrong password and a tampered block are indistinguishable: both
// surface as KindAEAD.
func (w *LocalWrapper) Unwrap(ctx context.Context, password []byte, block *apack.EncryptionBlock) ([]byte, error) {
	kek, err := w.KDF.Derive(ctx, password, block.Salt, w.AEAD.KeySize())
	if err != nil {
		return nil, apackerr.New(apackerr.KindConfiguration, "local-unwrap", err)
	}
	sealed := append(append([]byte{}, block.WrappedKey...), block.WrappedKeyTag...)
	return w.AEAD.Open(kek, nil, sealed, nil)
}
