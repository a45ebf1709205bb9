// Package kdf implements providers.KDF for every entry in the KDFID
// enumeration.
package kdf

import (
	"context"

	"github.com/kenneth/apack"
	"golang.org/x/crypto/argon2"
)

// Argon2id wraps x/crypto/argon2's id variant, the password-hashing
// competition winner and the default KDF for new archives. Time,
// memory, and parallelism are fixed at construction and recorded in the
// EncryptionBlock so a future reader reproduces the same derivation
// without guessing parameters.
type Argon2id struct {
	Time    uint32
	MemoryKiB uint32
	Threads uint8
}

// NewArgon2id returns an Argon2id KDF with OWASP-recommended defaults:
// 2 passes, 64 MiB, 4 threads.
func NewArgon2id() Argon2id {
	return Argon2id{Time: 2, MemoryKiB: 64 * 1024, Threads: 4}
}

func (a Argon2id) ID() apack.KDFID { return apack.KDFArgon2id }

func (a Argon2id) Derive(ctx context.Context, password, salt []byte, keyLen int) ([]byte, error) {
	return argon2.IDKey(password, salt, a.Time, a.MemoryKiB, a.Threads, uint32(keyLen)), nil
}
