package kdf

import (
	"context"
	"crypto/sha256"

	"github.com/kenneth/apack"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2SHA256 wraps x/crypto/pbkdf2 with SHA-256. Kept for
// interoperability with environments that mandate FIPS-approved
// primitives and cannot accept Argon2id.
type PBKDF2SHA256 struct {
	Iterations uint32
}

// NewPBKDF2SHA256 returns a PBKDF2-SHA256 KDF at the given iteration
// count (OWASP recommends at least 600,000 as of this writing).
func NewPBKDF2SHA256(iterations uint32) PBKDF2SHA256 {
	return PBKDF2SHA256{Iterations: iterations}
}

func (p PBKDF2SHA256) ID() apack.KDFID { return apack.KDFPBKDF2SHA256 }

func (p PBKDF2SHA256) Derive(ctx context.Context, password, salt []byte, keyLen int) ([]byte, error) {
	return pbkdf2.Key(password, salt, int(p.Iterations), keyLen, sha256.New), nil
}
