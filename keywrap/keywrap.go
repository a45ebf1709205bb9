// Package keywrap implements the two-tier key model: a random
// content-encryption key (CEK) protects chunk data, and a
// key-encryption key (KEK) — derived locally from a password or held by
// a remote KMS — wraps the CEK for storage in the archive's
// EncryptionBlock.
package keywrap

import "context"

// KeyEnvelope is what a remote KeyManager returns in place of the
// locally-derived wrap: a reference plus ciphertext instead of bytes
// a KDF could reproduce.
type KeyEnvelope struct {
	KeyID      string
	KeyVersion int
	Provider   string
	Ciphertext []byte
}

// KeyManager abstracts an external KMS that wraps and unwraps a CEK.
// Implementations must never expose the wrapping key in plaintext and
// must perform the cryptographic operation inside the KMS.
type KeyManager interface {
	Provider() string
	WrapKey(ctx context.Context, plaintext []byte, metadata map[string]string) (*KeyEnvelope, error)
	UnwrapKey(ctx context.Context, envelope *KeyEnvelope, metadata map[string]string) ([]byte, error)
	ActiveKeyVersion(ctx context.Context) (int, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
