package aead

import (
	"crypto/rand"
	"fmt"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"golang.org/x/crypto/chacha20poly1305"
)

// ChaCha20Poly1305 wraps x/crypto/chacha20poly1305. The software-only
// alternative to AESGCM for platforms without AES hardware support.
type ChaCha20Poly1305 struct{}

func (ChaCha20Poly1305) ID() apack.EncryptionID { return apack.EncryptionChaCha20Poly1305 }

func (ChaCha20Poly1305) KeySize() int { return chacha20poly1305.KeySize }

func (ChaCha20Poly1305) NonceSize() int { return chacha20poly1305.NonceSize }

func (ChaCha20Poly1305) Seal(key, dst, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, apackerr.New(apackerr.KindConfiguration, "chacha20poly1305-seal", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "chacha20poly1305-seal", err)
	}
	out := append(dst, nonce...)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

func (ChaCha20Poly1305) Open(key, dst, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, apackerr.New(apackerr.KindConfiguration, "chacha20poly1305-open", err)
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, apackerr.New(apackerr.KindAEAD, "chacha20poly1305-open", fmt.Errorf("ciphertext shorter than nonce size %d", aead.NonceSize()))
	}
	nonce, body := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	out, err := aead.Open(dst, nonce, body, aad)
	if err != nil {
		return nil, apackerr.New(apackerr.KindAEAD, "chacha20poly1305-open", err)
	}
	return out, nil
}
