// Package kmip implements keywrap.KeyManager against a KMIP 1.4 server
// (e.g. Cosmian KMS), wrapping the content-encryption key via the
// server's Encrypt/Decrypt operations rather than deriving a KEK
// locally.
package kmip

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kenneth/apack/apackerr"
	"github.com/kenneth/apack/keywrap"
	"github.com/ovh/kmip-go"
	"github.com/ovh/kmip-go/payloads"
)

// KeyReference names one wrapping key version known to the server.
type KeyReference struct {
	ID      string
	Version int
}

// Options configures a Manager.
type Options struct {
	Endpoint  string
	Keys      []KeyReference
	TLSConfig *tls.Config
	Timeout   time.Duration
	Provider  string
	// DualReadWindow is how many retired key versions UnwrapKey will
	// still try, newest first, when the envelope carries no KeyID.
	DualReadWindow int
}

// Manager wraps/unwraps CEKs through a remote KMIP server's symmetric
// Encrypt/Decrypt operations. The plaintext CEK and the server's
// wrapping key never coexist outside the server.
type Manager struct {
	opts   Options
	client *kmip.Client

	mu     sync.RWMutex
	active KeyReference
}

// New dials the KMIP server and returns a ready Manager. The highest
// Version in opts.Keys is treated as the active wrapping key.
func New(ctx context.Context, opts Options) (*Manager, error) {
	if len(opts.Keys) == 0 {
		return nil, apackerr.New(apackerr.KindConfiguration, "kmip-new", fmt.Errorf("no wrapping keys configured"))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client, err := kmip.Dial(opts.Endpoint, kmip.WithTLSConfig(opts.TLSConfig))
	if err != nil {
		return nil, apackerr.New(apackerr.KindIO, "kmip-new", err)
	}
	active := opts.Keys[0]
	for _, k := range opts.Keys {
		if k.Version > active.Version {
			active = k
		}
	}
	return &Manager{opts: opts, client: client, active: active}, nil
}

func (m *Manager) Provider() string {
	if m.opts.Provider != "" {
		return m.opts.Provider
	}
	return "cosmian-kmip"
}

func (m *Manager) keyFor(version int) (string, error) {
	for _, k := range m.opts.Keys {
		if k.Version == version {
			return k.ID, nil
		}
	}
	return "", apackerr.New(apackerr.KindNotFound, "kmip-key-for-version", fmt.Errorf("no wrapping key registered for version %d", version))
}

// WrapKey asks the server to encrypt plaintext (the CEK) under the
// active wrapping key and returns an envelope recording which key/
// version produced it.
func (m *Manager) WrapKey(ctx context.Context, plaintext []byte, metadata map[string]string) (*keywrap.KeyEnvelope, error) {
	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	req := &payloads.EncryptRequestPayload{
		UniqueIdentifier: active.ID,
		Data:             plaintext,
	}
	resp := &payloads.EncryptResponsePayload{}
	if err := m.client.Request(ctx, kmip.OperationEncrypt, req, resp); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "kmip-wrap", err)
	}
	return &keywrap.KeyEnvelope{
		KeyID:      active.ID,
		KeyVersion: active.Version,
		Provider:   m.Provider(),
		Ciphertext: resp.Data,
	}, nil
}

// UnwrapKey decrypts envelope.Ciphertext through the server. When the
// envelope carries no KeyID (an older archive written before a key
// rotation), it tries each registered key version newest-first, up to
// DualReadWindow attempts.
func (m *Manager) UnwrapKey(ctx context.Context, envelope *keywrap.KeyEnvelope, metadata map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	if envelope.KeyID != "" {
		return m.decryptWith(ctx, envelope.KeyID, envelope.Ciphertext)
	}

	window := m.opts.DualReadWindow
	if window <= 0 {
		window = 1
	}
	keyID, err := m.keyFor(envelope.KeyVersion)
	if err == nil {
		if pt, derr := m.decryptWith(ctx, keyID, envelope.Ciphertext); derr == nil {
			return pt, nil
		}
	}
	keys := append([]KeyReference(nil), m.opts.Keys...)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Version > keys[j].Version })
	var lastErr error
	tried := 0
	for _, k := range keys {
		if tried >= window {
			break
		}
		pt, err := m.decryptWith(ctx, k.ID, envelope.Ciphertext)
		if err == nil {
			return pt, nil
		}
		lastErr = err
		tried++
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no wrapping keys configured")
	}
	return nil, apackerr.New(apackerr.KindAEAD, "kmip-unwrap", lastErr)
}

func (m *Manager) decryptWith(ctx context.Context, keyID string, ciphertext []byte) ([]byte, error) {
	req := &payloads.DecryptRequestPayload{
		UniqueIdentifier: keyID,
		Data:             ciphertext,
	}
	resp := &payloads.DecryptResponsePayload{}
	if err := m.client.Request(ctx, kmip.OperationDecrypt, req, resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ActiveKeyVersion returns the version of the key WrapKey currently
// uses.
func (m *Manager) ActiveKeyVersion(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active.Version, nil
}

// HealthCheck performs a lightweight Get against the active key to
// confirm the server is reachable and the key still exists.
func (m *Manager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	req := &payloads.GetRequestPayload{UniqueIdentifier: active.ID}
	resp := &payloads.GetResponsePayload{}
	if err := m.client.Request(ctx, kmip.OperationGet, req, resp); err != nil {
		return apackerr.New(apackerr.KindIO, "kmip-healthcheck", err)
	}
	return nil
}

// Close releases the underlying KMIP connection.
func (m *Manager) Close(ctx context.Context) error {
	return m.client.Close()
}
