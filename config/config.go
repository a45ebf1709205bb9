// Package config builds the immutable Config an archive Writer or
// Reader is constructed from: chunk sizing, the chosen provider ids,
// decompression-bomb limits, and the hardware-acceleration toggle.
package config

import (
	"fmt"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"github.com/kenneth/apack/internal/hardware"
)

// Config is immutable once built by New; callers reconfigure by
// building a new Config rather than mutating one in place.
type Config struct {
	ChunkSize         uint32
	MaxRatio          uint32
	MaxStoredChunkLen uint32
	Checksum          apack.ChecksumID
	Compression       apack.CompressionID
	Encryption        apack.EncryptionID
	KDF               apack.KDFID
	RandomAccess      bool
	ECCParity         int
	Hardware          hardware.Config
}

const (
	DefaultChunkSize = 256 << 10 // 256 KiB
	MinChunkSize     = 1 << 10
	MaxChunkSizeCap  = 64 << 20
	DefaultMaxRatio  = 100

	// DefaultMaxStoredChunkLen bounds a chunk's on-disk stored_len, independent
	// of the original-length/ratio bomb check: a corrupted or adversarial
	// ChunkHeader can claim any stored_len up to 2^32-1 regardless of
	// chunk size, and this is the limit enforced before that many bytes
	// are ever allocated.
	DefaultMaxStoredChunkLen = 128 << 20
)

// Option mutates a Config under construction.
type Option func(*Config)

// New builds a Config with sane defaults, then applies opts in order.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		ChunkSize:         DefaultChunkSize,
		MaxRatio:          DefaultMaxRatio,
		MaxStoredChunkLen: DefaultMaxStoredChunkLen,
		Checksum:          apack.ChecksumXXH3_64,
		Compression:       apack.CompressionNone,
		Encryption:        apack.EncryptionNone,
		KDF:               apack.KDFArgon2id,
		RandomAccess:      true,
		Hardware:          hardware.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func WithChunkSize(size uint32) Option { return func(c *Config) { c.ChunkSize = size } }
func WithMaxRatio(ratio uint32) Option { return func(c *Config) { c.MaxRatio = ratio } }
func WithMaxStoredChunkLen(n uint32) Option { return func(c *Config) { c.MaxStoredChunkLen = n } }
func WithChecksum(id apack.ChecksumID) Option { return func(c *Config) { c.Checksum = id } }
func WithCompression(id apack.CompressionID) Option { return func(c *Config) { c.Compression = id } }
func WithEncryption(id apack.EncryptionID) Option { return func(c *Config) { c.Encryption = id } }
func WithKDF(id apack.KDFID) Option { return func(c *Config) { c.KDF = id } }
func WithRandomAccess(v bool) Option { return func(c *Config) { c.RandomAccess = v } }
func WithECCParity(n int) Option { return func(c *Config) { c.ECCParity = n } }
func WithHardware(h hardware.Config) Option { return func(c *Config) { c.Hardware = h } }

// Validate rejects a Config with internally inconsistent or
// out-of-range settings before it reaches a Writer/Reader.
func (c *Config) Validate() error {
	if c.ChunkSize < MinChunkSize || c.ChunkSize > MaxChunkSizeCap {
		return apackerr.New(apackerr.KindConfiguration, "config-validate", fmt.Errorf("chunk size %d out of range [%d, %d]", c.ChunkSize, MinChunkSize, MaxChunkSizeCap))
	}
	if c.MaxRatio == 0 {
		return apackerr.New(apackerr.KindConfiguration, "config-validate", fmt.Errorf("max ratio must be positive"))
	}
	if c.MaxStoredChunkLen == 0 {
		return apackerr.New(apackerr.KindConfiguration, "config-validate", fmt.Errorf("max stored chunk length must be positive"))
	}
	if !c.Checksum.Valid() {
		return apackerr.New(apackerr.KindConfiguration, "config-validate", fmt.Errorf("unknown checksum id %d", c.Checksum))
	}
	if !c.Compression.Valid() {
		return apackerr.New(apackerr.KindConfiguration, "config-validate", fmt.Errorf("unknown compression id %d", c.Compression))
	}
	if !c.Encryption.Valid() {
		return apackerr.New(apackerr.KindConfiguration, "config-validate", fmt.Errorf("unknown encryption id %d", c.Encryption))
	}
	if !c.KDF.Valid() {
		return apackerr.New(apackerr.KindConfiguration, "config-validate", fmt.Errorf("unknown kdf id %d", c.KDF))
	}
	if c.ECCParity < 0 {
		return apackerr.New(apackerr.KindConfiguration, "config-validate", fmt.Errorf("ecc parity shard count cannot be negative"))
	}
	return nil
}
