// Package ecc wraps klauspost/reedsolomon to provide whole-chunk erasure
// correction across an entry's chunk set: a configurable number of
// parity chunks are computed over the entry's data chunks as equal-size
// shards, and can reconstruct up to that many missing or corrupt data
// chunks in one reconstruction pass.
package ecc

import (
	"fmt"

	"github.com/kenneth/apack/apackerr"
	"github.com/klauspost/reedsolomon"
)

// Encoder computes and reconstructs parity shards for one entry's chunk
// set. It holds only the parity count; each call builds its own
// Reed-Solomon codec sized to the shard set it is given.
type Encoder struct {
	parityShards int
}

// New returns an Encoder producing parityShards parity shards.
func New(parityShards int) *Encoder {
	return &Encoder{parityShards: parityShards}
}

// ParityShards reports the configured parity shard count.
func (e *Encoder) ParityShards() int { return e.parityShards }

// EncodeParity pads dataShards to a common length and computes parity
// shards over them. The padded length is returned so the caller can
// record it for later reconstruction.
func (e *Encoder) EncodeParity(dataShards [][]byte) (parity [][]byte, shardLen int, err error) {
	if len(dataShards) == 0 {
		return nil, 0, apackerr.New(apackerr.KindConfiguration, "ecc-encode", fmt.Errorf("no data shards"))
	}
	for _, s := range dataShards {
		if len(s) > shardLen {
			shardLen = len(s)
		}
	}
	padded := make([][]byte, len(dataShards)+e.parityShards)
	for i, s := range dataShards {
		p := make([]byte, shardLen)
		copy(p, s)
		padded[i] = p
	}
	for i := len(dataShards); i < len(padded); i++ {
		padded[i] = make([]byte, shardLen)
	}

	enc, err := reedsolomon.New(len(dataShards), e.parityShards)
	if err != nil {
		return nil, 0, apackerr.New(apackerr.KindConfiguration, "ecc-encode", err)
	}
	if err := enc.Encode(padded); err != nil {
		return nil, 0, apackerr.New(apackerr.KindIntegrity, "ecc-encode", err)
	}
	return padded[len(dataShards):], shardLen, nil
}

// Reconstruct attempts to recover missing/corrupt shards in place.
// shards holds data shards followed by parity shards, all padded to
// shardLen; entries the caller could not trust are set to nil before
// calling. Returns an error if more shards are missing than parity
// allows.
func (e *Encoder) Reconstruct(shards [][]byte, dataShardCount, shardLen int) error {
	enc, err := reedsolomon.New(dataShardCount, e.parityShards)
	if err != nil {
		return apackerr.New(apackerr.KindConfiguration, "ecc-reconstruct", err)
	}
	if err := enc.Reconstruct(shards); err != nil {
		return apackerr.New(apackerr.KindIntegrity, "ecc-reconstruct", err)
	}
	return nil
}
