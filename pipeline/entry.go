package pipeline

import (
	"fmt"
	"io"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"github.com/kenneth/apack/internal/bufpool"
	"github.com/kenneth/apack/pipeline/ecc"
)

// EntryResult summarizes one entry's encode pass for the caller to
// populate into an EntryHeader.
type EntryResult struct {
	ChunkCount   uint32
	OriginalSize uint64
	StoredSize   uint64
	ParityShards int // 0 when ECC was not requested
	ShardLen     int // padded shard length used for ECC, meaningful iff ParityShards > 0
}

// EncodeEntry reads src in Options.ChunkSize pieces, runs each through
// EncodeChunk, and writes ChunkHeader+body pairs to w. When parityShards
// is positive it buffers the stored chunk bytes, computes that many
// Reed-Solomon parity chunks over them as equal-size shards, and appends
// those parity chunks (flagged ChunkFlagECCParity) after the data
// chunks.
func EncodeEntry(w io.Writer, opts Options, entryID uint64, src io.Reader, parityShards int) (*EntryResult, error) {
	pool := bufpool.New(int(opts.ChunkSize))
	var headers []*apack.ChunkHeader
	var bodies [][]byte
	var originalSize, storedSize uint64

	index := uint32(0)
	for {
		buf := pool.Get(int(opts.ChunkSize))
		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			plaintext := make([]byte, n)
			copy(plaintext, buf[:n])
			header, stored, err := EncodeChunk(opts, entryID, index, plaintext)
			if err != nil {
				pool.Put(buf)
				return nil, err
			}
			headers = append(headers, header)
			bodies = append(bodies, stored)
			originalSize += uint64(n)
			storedSize += uint64(len(stored))
			index++
		}
		pool.Put(buf)
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return nil, apackerr.New(apackerr.KindIO, "encode-entry", readErr)
		}
	}

	result := &EntryResult{
		ChunkCount:   uint32(len(headers)),
		OriginalSize: originalSize,
		StoredSize:   storedSize,
	}

	var parity [][]byte
	shardLen := 0
	if parityShards > 0 && len(bodies) > 0 {
		enc := ecc.New(parityShards)
		var err error
		parity, shardLen, err = enc.EncodeParity(bodies)
		if err != nil {
			return nil, err
		}
		result.ParityShards = parityShards
		result.ShardLen = shardLen
		result.StoredSize += uint64(len(parity)) * uint64(shardLen)
		result.ChunkCount += uint32(len(parity))
	}

	for i, h := range headers {
		if _, err := w.Write(h.Encode()); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "encode-entry", err)
		}
		if _, err := w.Write(bodies[i]); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "encode-entry", err)
		}
	}
	for i, p := range parity {
		ph := &apack.ChunkHeader{
			Index:        uint32(len(headers) + i),
			StoredLen:    uint32(len(p)),
			OriginalLen:  uint32(shardLen),
			Checksum:     opts.Checksum.Sum(p),
			ECCParity:    true,
			Uncompressed: true,
		}
		if _, err := w.Write(ph.Encode()); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "encode-entry", err)
		}
		if _, err := w.Write(p); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "encode-entry", err)
		}
	}

	return result, nil
}

// DecodeEntry reads chunkCount chunks (data plus any ECC parity chunks)
// from r, attempts to decode each data chunk, and — if parityShards is
// positive and one or more data chunks failed — makes a single
// reconstruction attempt using the parity chunks before giving up.
func DecodeEntry(r io.Reader, opts Options, entryID uint64, chunkCount uint32, parityShards int, dst io.Writer) error {
	dataCount := int(chunkCount) - parityShards
	if dataCount < 0 {
		return apackerr.New(apackerr.KindFormat, "decode-entry", fmt.Errorf("chunk count %d smaller than parity shard count %d", chunkCount, parityShards))
	}

	headers := make([]*apack.ChunkHeader, chunkCount)
	bodies := make([][]byte, chunkCount)
	for i := range headers {
		h, err := apack.DecodeChunkHeader(r, opts.ChunkSize, opts.MaxRatio, opts.MaxStoredChunkLen)
		if err != nil {
			return err
		}
		body := make([]byte, h.StoredLen)
		if _, err := io.ReadFull(r, body); err != nil {
			return apackerr.New(apackerr.KindIO, "decode-entry", err)
		}
		headers[i] = h
		bodies[i] = body
	}

	plaintexts := make([][]byte, dataCount)
	failed := make([]bool, dataCount)
	anyFailed := false
	for i := 0; i < dataCount; i++ {
		p, err := DecodeChunk(opts, entryID, headers[i], bodies[i])
		if err != nil {
			failed[i] = true
			anyFailed = true
			continue
		}
		plaintexts[i] = p
	}

	if anyFailed {
		if parityShards == 0 {
			return apackerr.New(apackerr.KindIntegrity, "decode-entry", fmt.Errorf("chunk decode failed and no ECC parity available"))
		}
		shardLen := int(headers[dataCount].OriginalLen)
		shards := make([][]byte, chunkCount)
		for i := 0; i < dataCount; i++ {
			if failed[i] {
				shards[i] = nil
				continue
			}
			padded := make([]byte, shardLen)
			copy(padded, bodies[i])
			shards[i] = padded
		}
		for i := dataCount; i < int(chunkCount); i++ {
			shards[i] = bodies[i]
		}
		enc := ecc.New(parityShards)
		if err := enc.Reconstruct(shards, dataCount, shardLen); err != nil {
			return apackerr.New(apackerr.KindIntegrity, "decode-entry", fmt.Errorf("ecc reconstruction failed: %w", err))
		}
		for i := 0; i < dataCount; i++ {
			if !failed[i] {
				continue
			}
			reconstructed := shards[i][:headers[i].StoredLen]
			p, err := DecodeChunk(opts, entryID, headers[i], reconstructed)
			if err != nil {
				return apackerr.New(apackerr.KindIntegrity, "decode-entry", fmt.Errorf("chunk %d unrecoverable after ecc reconstruction: %w", i, err))
			}
			plaintexts[i] = p
		}
	}

	for _, p := range plaintexts {
		if _, err := dst.Write(p); err != nil {
			return apackerr.New(apackerr.KindIO, "decode-entry", err)
		}
	}
	return nil
}
