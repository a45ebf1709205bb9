// Package reader opens an APACK archive for random-access or
// sequential entry retrieval: FileHeader/EncryptionBlock/Trailer
// parsing, entry lookup by id or exact name, streaming entry
// bodies, and a verify pass that walks every chunk without
// materializing entry contents.
package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"github.com/kenneth/apack/config"
	"github.com/kenneth/apack/keywrap"
	"github.com/kenneth/apack/pipeline"
	"github.com/kenneth/apack/providers"
)

// Reader opens one archive backed by an io.ReaderAt. Entry streams are
// exclusive: only one open_entry stream may be active at a time,
// matching how a single decrypt pass owns its source reader end to end.
type Reader struct {
	ra   io.ReaderAt
	size int64

	maxRatio          uint32
	maxStoredChunkLen uint32
	bundle            *providers.Bundle
	fileHeader        *apack.FileHeader
	encBlock          *apack.EncryptionBlock
	trailer           *apack.Trailer
	checksumFunc      apack.ChecksumFunc
	cek               []byte

	bodyStart int64 // offset of the first EntryHeader

	byID   map[uint64]*apack.TOCEntry
	byName map[uint64][]*apack.TOCEntry // keyed by XXH3-64 of the UTF-8 name

	mu   sync.Mutex
	busy bool
}

// Open parses the FileHeader, EncryptionBlock (if present), and Trailer
// (if the archive carries one), and returns a ready Reader. password is
// required iff the archive is encrypted.
func Open(ctx context.Context, ra io.ReaderAt, size int64, cfg *config.Config, bundle *providers.Bundle, password []byte) (*Reader, error) {
	headerBuf := make([]byte, apack.FileHeaderSize)
	if _, err := ra.ReadAt(headerBuf, 0); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "reader-open", err)
	}
	checksumAlgo := apack.ChecksumID(headerBuf[16])
	checksumFunc, err := bundle.ChecksumFunc(checksumAlgo)
	if err != nil {
		return nil, err
	}

	fh, err := apack.DecodeFileHeader(bytes.NewReader(headerBuf), checksumFunc)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		ra:                ra,
		size:              size,
		maxRatio:          cfg.MaxRatio,
		maxStoredChunkLen: cfg.MaxStoredChunkLen,
		bundle:            bundle,
		fileHeader:        fh,
		checksumFunc:      checksumFunc,
		bodyStart:         int64(apack.FileHeaderSize),
	}

	if fh.Encrypted() {
		sr := io.NewSectionReader(ra, r.bodyStart, size-r.bodyStart)
		block, err := apack.DecodeEncryptionBlock(sr)
		if err != nil {
			return nil, err
		}
		r.encBlock = block
		r.bodyStart += offsetAfterEncryptionBlock(sr)

		aeadProvider, err := bundle.AEAD(block.CipherAlgo)
		if err != nil {
			return nil, err
		}
		kdfProvider, err := bundle.KDF(block.KDFAlgo)
		if err != nil {
			return nil, err
		}
		wrapper := keywrap.NewLocalWrapper(kdfProvider, aeadProvider, block.KDFIterations, block.KDFMemoryKiB, block.KDFParallelism)
		cek, err := wrapper.Unwrap(ctx, password, block)
		if err != nil {
			return nil, err
		}
		r.cek = cek
	}

	if fh.RandomAccess() {
		sr := io.NewSectionReader(ra, int64(fh.TrailerOffset), size-int64(fh.TrailerOffset))
		trailer, err := apack.DecodeTrailer(sr, checksumFunc)
		if err != nil {
			return nil, err
		}
		r.trailer = trailer
	} else {
		trailer, err := r.scanTrailer()
		if err != nil {
			return nil, err
		}
		r.trailer = trailer
	}

	r.buildIndexes()
	return r, nil
}

// buildIndexes populates the by-id and by-name-hash lookup tables from
// r.trailer, so Entry and EntryByName resolve in O(1) average instead
// of scanning the TOC on every call.
func (r *Reader) buildIndexes() {
	r.byID = make(map[uint64]*apack.TOCEntry, len(r.trailer.Entries))
	r.byName = make(map[uint64][]*apack.TOCEntry, len(r.trailer.Entries))
	for i := range r.trailer.Entries {
		e := &r.trailer.Entries[i]
		r.byID[e.ID] = e
		h := nameHash(e.Name)
		r.byName[h] = append(r.byName[h], e)
	}
}

// nameHash is the XXH3-64 digest of name's UTF-8 bytes used to key the
// by-name index; collisions are resolved by linear probing of the
// (typically single-element) bucket they land in.
func nameHash(name string) uint64 {
	return xxh3.HashString(name)
}

// offsetAfterEncryptionBlock reports how many bytes of sr were consumed
// decoding the EncryptionBlock, so the caller can advance bodyStart
// without re-parsing.
func offsetAfterEncryptionBlock(sr *io.SectionReader) int64 {
	off, _ := sr.Seek(0, io.SeekCurrent)
	return off
}

// scanTrailer linearly walks EntryHeaders to build a TOC for an archive
// with no usable Trailer.TOC (stream mode or RandomAccess() false). A
// minimal Trailer and back-pointer are always written at the end of the
// archive regardless of mode, so the back-pointer — read directly off
// the end of the file — marks where the entry section stops and the
// scan must not follow it into Trailer bytes.
func (r *Reader) scanTrailer() (*apack.Trailer, error) {
	trailerOffset, err := r.readBackPointer()
	if err != nil {
		return nil, err
	}

	var entries []apack.TOCEntry
	offset := r.bodyStart
	for offset < trailerOffset {
		sr := io.NewSectionReader(r.ra, offset, r.size-offset)
		entry, err := apack.DecodeEntryHeader(sr, r.fileHeader.Encrypted(), r.checksumFunc)
		if err != nil {
			return nil, err
		}
		headerEnd, _ := sr.Seek(0, io.SeekCurrent)
		bodyLen, err := r.entryBodyLength(offset+headerEnd, entry)
		if err != nil {
			return nil, err
		}
		entries = append(entries, apack.TOCEntry{
			ID:           entry.ID,
			Name:         entry.Name,
			HeaderOffset: uint64(offset),
			OriginalSize: entry.OriginalSize,
			StoredSize:   entry.StoredSize,
		})
		offset += headerEnd + bodyLen
	}
	return &apack.Trailer{Entries: entries}, nil
}

// readBackPointer reads the 8-byte scan-from-end back-pointer off the
// last bytes of the archive and returns the Trailer offset it encodes.
func (r *Reader) readBackPointer() (int64, error) {
	if r.size < int64(apack.BackPointerSize) {
		return 0, apackerr.New(apackerr.KindFormat, "reader-scan-trailer", fmt.Errorf("archive too small to carry a back-pointer"))
	}
	buf := make([]byte, apack.BackPointerSize)
	if _, err := r.ra.ReadAt(buf, r.size-int64(apack.BackPointerSize)); err != nil {
		return 0, apackerr.New(apackerr.KindIO, "reader-scan-trailer", err)
	}
	trailerOffset, err := apack.DecodeBackPointer(buf)
	if err != nil {
		return 0, err
	}
	return int64(trailerOffset), nil
}

// entryBodyLength walks chunkCount ChunkHeaders starting at bodyOffset
// to compute how many bytes the entry's chunk section occupies, without
// decoding any chunk payload. The original-length/ratio bomb check is
// left unbounded here and re-applied with the real configured ratio
// when a chunk is actually decoded, since this scan runs under the
// Reader's own configured ratio rather than whatever the Writer used
// and a mismatch shouldn't fail TOC construction. The stored-length
// bound has no such asymmetry — it protects this scan's own allocation
// — so it is always enforced with the real configured maximum.
func (r *Reader) entryBodyLength(bodyOffset int64, entry *apack.EntryHeader) (int64, error) {
	var total int64
	offset := bodyOffset
	for i := uint32(0); i < entry.ChunkCount; i++ {
		sr := io.NewSectionReader(r.ra, offset, r.size-offset)
		ch, err := apack.DecodeChunkHeader(sr, r.fileHeader.DefaultChunkSize, maxRatioUnbounded, r.maxStoredChunkLen)
		if err != nil {
			return 0, err
		}
		chunkTotal := int64(apack.ChunkHeaderSize) + int64(ch.StoredLen)
		total += chunkTotal
		offset += chunkTotal
	}
	return total, nil
}

// maxRatioUnbounded is used only while linearly scanning headers to
// build a TOC; the decompression-bomb ratio check happens again, with
// the real configured ratio, when a chunk is actually decoded.
const maxRatioUnbounded = 1 << 20

// FileHeader returns the parsed FileHeader.
func (r *Reader) FileHeader() *apack.FileHeader { return r.fileHeader }

// EncryptionBlock returns the parsed EncryptionBlock, or nil if the
// archive is not encrypted.
func (r *Reader) EncryptionBlock() *apack.EncryptionBlock { return r.encBlock }

// Entries returns the TOC rows in on-disk order.
func (r *Reader) Entries() []apack.TOCEntry {
	if r.trailer == nil {
		return nil
	}
	return r.trailer.Entries
}

// Entry looks up one TOC row by id.
func (r *Reader) Entry(id uint64) (*apack.TOCEntry, error) {
	if e, ok := r.byID[id]; ok {
		return e, nil
	}
	return nil, apackerr.New(apackerr.KindNotFound, "reader-entry", fmt.Errorf("no entry with id %d", id))
}

// EntryByName looks up one TOC row by exact name match. Entries are
// bucketed by XXH3-64 of their name; a hash collision within a bucket
// is resolved by checking each candidate's name in turn.
func (r *Reader) EntryByName(name string) (*apack.TOCEntry, error) {
	for _, e := range r.byName[nameHash(name)] {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, apackerr.New(apackerr.KindNotFound, "reader-entry-by-name", fmt.Errorf("no entry named %q", name))
}

// readEntryHeaderAt parses the EntryHeader at toc.HeaderOffset and
// returns both it and the offset immediately following it.
func (r *Reader) readEntryHeaderAt(toc *apack.TOCEntry) (*apack.EntryHeader, int64, error) {
	sr := io.NewSectionReader(r.ra, int64(toc.HeaderOffset), r.size-int64(toc.HeaderOffset))
	entry, err := apack.DecodeEntryHeader(sr, r.fileHeader.Encrypted(), r.checksumFunc)
	if err != nil {
		return nil, 0, err
	}
	bodyOffset, _ := sr.Seek(0, io.SeekCurrent)
	return entry, int64(toc.HeaderOffset) + bodyOffset, nil
}

// OpenEntry streams the decoded contents of one entry to dst. Only one
// OpenEntry call may be in flight on a Reader at a time.
func (r *Reader) OpenEntry(ctx context.Context, id uint64, dst io.Writer) error {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return apackerr.New(apackerr.KindBusy, "reader-open-entry", fmt.Errorf("another entry stream is already open"))
	}
	r.busy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	toc, err := r.Entry(id)
	if err != nil {
		return err
	}
	entry, bodyOffset, err := r.readEntryHeaderAt(toc)
	if err != nil {
		return err
	}

	opts, err := r.pipelineOptionsFor(entry)
	if err != nil {
		return err
	}
	parityShards, err := eccParityShards(entry)
	if err != nil {
		return err
	}

	sr := io.NewSectionReader(r.ra, bodyOffset, r.size-bodyOffset)
	return pipeline.DecodeEntry(sr, opts, entry.ID, entry.ChunkCount, parityShards, dst)
}

func eccParityShards(entry *apack.EntryHeader) (int, error) {
	if !entry.HasECC {
		return 0, nil
	}
	for _, a := range entry.Attributes {
		if a.Key == "ecc.parity_shards" && a.Kind == apack.AttrInt64 {
			return int(a.Int), nil
		}
	}
	return 0, apackerr.New(apackerr.KindFormat, "reader-ecc-parity-shards", fmt.Errorf("entry %d flagged has_ecc but carries no ecc.parity_shards attribute", entry.ID))
}

func (r *Reader) pipelineOptionsFor(entry *apack.EntryHeader) (pipeline.Options, error) {
	opts := pipeline.Options{
		ChunkSize:         r.fileHeader.DefaultChunkSize,
		MaxRatio:          r.maxRatio,
		MaxStoredChunkLen: r.maxStoredChunkLen,
	}
	checksum, err := r.bundle.Checksum(r.fileHeader.ChecksumAlgo)
	if err != nil {
		return opts, err
	}
	opts.Checksum = checksum
	if entry.CompressionID != apack.CompressionNone {
		compressor, err := r.bundle.Compressor(entry.CompressionID)
		if err != nil {
			return opts, err
		}
		opts.Compressor = compressor
	}
	if entry.EncryptionID != apack.EncryptionNone {
		aeadProvider, err := r.bundle.AEAD(entry.EncryptionID)
		if err != nil {
			return opts, err
		}
		opts.AEAD = aeadProvider
		opts.Key = r.cek
	}
	return opts, nil
}

// Verify walks every entry's chunks, checking checksums (and AEAD tags,
// if encrypted) without writing decoded bytes anywhere, returning the
// first integrity failure encountered.
func (r *Reader) Verify(ctx context.Context) error {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return apackerr.New(apackerr.KindBusy, "reader-verify", fmt.Errorf("an entry stream is already open"))
	}
	r.busy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	for _, toc := range r.trailer.Entries {
		entry, bodyOffset, err := r.readEntryHeaderAt(&toc)
		if err != nil {
			return err
		}
		opts, err := r.pipelineOptionsFor(entry)
		if err != nil {
			return err
		}
		parityShards, err := eccParityShards(entry)
		if err != nil {
			return err
		}
		sr := io.NewSectionReader(r.ra, bodyOffset, r.size-bodyOffset)
		if err := pipeline.DecodeEntry(sr, opts, entry.ID, entry.ChunkCount, parityShards, io.Discard); err != nil {
			return apackerr.New(apackerr.KindIntegrity, "reader-verify", fmt.Errorf("entry %d (%s): %w", entry.ID, entry.Name, err))
		}
	}
	return nil
}
