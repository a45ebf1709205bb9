// Package writer implements the Writer state machine: Fresh -> Open ->
// Closed. Create writes the FileHeader (and EncryptionBlock, if
// encrypted); AddEntry appends one entry; Close finalizes the trailer
// and, on a seekable sink, back-patches the FileHeader's EntryCount and
// TrailerOffset.
package writer

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"github.com/kenneth/apack/config"
	"github.com/kenneth/apack/keywrap"
	"github.com/kenneth/apack/pipeline"
	"github.com/kenneth/apack/providers"
)

type state int

const (
	stateFresh state = iota
	stateOpen
	stateClosed
)

// countingWriter tracks how many bytes have passed through it, so the
// Writer knows each entry header's offset even on a sink that can't be
// queried for its position.
type countingWriter struct {
	w      io.Writer
	offset uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.offset += uint64(n)
	return n, err
}

// Writer builds one APACK archive on top of an io.Writer. When the sink
// also implements io.Seeker, Close back-patches the FileHeader in
// place; otherwise the archive is finalized in stream mode, since a
// non-seekable sink can't have bytes it already advanced past rewritten.
type Writer struct {
	mu     sync.Mutex
	cw     *countingWriter
	seeker io.Seeker

	cfg    *config.Config
	bundle *providers.Bundle

	checksumFunc apack.ChecksumFunc
	encrypted    bool
	streamMode   bool
	cek          []byte
	encBlock     *apack.EncryptionBlock

	state          state
	nextEntryID    uint64
	toc            []apack.TOCEntry
	headerBytesLen uint64
}

// New builds a Writer in state Fresh. password is required iff
// cfg.Encryption is not apack.EncryptionNone.
func New(ctx context.Context, sink io.Writer, cfg *config.Config, bundle *providers.Bundle, password []byte) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	checksumFunc, err := bundle.ChecksumFunc(cfg.Checksum)
	if err != nil {
		return nil, err
	}

	var seeker io.Seeker
	if s, ok := sink.(io.Seeker); ok {
		seeker = s
	}
	streamMode := seeker == nil

	w := &Writer{
		cw:           &countingWriter{w: sink},
		seeker:       seeker,
		cfg:          cfg,
		bundle:       bundle,
		checksumFunc: checksumFunc,
		encrypted:    cfg.Encryption != apack.EncryptionNone,
		streamMode:   streamMode,
		nextEntryID:  1,
	}

	if w.encrypted {
		aeadProvider, err := bundle.AEAD(cfg.Encryption)
		if err != nil {
			return nil, err
		}
		kdfProvider, err := bundle.KDF(cfg.KDF)
		if err != nil {
			return nil, err
		}
		cek := make([]byte, aeadProvider.KeySize())
		if _, err := rand.Read(cek); err != nil {
			return nil, apackerr.New(apackerr.KindIO, "writer-new", err)
		}
		wrapper := keywrap.NewLocalWrapper(kdfProvider, aeadProvider, 2, 64*1024, 4)
		block, err := wrapper.Wrap(ctx, password, cek)
		if err != nil {
			return nil, err
		}
		w.cek = cek
		w.encBlock = block
	}
	return w, nil
}

// Create writes the FileHeader (and EncryptionBlock, if configured),
// transitioning Fresh -> Open.
func (w *Writer) Create() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateFresh {
		return apackerr.New(apackerr.KindClosed, "writer-create", fmt.Errorf("create called outside Fresh state"))
	}

	randomAccess := w.cfg.RandomAccess && !w.streamMode
	fh := apack.NewFileHeader(w.cfg.ChunkSize, w.cfg.Checksum, randomAccess, w.encrypted, w.streamMode)
	headerBytes, err := fh.Encode(w.checksumFunc)
	if err != nil {
		return err
	}
	if _, err := w.cw.Write(headerBytes); err != nil {
		return apackerr.New(apackerr.KindIO, "writer-create", err)
	}
	if w.encrypted {
		if err := w.encBlock.Encode(w.cw); err != nil {
			return err
		}
	}
	w.headerBytesLen = w.cw.offset
	w.state = stateOpen
	return nil
}

// AddEntry reads src fully, runs it through the chunk pipeline, and
// appends the encoded EntryHeader and chunks to the archive. attrs may
// be nil.
func (w *Writer) AddEntry(name, mimeType string, attrs []apack.Attribute, src io.Reader) (*apack.EntryHeader, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateOpen {
		return nil, apackerr.New(apackerr.KindClosed, "writer-add-entry", fmt.Errorf("add-entry called outside Open state"))
	}

	entryID := w.nextEntryID
	w.nextEntryID++
	headerOffset := w.cw.offset

	opts, err := w.pipelineOptions()
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	result, err := pipeline.EncodeEntry(&body, opts, entryID, src, w.cfg.ECCParity)
	if err != nil {
		return nil, apackerr.New(apackerr.KindIO, "writer-add-entry", err).WithEntry(int64(entryID), 0)
	}

	entry := &apack.EntryHeader{
		HeaderVersion: 1,
		ID:            entryID,
		OriginalSize:  result.OriginalSize,
		StoredSize:    result.StoredSize,
		ChunkCount:    result.ChunkCount,
		CompressionID: w.cfg.Compression,
		EncryptionID:  w.cfg.Encryption,
		HasECC:        result.ParityShards > 0,
		Attributes:    attrs,
		Name:          name,
		MIMEType:      mimeType,
	}
	if result.ParityShards > 0 {
		entry.Attributes = append(entry.Attributes,
			apack.Attribute{Key: "ecc.parity_shards", Kind: apack.AttrInt64, Int: int64(result.ParityShards)},
			apack.Attribute{Key: "ecc.shard_len", Kind: apack.AttrInt64, Int: int64(result.ShardLen)},
		)
	}

	headerBytes, err := entry.Encode(w.encrypted, w.checksumFunc)
	if err != nil {
		return nil, err
	}
	if _, err := w.cw.Write(headerBytes); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "writer-add-entry", err)
	}
	if _, err := w.cw.Write(body.Bytes()); err != nil {
		return nil, apackerr.New(apackerr.KindIO, "writer-add-entry", err)
	}

	w.toc = append(w.toc, apack.TOCEntry{
		ID:           entryID,
		Name:         name,
		HeaderOffset: headerOffset,
		OriginalSize: result.OriginalSize,
		StoredSize:   result.StoredSize,
	})
	return entry, nil
}

// EntryCount reports how many entries have been added so far.
func (w *Writer) EntryCount() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return uint64(len(w.toc))
}

func (w *Writer) pipelineOptions() (pipeline.Options, error) {
	opts := pipeline.Options{
		ChunkSize:         w.cfg.ChunkSize,
		MaxRatio:          w.cfg.MaxRatio,
		MaxStoredChunkLen: w.cfg.MaxStoredChunkLen,
	}
	checksum, err := w.bundle.Checksum(w.cfg.Checksum)
	if err != nil {
		return opts, err
	}
	opts.Checksum = checksum
	if w.cfg.Compression != apack.CompressionNone {
		compressor, err := w.bundle.Compressor(w.cfg.Compression)
		if err != nil {
			return opts, err
		}
		opts.Compressor = compressor
	}
	if w.encrypted {
		aeadProvider, err := w.bundle.AEAD(w.cfg.Encryption)
		if err != nil {
			return opts, err
		}
		opts.AEAD = aeadProvider
		opts.Key = w.cek
	}
	return opts, nil
}

// Close writes the Trailer and back-pointer in every mode (the TOC rows
// only when random access is in effect) and, when random access is in
// effect on a seekable sink, back-patches the FileHeader's EntryCount
// and TrailerOffset fields in place.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == stateClosed {
		return nil
	}
	if w.state != stateOpen {
		return apackerr.New(apackerr.KindClosed, "writer-close", fmt.Errorf("close called outside Open state"))
	}

	trailerOffset := w.cw.offset
	randomAccess := w.cfg.RandomAccess && !w.streamMode

	// A Trailer is always written, even on a non-seekable sink: the TOC
	// rows are only meaningful when randomAccess holds, but the same
	// struct and decode path serve both modes, and a stream-mode reader
	// falls back to a linear EntryHeader scan instead of trusting an
	// empty TOC.
	entries := w.toc
	if !randomAccess {
		entries = nil
	}
	trailer := &apack.Trailer{Entries: entries}
	trailerBytes, err := trailer.Encode(w.checksumFunc)
	if err != nil {
		return err
	}
	if _, err := w.cw.Write(trailerBytes); err != nil {
		return apackerr.New(apackerr.KindIO, "writer-close", err)
	}
	if _, err := w.cw.Write(apack.EncodeBackPointer(trailerOffset)); err != nil {
		return apackerr.New(apackerr.KindIO, "writer-close", err)
	}

	if randomAccess && w.seeker != nil {
		fh := apack.NewFileHeader(w.cfg.ChunkSize, w.cfg.Checksum, true, w.encrypted, false)
		fh.EntryCount = uint64(len(w.toc))
		fh.TrailerOffset = trailerOffset
		headerBytes, err := fh.Encode(w.checksumFunc)
		if err != nil {
			return err
		}
		if _, err := w.seeker.Seek(0, io.SeekStart); err != nil {
			return apackerr.New(apackerr.KindIO, "writer-close", err)
		}
		if _, err := w.cw.w.Write(headerBytes); err != nil {
			return apackerr.New(apackerr.KindIO, "writer-close", err)
		}
		if _, err := w.seeker.Seek(0, io.SeekEnd); err != nil {
			return apackerr.New(apackerr.KindIO, "writer-close", err)
		}
	}

	w.state = stateClosed
	return nil
}
