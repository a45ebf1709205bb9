package blobstore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kenneth/apack/apackerr"
)

// MemorySink is a growable in-memory SeekableSink, useful for tests and
// for building a small archive entirely in RAM before handing its bytes
// to some other backend.
type MemorySink struct {
	buf    []byte
	offset int64
	closed bool
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, apackerr.New(apackerr.KindClosed, "memory-sink-write", fmt.Errorf("write on closed sink"))
	}
	end := s.offset + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	n := copy(s.buf[s.offset:end], p)
	s.offset += int64(n)
	return n, nil
}

func (s *MemorySink) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = s.offset
	case io.SeekEnd:
		base = int64(len(s.buf))
	default:
		return 0, apackerr.New(apackerr.KindIO, "memory-sink-seek", fmt.Errorf("unknown whence %d", whence))
	}
	next := base + offset
	if next < 0 {
		return 0, apackerr.New(apackerr.KindIO, "memory-sink-seek", fmt.Errorf("negative seek position %d", next))
	}
	s.offset = next
	return next, nil
}

func (s *MemorySink) Close() error {
	s.closed = true
	return nil
}

// Bytes returns the sink's current contents. Safe to call after Close.
func (s *MemorySink) Bytes() []byte { return s.buf }

// memorySource wraps an in-memory byte slice as a Source.
type memorySource struct {
	r *bytes.Reader
}

// NewMemorySource wraps data as a read-only Source.
func NewMemorySource(data []byte) Source {
	return &memorySource{r: bytes.NewReader(data)}
}

func (s *memorySource) ReadAt(p []byte, off int64) (int, error) { return s.r.ReadAt(p, off) }
func (s *memorySource) Size() int64                             { return s.r.Size() }
func (s *memorySource) Close() error                            { return nil }
