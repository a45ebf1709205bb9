package blobstore

import (
	"os"

	"github.com/kenneth/apack/apackerr"
)

// fileSource wraps an *os.File opened for reading as a Source.
type fileSource struct {
	f    *os.File
	size int64
}

// OpenFile opens path for random-access reading.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apackerr.New(apackerr.KindIO, "blobstore-open-file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apackerr.New(apackerr.KindIO, "blobstore-open-file", err)
	}
	return &fileSource{f: f, size: info.Size()}, nil
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }
func (s *fileSource) Size() int64                             { return s.size }
func (s *fileSource) Close() error                             { return s.f.Close() }

// CreateFile creates (or truncates) path for writing. The returned Sink
// also implements io.Seeker, so Writer.Close can back-patch it.
func CreateFile(path string) (SeekableSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, apackerr.New(apackerr.KindIO, "blobstore-create-file", err)
	}
	return f, nil
}
