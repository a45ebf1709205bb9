package blobstore

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/apack/apackerr"
)

func TestFileSinkAndSourceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.apack")

	sink, err := CreateFile(path)
	require.NoError(t, err)
	_, err = sink.Write([]byte("hello archive"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, int64(len("hello archive")), src.Size())
	got := make([]byte, len("hello archive"))
	_, err = src.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello archive", string(got))
}

func TestFileSinkSupportsSeek(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.apack")
	sink, err := CreateFile(path)
	require.NoError(t, err)
	defer sink.Close()

	_, err = sink.Write([]byte("0123456789"))
	require.NoError(t, err)

	_, err = sink.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = sink.Write([]byte("AB"))
	require.NoError(t, err)

	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "AB23456789", string(data))
}

func TestOpenFileMissingPathFails(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "nope.apack"))
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindIO))
}

func TestMemorySinkWriteAndSeek(t *testing.T) {
	sink := NewMemorySink()
	_, err := sink.Write([]byte("hello"))
	require.NoError(t, err)

	_, err = sink.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = sink.Write([]byte("H"))
	require.NoError(t, err)

	require.NoError(t, sink.Close())
	assert.Equal(t, "Hello", string(sink.Bytes()))
}

func TestMemorySinkWriteAfterCloseFails(t *testing.T) {
	sink := NewMemorySink()
	require.NoError(t, sink.Close())

	_, err := sink.Write([]byte("x"))
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindClosed))
}

func TestMemorySinkSeekNegativeRejected(t *testing.T) {
	sink := NewMemorySink()
	_, err := sink.Write([]byte("hello"))
	require.NoError(t, err)

	_, err = sink.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}

func TestMemorySinkSeekEndAppends(t *testing.T) {
	sink := NewMemorySink()
	_, err := sink.Write([]byte("hello"))
	require.NoError(t, err)

	_, err = sink.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	_, err = sink.Write([]byte(" world"))
	require.NoError(t, err)

	assert.Equal(t, "hello world", string(sink.Bytes()))
}

func TestMemorySourceRoundTrip(t *testing.T) {
	src := NewMemorySource([]byte("some archive bytes"))
	defer src.Close()

	assert.Equal(t, int64(len("some archive bytes")), src.Size())

	got := make([]byte, 4)
	n, err := src.ReadAt(got, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "rchi", string(got))
}
