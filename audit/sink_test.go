package audit

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkAppendsOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.WriteEvent(&Event{EventType: EventTypeOpen, Success: true}))
	require.NoError(t, sink.WriteEvent(&Event{EventType: EventTypeVerify, Success: false, Error: "bad checksum"}))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, EventTypeOpen, first.EventType)
}

func TestHTTPSinkPostsEventAsJSON(t *testing.T) {
	var captured Event
	var gotHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	sink := NewHTTPSink(ts.URL, map[string]string{"X-Api-Key": "secret"})
	require.NoError(t, sink.WriteEvent(&Event{EventType: EventTypeKeyRotation, KeyVersion: 4}))

	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, EventTypeKeyRotation, captured.EventType)
	assert.Equal(t, 4, captured.KeyVersion)
}

func TestHTTPSinkReturnsErrorOnNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	sink := NewHTTPSink(ts.URL, nil)
	err := sink.WriteEvent(&Event{EventType: EventTypeOpen})
	assert.Error(t, err)
}

func TestBatchSinkFlushesOnSize(t *testing.T) {
	mock := &mockWriter{}
	sink := NewBatchSink(mock, 3, time.Hour)
	defer sink.Close()

	require.NoError(t, sink.WriteEvent(&Event{EventType: EventTypeOpen}))
	require.NoError(t, sink.WriteEvent(&Event{EventType: EventTypeOpen}))
	assert.Len(t, mock.snapshot(), 0)

	require.NoError(t, sink.WriteEvent(&Event{EventType: EventTypeOpen}))
	assert.Eventually(t, func() bool { return len(mock.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
}

func TestBatchSinkFlushesOnInterval(t *testing.T) {
	mock := &mockWriter{}
	sink := NewBatchSink(mock, 100, 20*time.Millisecond)
	defer sink.Close()

	require.NoError(t, sink.WriteEvent(&Event{EventType: EventTypeOpen}))
	assert.Eventually(t, func() bool { return len(mock.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestBatchSinkCloseFlushesRemaining(t *testing.T) {
	mock := &mockWriter{}
	sink := NewBatchSink(mock, 100, time.Hour)

	require.NoError(t, sink.WriteEvent(&Event{EventType: EventTypeOpen}))
	require.NoError(t, sink.Close())

	assert.Len(t, mock.snapshot(), 1)
}
