// Package audit records a structured, append-only log of archive
// operations (entry encode/decode, key rotation, open, verify) through
// a pluggable EventWriter, independent of the metrics package's
// aggregate counters.
package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// EventType is the closed set of operations this log records.
type EventType string

const (
	EventTypeEncryptEntry EventType = "encrypt_entry"
	EventTypeDecryptEntry EventType = "decrypt_entry"
	EventTypeKeyRotation  EventType = "key_rotation"
	EventTypeOpen         EventType = "open"
	EventTypeVerify       EventType = "verify"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp  time.Time              `json:"timestamp"`
	EventType  EventType              `json:"event_type"`
	EntryID    uint64                 `json:"entry_id,omitempty"`
	EntryName  string                 `json:"entry_name,omitempty"`
	Algorithm  string                 `json:"algorithm,omitempty"`
	KeyVersion int                    `json:"key_version,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Duration   time.Duration          `json:"duration_ms"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// EventWriter persists one Event. Implementations must be safe to call
// from Logger's internal lock held for only as long as the call itself.
type EventWriter interface {
	WriteEvent(event *Event) error
}

// Logger is the audit logging surface archive operations call into.
type Logger interface {
	LogEncryptEntry(id uint64, name, algorithm string, keyVersion int, success bool, err error, d time.Duration, metadata map[string]interface{})
	LogDecryptEntry(id uint64, name, algorithm string, keyVersion int, success bool, err error, d time.Duration, metadata map[string]interface{})
	LogKeyRotation(keyVersion int, success bool, err error)
	LogOpen(success bool, err error, d time.Duration)
	LogVerify(success bool, err error, d time.Duration)
	GetEvents() []*Event
	Close() error
}

type logger struct {
	mu         sync.Mutex
	events     []*Event
	maxEvents  int
	writer     EventWriter
	redactKeys []string
}

// NewLogger returns a Logger that keeps up to maxEvents in memory and
// forwards each event to writer (a defaultWriter if nil).
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return NewLoggerWithRedaction(maxEvents, writer, nil)
}

// NewLoggerWithRedaction is NewLogger plus a list of metadata keys whose
// values are replaced with "[REDACTED]" before logging.
func NewLoggerWithRedaction(maxEvents int, writer EventWriter, redactKeys []string) Logger {
	if writer == nil {
		writer = &defaultWriter{}
	}
	return &logger{
		events:     make([]*Event, 0, maxEvents),
		maxEvents:  maxEvents,
		writer:     writer,
		redactKeys: redactKeys,
	}
}

func (l *logger) record(e *Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Metadata = l.redact(e.Metadata)
	_ = l.writer.WriteEvent(e)
	l.events = append(l.events, e)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}
}

func (l *logger) redact(metadata map[string]interface{}) map[string]interface{} {
	if len(l.redactKeys) == 0 || len(metadata) == 0 {
		return metadata
	}
	clone := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	for _, k := range l.redactKeys {
		if _, ok := clone[k]; ok {
			clone[k] = "[REDACTED]"
		}
	}
	return clone
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (l *logger) LogEncryptEntry(id uint64, name, algorithm string, keyVersion int, success bool, err error, d time.Duration, metadata map[string]interface{}) {
	l.record(&Event{
		Timestamp: time.Now(), EventType: EventTypeEncryptEntry,
		EntryID: id, EntryName: name, Algorithm: algorithm, KeyVersion: keyVersion,
		Success: success, Error: errString(err), Duration: d, Metadata: metadata,
	})
}

func (l *logger) LogDecryptEntry(id uint64, name, algorithm string, keyVersion int, success bool, err error, d time.Duration, metadata map[string]interface{}) {
	l.record(&Event{
		Timestamp: time.Now(), EventType: EventTypeDecryptEntry,
		EntryID: id, EntryName: name, Algorithm: algorithm, KeyVersion: keyVersion,
		Success: success, Error: errString(err), Duration: d, Metadata: metadata,
	})
}

func (l *logger) LogKeyRotation(keyVersion int, success bool, err error) {
	l.record(&Event{
		Timestamp: time.Now(), EventType: EventTypeKeyRotation,
		KeyVersion: keyVersion, Success: success, Error: errString(err),
	})
}

func (l *logger) LogOpen(success bool, err error, d time.Duration) {
	l.record(&Event{Timestamp: time.Now(), EventType: EventTypeOpen, Success: success, Error: errString(err), Duration: d})
}

func (l *logger) LogVerify(success bool, err error, d time.Duration) {
	l.record(&Event{Timestamp: time.Now(), EventType: EventTypeVerify, Success: success, Error: errString(err), Duration: d})
}

func (l *logger) GetEvents() []*Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := make([]*Event, len(l.events))
	copy(events, l.events)
	return events
}

func (l *logger) Close() error {
	if closer, ok := l.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// defaultWriter writes each event as one line of JSON to stdout.
type defaultWriter struct{}

func (w *defaultWriter) WriteEvent(e *Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
