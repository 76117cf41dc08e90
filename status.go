package aerialmap

import (
	"fmt"
	"log/slog"
	"sync"
)

type StatusLevel uint8

const (
	StatusOk StatusLevel = iota
	StatusWarn
	StatusError
)

var _ fmt.Stringer = StatusOk

var statusLevelStrings = map[StatusLevel]string{
	StatusOk:    "ok",
	StatusWarn:  "warn",
	StatusError: "error",
}

func (l StatusLevel) String() string {
	return statusLevelStrings[l]
}

func (l StatusLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// Status keys reported by the display.
const (
	StatusKeyTopic       = "Topic"
	StatusKeyTileRequest = "TileRequest"
	StatusKeyMessage     = "Message"
	StatusKeyTransform   = "Transform"
)

// StatusSink receives keyed status updates from the display. It is purely
// observational; nothing feeds back into the display.
type StatusSink interface {
	SetStatus(level StatusLevel, key, message string)
}

// StatusEntry is one reported status.
type StatusEntry struct {
	Level   StatusLevel `json:"level"`
	Message string      `json:"message"`
}

// StatusMap is a StatusSink that retains the latest entry per key.
type StatusMap struct {
	mu      sync.RWMutex
	entries map[string]StatusEntry
}

func NewStatusMap() *StatusMap {
	return &StatusMap{entries: make(map[string]StatusEntry)}
}

func (s *StatusMap) SetStatus(level StatusLevel, key, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = StatusEntry{Level: level, Message: message}
}

// Snapshot returns a copy of the current entries.
func (s *StatusMap) Snapshot() map[string]StatusEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]StatusEntry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// logSink forwards statuses to a structured logger. Used when no sink is
// injected, so status traffic is never silently dropped.
type logSink struct {
	log *slog.Logger
}

func (s logSink) SetStatus(level StatusLevel, key, message string) {
	switch level {
	case StatusError:
		s.log.Error("status", "key", key, "message", message)
	case StatusWarn:
		s.log.Warn("status", "key", key, "message", message)
	default:
		s.log.Debug("status", "key", key, "message", message)
	}
}
