package autoupdate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// timestampFormat prefixes every outcome log line
const timestampFormat = "2006-01-02 15:04:05"

// OutcomeLog appends one timestamped line per outcome to a writer
type OutcomeLog struct {
	mu  sync.Mutex
	w   io.Writer
	c   io.Closer
	now func() time.Time
}

// NewOutcomeLog writes outcome lines to w
func NewOutcomeLog(w io.Writer) *OutcomeLog {
	return &OutcomeLog{w: w, now: time.Now}
}

// OpenOutcomeLog opens path for appending, creating it and its directory if needed
func OpenOutcomeLog(path string) (*OutcomeLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &OutcomeLog{w: f, c: f, now: time.Now}, nil
}

// Write appends the outcome as "[YYYY-MM-DD HH:MM:SS] <message>"
func (l *OutcomeLog) Write(o Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.w, "[%s] %s\n", l.now().Format(timestampFormat), o.Message())
	return err
}

// Close closes the underlying file, if any
func (l *OutcomeLog) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}
