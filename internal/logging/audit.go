package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditLog records the lifecycle of a single review as an append-only
// file under the workspace reviews directory. It is the durable trace
// of what happened in a review that otherwise lives only in memory.
// All methods are safe on a nil receiver so callers can treat auditing
// as optional.
type AuditLog struct {
	reviewID  string
	startTime time.Time

	mu      sync.Mutex
	logFile *os.File
}

// OpenAudit creates reviews/<reviewID>.log and writes the header.
func OpenAudit(dir, reviewID string) (*AuditLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, reviewID+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	a := &AuditLog{
		reviewID:  reviewID,
		startTime: time.Now(),
		logFile:   f,
	}
	a.writeHeader()
	return a, nil
}

// Event appends one formatted line with a timestamp and the elapsed
// time since the review opened.
func (a *AuditLog) Event(format string, args ...interface{}) {
	if a == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.logFile == nil {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(a.startTime).Round(time.Millisecond)
	fmt.Fprintf(a.logFile, "[%s] [+%v] %s\n", timestamp, elapsed, fmt.Sprintf(format, args...))
	a.logFile.Sync()
}

// Close writes the closing line and releases the file.
func (a *AuditLog) Close() {
	if a == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.logFile == nil {
		return
	}

	elapsed := time.Since(a.startTime).Round(time.Millisecond)
	fmt.Fprintf(a.logFile, "[%s] [+%v] Review audit closed\n", time.Now().Format("15:04:05.000"), elapsed)
	a.logFile.Sync()
	a.logFile.Close()
	a.logFile = nil
}

func (a *AuditLog) writeHeader() {
	header := fmt.Sprintf(`OPENFLEET REVIEW AUDIT LOG
Review ID: %s
Start Time: %s
Log Format: [HH:MM:SS.mmm] [+duration] message

`, a.reviewID, a.startTime.Format("2006-01-02 15:04:05"))

	a.logFile.WriteString(header)
	a.logFile.Sync()
}
