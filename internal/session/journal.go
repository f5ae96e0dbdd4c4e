package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const journalFile = "journal.jsonl"

// JournalEntry is one line in the append-only session journal.
type JournalEntry struct {
	SessionID      string    `json:"sessionID"`
	SavedAt        time.Time `json:"savedAt"`
	Note           string    `json:"note,omitempty"`
	TokensBefore   int       `json:"tokensBefore"`
	TranscriptPath string    `json:"transcriptPath"`
	MessageCount   int       `json:"messageCount"`
}

// AppendJournal appends the entry to sessions/journal.jsonl.
func AppendJournal(sessionsDir string, entry JournalEntry) error {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}

	path := filepath.Join(sessionsDir, journalFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// ReadJournal loads all journal entries, skipping malformed lines.
func ReadJournal(sessionsDir string) ([]JournalEntry, error) {
	data, err := os.ReadFile(filepath.Join(sessionsDir, journalFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []JournalEntry
	for _, line := range splitNonEmptyLines(data) {
		var entry JournalEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func splitNonEmptyLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
