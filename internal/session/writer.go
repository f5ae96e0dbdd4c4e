package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one saved conversation record.
type Entry struct {
	Date           string
	Counter        string
	Slug           string
	Title          string
	SessionID      string
	SavedAt        time.Time
	Duration       string
	MessageCount   int
	TokensBefore   int
	Summary        string
	Note           string
	TranscriptPath string
}

func dateDirPath(sessionsDir, date string) string {
	return filepath.Join(sessionsDir, date)
}

// Write stores the entry as sessions/<date>/NNN_slug.md and returns
// the full path.
func Write(sessionsDir string, entry Entry) (string, error) {
	if !ValidDate(entry.Date) {
		return "", fmt.Errorf("invalid date format: %s", entry.Date)
	}

	filename, err := BuildFilename(entry.Counter, entry.Slug)
	if err != nil {
		return "", err
	}

	dateDir := dateDirPath(sessionsDir, entry.Date)
	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	path := filepath.Join(dateDir, filename)
	if err := os.WriteFile(path, []byte(buildContent(entry)), 0644); err != nil {
		return "", fmt.Errorf("session save failed: %w", err)
	}

	return path, nil
}

func buildContent(entry Entry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Session: %s\n\n", entry.Title)
	fmt.Fprintf(&b, "**Date**: %s\n", entry.Date)
	fmt.Fprintf(&b, "**Time**: %s UTC\n", entry.SavedAt.UTC().Format("15:04:05"))
	fmt.Fprintf(&b, "**Session ID**: %s\n", entry.SessionID)
	fmt.Fprintf(&b, "**Duration**: %s\n", orUnknown(entry.Duration))
	fmt.Fprintf(&b, "**Messages**: %d\n", entry.MessageCount)
	fmt.Fprintf(&b, "**Tokens**: %d\n\n", entry.TokensBefore)

	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", entry.Summary)

	if entry.Note != "" {
		fmt.Fprintf(&b, "## Notes\n\n%s\n\n", entry.Note)
	}

	if entry.TranscriptPath != "" {
		fmt.Fprintf(&b, "## Transcript Location\n\n`%s`\n\n", entry.TranscriptPath)
	}

	fmt.Fprintf(&b, "---\n\n*Session saved: %s*\n", entry.SavedAt.UTC().Format(time.RFC3339))

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// FormatDuration renders the gap between two timestamps as
// "45 minutes" or "2 hours 15 minutes".
func FormatDuration(start, end time.Time) string {
	mins := int(end.Sub(start).Minutes())

	if mins < 60 {
		return fmt.Sprintf("%d %s", mins, plural("minute", mins))
	}

	hours := mins / 60
	mins = mins % 60
	if mins == 0 {
		return fmt.Sprintf("%d %s", hours, plural("hour", hours))
	}
	return fmt.Sprintf("%d %s %d %s", hours, plural("hour", hours), mins, plural("minute", mins))
}

func plural(unit string, n int) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
