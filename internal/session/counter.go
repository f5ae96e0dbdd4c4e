package session

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const maxCounter = 999

var (
	filenamePattern = regexp.MustCompile(`^(\d{3})_(.+)\.md$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	counterPattern  = regexp.MustCompile(`^\d{3}$`)
)

// NextCounter scans the date's session directory for NNN_slug.md files
// and returns the next 3-digit zero-padded counter. The counter is
// monotonic per calendar date; overflow clamps at 999 with a warning.
// Scan errors fall back to "001" so a save never fails on bookkeeping.
func NextCounter(sessionsDir, date string) string {
	dateDir := dateDirPath(sessionsDir, date)

	entries, err := os.ReadDir(dateDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Str("dir", dateDir).Msg("Failed to scan sessions, defaulting counter to 001")
		}
		return "001"
	}

	highest := 0
	for _, entry := range entries {
		counter, _, ok := parseFilename(entry.Name())
		if ok && counter > highest {
			highest = counter
		}
	}

	next := highest + 1
	if next > maxCounter {
		log.Warn().Str("date", date).Int("counter", next).Msg("Session counter overflow")
		next = maxCounter
	}

	return fmt.Sprintf("%03d", next)
}

// parseFilename extracts the counter and slug from an NNN_slug.md
// session filename. Counters outside 1..999 are rejected.
func parseFilename(name string) (counter int, slug string, ok bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}

	counter, err := strconv.Atoi(m[1])
	if err != nil || counter < 1 || counter > maxCounter {
		return 0, "", false
	}

	return counter, m[2], true
}

// SessionsForDate lists session filenames recorded on the given date,
// sorted lexically (which is chronological thanks to the counter).
func SessionsForDate(sessionsDir, date string) []string {
	entries, err := os.ReadDir(dateDirPath(sessionsDir, date))
	if err != nil {
		return nil
	}

	var files []string
	for _, entry := range entries {
		if _, _, ok := parseFilename(entry.Name()); ok {
			files = append(files, entry.Name())
		}
	}
	return files
}

// CurrentDate returns today's date in YYYY-MM-DD (UTC).
func CurrentDate() string {
	return time.Now().UTC().Format("2006-01-02")
}

// ValidDate reports whether date is a well-formed YYYY-MM-DD value.
func ValidDate(date string) bool {
	if !datePattern.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// BuildFilename assembles NNN_slug.md after validating each component.
func BuildFilename(counter, slug string) (string, error) {
	if !counterPattern.MatchString(counter) {
		return "", fmt.Errorf("invalid counter format: %s", counter)
	}
	if !slugPattern.MatchString(slug) {
		return "", fmt.Errorf("invalid slug format: %s", slug)
	}
	return fmt.Sprintf("%s_%s.md", counter, slug), nil
}
