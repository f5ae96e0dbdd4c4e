package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry kinds written to a transcript.
const (
	KindUserMessage = "user"
	KindToolUse     = "tool_use"
	KindToolResult  = "tool_result"
)

// Entry is one transcript record. Fields are populated per kind:
// user messages carry Content, tool entries carry Tool/CallID plus
// Input and (for results) Output and Metadata.
type Entry struct {
	Kind      string
	Timestamp time.Time
	Content   string
	Tool      string
	CallID    string
	Input     interface{}
	Title     string
	Output    string
	Metadata  interface{}
}

// Path returns the transcript file for a session. Subagent sessions
// nest under their parent's id.
func Path(transcriptsDir, sessionID, parentID string) string {
	if parentID != "" {
		return filepath.Join(transcriptsDir, parentID, sessionID+".md")
	}
	return filepath.Join(transcriptsDir, sessionID+".md")
}

// Append writes the entry as markdown at the end of the session's
// transcript, adding the header when the file is first created.
func Append(transcriptsDir, sessionID, parentID string, entry Entry) error {
	path := Path(transcriptsDir, sessionID, parentID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	header := ""
	if _, err := os.Stat(path); os.IsNotExist(err) {
		header = fmt.Sprintf("# Transcript: %s\n\n", sessionID)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(header + formatEntry(entry)); err != nil {
		return fmt.Errorf("failed to append transcript entry: %w", err)
	}
	return nil
}

func formatEntry(entry Entry) string {
	var b strings.Builder

	ts := entry.Timestamp.UTC().Format(time.RFC3339)

	switch entry.Kind {
	case KindUserMessage:
		fmt.Fprintf(&b, "## User Message\n**Timestamp**: %s\n\n%s\n\n", ts, entry.Content)
	case KindToolUse:
		fmt.Fprintf(&b, "## Tool Use: %s\n**Timestamp**: %s\n**Call ID**: %s\n\n", entry.Tool, ts, entry.CallID)
		writeJSONSection(&b, "Input", entry.Input)
	case KindToolResult:
		fmt.Fprintf(&b, "## Tool Result: %s\n**Timestamp**: %s\n**Call ID**: %s\n\n", entry.Tool, ts, entry.CallID)
		writeJSONSection(&b, "Input", entry.Input)
		fmt.Fprintf(&b, "### Output\n\n**%s**\n\n```\n%s\n```\n\n", entry.Title, entry.Output)
		if entry.Metadata != nil {
			writeJSONSection(&b, "Metadata", entry.Metadata)
		}
	}

	b.WriteString("---\n\n")
	return b.String()
}

func writeJSONSection(b *strings.Builder, title string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte("null")
	}
	fmt.Fprintf(b, "### %s\n```json\n%s\n```\n\n", title, data)
}
