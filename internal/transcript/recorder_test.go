package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTranscript(t *testing.T, dir, sessionID, parentID string) string {
	t.Helper()
	data, err := os.ReadFile(Path(dir, sessionID, parentID))
	require.NoError(t, err)
	return string(data)
}

func TestPathNestsSubagents(t *testing.T) {
	assert.Equal(t, filepath.Join("/t", "sess.md"), Path("/t", "sess", ""))
	assert.Equal(t, filepath.Join("/t", "parent", "child.md"), Path("/t", "child", "parent"))
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	entry := Entry{Kind: KindUserMessage, Timestamp: time.Now(), Content: "hello"}

	require.NoError(t, Append(dir, "sess", "", entry))
	require.NoError(t, Append(dir, "sess", "", entry))

	content := readTranscript(t, dir, "sess", "")
	assert.Equal(t, 1, strings.Count(content, "# Transcript: sess"))
	assert.Equal(t, 2, strings.Count(content, "## User Message"))
}

func TestRecordUserMessage(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)

	r.RecordUserMessage(Session{SessionID: "sess"}, "please review the plan")

	content := readTranscript(t, dir, "sess", "")
	assert.Contains(t, content, "## User Message")
	assert.Contains(t, content, "please review the plan")
	assert.Contains(t, content, "---")
}

func TestRecordToolUseAndResult(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)
	sess := Session{SessionID: "sess"}
	input := map[string]interface{}{"path": "plan.md"}

	r.RecordToolUse(sess, "read_file", "call-1", input)
	assert.Equal(t, 1, r.CachedInputs())

	r.RecordToolResult(sess, "read_file", "call-1", "Read plan.md", "# Plan\n...", map[string]interface{}{"lines": 10})
	assert.Equal(t, 0, r.CachedInputs(), "result consumes the cached input")

	content := readTranscript(t, dir, "sess", "")
	assert.Contains(t, content, "## Tool Use: read_file")
	assert.Contains(t, content, "**Call ID**: call-1")
	assert.Contains(t, content, "## Tool Result: read_file")
	// The result entry repeats the cached input.
	assert.Equal(t, 2, strings.Count(content, `"path": "plan.md"`))
	assert.Contains(t, content, "**Read plan.md**")
	assert.Contains(t, content, "### Metadata")
}

func TestRecordToolResultWithoutCachedInput(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)

	r.RecordToolResult(Session{SessionID: "sess"}, "search", "unseen", "Done", "out", nil)

	content := readTranscript(t, dir, "sess", "")
	assert.Contains(t, content, "## Tool Result: search")
	assert.Contains(t, content, "null")
	assert.NotContains(t, content, "### Metadata")
}

func TestSubagentTranscriptNesting(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)

	r.RecordUserMessage(Session{SessionID: "child", ParentID: "parent"}, "subtask")

	content := readTranscript(t, dir, "child", "parent")
	assert.Contains(t, content, "# Transcript: child")
}

func TestInputCacheEvictsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)
	sess := Session{SessionID: "sess"}

	for i := 0; i < maxCacheSize+5; i++ {
		r.RecordToolUse(sess, "tool", fmt.Sprintf("call-%d", i), i)
	}
	assert.Equal(t, maxCacheSize, r.CachedInputs())

	// The first five insertions were evicted; their results get a null
	// input while the survivors keep theirs.
	r.mu.Lock()
	_, evicted := r.inputCache["call-0"]
	_, kept := r.inputCache["call-5"]
	r.mu.Unlock()
	assert.False(t, evicted)
	assert.True(t, kept)
}

func TestRepeatToolUseDoesNotDuplicateCacheSlot(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)
	sess := Session{SessionID: "sess"}

	r.RecordToolUse(sess, "tool", "call-1", "first")
	r.RecordToolUse(sess, "tool", "call-1", "second")
	assert.Equal(t, 1, r.CachedInputs())

	r.mu.Lock()
	assert.Equal(t, "second", r.inputCache["call-1"])
	r.mu.Unlock()
}
