package transcript

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const maxCacheSize = 1000

// Recorder appends conversation events to per-session transcripts.
// Tool inputs are cached by call id between the use and result events
// so the result entry can repeat the input alongside the output. The
// cache is bounded: past maxCacheSize entries the oldest insertion is
// evicted first.
type Recorder struct {
	transcriptsDir string

	mu         sync.Mutex
	inputCache map[string]interface{}
	cacheOrder []string
}

// NewRecorder creates a recorder writing under transcriptsDir.
func NewRecorder(transcriptsDir string) *Recorder {
	return &Recorder{
		transcriptsDir: transcriptsDir,
		inputCache:     make(map[string]interface{}),
	}
}

// Session identifies the conversation a record belongs to.
type Session struct {
	SessionID string
	ParentID  string
}

// RecordUserMessage appends a user message entry.
func (r *Recorder) RecordUserMessage(session Session, content string) {
	r.append(session, Entry{
		Kind:      KindUserMessage,
		Timestamp: time.Now().UTC(),
		Content:   content,
	})
}

// RecordToolUse appends a tool-use entry and caches the input for the
// matching result.
func (r *Recorder) RecordToolUse(session Session, tool, callID string, input interface{}) {
	r.mu.Lock()
	if _, exists := r.inputCache[callID]; !exists {
		if len(r.cacheOrder) >= maxCacheSize {
			oldest := r.cacheOrder[0]
			r.cacheOrder = r.cacheOrder[1:]
			delete(r.inputCache, oldest)
		}
		r.cacheOrder = append(r.cacheOrder, callID)
	}
	r.inputCache[callID] = input
	r.mu.Unlock()

	r.append(session, Entry{
		Kind:      KindToolUse,
		Timestamp: time.Now().UTC(),
		Tool:      tool,
		CallID:    callID,
		Input:     input,
	})
}

// RecordToolResult appends a tool-result entry, consuming the cached
// input for the call id.
func (r *Recorder) RecordToolResult(session Session, tool, callID, title, output string, metadata interface{}) {
	r.mu.Lock()
	input := r.inputCache[callID]
	if _, exists := r.inputCache[callID]; exists {
		delete(r.inputCache, callID)
		for i, id := range r.cacheOrder {
			if id == callID {
				r.cacheOrder = append(r.cacheOrder[:i], r.cacheOrder[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	r.append(session, Entry{
		Kind:      KindToolResult,
		Timestamp: time.Now().UTC(),
		Tool:      tool,
		CallID:    callID,
		Input:     input,
		Title:     title,
		Output:    output,
		Metadata:  metadata,
	})
}

// CachedInputs reports how many tool inputs are awaiting results.
func (r *Recorder) CachedInputs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inputCache)
}

func (r *Recorder) append(session Session, entry Entry) {
	if err := Append(r.transcriptsDir, session.SessionID, session.ParentID, entry); err != nil {
		log.Error().Err(err).Str("session_id", session.SessionID).Msg("Failed to append transcript entry")
	}
}
