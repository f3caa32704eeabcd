package sage

import (
	"strings"
	"sync"
)

// transcriptBuffer accumulates streaming transcription fragments for one
// voice turn. Fragments arrive interleaved; the buffer keeps the two sides
// separate until the turn completes.
type transcriptBuffer struct {
	mu        sync.Mutex
	user      strings.Builder
	assistant strings.Builder
}

func (b *transcriptBuffer) AppendUser(text string) {
	b.mu.Lock()
	b.user.WriteString(text)
	b.mu.Unlock()
}

func (b *transcriptBuffer) AppendAssistant(text string) {
	b.mu.Lock()
	b.assistant.WriteString(text)
	b.mu.Unlock()
}

// Flush returns the accumulated transcripts, trimmed, and resets the buffer.
func (b *transcriptBuffer) Flush() (user, assistant string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	user = strings.TrimSpace(b.user.String())
	assistant = strings.TrimSpace(b.assistant.String())
	b.user.Reset()
	b.assistant.Reset()
	return user, assistant
}

func (b *transcriptBuffer) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user.Len() == 0 && b.assistant.Len() == 0
}
