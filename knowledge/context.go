package knowledge

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Interaction is one answered question in the short-term context.
type Interaction struct {
	At       time.Time
	Question string
	Answer   string
}

// ContextBuffer keeps the most recent interactions of one session, oldest
// first. It is never persisted.
type ContextBuffer struct {
	mu      sync.Mutex
	session uuid.UUID
	size    int
	items   []Interaction
}

func NewContextBuffer(session uuid.UUID, size int) *ContextBuffer {
	if size <= 0 {
		size = 10
	}
	return &ContextBuffer{session: session, size: size, items: make([]Interaction, 0, size)}
}

func (b *ContextBuffer) Session() uuid.UUID { return b.session }

// Add appends it, evicting the oldest entry once the buffer is full.
func (b *ContextBuffer) Add(it Interaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == b.size {
		copy(b.items, b.items[1:])
		b.items = b.items[:b.size-1]
	}
	b.items = append(b.items, it)
}

// Recent returns up to n of the newest interactions, oldest first.
func (b *ContextBuffer) Recent(n int) []Interaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.items) {
		n = len(b.items)
	}
	return append([]Interaction(nil), b.items[len(b.items)-n:]...)
}

func (b *ContextBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *ContextBuffer) Reset() {
	b.mu.Lock()
	b.items = b.items[:0]
	b.mu.Unlock()
}
