package manager

import "sync"

// buffer holds pushed messages until a consumer drains them.
// One producer and any number of consumers may use it concurrently.
type buffer struct {
	mu   sync.Mutex
	msgs []Message
}

func (b *buffer) Append(m Message) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, m)
	return len(b.msgs)
}

// Drain removes and returns, in arrival order, every message whose channel
// is in channelIDs. Other messages stay buffered.
func (b *buffer) Drain(channelIDs map[string]struct{}) (drained []Message, remaining int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(channelIDs) == 0 {
		return nil, len(b.msgs)
	}
	kept := b.msgs[:0]
	for _, m := range b.msgs {
		if _, ok := channelIDs[m.channelID]; ok {
			drained = append(drained, m)
			continue
		}
		kept = append(kept, m)
	}
	// Release references held past the new length.
	clear(b.msgs[len(kept):])
	b.msgs = kept
	return drained, len(b.msgs)
}

func (b *buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}
