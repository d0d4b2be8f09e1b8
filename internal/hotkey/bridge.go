// Package hotkey delivers out-of-band toggle signals to a single listener.
package hotkey

import (
	"sync"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// Bridge is a single-consumer toggle channel. One listener may be registered
// at a time and every Fire reaches it at most once.
type Bridge struct {
	mu       sync.Mutex
	listener func()
}

// NewBridge creates a bridge with no listener
func NewBridge() *Bridge {
	return &Bridge{}
}

// Register installs fn. It fails with types.ErrAlreadyRegistered if a
// listener is already installed.
func (b *Bridge) Register(fn func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listener != nil {
		return types.ErrAlreadyRegistered
	}
	b.listener = fn
	return nil
}

// Unregister removes the listener. No-op when none is registered.
func (b *Bridge) Unregister() {
	b.mu.Lock()
	b.listener = nil
	b.mu.Unlock()
}

// Fire delivers one toggle event and reports whether a listener received it
func (b *Bridge) Fire() bool {
	b.mu.Lock()
	fn := b.listener
	b.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}
