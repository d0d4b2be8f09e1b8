// Package clipboard writes transcribed text to the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available
var ErrUnsupported = errors.New("clipboard not supported on this system")

// Writer puts text on a clipboard
type Writer interface {
	Write(ctx context.Context, text string) error
}

// System writes to the OS clipboard (xclip/xsel/wl-copy on Linux,
// pbcopy on macOS, the Win32 API on Windows)
type System struct{}

// Write replaces the clipboard contents with text
func (System) Write(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// Default returns the system clipboard, or a Memory clipboard when no
// clipboard utility is installed
func Default() Writer {
	return pick(clipboard.Unsupported)
}

func pick(unsupported bool) Writer {
	if unsupported {
		log.Println("WARNING: no clipboard utility found, transcriptions are kept in memory only")
		return &Memory{}
	}
	return System{}
}

// Memory keeps the last written text in memory. Used where no clipboard
// utility is available.
type Memory struct {
	mu   sync.Mutex
	text string
}

// Write stores text
func (m *Memory) Write(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

// Text returns the last written text
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}
