package tui

import "github.com/codebuildervaibhav/voice-clipboard/internal/types"

// DaysLoadedMsg carries the day list
type DaysLoadedMsg struct {
	Days []types.HistoryDay
	Err  error
}

// RecordsLoadedMsg carries the records of one day
type RecordsLoadedMsg struct {
	Date    string
	Records []types.Record
	Err     error
}

// CopiedMsg reports a clipboard write
type CopiedMsg struct {
	Err error
}

// Key bindings
const (
	keyQuit      = "q"
	keyCtrlC     = "ctrl+c"
	keyUp        = "up"
	keyDown      = "down"
	keyJ         = "j"
	keyK         = "k"
	keyEnter     = "enter"
	keyEsc       = "esc"
	keyBackspace = "backspace"
	keyRefresh   = "r"
	keyCopy      = "c"
)
