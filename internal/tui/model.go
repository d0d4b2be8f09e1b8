// Package tui is a terminal browser over the transcription history:
// a list of days, then the records of the selected day.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codebuildervaibhav/voice-clipboard/internal/clipboard"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// Source is the read side of the history service
type Source interface {
	ListDays(ctx context.Context) ([]types.HistoryDay, error)
	ListByDate(ctx context.Context, date string) ([]types.Record, error)
}

type view int

const (
	viewDays view = iota
	viewRecords
)

// Model is the root bubbletea model
type Model struct {
	ctx       context.Context
	source    Source
	clipboard clipboard.Writer

	view     view
	days     []types.HistoryDay
	records  []types.Record
	date     string
	selected int
	daySel   int

	loading bool
	errMsg  string
	notice  string

	width  int
	height int
}

// New creates a model. cb may be nil, which disables copying.
func New(ctx context.Context, source Source, cb clipboard.Writer) Model {
	return Model{
		ctx:       ctx,
		source:    source,
		clipboard: cb,
		loading:   true,
		width:     80,
		height:    24,
	}
}

// Run opens the browser on the alternate screen until the user quits
func Run(ctx context.Context, source Source, cb clipboard.Writer) error {
	p := tea.NewProgram(New(ctx, source, cb), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init loads the day list
func (m Model) Init() tea.Cmd {
	return loadDaysCmd(m.ctx, m.source)
}

func loadDaysCmd(ctx context.Context, source Source) tea.Cmd {
	return func() tea.Msg {
		days, err := source.ListDays(ctx)
		return DaysLoadedMsg{Days: days, Err: err}
	}
}

func loadRecordsCmd(ctx context.Context, source Source, date string) tea.Cmd {
	return func() tea.Msg {
		records, err := source.ListByDate(ctx, date)
		return RecordsLoadedMsg{Date: date, Records: records, Err: err}
	}
}

func copyCmd(ctx context.Context, cb clipboard.Writer, text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Err: cb.Write(ctx, text)}
	}
}

// Update processes messages and returns the updated model and any commands
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case DaysLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.days = msg.Days
		if m.daySel >= len(m.days) {
			m.daySel = max(0, len(m.days)-1)
		}
		if m.view == viewDays {
			m.selected = m.daySel
		}
		return m, nil

	case RecordsLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.view = viewRecords
		m.date = msg.Date
		m.records = msg.Records
		m.selected = 0
		return m, nil

	case CopiedMsg:
		if msg.Err != nil {
			m.errMsg = "Copy failed: " + msg.Err.Error()
			m.notice = ""
		} else {
			m.errMsg = ""
			m.notice = "Copied to clipboard"
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.String() {
	case keyQuit, keyCtrlC:
		return m, tea.Quit

	case keyUp, keyK:
		if m.selected > 0 {
			m.selected--
		}

	case keyDown, keyJ:
		if m.selected < m.itemCount()-1 {
			m.selected++
		}

	case keyEnter:
		if m.view == viewDays && len(m.days) > 0 {
			m.daySel = m.selected
			m.loading = true
			return m, loadRecordsCmd(m.ctx, m.source, m.days[m.selected].Date)
		}

	case keyEsc, keyBackspace:
		if m.view == viewRecords {
			m.view = viewDays
			m.records = nil
			m.selected = m.daySel
			m.errMsg = ""
		}

	case keyRefresh:
		m.loading = true
		if m.view == viewRecords {
			return m, loadRecordsCmd(m.ctx, m.source, m.date)
		}
		return m, loadDaysCmd(m.ctx, m.source)

	case keyCopy:
		if m.view == viewRecords && m.clipboard != nil && len(m.records) > 0 {
			return m, copyCmd(m.ctx, m.clipboard, m.records[m.selected].Text)
		}
	}

	return m, nil
}

func (m Model) itemCount() int {
	if m.view == viewRecords {
		return len(m.records)
	}
	return len(m.days)
}

// View renders the current screen
func (m Model) View() string {
	var b strings.Builder

	if m.view == viewRecords {
		b.WriteString(titleStyle.Render("Voice Clipboard History · " + m.date))
	} else {
		b.WriteString(titleStyle.Render("Voice Clipboard History"))
	}
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(10, m.width))))
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("Loading..."))
		b.WriteString("\n")
	case m.view == viewRecords:
		m.renderRecords(&b)
	default:
		m.renderDays(&b)
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) renderDays(b *strings.Builder) {
	if len(m.days) == 0 {
		b.WriteString(dimStyle.Render("No transcriptions yet"))
		b.WriteString("\n")
		return
	}
	start, end := m.window(len(m.days))
	for i := start; i < end; i++ {
		d := m.days[i]
		noun := "transcriptions"
		if d.Count == 1 {
			noun = "transcription"
		}
		line := fmt.Sprintf("%s  %d %s", d.Date, d.Count, noun)
		b.WriteString(m.row(i, line))
		b.WriteString("\n")
	}
}

func (m Model) renderRecords(b *strings.Builder) {
	if len(m.records) == 0 {
		b.WriteString(dimStyle.Render("No transcriptions on this day"))
		b.WriteString("\n")
		return
	}
	start, end := m.window(len(m.records))
	for i := start; i < end; i++ {
		r := m.records[i]
		meta := fmt.Sprintf("%s  %5.1fs  ", r.Timestamp.Local().Format("15:04:05"), r.DurationSeconds)
		cost := costStyle.Render(fmt.Sprintf("$%.6f", r.CostUSD))
		text := truncate(oneLine(r.Text), m.width-len(meta)-14)
		b.WriteString(m.row(i, meta) + cost + "  " + m.row(i, text))
		b.WriteString("\n")
	}
}

func (m Model) row(i int, s string) string {
	if i == m.selected {
		return selectedStyle.Render(s)
	}
	return s
}

// window keeps the selection visible within the terminal height
func (m Model) window(n int) (int, int) {
	rows := max(1, m.height-7)
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	return start, min(n, start+rows)
}

func (m Model) footer() string {
	keys := [][2]string{{"↑/↓", "move"}}
	if m.view == viewDays {
		keys = append(keys, [2]string{"enter", "open"})
	} else {
		keys = append(keys, [2]string{"esc", "back"})
		if m.clipboard != nil {
			keys = append(keys, [2]string{"c", "copy"})
		}
	}
	keys = append(keys, [2]string{"r", "refresh"}, [2]string{"q", "quit"})

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k[0])+" "+footerDescStyle.Render(k[1]))
	}
	return strings.Join(parts, "  ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
