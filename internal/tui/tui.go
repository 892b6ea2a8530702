package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Size used until the terminal reports its dimensions.
const (
	DefaultWidth  = 80
	DefaultHeight = 24
)

// Poller produces the next snapshot from the previous one. maxChanges is the
// number of display rows.
type Poller interface {
	Poll(ctx context.Context, prev Snapshot, maxChanges int) Snapshot
}

type Model struct {
	ctx             context.Context
	poller          Poller
	snapshot        Snapshot
	refreshInterval time.Duration

	width  int
	height int

	polling      bool
	polledHeight int // display rows the current snapshot was fetched for
	tickSeq      int // only the newest scheduled tick triggers a poll
}

type tickMsg struct {
	seq int
}

type snapshotMsg struct {
	snap Snapshot
	rows int
}

func NewModel(ctx context.Context, poller Poller, refreshInterval time.Duration) Model {
	snap := InitialSnapshot()
	snap.Timestamp = time.Now()
	return Model{
		ctx:             ctx,
		poller:          poller,
		snapshot:        snap,
		refreshInterval: refreshInterval,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.WindowSize()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Interrupt
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.polling && m.rows() != m.polledHeight {
			return m.startPoll()
		}

	case tickMsg:
		if msg.seq != m.tickSeq || m.polling {
			return m, nil
		}
		return m.startPoll()

	case snapshotMsg:
		m.snapshot = msg.snap
		m.polling = false
		m.polledHeight = msg.rows
		// The terminal was resized while the poll was in flight.
		if msg.rows != m.rows() {
			return m.startPoll()
		}
		m.tickSeq++
		return m, tickCmd(m.refreshInterval, m.tickSeq)
	}

	return m, nil
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = DefaultWidth
	}
	return renderView(m.snapshot, width, m.rows())
}

// Snapshot returns the snapshot currently on screen.
func (m Model) Snapshot() Snapshot {
	return m.snapshot
}

func (m Model) rows() int {
	if m.height <= 0 {
		return DefaultHeight
	}
	return m.height
}

func (m Model) startPoll() (tea.Model, tea.Cmd) {
	m.polling = true
	ctx, p, prev, rows := m.ctx, m.poller, m.snapshot, m.rows()
	return m, func() tea.Msg {
		return snapshotMsg{snap: p.Poll(ctx, prev, rows), rows: rows}
	}
}

func tickCmd(interval time.Duration, seq int) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tickMsg{seq: seq}
	})
}
