package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/cosmofield/internal/evolve"
	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/realise"
	"github.com/san-kum/cosmofield/internal/render"
	"github.com/san-kum/cosmofield/internal/transfer"
)

const (
	defaultInterval = 150 * time.Millisecond
	minInterval     = 10 * time.Millisecond
	maxInterval     = 2 * time.Second
	defaultCols     = 64
)

// TickMsg advances playback.
type TickMsg time.Time

type snapshotMsg struct {
	index int
	field *field.Field
	err   error
}

type Options struct {
	Colormap *render.Colormap
	Limits   render.Limits
	Interval time.Duration
	Theme    string
	// Cols is the heatmap width in cells. The height follows to keep the
	// field square.
	Cols int
}

// Model plays a realisation through a transfer table.
type Model struct {
	r      *realise.Realisation
	tbl    *transfer.Table
	cm     *render.Colormap
	limits render.Limits

	theme  int
	styles styles

	cols     int
	interval time.Duration
	running  bool
	pending  bool

	index int
	field *field.Field
	stats field.Stats
	rms   []float64
	seen  []bool
	err   error
}

func NewModel(r *realise.Realisation, tbl *transfer.Table, opts Options) (Model, error) {
	if r == nil || r.Modes == nil {
		return Model{}, realise.ErrNotBuilt
	}
	if err := tbl.Validate(); err != nil {
		return Model{}, err
	}
	if len(tbl.Etas) == 0 {
		return Model{}, evolve.ErrNoEtas
	}
	cm := opts.Colormap
	if cm == nil {
		var err error
		if cm, err = render.Lookup("jet"); err != nil {
			return Model{}, err
		}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	cols := opts.Cols
	if cols <= 0 {
		cols = defaultCols
	}
	theme := 0
	for i, t := range Themes {
		if t.Name == opts.Theme {
			theme = i
		}
	}
	return Model{
		r:        r,
		tbl:      tbl,
		cm:       cm,
		limits:   opts.Limits,
		theme:    theme,
		styles:   newStyles(Themes[theme]),
		cols:     cols,
		interval: interval,
		running:  true,
		pending:  true,
		rms:      make([]float64, len(tbl.Etas)),
		seen:     make([]bool, len(tbl.Etas)),
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.evolve(0), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// evolve computes the field at the i-th eta off the update loop.
func (m Model) evolve(i int) tea.Cmd {
	r, tbl := m.r, m.tbl
	return func() tea.Msg {
		s, err := tbl.Spline(i)
		if err != nil {
			return snapshotMsg{index: i, err: err}
		}
		f, err := r.Evolve(s)
		return snapshotMsg{index: i, field: f, err: err}
	}
}

// goTo requests the i-th eta, clamped to the table. Requests made while one
// is in flight are dropped.
func (m *Model) goTo(i int) tea.Cmd {
	if i < 0 {
		i = 0
	}
	if last := len(m.tbl.Etas) - 1; i > last {
		i = last
	}
	if m.pending || (i == m.index && m.field != nil) {
		return nil
	}
	m.pending = true
	return m.evolve(i)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "right", "l":
			m.running = false
			return m, m.goTo(m.index + 1)
		case "left", "h":
			m.running = false
			return m, m.goTo(m.index - 1)
		case "home":
			return m, m.goTo(0)
		case "+", "=":
			m.interval = max(m.interval/2, minInterval)
		case "-":
			m.interval = min(m.interval*2, maxInterval)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.styles = newStyles(Themes[m.theme])
		}
	case tea.WindowSizeMsg:
		// Leave room for the stats panel; two sample rows per line.
		cols := msg.Width - 44
		if rows := msg.Height - 4; cols > 2*rows {
			cols = 2 * rows
		}
		m.cols = max(cols, 8)
	case snapshotMsg:
		m.pending = false
		if msg.err != nil {
			m.err = msg.err
			m.running = false
			return m, nil
		}
		m.err = nil
		m.index, m.field = msg.index, msg.field
		m.stats = msg.field.Stats()
		m.rms[msg.index], m.seen[msg.index] = m.stats.RMS, true
	case TickMsg:
		var cmd tea.Cmd
		if m.running && !m.pending {
			if m.index+1 >= len(m.tbl.Etas) {
				m.running = false
			} else {
				cmd = m.goTo(m.index + 1)
			}
		}
		return m, tea.Batch(cmd, m.tick())
	}
	return m, nil
}

// history returns the rms trace up to the first eta not yet visited.
func (m Model) history() []float64 {
	for i, ok := range m.seen {
		if !ok {
			return m.rms[:i]
		}
	}
	return m.rms
}

func (m Model) View() string {
	st := m.styles
	g := m.r.Grid

	var canvas string
	if m.field != nil {
		var err error
		if canvas, err = Heatmap(m.field, m.cm, m.limits, m.cols, m.cols/2); err != nil {
			canvas = st.err.Render(err.Error())
		}
	} else {
		canvas = st.label.Render("evolving…")
	}

	var s strings.Builder
	s.WriteString(st.header.Render(fmt.Sprintf("COSMOFIELD  N=%d  L=%g", g.N, g.Scale)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(st.err.Render("ERROR") + "\n\n")
	case m.running:
		s.WriteString(st.status.Render("PLAYING") + "\n\n")
	default:
		s.WriteString(st.paused.Render("PAUSED") + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("eta", fmt.Sprintf("%g", m.tbl.Etas[m.index]))
	row("step", fmt.Sprintf("%d/%d", m.index+1, len(m.tbl.Etas)))
	row("seed", fmt.Sprintf("%d", m.r.Seed))
	row("min", fmt.Sprintf("%.3e", m.stats.Min))
	row("max", fmt.Sprintf("%.3e", m.stats.Max))
	row("rms", fmt.Sprintf("%.3e", m.stats.RMS))
	row("cmap", m.cm.Name)
	row("speed", m.interval.String())

	if h := m.history(); len(h) > 1 {
		chart := asciigraph.Plot(h, asciigraph.Height(5), asciigraph.Width(28), asciigraph.Caption("rms"))
		s.WriteString("\n" + st.graph.Render(chart) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + st.err.Render(m.err.Error()) + "\n")
	}
	s.WriteString(st.help.Render("\nSP:Pause ←→:Step +/-:Speed\nT:Theme Home:Start Q:Quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvas, st.stats.Render(s.String()))
}

// Run shows the viewer until the user quits or ctx is done.
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
