package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/metrics"
	"github.com/san-kum/cellsim/internal/safety"
	"github.com/san-kum/cellsim/internal/solver"
	"github.com/san-kum/cellsim/internal/storage"
)

const (
	defaultWidth  = 160
	defaultHeight = 48
	sidebarWidth  = 52
)

// Options wires the dashboard to its collaborators. Store may be nil, in
// which case saving is disabled.
type Options struct {
	Simulator solver.Simulator
	Store     *storage.Store
	Params    battery.Parameters
	Theme     string
	Logger    *zap.Logger
}

// ParametersMsg replaces every control, for example after the config file
// was edited.
type ParametersMsg struct {
	Params battery.Parameters
}

type resultMsg struct {
	seq    uint64
	params battery.Parameters
	bundle *battery.SeriesBundle
	err    error
}

type savedMsg struct {
	meta *storage.RunMetadata
	err  error
}

// outcome is a finished simulation for the current parameters.
type outcome struct {
	params  battery.Parameters
	bundle  *battery.SeriesBundle
	summary metrics.Summary
	verdict safety.Verdict
	failure *battery.SolverFailure
}

type Model struct {
	sim   solver.Simulator
	store *storage.Store
	log   *zap.Logger

	params   battery.Parameters
	initial  battery.Parameters
	controls []battery.Control
	// cursor 0 is the chemistry selector; controls follow.
	cursor int

	seq     uint64
	loading bool
	result  *outcome
	err     error
	status  string

	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	theme    int
	styles   styles
	showHelp bool

	width  int
	height int
}

func New(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	theme := themeIndex(opts.Theme)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Themes[theme].Primary)

	return Model{
		sim:      opts.Simulator,
		store:    opts.Store,
		log:      log,
		params:   opts.Params,
		initial:  opts.Params,
		controls: battery.Controls(),
		seq:      1,
		loading:  true,
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeyMap(),
		theme:    theme,
		styles:   newStyles(Themes[theme]),
		width:    defaultWidth,
		height:   defaultHeight,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.run(m.seq, m.params), m.spinner.Tick)
}

// Params returns the parameters currently selected.
func (m Model) Params() battery.Parameters { return m.params }

func (m Model) run(seq uint64, p battery.Parameters) tea.Cmd {
	sim := m.sim
	return func() tea.Msg {
		bundle, err := sim.Simulate(context.Background(), p)
		return resultMsg{seq: seq, params: p, bundle: bundle, err: err}
	}
}

// simulate starts a run for the current parameters and supersedes any run
// still in flight.
func (m *Model) simulate() tea.Cmd {
	m.seq++
	m.loading = true
	m.status = ""
	return tea.Batch(m.run(m.seq, m.params), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		if msg.seq != m.seq {
			m.log.Debug("dropping stale result", zap.Uint64("seq", msg.seq), zap.Uint64("current", m.seq))
			return m, nil
		}
		m.loading = false
		m.apply(msg)
		return m, nil

	case ParametersMsg:
		m.params = msg.Params
		m.initial = msg.Params
		m.status = "config reloaded"
		return m, m.simulate()

	case savedMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
		} else {
			m.status = "saved run " + msg.meta.ID[:8]
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) apply(msg resultMsg) {
	m.err = nil
	if msg.err != nil {
		if f, ok := battery.AsSolverFailure(msg.err); ok {
			m.result = &outcome{params: msg.params, failure: f}
			return
		}
		m.result = nil
		m.err = msg.err
		m.log.Warn("simulation error", zap.Error(msg.err))
		return
	}
	s := metrics.Summarize(msg.bundle, msg.params)
	m.result = &outcome{
		params:  msg.params,
		bundle:  msg.bundle,
		summary: s,
		verdict: s.Verdict(),
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Theme):
		m.theme = (m.theme + 1) % len(Themes)
		m.styles = newStyles(Themes[m.theme])
		m.spinner.Style = lipgloss.NewStyle().Foreground(Themes[m.theme].Primary)
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.controls) {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Left):
		return m.adjust(-1)
	case key.Matches(msg, m.keys.Right):
		return m.adjust(1)
	case key.Matches(msg, m.keys.BigLeft):
		return m.adjust(-10)
	case key.Matches(msg, m.keys.BigRight):
		return m.adjust(10)
	case key.Matches(msg, m.keys.Reset):
		if m.params == m.initial {
			return m, nil
		}
		m.params = m.initial
		return m, m.simulate()
	case key.Matches(msg, m.keys.Save):
		return m, m.save()
	}
	return m, nil
}

func (m Model) adjust(steps int) (Model, tea.Cmd) {
	next := m.params
	if m.cursor == 0 {
		dir := 1
		if steps < 0 {
			dir = -1
		}
		next.Chemistry = next.Chemistry.Next(dir)
	} else {
		c := m.controls[m.cursor-1]
		next = next.With(c.Key, c.Nudge(next.Get(c.Key), steps))
	}
	if next == m.params {
		return m, nil
	}
	m.params = next
	return m, m.simulate()
}

func (m *Model) save() tea.Cmd {
	if m.store == nil {
		m.status = "no run store configured"
		return nil
	}
	if m.loading || m.result == nil {
		m.status = "nothing to save yet"
		return nil
	}
	store, res, backend := m.store, *m.result, m.sim.Name()
	return func() tea.Msg {
		meta, err := store.Save(backend, res.params, res.bundle, res.failure)
		return savedMsg{meta: meta, err: err}
	}
}

func (m Model) View() string {
	sidebar := m.styles.sidebar.Width(sidebarWidth).Render(m.viewSidebar())
	main := m.viewMain(m.width - sidebarWidth - 4)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)

	var b strings.Builder
	b.WriteString(body + "\n")
	if m.status != "" {
		b.WriteString(m.styles.status.Render(m.status) + "\n")
	}
	if m.showHelp {
		b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return b.String()
}

func (m Model) viewSidebar() string {
	st := m.styles
	var b strings.Builder
	b.WriteString(st.title.Render("Parameters") + "\n")

	b.WriteString(st.section.Render("Chemistry") + "\n")
	line := fmt.Sprintf("%-24s %s", "Parameter Set", m.params.Chemistry.Label())
	if m.cursor == 0 {
		b.WriteString(st.active.Render("▸ "+line) + "\n")
	} else {
		b.WriteString("  " + st.label.Render(line) + "\n")
	}

	section := ""
	for i, c := range m.controls {
		if c.Section != section {
			section = c.Section
			b.WriteString(st.section.Render(section) + "\n")
		}
		value := fmt.Sprintf("%g %s", m.params.Get(c.Key), c.Unit)
		line := fmt.Sprintf("%-24s %s", c.Label, strings.TrimSpace(value))
		if m.cursor == i+1 {
			b.WriteString(st.active.Render("▸ "+line) + "\n")
			b.WriteString("  " + st.value.Render(slider(c, m.params.Get(c.Key), 24)) + "\n")
		} else {
			b.WriteString("  " + st.label.Render(line) + "\n")
		}
		if c.Caption != "" {
			b.WriteString("  " + st.caption.Render(c.Caption) + "\n")
		}
	}
	return b.String()
}

// slider draws the position of v within the control's range.
func slider(c battery.Control, v float64, width int) string {
	ratio := (v - c.Min) / (c.Max - c.Min)
	pos := int(ratio * float64(width-1))
	if pos < 0 {
		pos = 0
	}
	if pos > width-1 {
		pos = width - 1
	}
	return "[" + strings.Repeat("━", pos) + "●" + strings.Repeat("─", width-1-pos) + "]"
}

func (m Model) viewMain(width int) string {
	st := m.styles
	var b strings.Builder

	switch {
	case m.err != nil:
		b.WriteString(st.unsafe.Render("simulation error: "+m.err.Error()) + "\n")
		return b.String()
	case m.result == nil:
		b.WriteString(m.spinner.View() + " " + st.status.Render("Simulating...") + "\n")
		return b.String()
	}

	if m.loading {
		b.WriteString(m.spinner.View() + " " + st.status.Render("Simulating...") + "\n")
	}
	res := m.result
	if res.failure != nil {
		b.WriteString(renderDivergence(res.failure.Message, st) + "\n")
		return b.String()
	}

	b.WriteString(st.title.Render(Title) + "\n\n")
	b.WriteString(renderMetrics(Metrics(res.summary), st, width) + "\n")
	b.WriteString(st.subheader.Render(GridHeading) + "\n")
	b.WriteString(renderGrid(res.bundle, width, st) + "\n")
	b.WriteString(st.subheader.Render(VerdictHeading) + "\n")
	b.WriteString(renderVerdict(res.verdict, st) + "\n")
	return b.String()
}
