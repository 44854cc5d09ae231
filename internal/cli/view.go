package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/viewer"
)

const (
	// frameInterval is the physics tick of interactive and headless sessions.
	frameInterval = 33 * time.Millisecond

	// cellW and cellH are the canvas pixels covered by one terminal cell.
	cellW = 10.0
	cellH = 24.0

	// chromeRows are the rows used by header, status line and tooltip.
	chromeRows = 9
)

// viewCommand creates the interactive viewer command.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		bf      backendFlags
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse a PDG interactively in the terminal",
		Long: `View opens the timeline in the terminal.

Keys:
  ←/→        scroll half a lane
  home/end   jump to the first or last lane
  tab        focus the next node and show its signals
  h          make the focused node the new head
  m          collapse or expand the focused node's module
  e          show the focused node in the editor
  r          reset the graph to the full view
  q          quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), bf, logFile)
		},
	}

	bf.register(cmd)
	cmd.Flags().StringVar(&logFile, "log-file", "", "write session logs to this file (the terminal is owned by the viewer)")

	return cmd
}

func (c *CLI) runView(ctx context.Context, bf backendFlags, logFile string) error {
	be, err := c.openBackend(ctx, bf)
	if err != nil {
		return err
	}

	var w io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	logger := newLogger(w, c.Logger.GetLevel())

	loop := &teaLoop{}
	s := viewer.New(be, loop, c.config().Viewer, viewer.WithLogger(logger))

	spinner := newSpinnerWithContext(ctx, "Fetching timeline...")
	spinner.Start()
	err = s.Open(ctx)
	spinner.Stop()
	if err != nil {
		return err
	}
	defer s.Close()

	p := tea.NewProgram(newViewModel(s, loop.drain), tea.WithAltScreen(), tea.WithContext(ctx))
	loop.attach(p)
	_, err = p.Run()
	loop.wait()
	return err
}

// =============================================================================
// Model
// =============================================================================

type frameMsg struct{}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

// viewModel is the bubbletea model of the viewer. Every session call happens
// inside Update, which is the session's loop.
type viewModel struct {
	s     *viewer.Session
	drain func()

	cols, rows int
	focus      *graph.NodeID
	message    string
}

func newViewModel(s *viewer.Session, drain func()) *viewModel {
	return &viewModel{s: s, drain: drain, cols: 80, rows: 24}
}

func (m *viewModel) Init() tea.Cmd {
	return frameTick()
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case wakeMsg:
		m.drain()
		m.refreshFocus()
	case frameMsg:
		m.s.Frame()
		return m, frameTick()
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		return m, m.key(msg.String())
	}
	return m, nil
}

func (m *viewModel) resize(cols, rows int) {
	m.cols, m.rows = max(cols, 20), max(rows, chromeRows+3)
	m.s.Resize(float64(m.cols)*cellW, float64(m.canvasRows())*cellH)
}

func (m *viewModel) canvasRows() int { return m.rows - chromeRows }

func (m *viewModel) key(k string) tea.Cmd {
	lane := m.s.Config().LaneWidth
	switch k {
	case "q", "ctrl+c":
		return tea.Quit
	case "left":
		m.s.ScrollBy(-lane / 2)
	case "right":
		m.s.ScrollBy(lane / 2)
	case "home":
		m.s.ScrollTo(0)
	case "end":
		m.s.ScrollTo(m.s.Timeline().TotalWidth())
	case "tab":
		m.cycleFocus(1)
	case "shift+tab":
		m.cycleFocus(-1)
	case "esc":
		m.focus = nil
		m.s.Leave()
	case "r":
		m.act(viewer.MenuItem{Action: viewer.ActionResetHead})
	case "h":
		m.actOnFocus(viewer.ActionSetHead)
	case "m":
		m.actOnFocus(viewer.ActionToggleModule)
	case "e":
		m.actOnFocus(viewer.ActionOpenEditor)
	}
	return nil
}

func (m *viewModel) actOnFocus(a viewer.Action) {
	if m.focus == nil {
		m.message = "no node focused (tab)"
		return
	}
	m.act(viewer.MenuItem{Action: a, Node: *m.focus})
}

func (m *viewModel) act(item viewer.MenuItem) {
	if err := m.s.Invoke(item); err != nil {
		m.message = err.Error()
		return
	}
	m.message = item.Action.String()
}

// onScreen returns the nodes inside the viewport ordered left to right.
func (m *viewModel) onScreen() []viewer.NodeView {
	viewport, _ := m.s.Size()
	var out []viewer.NodeView
	for _, n := range m.s.Nodes() {
		x := m.s.ToScreen(n.Pos).X
		if x >= 0 && x < viewport {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pos.X != out[j].Pos.X {
			return out[i].Pos.X < out[j].Pos.X
		}
		return out[i].Pos.Y < out[j].Pos.Y
	})
	return out
}

func (m *viewModel) cycleFocus(dir int) {
	nodes := m.onScreen()
	if len(nodes) == 0 {
		m.focus = nil
		return
	}
	next := 0
	if dir < 0 {
		next = len(nodes) - 1
	}
	if m.focus != nil {
		for i, n := range nodes {
			if n.ID == *m.focus {
				next = (i + dir + len(nodes)) % len(nodes)
				break
			}
		}
	}
	id := nodes[next].ID
	m.focus = &id
	m.s.Hover(id)
}

// refreshFocus drops the focus once its node left the window.
func (m *viewModel) refreshFocus() {
	if m.focus == nil {
		return
	}
	if _, ok := m.s.Node(*m.focus); !ok {
		m.focus = nil
	}
}

// =============================================================================
// Rendering
// =============================================================================

var (
	styleLaneSep     = lipgloss.NewStyle().Foreground(colorDim)
	styleLaneLabel   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleNode        = lipgloss.NewStyle().Foreground(colorWhite)
	styleLongNode    = lipgloss.NewStyle().Foreground(colorYellow)
	styleFocusedNode = lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Reverse(true)
	styleStatus      = lipgloss.NewStyle().Foreground(colorGray)
)

type cellStyle uint8

const (
	cellBlank cellStyle = iota
	cellSep
	cellLabel
	cellNode
	cellLong
	cellFocus
)

func (cs cellStyle) style() lipgloss.Style {
	switch cs {
	case cellSep:
		return styleLaneSep
	case cellLabel:
		return styleLaneLabel
	case cellNode:
		return styleNode
	case cellLong:
		return styleLongNode
	case cellFocus:
		return styleFocusedNode
	}
	return lipgloss.NewStyle()
}

// canvas is a character grid with one style per cell.
type canvas struct {
	cols   int
	runes  [][]rune
	styles [][]cellStyle
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: cols, runes: make([][]rune, rows), styles: make([][]cellStyle, rows)}
	for r := range c.runes {
		c.runes[r] = []rune(strings.Repeat(" ", cols))
		c.styles[r] = make([]cellStyle, cols)
	}
	return c
}

func (c *canvas) put(row, col int, text string, st cellStyle, limit int) {
	if row < 0 || row >= len(c.runes) {
		return
	}
	for i, r := range []rune(text) {
		x := col + i
		if i >= limit || x >= c.cols {
			return
		}
		if x < 0 {
			continue
		}
		c.runes[row][x] = r
		c.styles[row][x] = st
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for r := range c.runes {
		start := 0
		for x := 1; x <= c.cols; x++ {
			if x < c.cols && c.styles[r][x] == c.styles[r][start] {
				continue
			}
			seg := string(c.runes[r][start:x])
			if st := c.styles[r][start]; st != cellBlank {
				seg = st.style().Render(seg)
			}
			b.WriteString(seg)
			start = x
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *viewModel) View() string {
	rows := m.canvasRows()
	cv := newCanvas(m.cols, rows+1)
	tl := m.s.Timeline()
	laneCols := int(tl.LaneWidth() / cellW)

	for _, l := range tl.Lanes() {
		x := int((l.XOffset - tl.Offset()) / cellW)
		if x+laneCols < 0 || x >= m.cols {
			continue
		}
		for r := 0; r <= rows; r++ {
			cv.put(r, x, "│", cellSep, 1)
		}
		cv.put(0, x+1, l.Label, cellLabel, laneCols-1)
	}

	for _, n := range m.onScreen() {
		p := m.s.ToScreen(n.Pos)
		col, row := int(p.X/cellW), 1+int(p.Y/cellH)
		st := cellNode
		if n.IsLongDistance() {
			st = cellLong
		}
		if m.focus != nil && *m.focus == n.ID {
			st = cellFocus
		}
		label := "● " + n.Label
		cv.put(min(row, rows), col, label, st, max(laneCols-2, 3))
	}

	var b strings.Builder
	b.WriteString(cv.String())
	b.WriteString(m.statusLine())
	b.WriteByte('\n')
	b.WriteString(m.tooltipPanel())
	return b.String()
}

func (m *viewModel) statusLine() string {
	parts := []string{}
	if lo, hi, ok := m.s.Loaded().Bounds(); ok {
		parts = append(parts, fmt.Sprintf("lanes %d-%d", lo, hi))
	} else {
		parts = append(parts, "no lanes")
	}
	parts = append(parts, fmt.Sprintf("%d nodes", m.s.Len()))
	parts = append(parts, fmt.Sprintf("sync %d/%d", m.s.AppliedSeq(), m.s.Seq()))
	if m.s.Stable() {
		parts = append(parts, "stable")
	} else {
		parts = append(parts, "settling")
	}
	if m.message != "" {
		parts = append(parts, m.message)
	}
	return styleStatus.Render(strings.Join(parts, " · "))
}

func (m *viewModel) tooltipPanel() string {
	tt := m.s.Tooltip()
	if tt == nil {
		return StyleDim.Render("tab: focus node  ←/→: scroll  r: reset  q: quit")
	}
	var b strings.Builder
	b.WriteString(StyleTitle.Render(tt.Label))
	if tt.Location != "" {
		b.WriteString("  " + StyleDim.Render(tt.Location))
	}
	b.WriteByte('\n')
	if tt.Code != "" {
		b.WriteString("  " + StyleValue.Render(strings.TrimSpace(tt.Code)) + "\n")
	}
	b.WriteString(fmtSignals("in ", tt.Incoming))
	b.WriteString(fmtSignals("out", tt.Outgoing))
	return b.String()
}

func fmtSignals(dir string, sigs []graph.Signal) string {
	if len(sigs) == 0 {
		return ""
	}
	items := make([]string, len(sigs))
	for i, s := range sigs {
		items[i] = s.Name
		if s.Value != "" {
			items[i] += "=" + StyleNumber.Render(s.Value)
		}
	}
	return "  " + StyleDim.Render(dir) + " " + strings.Join(items, ", ") + "\n"
}
