// Package tui implements the interactive table picker.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/leapexport/internal/catalog"
	"github.com/leapstack-labs/leapexport/internal/exporter"
	"github.com/leapstack-labs/leapexport/internal/notify"
)

// maxNotices is how many recent notices stay on screen.
const maxNotices = 6

// Options configures the picker.
type Options struct {
	Tables []catalog.Table
	// Counts loads row counts for Tables.
	Counts func(ctx context.Context) []catalog.Count
	// Export runs an export. Its notices should be sent to Hub.
	Export func(ctx context.Context, keys []string) (*exporter.Summary, error)
	Hub    *notify.Hub
}

type countsMsg []catalog.Count

type noticeMsg notify.Notice

type exportDoneMsg struct {
	summary *exporter.Summary
	err     error
}

// Model is the bubbletea model of the picker.
type Model struct {
	ctx    context.Context
	opts   Options
	sub    chan notify.Notice
	sel    *catalog.Selection
	counts map[string]catalog.Count

	cursor    int
	loading   bool
	exporting bool
	notices   []notify.Notice
	last      *exporter.Summary

	spinner spinner.Model
	styles  styles
}

// New creates a picker model. The model subscribes to opts.Hub until
// Close is called.
func New(ctx context.Context, opts Options) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:     ctx,
		opts:    opts,
		sel:     catalog.NewSelection(opts.Tables),
		counts:  make(map[string]catalog.Count),
		loading: opts.Counts != nil,
		spinner: sp,
		styles:  newStyles(),
	}
	if opts.Hub != nil {
		m.sub = opts.Hub.Subscribe()
	}
	return m
}

// Close releases the notice subscription.
func (m *Model) Close() {
	if m.opts.Hub != nil && m.sub != nil {
		m.opts.Hub.Unsubscribe(m.sub)
	}
}

// Selection exposes the current selection.
func (m *Model) Selection() *catalog.Selection { return m.sel }

// LastSummary returns the summary of the most recent export, if any.
func (m *Model) LastSummary() *exporter.Summary { return m.last }

// Init starts count loading, the spinner and the notice listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCounts(), m.waitNotice())
}

func (m *Model) loadCounts() tea.Cmd {
	if m.opts.Counts == nil {
		return nil
	}
	return func() tea.Msg {
		return countsMsg(m.opts.Counts(m.ctx))
	}
}

func (m *Model) waitNotice() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	sub := m.sub
	return func() tea.Msg {
		n, ok := <-sub
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func (m *Model) export(keys []string) tea.Cmd {
	if m.exporting || m.opts.Export == nil {
		return nil
	}
	m.exporting = true
	return func() tea.Msg {
		sum, err := m.opts.Export(m.ctx, keys)
		return exportDoneMsg{summary: sum, err: err}
	}
}

// Update handles input and async results.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case countsMsg:
		m.loading = false
		for _, c := range msg {
			m.counts[c.Table.Key] = c
		}
		return m, nil

	case noticeMsg:
		m.pushNotice(notify.Notice(msg))
		return m, m.waitNotice()

	case exportDoneMsg:
		m.exporting = false
		if msg.summary != nil {
			m.last = msg.summary
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "q", "esc":
		if m.exporting {
			return nil
		}
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.opts.Tables)-1 {
			m.cursor++
		}
	case " ", "x":
		if len(m.opts.Tables) > 0 {
			m.sel.Toggle(m.opts.Tables[m.cursor].Key)
		}
	case "a":
		m.sel.ToggleAll()
	case "enter":
		return m.export(m.sel.Keys())
	case "E":
		return m.export(catalog.Keys(m.opts.Tables))
	case "r":
		if !m.loading {
			m.loading = true
			return m.loadCounts()
		}
	}
	return nil
}

func (m *Model) pushNotice(n notify.Notice) {
	m.notices = append(m.notices, n)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

// View renders the picker.
func (m *Model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.title.Render("Export data"))
	b.WriteString("\n")
	b.WriteString(s.muted.Render("Select tables and export them to CSV"))
	b.WriteString("\n\n")

	labelWidth := 0
	for _, t := range m.opts.Tables {
		labelWidth = max(labelWidth, lipgloss.Width(t.Label))
	}

	for i, t := range m.opts.Tables {
		cursor := "  "
		if i == m.cursor {
			cursor = s.cursor.Render("> ")
		}
		box := "[ ]"
		if m.sel.IsSelected(t.Key) {
			box = s.selected.Render("[x]")
		}
		label := fmt.Sprintf("%-*s", labelWidth, t.Label)
		if i == m.cursor {
			label = s.bold.Render(label)
		}
		fmt.Fprintf(&b, "%s%s %s  %s  %s\n", cursor, box, label, s.muted.Render(t.Key), m.countText(t.Key))
	}

	b.WriteString("\n")
	if m.exporting {
		b.WriteString(m.spinner.View() + " Exporting...\n")
	}
	for _, n := range m.notices {
		b.WriteString(s.notice(n) + "\n")
	}

	selectAll := "select all"
	if m.sel.AllSelected() {
		selectAll = "clear all"
	}
	help := fmt.Sprintf("space toggle · a %s · enter export selected (%d) · E export all · r refresh · q quit",
		selectAll, m.sel.Len())
	b.WriteString("\n" + s.muted.Render(help) + "\n")

	return b.String()
}

func (m *Model) countText(key string) string {
	c, ok := m.counts[key]
	switch {
	case !ok && m.loading:
		return m.spinner.View()
	case !ok:
		return m.styles.muted.Render("-")
	case c.Err != nil:
		return m.styles.errText.Render("0 (count failed)")
	default:
		return fmt.Sprintf("%d records", c.Rows)
	}
}

// Run starts the picker on the given terminal streams and blocks until
// the user quits.
func Run(ctx context.Context, opts Options, in io.Reader, out io.Writer) (*exporter.Summary, error) {
	m := New(ctx, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		return m.LastSummary(), fmt.Errorf("interactive picker failed: %w", err)
	}
	return m.LastSummary(), nil
}
