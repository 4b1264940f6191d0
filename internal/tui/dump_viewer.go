package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/r9s-ai/gptdesk/internal/store"
)

// maxViewBytes bounds how much of a dump file the detail view loads.
const maxViewBytes = 4 << 20

type dumpViewerState int

const (
	dumpViewerStateList dumpViewerState = iota
	dumpViewerStateDetail
)

type dumpKeyMap struct {
	Open   key.Binding
	Back   key.Binding
	Reload key.Binding
	Failed key.Binding
	Quit   key.Binding
}

func (k dumpKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Reload, k.Failed, k.Quit}
}

func (k dumpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Back, k.Reload, k.Failed},
		{k.Quit},
	}
}

var dumpKeys = dumpKeyMap{
	Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:   key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc/b", "back")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Failed: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "failed only")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type dumpItem struct {
	sum store.DumpSummary
}

func (i dumpItem) Title() string {
	ts := i.sum.Time
	if ts.IsZero() {
		ts = i.sum.ModTime
	}
	timeText := "-"
	if !ts.IsZero() {
		timeText = ts.Format("2006-01-02 15:04:05")
	}
	status := "-"
	switch {
	case i.sum.Status != 0:
		status = fmt.Sprintf("%d", i.sum.Status)
	case i.sum.Error != "":
		status = "err"
	}
	return fmt.Sprintf("%s  %s  %s  %s", timeText, status, dash(i.sum.Endpoint), dash(i.sum.Model))
}

func (i dumpItem) Description() string {
	rid := strings.TrimSpace(i.sum.RequestID)
	if rid == "" {
		rid = strings.TrimSuffix(i.sum.FileName, filepath.Ext(i.sum.FileName))
	}
	return fmt.Sprintf("path=%s rid=%s file=%s", dash(i.sum.URLPath), rid, i.sum.FileName)
}

func (i dumpItem) FilterValue() string {
	parts := []string{i.sum.Endpoint, i.sum.Model, i.sum.URLPath, i.sum.Method, i.sum.RequestID}
	if i.sum.Status != 0 {
		parts = append(parts, fmt.Sprintf("%d", i.sum.Status))
	}
	return strings.ToLower(strings.Join(parts, " "))
}

type dumpViewerModel struct {
	dumpsDir   string
	limit      int
	failedOnly bool

	state dumpViewerState
	list  list.Model
	vp    viewport.Model
	help  help.Model
	keys  dumpKeyMap

	width  int
	height int

	selectedPath string
	lastLoaded   time.Time
	err          error
}

type dumpListMsg struct {
	items []store.DumpSummary
	err   error
}

type dumpFileMsg struct {
	path    string
	content string
	err     error
}

func newDumpViewerModel(dumpsDir string) dumpViewerModel {
	d := list.NewDefaultDelegate()
	d.ShowDescription = true
	d.SetSpacing(0)

	l := list.New(nil, d, 0, 0)
	l.Title = "Traffic Dumps"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.SetShowFilter(true)
	l.DisableQuitKeybindings()

	return dumpViewerModel{
		dumpsDir: strings.TrimSpace(dumpsDir),
		limit:    200,
		state:    dumpViewerStateList,
		list:     l,
		vp:       viewport.New(0, 0),
		help:     help.New(),
		keys:     dumpKeys,
	}
}

func (m dumpViewerModel) Init() tea.Cmd {
	return m.loadDumpsCmd()
}

func (m dumpViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case dumpListMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.items))
		for _, s := range msg.items {
			items = append(items, dumpItem{sum: s})
		}
		m.list.SetItems(items)
		m.lastLoaded = time.Now()
		m.err = nil
		return m, nil

	case dumpFileMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.selectedPath = msg.path
		m.vp.SetContent(msg.content)
		m.vp.GotoTop()
		m.state = dumpViewerStateDetail
		m.resize()
		m.err = nil
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case m.state == dumpViewerStateDetail && key.Matches(msg, m.keys.Back):
			m.state = dumpViewerStateList
			m.resize()
			return m, nil
		case key.Matches(msg, m.keys.Reload):
			return m, m.loadDumpsCmd()
		case m.state == dumpViewerStateList && key.Matches(msg, m.keys.Failed):
			m.failedOnly = !m.failedOnly
			return m, m.loadDumpsCmd()
		case m.state == dumpViewerStateList && key.Matches(msg, m.keys.Open):
			it, ok := m.list.SelectedItem().(dumpItem)
			if !ok {
				return m, nil
			}
			return m, readDumpFileCmd(it.sum.Path)
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case dumpViewerStateList:
		m.list, cmd = m.list.Update(msg)
	case dumpViewerStateDetail:
		m.vp, cmd = m.vp.Update(msg)
	}
	return m, cmd
}

func (m dumpViewerModel) View() string {
	var b strings.Builder
	switch m.state {
	case dumpViewerStateList:
		header := fmt.Sprintf("Traffic Dumps  dir=%s  limit=%d", m.dumpsDir, m.limit)
		if m.failedOnly {
			header += "  failed only"
		}
		b.WriteString(titleStyle.Render(header))
		b.WriteString("\n")
		if !m.lastLoaded.IsZero() {
			b.WriteString(faintStyle.Render("loaded: " + m.lastLoaded.Format(time.RFC3339)))
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render("error: " + m.err.Error()))
			b.WriteString("\n\n")
		}
		b.WriteString(m.list.View())
		b.WriteString("\n")
		b.WriteString(faintStyle.Render("Tip: press / to filter (endpoint/model/path/status/rid), esc to clear filter"))
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
	case dumpViewerStateDetail:
		b.WriteString(titleStyle.Render("Dump File  " + m.selectedPath))
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render("error: " + m.err.Error()))
			b.WriteString("\n\n")
		}
		b.WriteString(m.vp.View())
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func (m *dumpViewerModel) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	helpHeight := 1
	switch m.state {
	case dumpViewerStateList:
		headerLines := 2
		if !m.lastLoaded.IsZero() {
			headerLines++
		}
		if m.err != nil {
			headerLines += 2
		}
		m.list.SetSize(m.width, max(m.height-headerLines-1-helpHeight, 5))
	case dumpViewerStateDetail:
		headerLines := 1
		if m.err != nil {
			headerLines += 2
		}
		m.vp.Width = m.width
		m.vp.Height = max(m.height-headerLines-helpHeight, 5)
	}
}

func (m dumpViewerModel) loadDumpsCmd() tea.Cmd {
	dir, limit, failed := m.dumpsDir, m.limit, m.failedOnly
	return func() tea.Msg {
		items, err := store.ListDumpSummaries(store.DumpListOptions{Dir: dir, Limit: limit})
		if err == nil && failed {
			items = store.FilterDumps(items, store.DumpFilter{Failed: true})
		}
		return dumpListMsg{items: items, err: err}
	}
}

func readDumpFileCmd(path string) tea.Cmd {
	p := strings.TrimSpace(path)
	return func() tea.Msg {
		content, cut, err := store.ReadDump(p, maxViewBytes)
		if err != nil {
			return dumpFileMsg{path: p, err: err}
		}
		if cut {
			content += "\n[view truncated]\n"
		}
		return dumpFileMsg{path: p, content: content}
	}
}

func dash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
