package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/orchestrator"
	"github.com/harshul/coderun/internal/session"
)

const (
	frameInterval = 100 * time.Millisecond
	maxNotices    = 5
	// detailLines caps how much of the latest notice's detail is shown.
	detailLines = 8
)

// Messages for bubbletea
type (
	frameMsg          time.Time
	resourceTickMsg   time.Time
	resourceUpdateMsg ResourceStats
	// postMsg carries a loop callback into the update goroutine.
	postMsg func()
)

// modal is a prompt the engine is waiting on. update reports whether the
// prompt is finished; the reply has then been delivered.
type modal interface {
	update(msg tea.KeyMsg) bool
	view() string
}

type confirmModal struct {
	prompt ConfirmPrompt
	reply  func(bool)
}

func (c *confirmModal) update(msg tea.KeyMsg) bool {
	next, _ := c.prompt.Update(msg)
	c.prompt = next.(ConfirmPrompt)
	if !c.prompt.Done() {
		return false
	}
	c.reply(c.prompt.Answer())
	return true
}

func (c *confirmModal) view() string { return c.prompt.View() }

type inputModal struct {
	prompt FilePrompt
	reply  func(string, bool)
}

func (i *inputModal) update(msg tea.KeyMsg) bool {
	next, _ := i.prompt.Update(msg)
	i.prompt = next.(FilePrompt)
	if !i.prompt.Done() {
		return false
	}
	i.reply(i.prompt.Value())
	return true
}

func (i *inputModal) view() string { return i.prompt.View() }

// WorkbenchModel is the bubbletea model of the interactive workbench. Its
// Update goroutine is the engine loop: every engine call happens there, and
// the model doubles as the engine's Notifier and Prompter.
type WorkbenchModel struct {
	engine *orchestrator.Engine
	host   *session.PTYHost
	target orchestrator.Target
	logger *zap.Logger

	width    int
	height   int
	viewport viewport.Model
	spinner  spinner.Model

	// busy names the operation waiting for its notice.
	busy    string
	notices []orchestrator.Notice
	prompts []modal
	views   []session.View

	// interactive sends key presses to the focused session instead of
	// treating them as commands.
	interactive bool
	showHelp    bool
	quitting    bool
	resources   ResourceStats

	keys   keyMap
	styles *Styles
}

// NewWorkbench creates the model for target. The engine is attached by
// RunWorkbench once the loop exists.
func NewWorkbench(host *session.PTYHost, target orchestrator.Target, logger *zap.Logger) *WorkbenchModel {
	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(highlight)

	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkbenchModel{
		host:     host,
		target:   target,
		logger:   logger.Named("ui"),
		viewport: vp,
		spinner:  sp,
		keys:     defaultKeyMap(),
		styles:   DefaultStyles(),
	}
}

// Notify implements orchestrator.Notifier. It runs on the update goroutine.
func (m *WorkbenchModel) Notify(n orchestrator.Notice) {
	m.busy = ""
	m.notices = append(m.notices, n)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

// Confirm implements orchestrator.Prompter by opening a modal.
func (m *WorkbenchModel) Confirm(question string, reply func(bool)) {
	m.prompts = append(m.prompts, &confirmModal{prompt: NewConfirmPrompt(question), reply: reply})
}

// Input implements orchestrator.Prompter by opening a modal.
func (m *WorkbenchModel) Input(title, placeholder string, reply func(string, bool)) {
	m.prompts = append(m.prompts, &inputModal{
		prompt: NewFilePrompt(title, filepath.Dir(m.target.File), placeholder),
		reply:  reply,
	})
}

// Init implements tea.Model
func (m *WorkbenchModel) Init() tea.Cmd {
	return tea.Batch(frameCmd(), resourceTickCmd(), m.spinner.Tick)
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func resourceTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return resourceTickMsg(t) })
}

// Update implements tea.Model
func (m *WorkbenchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case postMsg:
		msg()
		m.refresh()

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		m.refresh()

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()

	case frameMsg:
		m.refresh()
		cmds = append(cmds, frameCmd())

	case resourceTickMsg:
		cmds = append(cmds, resourceTickCmd(), m.fetchResourceStats())

	case resourceUpdateMsg:
		m.resources = ResourceStats(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.quitting {
		return m, tea.Quit
	}
	return m, tea.Batch(cmds...)
}

func (m *WorkbenchModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	// An open prompt owns the keyboard.
	if len(m.prompts) > 0 {
		if m.prompts[0].update(msg) {
			m.prompts = m.prompts[1:]
		}
		return nil
	}

	if m.interactive {
		if key.Matches(msg, m.keys.Escape) {
			m.interactive = false
			return nil
		}
		if b := keyBytes(msg); b != nil {
			if err := m.host.Input(b); err != nil {
				m.logger.Debug("input dropped", zap.Error(err))
				m.interactive = false
			}
		}
		return nil
	}

	t := m.target
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
	case key.Matches(msg, m.keys.Run):
		m.start("Running", func() { m.engine.Run(t) })
	case key.Matches(msg, m.keys.Build):
		m.start("Building", func() { m.engine.BuildOnly(t) })
	case key.Matches(msg, m.keys.RunLast):
		m.start("Running last build", func() { m.engine.RunLast(t) })
	case key.Matches(msg, m.keys.RunWithInput):
		m.start("Running with input", func() { m.engine.RunWithInput(t) })
	case key.Matches(msg, m.keys.RunWithIO):
		m.start("Running with I/O files", func() { m.engine.RunWithIOFiles(t) })
	case key.Matches(msg, m.keys.Tests):
		m.start("Testing", func() { m.engine.RunTests(t) })
	case key.Matches(msg, m.keys.RunFloating):
		m.start("Starting", func() { m.engine.RunFloating(t) })
	case key.Matches(msg, m.keys.ToggleFloating):
		m.engine.ToggleFloating()
		if m.engine.Sessions().Floating() == session.FloatingVisible {
			m.interactive = true
		}
	case key.Matches(msg, m.keys.Profile):
		m.engine.CycleProfile(t)
	case key.Matches(msg, m.keys.Watch):
		m.engine.ToggleWatch(t)
	case key.Matches(msg, m.keys.History):
		m.engine.ShowHistory()
	case key.Matches(msg, m.keys.Clean):
		m.engine.Clean(t)
	case key.Matches(msg, m.keys.Focus):
		if v, ok := m.activeView(); ok && v.Running {
			m.host.Focus(v.Window)
			m.interactive = true
		}
	case key.Matches(msg, m.keys.Dismiss):
		if v, ok := m.activeView(); ok {
			m.engine.Sessions().Dismiss(v.Window)
		}
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// start marks op as in flight and runs it. A synchronous notice clears the
// mark again.
func (m *WorkbenchModel) start(label string, op func()) {
	m.busy = label
	op()
}

// activeView is the window keys act on: a visible floating window wins over
// the bottom one.
func (m *WorkbenchModel) activeView() (session.View, bool) {
	if v, ok := m.floatingView(); ok {
		return v, true
	}
	return m.bottomView()
}

func (m *WorkbenchModel) bottomView() (session.View, bool) {
	for _, v := range m.views {
		if v.Placement == session.Bottom {
			return v, true
		}
	}
	return session.View{}, false
}

func (m *WorkbenchModel) floatingView() (session.View, bool) {
	for i := len(m.views) - 1; i >= 0; i-- {
		if m.views[i].Placement == session.Floating {
			return m.views[i], true
		}
	}
	return session.View{}, false
}

// layout sizes the bottom pane and the terminals behind it.
func (m *WorkbenchModel) layout() {
	// header(2) + notices + footer(1) + pane border(2)
	h := m.height - 2 - (detailLines + 2) - 1 - 2
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.host.Resize(uint16(h), uint16(w))
}

// refresh pulls the latest session output into the view.
func (m *WorkbenchModel) refresh() {
	if m.host == nil {
		return
	}
	m.views = m.host.Views(0)
	v, ok := m.bottomView()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(v.Lines, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// fetchResourceStats samples the machine and the bottom job off the update
// goroutine.
func (m *WorkbenchModel) fetchResourceStats() tea.Cmd {
	pid := 0
	if v, ok := m.bottomView(); ok && v.Running {
		pid, _ = m.host.Pid(v.Buffer)
	}
	return func() tea.Msg {
		return resourceUpdateMsg(GetResourceStats(pid))
	}
}

// View implements tea.Model
func (m *WorkbenchModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch {
	case len(m.prompts) > 0:
		b.WriteString(m.place(m.styles.Modal.Render(m.prompts[0].view())))
	case m.showHelp:
		b.WriteString(m.place(m.renderHelp()))
	default:
		if v, ok := m.floatingView(); ok {
			b.WriteString(m.place(m.renderFloating(v)))
		} else {
			b.WriteString(m.renderBottom())
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderNotices())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// place centres content over the area the bottom pane occupies.
func (m *WorkbenchModel) place(content string) string {
	return lipgloss.Place(m.viewport.Width+4, m.viewport.Height+2, lipgloss.Center, lipgloss.Center, content)
}

// renderHeader renders the workbench header
func (m *WorkbenchModel) renderHeader() string {
	title := "⚡ coderun " + filepath.Base(m.target.File)
	if lang, fp, err := m.engine.ActiveProfile(m.target); err == nil {
		title += fmt.Sprintf("  %s [%s]", lang, fp.Name)
	}
	if m.engine.Watching() {
		title += "  👀 watch"
	}

	status := fmt.Sprintf("CPU: %.0f%% | Mem: %.0f%%", m.resources.CPUPercent, m.resources.MemPercent)
	if m.resources.CPUTemp > 0 {
		status += fmt.Sprintf(" | %.0f°C", m.resources.CPUTemp)
	}
	if job := m.resources.Job; job.Pid > 0 {
		status += fmt.Sprintf(" | pid %d: %.0f%% %s", job.Pid, job.CPUPercent, FormatBytes(job.RSS))
	}

	width := m.width - 2
	if width < 40 {
		width = 40
	}
	padding := width - 2 - lipgloss.Width(title) - lipgloss.Width(status)
	if padding < 1 {
		padding = 1
	}
	return m.styles.Header.Width(width).Render(title + strings.Repeat(" ", padding) + status)
}

func (m *WorkbenchModel) paneTitle(v session.View) string {
	state := "running"
	switch {
	case v.Exited:
		state = fmt.Sprintf("exited %d", v.ExitCode)
	case !v.Running:
		state = "idle"
	}
	if v.Focused && m.interactive {
		state += " · typing (esc to leave)"
	}
	return m.styles.PaneTitle.Render(v.Title) + m.styles.Dim.Render("  "+state)
}

// renderBottom renders the bottom session pane
func (m *WorkbenchModel) renderBottom() string {
	v, ok := m.bottomView()
	style := m.styles.Pane
	if ok && v.Focused && m.interactive {
		style = m.styles.PaneFocused
	}
	body := m.viewport.View()
	if !ok {
		body = m.styles.Dim.Render(fmt.Sprintf("Nothing has run yet. Press %s to run %s.",
			m.styles.HelpKey.Render("r"), filepath.Base(m.target.File)))
	} else {
		body = m.paneTitle(v) + "\n" + body
	}
	return style.Width(m.viewport.Width + 2).Render(body)
}

// renderFloating renders a floating session over the bottom pane.
func (m *WorkbenchModel) renderFloating(v session.View) string {
	h := m.viewport.Height * 2 / 3
	if h < 3 {
		h = 3
	}
	lines := v.Lines
	if len(lines) > h {
		lines = lines[len(lines)-h:]
	}
	w := m.viewport.Width * 3 / 4
	if w < 20 {
		w = 20
	}
	return m.styles.Floating.Width(w).Render(m.paneTitle(v) + "\n" + strings.Join(lines, "\n"))
}

// renderNotices shows the latest notice in full and older ones as titles.
func (m *WorkbenchModel) renderNotices() string {
	var lines []string
	if m.busy != "" {
		lines = append(lines, m.spinner.View()+" "+m.busy+"...")
	}
	for i, n := range m.notices {
		style := m.styles.Level(n.Level)
		if i < len(m.notices)-1 {
			lines = append(lines, m.styles.Dim.Render(noticeIcon(n.Level)+" "+n.Title))
			continue
		}
		lines = append(lines, style.Render(noticeIcon(n.Level)+" "+n.Title))
		if n.Detail != "" {
			detail := strings.Split(strings.TrimRight(n.Detail, "\n"), "\n")
			if len(detail) > detailLines {
				detail = append(detail[:detailLines-1], fmt.Sprintf("... %d more lines", len(detail)-detailLines+1))
			}
			for _, d := range detail {
				lines = append(lines, m.styles.Dim.Render("  "+d))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// renderHelp lists every binding.
func (m *WorkbenchModel) renderHelp() string {
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("Keys") + "\n\n")
	for _, k := range m.keys.operations() {
		h := k.Help()
		b.WriteString(fmt.Sprintf("  %s  %s\n", m.styles.HelpKey.Width(6).Render(h.Key), m.styles.HelpDesc.Render(h.Desc)))
	}
	return m.styles.Modal.Render(strings.TrimRight(b.String(), "\n"))
}

// renderFooter renders the short help line
func (m *WorkbenchModel) renderFooter() string {
	if m.interactive {
		return m.styles.Footer.Render(fmt.Sprintf("%s leave session • keys go to the program", m.styles.HelpKey.Render("esc")))
	}
	short := []key.Binding{m.keys.Run, m.keys.Build, m.keys.Tests, m.keys.ToggleFloating, m.keys.Focus, m.keys.Help, m.keys.Quit}
	parts := make([]string, 0, len(short))
	for _, k := range short {
		h := k.Help()
		parts = append(parts, m.styles.HelpKey.Render(h.Key)+" "+h.Desc)
	}
	return m.styles.Footer.Render(strings.Join(parts, " • "))
}
