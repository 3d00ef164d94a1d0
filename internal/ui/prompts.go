package ui

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Prompts run standalone through their Run* helper (headless commands) or
// embedded as a workbench modal. Either way Done reports when the user is
// finished.

var (
	promptTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	promptChoiceStyle = lipgloss.NewStyle().Bold(true).Foreground(success)
	promptIdleStyle   = lipgloss.NewStyle().Foreground(subtle)
)

// maxCompletions caps the candidates listed after an ambiguous tab.
const maxCompletions = 6

// ConfirmPrompt asks a yes/no question. y and n answer at once; enter takes
// the highlighted choice, which starts on No.
type ConfirmPrompt struct {
	question  string
	yes       bool
	answered  bool
	cancelled bool
}

// NewConfirmPrompt creates a confirmation for question.
func NewConfirmPrompt(question string) ConfirmPrompt {
	return ConfirmPrompt{question: question}
}

func (m ConfirmPrompt) Init() tea.Cmd { return nil }

func (m ConfirmPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "y", "Y":
		m.yes, m.answered = true, true
	case "n", "N":
		m.yes, m.answered = false, true
	case "left", "right", "tab":
		m.yes = !m.yes
	case "enter":
		m.answered = true
	case "esc", "ctrl+c", "q":
		m.cancelled = true
	}
	if m.Done() {
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmPrompt) View() string {
	yes, no := promptIdleStyle.Render("  yes"), promptChoiceStyle.Render("❯ no")
	if m.yes {
		yes, no = promptChoiceStyle.Render("❯ yes"), promptIdleStyle.Render("  no")
	}
	return promptTitleStyle.Render("? "+m.question) + "\n\n" +
		yes + "    " + no + "\n\n" +
		promptIdleStyle.Render("y/n to answer • ← → enter to pick • esc to cancel")
}

// Done reports whether the user answered or cancelled.
func (m ConfirmPrompt) Done() bool { return m.answered || m.cancelled }

// Answer is true only for an explicit yes.
func (m ConfirmPrompt) Answer() bool { return m.answered && m.yes }

// RunConfirmPrompt asks question on the terminal.
func RunConfirmPrompt(question string) (bool, error) {
	final, err := tea.NewProgram(NewConfirmPrompt(question)).Run()
	if err != nil {
		return false, err
	}
	return final.(ConfirmPrompt).Answer(), nil
}

// FilePrompt reads a path relative to a directory. Tab completes against
// the directory listing and the status line tells whether the path exists.
type FilePrompt struct {
	title     string
	dir       string
	input     textinput.Model
	matches   []string
	submitted bool
	cancelled bool
}

// NewFilePrompt creates a prompt for a file under dir.
func NewFilePrompt(title, dir, placeholder string) FilePrompt {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 512
	ti.Width = 50
	ti.Focus()
	return FilePrompt{title: title, dir: dir, input: ti}
}

func (m FilePrompt) Init() tea.Cmd { return textinput.Blink }

func (m FilePrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			m.submitted = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "tab":
			m.complete()
			return m, nil
		}
		m.matches = nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resolve anchors p to the prompt's directory.
func (m FilePrompt) resolve(p string) string {
	if filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}

// complete extends the typed name to the longest prefix shared by every
// matching entry. Directories complete with a trailing slash.
func (m *FilePrompt) complete() {
	value := m.input.Value()
	parent, base := filepath.Split(value)
	entries, err := os.ReadDir(m.resolve(parent))
	if err != nil {
		m.matches = nil
		return
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base) || (strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".")) {
			continue
		}
		if e.IsDir() {
			name += string(filepath.Separator)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		m.matches = nil
		return
	}
	sort.Strings(names)

	m.input.SetValue(parent + commonPrefix(names))
	m.input.CursorEnd()
	m.matches = nil
	if len(names) > 1 {
		m.matches = names
	}
}

func commonPrefix(names []string) string {
	prefix := names[0]
	for _, n := range names[1:] {
		for !strings.HasPrefix(n, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// status describes what the typed path points at.
func (m FilePrompt) status() string {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return ""
	}
	st, err := os.Stat(m.resolve(value))
	switch {
	case err != nil:
		return "new file"
	case st.IsDir():
		return "directory"
	default:
		return "exists, " + humanize.IBytes(uint64(st.Size()))
	}
}

func (m FilePrompt) View() string {
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("? " + m.title))
	if m.dir != "" {
		b.WriteString(promptIdleStyle.Render("  in " + m.dir))
	}
	b.WriteString("\n\n  " + m.input.View() + "\n")
	if s := m.status(); s != "" {
		b.WriteString(promptIdleStyle.Render("  "+s) + "\n")
	}
	if len(m.matches) > 0 {
		shown := m.matches
		if len(shown) > maxCompletions {
			shown = append(shown[:maxCompletions:maxCompletions], "…")
		}
		b.WriteString(promptChoiceStyle.Render("  "+strings.Join(shown, "  ")) + "\n")
	}
	b.WriteString("\n" + promptIdleStyle.Render("tab to complete • enter to confirm • esc to cancel"))
	return b.String()
}

// Done reports whether the user submitted or cancelled.
func (m FilePrompt) Done() bool { return m.submitted || m.cancelled }

// Value returns the trimmed path and whether a non-empty one was submitted.
func (m FilePrompt) Value() (string, bool) {
	v := strings.TrimSpace(m.input.Value())
	return v, m.submitted && !m.cancelled && v != ""
}

// RunFilePrompt asks for a file under dir on the terminal.
func RunFilePrompt(title, dir, placeholder string) (string, bool, error) {
	final, err := tea.NewProgram(NewFilePrompt(title, dir, placeholder)).Run()
	if err != nil {
		return "", false, err
	}
	v, ok := final.(FilePrompt).Value()
	return v, ok, nil
}

// Choice is one entry of a PickPrompt.
type Choice struct {
	Label  string
	Value  string
	Detail string
}

// PickPrompt chooses one entry from a list. Typing narrows the list to
// labels containing the typed text.
type PickPrompt struct {
	title     string
	subtitle  string
	choices   []Choice
	filter    string
	cursor    int
	picked    bool
	cancelled bool
}

// NewPickPrompt creates a picker over choices.
func NewPickPrompt(title, subtitle string, choices []Choice) PickPrompt {
	return PickPrompt{title: title, subtitle: subtitle, choices: choices}
}

func (m PickPrompt) visible() []Choice {
	if m.filter == "" {
		return m.choices
	}
	needle := strings.ToLower(m.filter)
	var out []Choice
	for _, c := range m.choices {
		if strings.Contains(strings.ToLower(c.Label), needle) {
			out = append(out, c)
		}
	}
	return out
}

func (m PickPrompt) Init() tea.Cmd { return nil }

func (m PickPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case tea.KeyBackspace:
		if m.filter != "" {
			m.filter = m.filter[:len(m.filter)-1]
			m.cursor = 0
		}
	case tea.KeyRunes:
		m.filter += string(k.Runes)
		m.cursor = 0
	case tea.KeyEnter:
		if len(m.visible()) > 0 {
			m.picked = true
			return m, tea.Quit
		}
	case tea.KeyEsc, tea.KeyCtrlC:
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m PickPrompt) View() string {
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("? " + m.title))
	if m.subtitle != "" {
		b.WriteString(promptIdleStyle.Render("  " + m.subtitle))
	}
	b.WriteString("\n")
	if m.filter != "" {
		b.WriteString(promptIdleStyle.Render("  filter: ") + m.filter + "\n")
	}
	b.WriteString("\n")

	visible := m.visible()
	if len(visible) == 0 {
		b.WriteString(promptIdleStyle.Render("  no match") + "\n")
	}
	for i, c := range visible {
		if i == m.cursor {
			b.WriteString(promptChoiceStyle.Render("❯ "+c.Label) + promptIdleStyle.Render("  "+c.Detail) + "\n")
			continue
		}
		b.WriteString(promptIdleStyle.Render("  "+c.Label) + "\n")
	}
	b.WriteString("\n" + promptIdleStyle.Render("type to filter • ↑ ↓ to move • enter to open • esc to cancel"))
	return b.String()
}

// Picked returns the chosen entry, if any.
func (m PickPrompt) Picked() (Choice, bool) {
	visible := m.visible()
	if !m.picked || m.cancelled || m.cursor >= len(visible) {
		return Choice{}, false
	}
	return visible[m.cursor], true
}

// RunPickPrompt shows the picker on the terminal.
func RunPickPrompt(title, subtitle string, choices []Choice) (Choice, bool, error) {
	final, err := tea.NewProgram(NewPickPrompt(title, subtitle, choices)).Run()
	if err != nil {
		return Choice{}, false, err
	}
	c, ok := final.(PickPrompt).Picked()
	return c, ok, nil
}
