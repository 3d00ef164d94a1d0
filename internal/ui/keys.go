package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// keyMap defines the key bindings for the workbench
type keyMap struct {
	Run            key.Binding
	Build          key.Binding
	RunLast        key.Binding
	RunWithInput   key.Binding
	RunWithIO      key.Binding
	Tests          key.Binding
	RunFloating    key.Binding
	ToggleFloating key.Binding
	Profile        key.Binding
	Watch          key.Binding
	History        key.Binding
	Clean          key.Binding
	Focus          key.Binding
	Escape         key.Binding
	Dismiss        key.Binding
	Up             key.Binding
	Down           key.Binding
	Help           key.Binding
	Quit           key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Run:            key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run")),
		Build:          key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "build")),
		RunLast:        key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "run last")),
		RunWithInput:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "run with input")),
		RunWithIO:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "run with I/O files")),
		Tests:          key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tests")),
		RunFloating:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "run floating")),
		ToggleFloating: key.NewBinding(key.WithKeys("`"), key.WithHelp("`", "terminal")),
		Profile:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "profile")),
		Watch:          key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watch")),
		History:        key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		Clean:          key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clean")),
		Focus:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "type into session")),
		Escape:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Dismiss:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close window")),
		Up:             key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:           key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		Help:           key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// operations lists the bindings shown in the full help, in display order.
func (k keyMap) operations() []key.Binding {
	return []key.Binding{
		k.Run, k.Build, k.RunLast, k.RunWithInput, k.RunWithIO, k.Tests,
		k.RunFloating, k.ToggleFloating, k.Profile, k.Watch, k.History, k.Clean,
		k.Focus, k.Escape, k.Dismiss, k.Help, k.Quit,
	}
}

var escapeSequences = map[tea.KeyType]string{
	tea.KeySpace:    " ",
	tea.KeyUp:       "\x1b[A",
	tea.KeyDown:     "\x1b[B",
	tea.KeyRight:    "\x1b[C",
	tea.KeyLeft:     "\x1b[D",
	tea.KeyHome:     "\x1b[H",
	tea.KeyEnd:      "\x1b[F",
	tea.KeyPgUp:     "\x1b[5~",
	tea.KeyPgDown:   "\x1b[6~",
	tea.KeyDelete:   "\x1b[3~",
	tea.KeyShiftTab: "\x1b[Z",
}

// keyBytes translates a key press into what a terminal would send to the
// program. Unknown keys translate to nil.
func keyBytes(msg tea.KeyMsg) []byte {
	switch {
	case msg.Type == tea.KeyRunes:
		b := []byte(string(msg.Runes))
		if msg.Alt {
			b = append([]byte{0x1b}, b...)
		}
		return b
	case msg.Type >= 0 && msg.Type < 32, msg.Type == tea.KeyBackspace:
		// Control keys share their ASCII code.
		return []byte{byte(msg.Type)}
	}
	if seq, ok := escapeSequences[msg.Type]; ok {
		return []byte(seq)
	}
	return nil
}
