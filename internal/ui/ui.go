// Package ui is everything coderun draws: the interactive workbench, the
// prompts it shares with headless commands, and plain notice output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harshul/coderun/internal/orchestrator"
)

var defaultStyles = DefaultStyles()

func noticeIcon(l orchestrator.Level) string {
	switch l {
	case orchestrator.LevelSuccess:
		return "✔"
	case orchestrator.LevelWarn:
		return "⚠"
	case orchestrator.LevelError:
		return "✖"
	default:
		return "ℹ"
	}
}

// RenderNotice formats n as an icon and title with the detail indented
// below it.
func RenderNotice(n orchestrator.Notice) string {
	var b strings.Builder
	b.WriteString(defaultStyles.Level(n.Level).Render(noticeIcon(n.Level)))
	b.WriteString(" ")
	b.WriteString(n.Title)
	if n.Detail != "" {
		for _, line := range strings.Split(strings.TrimRight(n.Detail, "\n"), "\n") {
			b.WriteString("\n")
			b.WriteString(defaultStyles.Dim.Render("  " + line))
		}
	}
	return b.String()
}

// PrintNotice writes n to w.
func PrintNotice(w io.Writer, n orchestrator.Notice) {
	fmt.Fprintln(w, RenderNotice(n))
}

func printLevel(l orchestrator.Level, text string) {
	PrintNotice(os.Stdout, orchestrator.Notice{Level: l, Title: text})
}

// PrintHeader prints a section title.
func PrintHeader(text string) {
	fmt.Println(promptTitleStyle.MarginBottom(1).Render(text))
}

func PrintSuccess(text string) { printLevel(orchestrator.LevelSuccess, text) }
func PrintWarning(text string) { printLevel(orchestrator.LevelWarn, text) }
func PrintError(text string)   { printLevel(orchestrator.LevelError, text) }
func PrintInfo(text string)    { printLevel(orchestrator.LevelInfo, text) }

// PrintHighlight prints an indented label and value pair.
func PrintHighlight(label, value string) {
	fmt.Println("  " + defaultStyles.Dim.Render(label+":") + " " + promptChoiceStyle.Render(value))
}

func PrintDivider() {
	fmt.Println(defaultStyles.Dim.Render(strings.Repeat("─", 50)))
}
