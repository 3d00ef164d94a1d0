package orchestrator

import (
	"errors"

	"github.com/harshul/coderun/internal/language"
)

var (
	// ErrUnknownLanguage means no profile is registered for the file.
	ErrUnknownLanguage = language.ErrUnknownLanguage
	ErrBuildFailed     = errors.New("build failed")
	ErrNoArtifact      = errors.New("no successful build yet")
	ErrRuntime         = errors.New("program exited with an error")
	ErrEnvironment     = errors.New("environment error")
)

// Level is the severity of a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is the one user-visible message an operation ends with.
type Notice struct {
	Level  Level
	Title  string
	Detail string
	// Err is set when the operation failed; headless commands turn it into
	// the exit status.
	Err error
}

// Notifier shows notices. It is called on the loop.
type Notifier interface {
	Notify(n Notice)
}

// Prompter asks the user something and answers through a callback, which
// must run on the loop.
type Prompter interface {
	Confirm(question string, reply func(yes bool))
	Input(title, placeholder string, reply func(value string, ok bool))
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
