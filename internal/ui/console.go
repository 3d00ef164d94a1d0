package ui

import (
	"io"
	"os"

	"github.com/harshul/coderun/internal/orchestrator"
)

// Console is the headless face of the engine. Notices are printed; prompts
// are answered from preset values first and asked on the terminal only when
// Interactive is set. Everything runs on the loop, so prompts block it.
type Console struct {
	Out io.Writer
	// Interactive allows falling back to terminal prompts.
	Interactive bool
	// AssumeYes answers every confirmation with yes.
	AssumeYes bool
	// Inputs answer Input prompts in order.
	Inputs []string
	// Dir anchors file paths typed at Input prompts.
	Dir string
}

func (c *Console) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Notify implements orchestrator.Notifier.
func (c *Console) Notify(n orchestrator.Notice) {
	PrintNotice(c.out(), n)
}

// Confirm implements orchestrator.Prompter.
func (c *Console) Confirm(question string, reply func(bool)) {
	switch {
	case c.AssumeYes:
		reply(true)
	case c.Interactive:
		yes, err := RunConfirmPrompt(question)
		reply(err == nil && yes)
	default:
		PrintNotice(c.out(), orchestrator.Notice{Level: orchestrator.LevelWarn, Title: question + " (no terminal, answering no)"})
		reply(false)
	}
}

// Input implements orchestrator.Prompter.
func (c *Console) Input(title, placeholder string, reply func(string, bool)) {
	if len(c.Inputs) > 0 {
		v := c.Inputs[0]
		c.Inputs = c.Inputs[1:]
		reply(v, v != "")
		return
	}
	if !c.Interactive {
		reply("", false)
		return
	}
	v, ok, err := RunFilePrompt(title, c.Dir, placeholder)
	reply(v, err == nil && ok)
}
