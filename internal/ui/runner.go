package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/loop"
	"github.com/harshul/coderun/internal/orchestrator"
	"github.com/harshul/coderun/internal/session"
)

// WorkbenchConfig holds configuration for the workbench
type WorkbenchConfig struct {
	Target orchestrator.Target
	// Engine is completed with the loop, host, notifier and prompter before
	// the engine is built.
	Engine orchestrator.Options
	Host   *session.PTYHost
	Logger *zap.Logger
	// Profile, when set, selects the target's flag profile up front.
	Profile string
}

// RunWorkbench runs the interactive workbench until the user quits or ctx
// is done. Every job still running is terminated on the way out.
func RunWorkbench(ctx context.Context, config WorkbenchConfig) error {
	model := NewWorkbench(config.Host, config.Target, config.Logger)

	program := tea.NewProgram(
		model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	q := loop.NewWithDispatch(func(fn func()) { program.Send(postMsg(fn)) })
	engineOpts := config.Engine
	engineOpts.Context = ctx
	engineOpts.Loop = q
	engineOpts.Host = config.Host
	engineOpts.Notifier = model
	engineOpts.Prompter = model
	model.engine = orchestrator.New(engineOpts)
	if config.Profile != "" {
		// Nothing runs on the loop yet, so this goroutine may touch the engine.
		if err := model.engine.SelectProfile(config.Target, config.Profile); err != nil {
			config.Host.Close()
			return err
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(loopCtx)
	}()

	_, err := program.Run()

	cancel()
	<-done
	if cerr := model.engine.Close(); cerr != nil {
		model.logger.Warn("failed to stop watching", zap.Error(cerr))
	}
	config.Host.Close()

	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("workbench: %w", err)
	}
	return nil
}
