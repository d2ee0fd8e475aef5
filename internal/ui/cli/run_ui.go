package cli

import (
	"context"
	"errors"
	"time"

	coreapp "nameres/internal/core/app"
	"nameres/internal/core/ports"
	"nameres/internal/shared/observability"

	tea "github.com/charmbracelet/bubbletea"
)

// runUI drives the terminal UI from watch updates until the user quits or
// ctx is done.
func runUI(ctx context.Context, analysis *coreapp.App, req ports.ResolveRequest, cfgPath string, server *observability.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(analysis, analysis.Paths().ProjectRoot)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	watchErr := make(chan error, 1)
	go func() {
		err := analysis.Watch(ctx, req, cfgPath, func(update ports.WatchUpdate) {
			if server != nil {
				server.RecordRun(time.Now())
			}
			p.Send(updateMsg{reports: update.Reports, trigger: update.Trigger, err: update.Err})
		})
		if err != nil {
			p.Send(updateMsg{err: err})
		}
		watchErr <- err
	}()

	_, err := p.Run()
	cancel()
	if werr := <-watchErr; werr != nil {
		return werr
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
