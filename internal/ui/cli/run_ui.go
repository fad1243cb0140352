package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"calcscript/internal/core/ports"
	"calcscript/internal/core/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// runUI starts the terminal UI. When path is set its contents are loaded
// into the input box and reloaded every time the file is saved.
func runUI(ctx context.Context, service ports.ScriptService, path string, watchOpts watcher.Options) error {
	m := initialModel(service)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if path != "" {
		load := func() {
			data, err := os.ReadFile(path)
			p.Send(scriptLoadedMsg{path: path, script: string(data), err: err})
		}
		w, err := watcher.New(watchOpts, func([]string) { load() })
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.Watch([]string{path}); err != nil {
			slog.Warn("script reload disabled", "path", path, "error", err)
		}
		go load()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
