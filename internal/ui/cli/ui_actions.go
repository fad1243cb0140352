package cli

import (
	"context"

	"calcscript/internal/core/ports"

	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		if m.mode == panelVariables {
			m.mode = panelTokens
		} else {
			m.mode = panelVariables
		}
		return m, nil
	case "ctrl+r":
		return m, runCmd(m.service, m.source(), m.input.Value())
	case "ctrl+t":
		return m, tokenizeCmd(m.service, m.input.Value())
	case "ctrl+l":
		m.input.Reset()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		if m.mode == panelTokens {
			m.tokenList, cmd = m.tokenList.Update(msg)
		} else {
			m.varList, cmd = m.varList.Update(msg)
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func runCmd(service ports.ScriptService, source, script string) tea.Cmd {
	if service == nil {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		res, err := service.Execute(ctx, ports.RunRequest{Source: source, Script: script})
		return runResultMsg{
			result: res,
			tokens: service.Tokenize(ctx, script),
			err:    err,
		}
	}
}

func tokenizeCmd(service ports.ScriptService, script string) tea.Cmd {
	if service == nil {
		return nil
	}
	return func() tea.Msg {
		return tokensMsg{tokens: service.Tokenize(context.Background(), script)}
	}
}
