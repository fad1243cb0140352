package cli

import (
	"fmt"
	"strings"
)

func renderHelp(m model) string {
	keys := "Keys: ctrl+r run | ctrl+t tokens | tab panel | pgup/pgdown page | ctrl+l clear | esc quit"
	if m.path != "" {
		keys += " | reloads on save"
	}
	return statusStyle.Render(keys)
}

func renderStatus(m model) string {
	if m.result == nil {
		return statusStyle.Render("No run yet")
	}
	parts := []string{
		fmt.Sprintf("Last run: %s", m.lastRun.Format("15:04:05")),
		fmt.Sprintf("%d statements", len(m.result.Outcomes)),
		fmt.Sprintf("%d variables", len(m.result.Names)),
	}
	if m.path != "" {
		parts = append(parts, m.path)
	}
	return statusStyle.Render(strings.Join(parts, " | "))
}

func renderSummary(m model) string {
	var summary string
	switch {
	case m.errLine != "":
		summary = errorStyle.Render(m.errLine)
	case m.result != nil:
		summary = successStyle.Render("OK")
	}
	if m.unknown > 0 {
		warn := warningStyle.Render(fmt.Sprintf("%d unknown tokens", m.unknown))
		if summary == "" {
			return warn
		}
		summary += " | " + warn
	}
	return summary
}
