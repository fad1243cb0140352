package cli

import (
	"fmt"
	"time"

	"calcscript/internal/core/app"
	"calcscript/internal/core/errors"
	"calcscript/internal/core/ports"
	"calcscript/internal/engine/scanner"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

const inputHeight = 8

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	service   ports.ScriptService
	input     textarea.Model
	varList   list.Model
	tokenList list.Model
	mode      panelMode

	path      string
	result    *ports.RunResult
	errLine   string
	unknown   int
	lastRun   time.Time
	loadError string
}

type panelMode int

const (
	panelVariables panelMode = iota
	panelTokens
)

// runResultMsg carries a finished run together with the tokens of the same
// script so both panels refresh at once.
type runResultMsg struct {
	result *ports.RunResult
	tokens []scanner.Token
	err    error
}

type tokensMsg struct {
	tokens []scanner.Token
}

type scriptLoadedMsg struct {
	path   string
	script string
	err    error
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - inputHeight - 8
		if height < 5 {
			height = 5
		}
		m.input.SetWidth(width)
		m.varList.SetSize(width, height)
		m.tokenList.SetSize(width, height)
		return m, nil
	case runResultMsg:
		m = applyRunResult(m, msg)
		return m, nil
	case tokensMsg:
		m = applyTokens(m, msg.tokens)
		m.mode = panelTokens
		return m, nil
	case scriptLoadedMsg:
		if msg.err != nil {
			m.loadError = fmt.Sprintf("Reading %s failed: %v", msg.path, msg.err)
			return m, nil
		}
		m.loadError = ""
		m.path = msg.path
		m.input.SetValue(msg.script)
		return m, runCmd(m.service, m.source(), msg.script)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func applyRunResult(m model, msg runResultMsg) model {
	m.result = msg.result
	m.lastRun = time.Now()
	m.errLine = ""
	if msg.err != nil {
		m.errLine = errors.Message(msg.err)
	}

	items := []list.Item{}
	if msg.result != nil {
		for _, name := range msg.result.Names {
			items = append(items, item{
				title: name,
				desc:  app.FormatValue(msg.result.Variables[name]),
			})
		}
	}
	m.varList.SetItems(items)
	return applyTokens(m, msg.tokens)
}

func applyTokens(m model, tokens []scanner.Token) model {
	m.unknown = 0
	items := make([]list.Item, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == scanner.KindUnknown {
			m.unknown++
		}
		items = append(items, item{
			title: tok.Kind.String(),
			desc:  fmt.Sprintf("%q on line %d", tok.Text, tok.Line),
		})
	}
	m.tokenList.SetItems(items)
	return m
}

func (m model) source() string {
	if m.path != "" {
		return m.path
	}
	return "ui"
}

func (m model) View() string {
	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Calculator Script"), renderStatus(m), renderSummary(m))
	help := renderHelp(m)

	body := m.input.View() + "\n\n"
	if m.mode == panelTokens {
		body += m.tokenList.View()
	} else {
		body += m.varList.View()
	}
	if m.loadError != "" {
		body += "\n\n" + errorStyle.Render(m.loadError)
	}

	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func initialModel(service ports.ScriptService) model {
	input := textarea.New()
	input.Placeholder = "x = 2 + 3; y = x * 4"
	input.ShowLineNumbers = true
	input.SetHeight(inputHeight)
	input.Focus()

	varList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	varList.Title = "Variables"
	varList.SetShowStatusBar(false)
	varList.SetFilteringEnabled(false)

	tokenList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	tokenList.Title = "Tokens"
	tokenList.SetShowStatusBar(false)
	tokenList.SetFilteringEnabled(false)

	return model{
		service:   service,
		input:     input,
		varList:   varList,
		tokenList: tokenList,
		mode:      panelVariables,
	}
}
