// Package tui provides the full-screen chat interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"rageddy/pkg/rag"
	"rageddy/pkg/rageddy"
)

// Run starts the chat interface and blocks until the user quits.
func Run(ctx context.Context, engine *rageddy.Engine) error {
	p := tea.NewProgram(newModel(ctx, engine), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type answerMsg struct {
	answer rag.Answer
	err    error
}

type model struct {
	ctx    context.Context
	engine *rageddy.Engine

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	transcript []string
	waiting    bool
	ready      bool
	width      int
	height     int
}

func newModel(ctx context.Context, engine *rageddy.Engine) model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your documents..."
	ta.Prompt = "| "
	ta.CharLimit = 2000
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		ctx:     ctx,
		engine:  engine,
		input:   ta,
		spinner: sp,
	}
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		inputHeight := m.input.Height() + 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight
		}
		m.input.SetWidth(msg.Width - 4)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.waiting {
				return m, nil
			}

			m.transcript = append(m.transcript, userStyle.Render("You: ")+question)
			m.input.Reset()
			m.waiting = true
			m.refreshViewport()

			return m, tea.Batch(m.ask(question), m.spinner.Tick)
		}

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.transcript = append(m.transcript, errorStyle.Render("Error: "+msg.err.Error()))
		} else {
			m.transcript = append(m.transcript, renderAnswer(msg.answer))
		}
		m.refreshViewport()

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := helpStyle.Render("enter: send | esc: quit")
	if m.waiting {
		status = m.spinner.View() + " thinking..."
	}

	return fmt.Sprintf("%s\n%s\n%s",
		m.viewport.View(),
		inputBorderStyle.Width(m.width-2).Render(m.input.View()),
		status,
	)
}

func (m *model) refreshViewport() {
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
	m.viewport.GotoBottom()
}

func (m model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.engine.Ask(m.ctx, question)
		return answerMsg{answer: answer, err: err}
	}
}

func renderAnswer(answer rag.Answer) string {
	var sb strings.Builder
	sb.WriteString(assistantStyle.Render("Assistant: "))
	sb.WriteString(answer.Text)

	for _, src := range answer.Sources {
		title := src.Title
		if title == "" {
			title = src.File
		}
		sb.WriteString("\n")
		sb.WriteString(sourceStyle.Render(fmt.Sprintf("  source: %s (%s)", title, src.File)))
	}

	return sb.String()
}
