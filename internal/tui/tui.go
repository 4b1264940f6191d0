// Package tui has the terminal chat and the traffic dump viewer.
package tui

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunChat starts an interactive chat. Each send carries the whole conversation.
func RunChat(send ChatFunc, model string, timeout time.Duration, in io.Reader, out io.Writer) error {
	return run(newChatModel(send, model, timeout), in, out)
}

// RunDumpViewer browses the dump files under dir.
func RunDumpViewer(dir string, in io.Reader, out io.Writer) error {
	return run(newDumpViewerModel(dir), in, out)
}

func run(m tea.Model, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui run failed: %w", err)
	}
	return nil
}
