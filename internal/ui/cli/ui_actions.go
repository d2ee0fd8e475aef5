package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"nameres/internal/core/ports"
	"nameres/internal/data/history"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

const historyOverlayRuns = 10

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	filtering := m.diagList.FilterState() == list.Filtering || m.crateList.FilterState() == list.Filtering
	if !filtering {
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.mode == panelDiagnostics {
				m.mode = panelCrates
			} else {
				m.mode = panelDiagnostics
			}
			return m, nil
		case "t":
			m.showHistory = !m.showHistory
			if m.showHistory {
				m.history = nil
				return m, loadHistoryCmd(m.svc, m.crateNames())
			}
			return m, nil
		case "o":
			if m.mode != panelDiagnostics {
				break
			}
			target, ok := selectedSourceTarget(m)
			if !ok {
				m.sourceJumpStatus = statusStyle.Render("No source target available.")
				return m, nil
			}
			return m, jumpToSourceCmd(target)
		}
	} else if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.mode == panelDiagnostics {
		m.diagList, cmd = m.diagList.Update(msg)
	} else {
		m.crateList, cmd = m.crateList.Update(msg)
	}
	return m, cmd
}

func selectedEntry(m model) (diagEntry, bool) {
	it, ok := m.diagList.SelectedItem().(item)
	if !ok || it.idx < 0 || it.idx >= len(m.entries) {
		return diagEntry{}, false
	}
	return m.entries[it.idx], true
}

type sourceTarget struct {
	file string
	line int
	col  int
}

func selectedSourceTarget(m model) (sourceTarget, bool) {
	entry, ok := selectedEntry(m)
	if !ok || entry.diag.Span.IsDummy() || entry.diag.Span.File == "" {
		return sourceTarget{}, false
	}
	sp := entry.diag.Span
	file := filepath.FromSlash(sp.File)
	if !filepath.IsAbs(file) && m.projectRoot != "" {
		file = filepath.Join(m.projectRoot, file)
	}
	line := sp.Line
	if line < 1 {
		line = 1
	}
	return sourceTarget{file: file, line: line, col: sp.Col}, true
}

func editorArgs(editor string, target sourceTarget) []string {
	base := filepath.Base(editor)
	switch {
	case strings.Contains(base, "vim") || base == "vi" || base == "nano" || base == "emacs":
		return []string{fmt.Sprintf("+%d", target.line), target.file}
	case base == "code" || base == "codium":
		return []string{"--goto", fmt.Sprintf("%s:%d:%d", target.file, target.line, max(target.col, 1))}
	default:
		return []string{target.file}
	}
}

func jumpToSourceCmd(target sourceTarget) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command(editor, editorArgs(editor, target)...)
	label := fmt.Sprintf("%s:%d", target.file, target.line)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sourceJumpResultMsg{target: label, err: err}
	})
}

func loadHistoryCmd(svc ports.ResolveService, crates []string) tea.Cmd {
	if svc == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		runs := make(map[string][]history.Run, len(crates))
		for _, crate := range crates {
			got, err := svc.History(ctx, crate, historyOverlayRuns)
			if err != nil {
				return historyMsg{err: err}
			}
			runs[crate] = got
		}
		return historyMsg{runs: runs}
	}
}
