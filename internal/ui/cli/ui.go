package cli

import (
	"fmt"
	"time"

	"nameres/internal/core/ports"
	"nameres/internal/data/history"
	"nameres/internal/engine/diag"

	"github.com/charmbracelet/bubbles/list"
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

type item struct {
	title, desc string
	// idx points back into model.entries or model.reports.
	idx int
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

// diagEntry is a diagnostic row together with the crate that produced it.
type diagEntry struct {
	crate string
	diag  diag.Diagnostic
}

type model struct {
	diagList    list.Model
	crateList   list.Model
	mode        panelMode
	svc         ports.ResolveService
	projectRoot string

	reports    []ports.RunReport
	entries    []diagEntry
	trigger    []string
	runErr     string
	lastUpdate time.Time

	showHistory bool
	history     map[string][]history.Run
	historyErr  string

	sourceJumpStatus string
}

type panelMode int

const (
	panelDiagnostics panelMode = iota
	panelCrates
)

type updateMsg struct {
	reports []ports.RunReport
	trigger []string
	err     error
}

type historyMsg struct {
	runs map[string][]history.Run
	err  error
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.diagList.SetSize(width, height)
		m.crateList.SetSize(width, height)
	case updateMsg:
		m.lastUpdate = time.Now()
		m.trigger = msg.trigger
		if msg.err != nil {
			m.runErr = msg.err.Error()
			return m, nil
		}
		m.runErr = ""
		m = m.withReports(msg.reports)
		if m.showHistory {
			return m, loadHistoryCmd(m.svc, m.crateNames())
		}
		return m, nil
	case historyMsg:
		m.history = msg.runs
		m.historyErr = ""
		if msg.err != nil {
			m.historyErr = msg.err.Error()
		}
		return m, nil
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Source jump failed: %v", msg.err))
		} else {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Opened source: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	if m.mode == panelDiagnostics {
		m.diagList, cmd = m.diagList.Update(msg)
	} else {
		m.crateList, cmd = m.crateList.Update(msg)
	}
	return m, cmd
}

// withReports replaces both lists with the rows of a finished run.
func (m model) withReports(reports []ports.RunReport) model {
	m.reports = reports
	m.entries = nil

	diagItems := []list.Item{}
	crateItems := make([]list.Item, 0, len(reports))
	for _, rep := range reports {
		for _, d := range rep.Diagnostics {
			m.entries = append(m.entries, diagEntry{crate: rep.Crate, diag: d})
			diagItems = append(diagItems, item{
				title: d.Header(),
				desc:  fmt.Sprintf("%s in %s", d.Span.String(), rep.Crate),
				idx:   len(m.entries) - 1,
			})
		}
		crateItems = append(crateItems, item{
			title: rep.Crate,
			idx:   len(crateItems),
			desc: fmt.Sprintf(
				"errors=%d warnings=%d files=%d passes=%d",
				rep.ErrorCount(),
				rep.WarningCount(),
				len(rep.Files),
				rep.Stats.Passes,
			),
		})
	}
	m.diagList.SetItems(diagItems)
	m.crateList.SetItems(crateItems)
	return m
}

func (m model) crateNames() []string {
	names := make([]string, 0, len(m.reports))
	for _, rep := range m.reports {
		names = append(names, rep.Crate)
	}
	return names
}

func (m model) counts() (errs, warns int) {
	for _, rep := range m.reports {
		errs += rep.ErrorCount()
		warns += rep.WarningCount()
	}
	return errs, warns
}

func (m model) View() string {
	files := 0
	for _, rep := range m.reports {
		files += len(rep.Files)
	}
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d crates | %d files",
		m.lastUpdate.Format("15:04:05"), len(m.reports), files))

	var summary string
	errs, warns := m.counts()
	switch {
	case m.runErr != "":
		summary = errorStyle.Render("Run failed: " + m.runErr)
	case errs == 0 && warns == 0:
		summary = successStyle.Render("All names resolved")
	default:
		summary = fmt.Sprintf("%s | %s",
			errorStyle.Render(plural(errs, "error")),
			warningStyle.Render(plural(warns, "warning")))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Name Resolution Monitor"), status, summary)
	help := renderHelp(m)

	body := m.diagList.View()
	if m.mode == panelCrates {
		body = renderCratePanel(m)
	} else {
		body += "\n\n" + renderDiagnosticDetail(m)
	}
	if m.showHistory {
		body += "\n\n" + renderHistoryOverlay(m)
	}
	if m.sourceJumpStatus != "" {
		body += "\n\n" + m.sourceJumpStatus
	}

	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func initialModel(svc ports.ResolveService, projectRoot string) model {
	diagList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	diagList.Title = "Diagnostics"
	diagList.SetShowStatusBar(false)
	diagList.SetFilteringEnabled(true)

	crateList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	crateList.Title = "Crates"
	crateList.SetShowStatusBar(false)
	crateList.SetFilteringEnabled(true)

	return model{
		diagList:    diagList,
		crateList:   crateList,
		mode:        panelDiagnostics,
		svc:         svc,
		projectRoot: projectRoot,
		lastUpdate:  time.Now(),
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
