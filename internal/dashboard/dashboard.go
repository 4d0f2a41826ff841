// Package dashboard implements the read-only terminal UI over ledger
// rankings and metrics: `guidectl dashboard`. It polls the same Ledger
// the CLI's `ledger rank`/`ledger metrics` commands read, in-process,
// rather than over a network client.
package dashboard

import (
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/guidectl/internal/ledger"
	"github.com/fyrsmithlabs/guidectl/internal/model"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	topRankings     = 10
)

// Model is the bubbletea model driving the dashboard.
type Model struct {
	ledger   *ledger.Ledger
	interval time.Duration

	lastUpdate time.Time
	snapshot   snapshot
	quitting   bool

	passProgress progress.Model
}

type snapshot struct {
	metrics        model.LedgerMetrics
	rankings       []model.ViolationRanking
	violationRates []float64
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// New builds a dashboard Model polling l every interval.
func New(l *ledger.Ledger, interval time.Duration) Model {
	return Model{
		ledger:   l,
		interval: interval,
		passProgress: progress.New(
			progress.WithGradient("#00ff00", "#ff0000"),
			progress.WithWidth(40),
		),
	}
}

type tickMsg time.Time
type refreshMsg snapshot

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), m.refresh())
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh reads the ledger's current metrics and rankings. This never
// touches a network: the Ledger is in-process state, so the refresh
// always succeeds.
func (m Model) refresh() tea.Cmd {
	l := m.ledger
	return func() tea.Msg {
		metrics := l.ComputeMetrics(0)
		rankings := l.RankViolations()
		if len(rankings) > topRankings {
			rankings = rankings[:topRankings]
		}
		return refreshMsg(snapshot{metrics: metrics, rankings: rankings})
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		}
	case tickMsg:
		return m, tea.Batch(tick(m.interval), m.refresh())
	case refreshMsg:
		snap := snapshot(msg)
		snap.violationRates = appendToHistory(m.snapshot.violationRates, snap.metrics.ViolationRatePer10Tasks)
		m.snapshot = snap
		m.lastUpdate = time.Now()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	return sparklineStyle.Render(spark.View())
}

func (m Model) renderDashboard() string {
	var content string

	lastUpdateStr := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdateStr = m.lastUpdate.Format("3:04:05 PM")
	}

	header := headerStyle.Render(" guidectl dashboard ")
	content += header + "\n"
	content += dimStyle.Render("Last update: ") + valueStyle.Render(lastUpdateStr) + "\n"

	content += "\n" + sectionStyle.Render("┃ Ledger Metrics") + "\n"
	content += labelStyle.Render("  Violations/10 tasks: ") +
		valueStyle.Render(fmt.Sprintf("%.2f", m.snapshot.metrics.ViolationRatePer10Tasks)) +
		"   " + createSparkline(m.snapshot.violationRates) + "\n"
	content += labelStyle.Render("  Avg rework ratio: ") +
		valueStyle.Render(fmt.Sprintf("%.2f", m.snapshot.metrics.AvgReworkRatio)) + "\n"

	passPercent := m.snapshot.metrics.PassRate
	if passPercent > 1.0 {
		passPercent = 1.0
	}
	content += labelStyle.Render("  Pass rate: ") +
		m.passProgress.ViewAs(passPercent) +
		" " + dimStyle.Render(fmt.Sprintf("%.0f%%", passPercent*100)) + "\n"
	content += labelStyle.Render("  Tasks observed: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.snapshot.metrics.TaskCount)) + "\n"

	content += "\n" + sectionStyle.Render("┃ Top Violations (frequency × cost)") + "\n"
	if len(m.snapshot.rankings) == 0 {
		content += dimStyle.Render("  none recorded") + "\n"
	}
	for i, r := range m.snapshot.rankings {
		content += labelStyle.Render(fmt.Sprintf("  %2d. ", i+1)) +
			valueStyle.Render(r.RuleID) +
			dimStyle.Render(fmt.Sprintf("  freq=%d cost=%d score=%d", r.Frequency, r.Cost, r.Score)) + "\n"
	}

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))
	content += "\n" + footer

	return containerStyle.Render(content)
}
