// Package tui renders the latest report per tracked token as a terminal table.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dex-sentinel/internal/domain"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultRefresh = 5 * time.Second
	loadTimeout    = 3 * time.Second
	noData         = "-"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boxStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

// ReportSource serves the last report the monitor produced for a token.
type ReportSource interface {
	LatestReport(ctx context.Context, chainID, tokenAddress string) (*domain.AnalyticsReport, error)
}

type tickMsg time.Time

type reportsMsg struct {
	rows []table.Row
	at   time.Time
}

// Dashboard is the bubbletea model. q quits, r refreshes now.
type Dashboard struct {
	source  ReportSource
	tokens  []domain.TrackedToken
	refresh time.Duration
	table   table.Model
	user    string
	updated time.Time
	width   int
	height  int
}

func NewDashboard(source ReportSource, tokens []domain.TrackedToken, refresh time.Duration, user string) *Dashboard {
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	t := table.New(
		table.WithColumns(columns()),
		table.WithFocused(true),
		table.WithHeight(max(5, len(tokens)+3)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return &Dashboard{
		source:  source,
		tokens:  tokens,
		refresh: refresh,
		table:   t,
		user:    user,
	}
}

func columns() []table.Column {
	return []table.Column{
		{Title: "Symbol", Width: 10},
		{Title: "Token", Width: 22},
		{Title: "Price", Width: 14},
		{Title: "24h %", Width: 9},
		{Title: "Risk", Width: 6},
		{Title: "Sentiment", Width: 10},
		{Title: "Top vulnerability", Width: 34},
	}
}

// SetSize adapts the table to the terminal.
func (d *Dashboard) SetSize(width, height int) {
	d.width, d.height = width, height
	if height > 6 {
		d.table.SetHeight(height - 6)
	}
	if width > 4 {
		d.table.SetWidth(width - 4)
	}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.load(), d.tick())
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		case "r":
			return d, d.load()
		}
	case tea.WindowSizeMsg:
		d.SetSize(msg.Width, msg.Height)
		return d, nil
	case tickMsg:
		return d, tea.Batch(d.load(), d.tick())
	case reportsMsg:
		d.table.SetRows(msg.rows)
		d.updated = msg.at
		return d, nil
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

func (d *Dashboard) View() string {
	var sb strings.Builder
	title := "dex-sentinel"
	if d.user != "" {
		title += " · " + d.user
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	if len(d.tokens) == 0 {
		sb.WriteString(errStyle.Render("no tracked tokens configured"))
		sb.WriteString("\n")
	}
	sb.WriteString(boxStyle.Render(d.table.View()))
	sb.WriteString("\n")

	updated := "never"
	if !d.updated.IsZero() {
		updated = d.updated.Format("15:04:05")
	}
	sb.WriteString(helpStyle.Render(fmt.Sprintf("updated %s · every %s · r refresh · q quit", updated, d.refresh)))
	return sb.String()
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (d *Dashboard) load() tea.Cmd {
	source, tokens := d.source, d.tokens
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		rows := make([]table.Row, 0, len(tokens))
		for _, tok := range tokens {
			var report *domain.AnalyticsReport
			if source != nil {
				report, _ = source.LatestReport(ctx, tok.ChainID, tok.TokenAddress)
			}
			rows = append(rows, Row(tok, report))
		}
		return reportsMsg{rows: rows, at: time.Now()}
	}
}

// Row formats one table line. A nil report renders placeholders.
func Row(tok domain.TrackedToken, report *domain.AnalyticsReport) table.Row {
	label := shorten(tok.Key().String(), 22)
	if report == nil {
		return table.Row{noData, label, noData, noData, noData, noData, "awaiting first report"}
	}

	sentiment := noData
	if report.Sentiment != nil {
		sentiment = fmt.Sprintf("%+.2f", report.Sentiment.Score)
	}
	top := "none"
	if len(report.Risk.Vulnerabilities) > 0 {
		top = report.Risk.Vulnerabilities[0]
	}
	return table.Row{
		report.TokenSymbol,
		label,
		fmt.Sprintf("$%.8g", report.Metrics.Price.Current),
		fmt.Sprintf("%+.2f", report.Metrics.Price.Change.H24),
		fmt.Sprintf("%d", report.Risk.RiskScore),
		sentiment,
		shorten(top, 34),
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
