package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/w3scan/internal/analytics"
)

// dashboardModel is the Bubble Tea model for the live network dashboard.
type dashboardModel struct {
	network    string
	stats      *analytics.Stats
	prevBlock  uint64
	lastUpdate time.Time
	interval   time.Duration
	quitting   bool
	fetcher    func() (*analytics.Stats, error)
	err        string
}

type tickMsg time.Time
type statsFetchedMsg struct {
	stats *analytics.Stats
	at    time.Time
}
type statsErrorMsg string

// NewDashboard creates a Bubble Tea program that refreshes the network
// stats of network every interval.
func NewDashboard(network string, interval time.Duration, fetcher func() (*analytics.Stats, error)) *tea.Program {
	return tea.NewProgram(newDashboardModel(network, interval, fetcher))
}

func newDashboardModel(network string, interval time.Duration, fetcher func() (*analytics.Stats, error)) dashboardModel {
	return dashboardModel{network: network, interval: interval, fetcher: fetcher}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tick(m.interval))
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tick(m.interval))

	case statsFetchedMsg:
		if m.stats != nil {
			m.prevBlock = m.stats.BlockNumber
		}
		m.stats = msg.stats
		m.lastUpdate = msg.at
		m.err = ""

	case statsErrorMsg:
		m.err = string(msg)
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("⚡ Live Network Stats  ·  "+m.network) + "\n")
	updated := "never"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format("15:04:05")
	}
	sb.WriteString(Meta(fmt.Sprintf("Updated: %s · every %s", updated, m.interval)) + "\n\n")

	if m.err != "" {
		sb.WriteString(Err(trimErr(m.err)) + "\n\n")
	}

	if m.stats == nil {
		sb.WriteString(Meta("Loading...") + "\n")
	} else {
		s := m.stats
		block := fmt.Sprintf("%d", s.BlockNumber)
		if m.prevBlock > 0 && s.BlockNumber > m.prevBlock {
			block += fmt.Sprintf("  (+%d)", s.BlockNumber-m.prevBlock)
		}
		pairs := [][2]string{
			{"Block", block},
			{"Block time", fmt.Sprintf("%.2fs", s.BlockTime)},
			{"TPS", fmt.Sprintf("%.2f", s.TPS)},
			{"Txs (24h est.)", fmt.Sprintf("%d", s.Transactions24h)},
			{"Active addrs (24h est.)", fmt.Sprintf("%d", s.ActiveAddresses24h)},
		}
		sb.WriteString(KeyValueBlock("Network", pairs) + "\n")

		t := NewTable([]Column{
			{Title: "Slow", Width: 12, Right: true},
			{Title: "Standard", Width: 12, Right: true},
			{Title: "Fast", Width: 12, Right: true},
			{Title: "Instant", Width: 12, Right: true},
			{Title: "Base fee", Width: 12, Right: true},
		})
		g := s.GasPrice
		base := g.BaseFee
		if base == "" {
			base = "—"
		}
		t.AddRow(Row{g.Slow, g.Standard, g.Fast, g.Instant, base})
		sb.WriteString(StyleHeader.Render("Gas (gwei)") + "\n")
		sb.WriteString(t.Render())
	}

	sb.WriteString("\n" + controls(keyHint{key: "r", action: "refresh", style: StyleInfo}, quitHint) + "\n")
	return sb.String()
}

func (m dashboardModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.fetcher()
		if err != nil {
			return statsErrorMsg(err.Error())
		}
		return statsFetchedMsg{stats: stats, at: time.Now()}
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
