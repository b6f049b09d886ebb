package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/w3scan/internal/analytics"
)

// GasStatus tracks one network's row on the gas board.
type GasStatus int

const (
	GasFetching GasStatus = iota
	GasDone
	GasFailed
)

// GasRow holds gas suggestions for one network.
type GasRow struct {
	Network     string
	DisplayName string
	Status      GasStatus
	Tiers       analytics.GasTiers
	Latency     time.Duration
	ErrMsg      string
}

// standard is the sort key of a finished row.
func (r GasRow) standard() float64 {
	return gwei(r.Tiers.Standard)
}

// GasResultMsg is sent when one network's fetch finishes.
type GasResultMsg struct {
	Network string
	Tiers   analytics.GasTiers
	Latency time.Duration
	Err     error
}

type gasTickMsg struct{}

// GasBoard is the Bubble Tea model for the multi-network gas board.
type GasBoard struct {
	Mode  string
	Rows  []GasRow
	index map[string]int
	done  int
	frame int
	// sorted is set once every row has finished.
	sorted   bool
	quitting bool
	fetch    func(network string) tea.Cmd
}

// NewGasBoard creates a board with one fetching row per network. fetch
// returns the command that produces the network's GasResultMsg.
func NewGasBoard(mode string, rows []GasRow, fetch func(network string) tea.Cmd) GasBoard {
	b := GasBoard{Mode: mode, Rows: rows, index: make(map[string]int, len(rows)), fetch: fetch}
	for i := range b.Rows {
		b.Rows[i].Status = GasFetching
		b.index[b.Rows[i].Network] = i
	}
	return b
}

// RunGasBoard shows the board until the user quits.
func RunGasBoard(b GasBoard) error {
	_, err := tea.NewProgram(b).Run()
	return err
}

func (b GasBoard) Init() tea.Cmd {
	cmds := []tea.Cmd{gasTick()}
	for _, r := range b.Rows {
		cmds = append(cmds, b.fetch(r.Network))
	}
	return tea.Batch(cmds...)
}

func gasTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return gasTickMsg{}
	})
}

func (b GasBoard) failed() int {
	n := 0
	for _, r := range b.Rows {
		if r.Status == GasFailed {
			n++
		}
	}
	return n
}

func (b GasBoard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			b.quitting = true
			return b, tea.Quit
		case "r":
			var cmds []tea.Cmd
			for i := range b.Rows {
				if b.Rows[i].Status != GasFailed {
					continue
				}
				b.Rows[i].Status = GasFetching
				b.Rows[i].ErrMsg = ""
				b.done--
				b.sorted = false
				cmds = append(cmds, b.fetch(b.Rows[i].Network))
			}
			return b, tea.Batch(cmds...)
		}

	case gasTickMsg:
		b.frame = (b.frame + 1) % len(spinFrames)
		if b.done >= len(b.Rows) && !b.sorted {
			b.sortRows()
		}
		return b, gasTick()

	case GasResultMsg:
		i, ok := b.index[msg.Network]
		if !ok || b.Rows[i].Status != GasFetching {
			return b, nil
		}
		if msg.Err != nil {
			b.Rows[i].Status = GasFailed
			b.Rows[i].ErrMsg = trimErr(msg.Err.Error())
		} else {
			b.Rows[i].Status = GasDone
			b.Rows[i].Tiers = msg.Tiers
			b.Rows[i].Latency = msg.Latency
		}
		b.done++
	}
	return b, nil
}

// sortRows orders cheapest first with failures last, then reindexes.
func (b *GasBoard) sortRows() {
	b.sorted = true
	sort.SliceStable(b.Rows, func(i, j int) bool {
		fi, fj := b.Rows[i].Status == GasFailed, b.Rows[j].Status == GasFailed
		if fi != fj {
			return fj
		}
		return b.Rows[i].standard() < b.Rows[j].standard()
	})
	for i, r := range b.Rows {
		b.index[r.Network] = i
	}
}

func (b GasBoard) View() string {
	if b.quitting {
		return ""
	}

	var sb strings.Builder
	spin := spinFrames[b.frame]

	sb.WriteString(StyleTitle.Render(fmt.Sprintf("⛽ Gas Prices  ·  mode: %s", b.Mode)) + "\n")
	if b.done >= len(b.Rows) {
		label := fmt.Sprintf("✓ %d/%d networks done", b.done, len(b.Rows))
		if b.sorted {
			label += " · cheapest first"
		}
		sb.WriteString(StyleSuccess.Render(label))
	} else {
		sb.WriteString(StyleInfo.Render(fmt.Sprintf("%s %d/%d fetching…", spin, b.done, len(b.Rows))))
	}
	sb.WriteString("\n\n")

	const (
		wNet  = 16
		wTier = 12
		wLat  = 8
	)
	sep := StyleMeta.Render(strings.Repeat("─", wNet+4*wTier+wLat+16))
	sb.WriteString(
		padR(StyleDim.Render("NETWORK"), wNet) + "  " +
			padR(StyleDim.Render("SLOW"), wTier) + "  " +
			padR(StyleDim.Render("STANDARD"), wTier) + "  " +
			padR(StyleDim.Render("FAST"), wTier) + "  " +
			padR(StyleDim.Render("BASE FEE"), wTier) + "  " +
			padR(StyleDim.Render("LATENCY"), wLat) + "  " +
			StyleDim.Render("STATUS") + "\n")
	sb.WriteString(sep + "\n")

	for _, r := range b.Rows {
		cells := gasCells(r, spin)
		sb.WriteString(padR(ChainName(r.DisplayName), wNet))
		for _, c := range cells[:4] {
			sb.WriteString("  " + padR(c, wTier))
		}
		sb.WriteString("  " + padR(cells[4], wLat) + "  " + cells[5] + "\n")
	}
	sb.WriteString(sep + "\n\n")

	hints := []keyHint{quitHint}
	if b.failed() > 0 {
		hints = append([]keyHint{{key: "r", action: fmt.Sprintf("retry %d failed", b.failed()), style: StyleWarning}}, hints...)
	}
	sb.WriteString(controls(hints...))
	return sb.String()
}

// gasCells renders slow, standard, fast, base fee, latency and status.
func gasCells(r GasRow, spin string) [6]string {
	dash := StyleMeta.Render("—")
	switch r.Status {
	case GasDone:
		base := dash
		if r.Tiers.BaseFee != "" {
			base = StyleInfo.Render(formatGwei(gwei(r.Tiers.BaseFee)))
		}
		return [6]string{
			StyleMeta.Render(formatGwei(gwei(r.Tiers.Slow))),
			StyleValue.Render(formatGwei(gwei(r.Tiers.Standard))),
			StyleWarning.Render(formatGwei(gwei(r.Tiers.Fast))),
			base,
			StyleMeta.Render(r.Latency.Truncate(time.Millisecond).String()),
			StyleSuccess.Render("✓"),
		}
	case GasFailed:
		msg := r.ErrMsg
		if len(msg) > 22 {
			msg = msg[:22] + "…"
		}
		return [6]string{StyleError.Render("✗ " + msg), dash, dash, dash, dash, StyleError.Render("✗")}
	default:
		return [6]string{StyleMeta.Render(spin + " fetching…"), dash, dash, dash, dash, StyleMeta.Render("⏳")}
	}
}

// gwei parses a decimal gwei string; unparseable values count as zero.
func gwei(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
