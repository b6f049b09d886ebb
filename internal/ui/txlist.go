package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// TxRow is one line of the transaction browser.
type TxRow struct {
	Hash   string
	Block  uint64
	Age    string
	From   string
	To     string
	Value  string
	Method string
	// URL is the explorer page of the transaction, if the network has one.
	URL string
}

var txColumns = []Column{
	{Title: "Hash", Width: 14},
	{Title: "Block", Width: 10, Right: true},
	{Title: "Age", Width: 10},
	{Title: "From", Width: 14},
	{Title: "To", Width: 14},
	{Title: "Value", Width: 18, Right: true},
	{Title: "Method", Width: 14},
}

// TxTable builds the static table for rows.
func TxTable(rows []TxRow) *Table {
	t := NewTable(txColumns)
	for _, r := range rows {
		to := r.To
		if to == "" {
			to = "(create)"
		}
		t.AddRow(Row{
			TruncateAddr(r.Hash),
			fmt.Sprintf("%d", r.Block),
			r.Age,
			TruncateAddr(r.From),
			TruncateAddr(to),
			r.Value,
			r.Method,
		})
	}
	return t
}

// txListModel is the bubbletea model for the interactive tx table.
type txListModel struct {
	title  string
	table  *Table
	rows   []TxRow
	cursor int
	flash  string // brief feedback shown in the control bar

	open func(url string) error
	copy func(text string) error
}

func newTxListModel(title string, rows []TxRow) txListModel {
	return txListModel{
		title: title,
		table: TxTable(rows),
		rows:  rows,
		open:  openBrowser,
		copy:  copyToClipboard,
	}
}

func (m txListModel) Init() tea.Cmd { return nil }

func (m txListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.flash = ""
	switch key.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		if len(m.rows) > 0 {
			m.cursor = len(m.rows) - 1
		}
	case "o":
		if m.cursor >= len(m.rows) {
			break
		}
		url := m.rows[m.cursor].URL
		switch {
		case url == "":
			m.flash = "No explorer URL available"
		case m.open(url) != nil:
			m.flash = "Could not open browser"
		default:
			m.flash = "Opening in browser…"
		}
	case "c":
		if m.cursor >= len(m.rows) {
			break
		}
		hash := m.rows[m.cursor].Hash
		if err := m.copy(hash); err != nil {
			m.flash = "Copy failed: " + err.Error()
		} else {
			m.flash = "Copied: " + TruncateAddr(hash)
		}
	}
	return m, nil
}

func (m txListModel) View() string {
	m.table.SelIdx = m.cursor

	var sb strings.Builder
	sb.WriteString(m.title)
	sb.WriteString("\n\n")
	if len(m.rows) == 0 {
		sb.WriteString(Meta("No transactions found.") + "\n")
	} else {
		sb.WriteString(m.table.Render())
	}

	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString(StyleSuccess.Render("  ✓ " + m.flash))
	} else {
		sb.WriteString(controls(
			keyHint{key: "↑↓", action: "navigate", style: StyleMeta},
			keyHint{key: "o", action: "open in browser", style: StyleInfo},
			keyHint{key: "c", action: "copy hash", style: StyleWarning},
			quitHint,
		))
	}
	sb.WriteString("\n")
	return sb.String()
}

// RunTxList starts the interactive transaction browser and blocks until the
// user quits. It uses the alt screen so the terminal is restored on exit.
func RunTxList(title string, rows []TxRow) error {
	p := tea.NewProgram(newTxListModel(title, rows),
		tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// openBrowser opens url in the OS default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// copyToClipboard writes text to the system clipboard.
func copyToClipboard(text string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "windows":
		cmd = exec.Command("clip")
	default:
		// Try wl-copy (Wayland), fall back to xclip.
		if _, err := exec.LookPath("wl-copy"); err == nil {
			cmd = exec.Command("wl-copy")
		} else {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		}
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	_, _ = io.WriteString(stdin, text)
	stdin.Close()
	return cmd.Wait()
}
