package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var spinFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// padR pads s to visible width n (ANSI-safe using lipgloss.Width).
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}

func trimErr(s string) string {
	// Strip common noisy prefixes from RPC error messages.
	for _, prefix := range []string{
		"Post \"", "dial tcp", "connection refused",
		"network unavailable", "context deadline",
	} {
		if idx := strings.Index(s, prefix); idx >= 0 {
			s = s[idx:]
			break
		}
	}
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}

// formatGwei formats a Gwei value with appropriate decimal precision.
func formatGwei(g float64) string {
	switch {
	case g == 0:
		return "0"
	case g < 0.001:
		return fmt.Sprintf("%.6f", g)
	case g < 1:
		return fmt.Sprintf("%.4f", g)
	case g < 100:
		return fmt.Sprintf("%.2f", g)
	default:
		return fmt.Sprintf("%.0f", g)
	}
}

// keyHint is one entry of a control bar: the key and what it does.
type keyHint struct {
	key, action string
	style       lipgloss.Style
}

// controls renders the bottom control bar shared by the interactive views.
func controls(hints ...keyHint) string {
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = h.style.Render("[ "+h.key+" ]") + StyleMeta.Render(" "+h.action)
	}
	return strings.Join(parts, StyleMeta.Render("   "))
}

var quitHint = keyHint{key: "q", action: "quit", style: StyleMeta}
