// Package ui renders the terminal surface: the startup banner, alert
// blocks and status lines. Logging stays in slog; this is only the
// human-facing foreground output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"brios/internal/config"
	"brios/internal/model"
)

const headerWidth = 50

// Semantic colors, plain ANSI codes for terminal compatibility.
const (
	ColorSuccess lipgloss.Color = "2"
	ColorError   lipgloss.Color = "1"
	ColorWarning lipgloss.Color = "3"
	ColorInfo    lipgloss.Color = "4"
	ColorMuted   lipgloss.Color = "8"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dividerStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	labelStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	okStyle      = lipgloss.NewStyle().Foreground(ColorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(ColorWarning)
	errStyle     = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
)

func divider() string {
	return dividerStyle.Render(strings.Repeat("─", headerWidth))
}

// RenderBanner returns the startup banner for the monitor command.
func RenderBanner(cfg *config.Config, version string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("brios") + " " + labelStyle.Render(version) + "\n")
	b.WriteString(divider() + "\n")
	rows := [][2]string{
		{"Target", fmt.Sprintf("%s (%s)", cfg.Target.Name, cfg.Target.Type)},
		{"Address", cfg.TargetAddress()},
		{"Threshold", fmt.Sprintf("%.1fm", cfg.Monitor.DistanceThresholdM)},
		{"TX Power", fmt.Sprintf("%d dBm @ 1m", cfg.Signal.TxPowerAt1m)},
		{"Path Loss", fmt.Sprintf("%.1f", cfg.Signal.PathLossExponent)},
		{"Samples", fmt.Sprintf("%d readings", cfg.Signal.SampleWindow)},
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%-11s %s\n", labelStyle.Render(row[0]+":"), row[1]))
	}
	b.WriteString(divider() + "\n")
	b.WriteString(okStyle.Render("●") + " Monitoring active (press Ctrl+C to stop)\n")
	return b.String()
}

// RenderStatus formats a session status snapshot for the status command.
func RenderStatus(st model.Status, running bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("brios status") + "\n")
	b.WriteString(divider() + "\n")

	state := okStyle.Render("✓ running")
	if !running {
		state = errStyle.Render("✗ not running")
	}
	b.WriteString(fmt.Sprintf("%-11s %s\n", labelStyle.Render("Daemon:"), state))
	if !running {
		return b.String()
	}

	alert := okStyle.Render("in range")
	if st.AlertTriggered {
		alert = warnStyle.Render("out of range")
	}
	b.WriteString(fmt.Sprintf("%-11s %s\n", labelStyle.Render("Target:"), st.TargetAddress))
	b.WriteString(fmt.Sprintf("%-11s %s\n", labelStyle.Render("Proximity:"), alert))
	b.WriteString(fmt.Sprintf("%-11s %s\n", labelStyle.Render("Reconnect:"), string(st.Reconnect)))
	b.WriteString(fmt.Sprintf("%-11s callbacks=%d matches=%d errors=%d cycles=%d\n",
		labelStyle.Render("Counters:"), st.Callbacks, st.Matches, st.Errors, st.LockCycles))
	return b.String()
}

// Successf, Warnf and Errorf print one styled status line each.
func Successf(format string, args ...any) {
	fmt.Println(okStyle.Render("✓") + " " + fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	fmt.Println(warnStyle.Render("!") + " " + fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	fmt.Println(errStyle.Render("✗") + " " + fmt.Sprintf(format, args...))
}
