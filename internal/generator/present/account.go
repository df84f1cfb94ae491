package present

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/lanrat/wireguard-warp-generator/internal/generator/warp"
)

// AccountInfo writes a human-readable summary of the account bundle to w.
// Styling is applied only when w is a color-capable terminal.
func AccountInfo(w io.Writer, info warp.AccountInfo) error {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Underline(true)
	label := r.NewStyle().Bold(true).Width(10)
	plan := r.NewStyle()
	if info.Plan != "free" {
		plan = plan.Foreground(lipgloss.Color("214"))
	}

	rows := []struct {
		name  string
		value string
		style lipgloss.Style
	}{
		{"Account:", info.AccountID, r.NewStyle()},
		{"Device:", info.DeviceID, r.NewStyle()},
		{"Plan:", info.Plan, plan},
		{"License:", info.License, r.NewStyle()},
		{"Created:", info.Created, r.NewStyle()},
		{"Expires:", info.Expires, r.NewStyle()},
	}

	if _, err := fmt.Fprintln(w, header.Render("Account information")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "  %s %s\n", label.Render(row.name), row.style.Render(row.value)); err != nil {
			return err
		}
	}
	return nil
}
