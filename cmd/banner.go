package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	bannerLabel = lipgloss.NewStyle().Faint(true).Width(10)
	bannerBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 2)
)

// printBanner writes the startup banner. Structured logs go to the
// configured log sink; this is the only human-oriented output.
func printBanner(w io.Writer, version, serverURL, provider string) {
	body := lipgloss.JoinVertical(lipgloss.Left,
		bannerTitle.Render("formrelay "+version),
		"",
		bannerLabel.Render("listening")+serverURL,
		bannerLabel.Render("provider")+provider,
	)
	_, _ = fmt.Fprintln(w, bannerBox.Render(body))
}
