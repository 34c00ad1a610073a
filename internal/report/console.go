package report

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/talgya/lineage/internal/engine"
)

// Console styles.
var (
	YearStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	BirthStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	DeathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	MarriageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))

	SuccessionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	EndStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Banner returns the one-line console summary of a year.
func Banner(res engine.Result, population int) string {
	line := fmt.Sprintf("%s  population %d  %s %s %s",
		YearStyle.Render(fmt.Sprintf("Year %d", res.Year)),
		population,
		BirthStyle.Render(fmt.Sprintf("+%d born", res.Count(engine.EventBirth))),
		DeathStyle.Render(fmt.Sprintf("-%d died", res.Count(engine.EventDeath))),
		MarriageStyle.Render(fmt.Sprintf("%d wed", res.Count(engine.EventMarriage))),
	)
	if n := res.Count(engine.EventPlayerChange); n > 0 {
		line += "  " + SuccessionStyle.Render("succession")
	}
	if res.Ended() {
		line += "  " + EndStyle.Render(res.Reason)
	}
	return line
}

// FormatEvent styles one event line for the history listing.
func FormatEvent(e engine.Event) string {
	style := DimStyle
	switch e.Type {
	case engine.EventBirth:
		style = BirthStyle
	case engine.EventDeath:
		style = DeathStyle
	case engine.EventMarriage, engine.EventOutsiderArrival:
		style = MarriageStyle
	case engine.EventPlayerChange:
		style = SuccessionStyle
	case engine.EventSimulationEnd:
		style = EndStyle
	}
	return fmt.Sprintf("%s %s", DimStyle.Render(fmt.Sprintf("Year %4d", e.Year)), style.Render(e.Description))
}
