package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bryanwahyu/forensiq/internal/client"
	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

const (
	NoReportText = "No report generated"
	NoEventsText = "No events to display"

	completedLayout = "January 2, 2006 at 03:04 PM"
)

var (
	styleTitle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6366f1"))
	styleMuted     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleReportBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	stylePlaceholder = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
)

var icons = map[string]string{
	"shield":  "🛡",
	"globe":   "🌐",
	"folder":  "📁",
	"network": "🖧",
	"info":    "ℹ",
}

// Renderer draws results for a terminal of the given width.
type Renderer struct {
	Width int
}

func NewRenderer(width int) Renderer {
	if width <= 0 {
		width = 100
	}
	return Renderer{Width: width}
}

// Report renders the narrative in a wrapped box.
func (r Renderer) Report(report string) string {
	if strings.TrimSpace(report) == "" {
		return stylePlaceholder.Render(NoReportText)
	}
	return styleReportBox.Width(r.Width - 2).Render(strings.TrimSpace(report))
}

// Timeline renders the cards that pass filter, one block per event.
func (r Renderer) Timeline(events []evidence.Event, filter string) string {
	if len(events) == 0 {
		return stylePlaceholder.Render(NoEventsText)
	}
	var blocks []string
	for _, c := range Cards(events, filter) {
		if !c.Visible {
			continue
		}
		blocks = append(blocks, r.card(c))
	}
	if len(blocks) == 0 {
		return stylePlaceholder.Render(NoEventsText)
	}
	return strings.Join(blocks, "\n")
}

func (r Renderer) card(c Card) string {
	color := lipgloss.Color(c.Style.Color)
	source := c.Event.Source
	if source == "" {
		source = evidence.SourceUnknown
	}
	tag := lipgloss.NewStyle().Bold(true).Foreground(color).Render(icons[c.Style.Icon] + " " + source)
	head := tag + "  " + styleMuted.Render(c.Event.Timestamp)

	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(color).
		PaddingLeft(1).
		Width(r.Width - 2).
		Render(head + "\n" + c.Event.Description)
}

// Result renders the results view: header, then the report, the timeline or
// both depending on tab ("report", "timeline" or "all").
func (r Renderer) Result(res *client.Result, completedAt time.Time, tab, filter string) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Investigation Report"))
	if res.ID != "" {
		b.WriteString(" " + styleMuted.Render(res.ID))
	}
	b.WriteString("\n")
	if !completedAt.IsZero() {
		b.WriteString(styleMuted.Render("Completed on "+completedAt.Format(completedLayout)) + "\n")
	}
	b.WriteString("\n")

	if tab == string(TabReport) || tab == "all" {
		b.WriteString(r.Report(res.Report) + "\n")
	}
	if tab == "all" {
		b.WriteString("\n")
	}
	if tab == string(TabTimeline) || tab == "all" {
		b.WriteString(styleTitle.Render(fmt.Sprintf("Timeline (%d events)", len(res.Timeline))) + "\n")
		b.WriteString(r.Timeline(res.Timeline, filter) + "\n")
	}
	if res.ArchiveURL != "" {
		b.WriteString("\n" + styleMuted.Render("Archived at "+res.ArchiveURL) + "\n")
	}
	return b.String()
}

// QueueLine renders one queued file as "i. name (size)".
func QueueLine(i int, f PendingFile) string {
	return fmt.Sprintf("%d. %s %s", i+1, f.Name, styleMuted.Render("("+FormatFileSize(f.Size)+")"))
}
