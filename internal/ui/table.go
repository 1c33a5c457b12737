package ui

import (
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/edumesh/liveclass/internal/store"
)

// RenderRoomsTable prints the room listing to stdout.
func RenderRoomsTable(rooms []store.Room) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Header = text.Colors{text.FgHiCyan, text.Bold}

	t.AppendHeader(table.Row{"Room", "Title", "Status", "Created By", "Created"})
	for _, room := range rooms {
		t.AppendRow(table.Row{
			room.RoomID,
			room.Title,
			statusCell(room.Status),
			room.CreatedBy,
			room.CreatedAt.Local().Format(time.DateTime),
		})
	}
	t.Render()
}

func statusCell(status string) string {
	switch status {
	case store.StatusLive:
		return text.FgGreen.Sprint(status)
	case store.StatusEnded:
		return text.FgHiBlack.Sprint(status)
	default:
		return text.FgYellow.Sprint(status)
	}
}

// ParticipantRow is one rendered line of the in-session participant table.
type ParticipantRow struct {
	Name string
	Role string
	Mic  string
	Cam  string
	Link string
}

// ParticipantsView renders the participant table; selected highlights one row
// (pass -1 for none).
func ParticipantsView(rows []ParticipantRow, selected int) string {
	if len(rows) == 0 {
		return MutedStyle.Render("Nobody here yet")
	}

	var cells [][]string
	for _, r := range rows {
		cells = append(cells, []string{r.Name, r.Role, r.Mic, r.Cam, r.Link})
	}

	tbl := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Participant", "Role", "Mic", "Cam", "Link").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return TableHeaderStyle
			case row == selected:
				return TableRowSelectedStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}
