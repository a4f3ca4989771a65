package cmd

import (
	"io"

	"fetlife-adapter/internal/scrapers/fetlife"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	return t
}

func renderEvents(out io.Writer, events []fetlife.Event) {
	t := newTable(out, table.Row{"Id", "Title", "Time", "Venue"})
	for _, e := range events {
		t.AppendRow(table.Row{e.Id, e.Title, e.StartTime, e.Venue})
	}
	t.Render()
}

func renderAttendees(out io.Writer, event fetlife.Event) {
	t := newTable(out, table.Row{"Id", "Nickname", "Status", "Comment"})
	for _, status := range fetlife.RSVPStatuses {
		for _, a := range event.Attendees.Of(status) {
			t.AppendRow(table.Row{a.Profile.Id, a.Profile.Nickname, status.String(), a.Comment})
		}
	}
	t.Render()
}

func renderWritings(out io.Writer, writings []fetlife.Writing) {
	t := newTable(out, table.Row{"Id", "Title", "Published"})
	for _, w := range writings {
		t.AppendRow(table.Row{w.Id, w.Title, w.Published})
	}
	t.Render()
}

func renderPosts(out io.Writer, posts []fetlife.GroupPost) {
	t := newTable(out, table.Row{"Id", "Title", "Author", "Published"})
	for _, p := range posts {
		t.AppendRow(table.Row{p.Id, p.Title, p.Author, p.Published})
	}
	t.Render()
}

func renderMessages(out io.Writer, messages []fetlife.Message) {
	t := newTable(out, table.Row{"Id", "Sender", "Sent", "Text"})
	for _, m := range messages {
		t.AppendRow(table.Row{m.Id, m.Sender, m.Sent, m.Text})
	}
	t.Render()
}
