package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"github.com/austinkregel/local-media/ampd/internal/ipc"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

const (
	progressWidth = 30
	defaultWidth  = 100
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// renderStatus draws the now-playing card
func renderStatus(st ipc.StatusResponse) string {
	if st.Track == nil {
		return cardStyle.Render(dimStyle.Render(st.Line))
	}

	lines := []string{
		titleStyle.Render(st.Track.Title),
		st.Track.Artist + dimStyle.Render(" · ") + st.Track.Album,
		"",
		fmt.Sprintf("%s %s %s",
			transport.FormatClock(st.PositionMs),
			progressBar(st.PositionMs, st.DurationMs, progressWidth),
			transport.FormatClock(st.DurationMs)),
		dimStyle.Render(fmt.Sprintf("%s · track %d/%d · loop %s · shuffle %s · vol %d",
			st.State, st.Index+1, st.Size, st.Loop, onOff(st.Shuffle), st.Volume)),
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func progressBar(pos, dur int64, width int) string {
	filled := 0
	if dur > 0 {
		filled = int(pos * int64(width) / dur)
	}
	filled = min(max(filled, 0), width)
	return barStyle.Render(strings.Repeat("━", filled)) + dimStyle.Render(strings.Repeat("─", width-filled))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// renderQueue lists the queue with the current track marked
func renderQueue(q ipc.GetQueueResponse, width int) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.SetAllowedRowLength(width)
	t.AppendHeader(table.Row{"", "#", "Title", "Artist", "Album", "File"})

	for i, item := range q.Items {
		marker := ""
		color := fmt.Sprint
		if i == q.Index {
			marker = "▶"
			color = text.FgGreen.Sprint
		}
		t.AppendRow(table.Row{
			color(marker),
			color(i + 1),
			color(item.Title),
			color(item.Artist),
			color(item.Album),
			color(filepath.Base(item.Path)),
		})
	}

	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d tracks", len(q.Items)), "", "loop " + q.Loop.String(), "shuffle " + onOff(q.Shuffle)})
	return t.Render()
}

func termWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return defaultWidth
}
