package cli

import (
	"fmt"
	"strings"

	"paper-summarizer/internal/service/chat"
	"paper-summarizer/internal/service/history"
	"paper-summarizer/internal/service/summary"
	"paper-summarizer/internal/state"

	"github.com/fatih/color"
)

type palette struct {
	heading *color.Color
	muted   *color.Color
	success *color.Color
	err     *color.Color
}

var palettes = map[state.Theme]palette{
	state.ThemeDark: {
		heading: color.New(color.FgHiCyan, color.Bold),
		muted:   color.New(color.FgHiBlack),
		success: color.New(color.FgHiGreen),
		err:     color.New(color.FgHiRed),
	},
	state.ThemeLight: {
		heading: color.New(color.FgBlue, color.Bold),
		muted:   color.New(color.FgWhite, color.Faint),
		success: color.New(color.FgGreen),
		err:     color.New(color.FgRed),
	},
}

func paletteFor(theme state.Theme) palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes[state.ThemeDark]
}

func (h *Handlers) paint(c *color.Color, text string) string {
	if !h.color || c == nil {
		return text
	}
	return c.Sprint(text)
}

// renderCurrentResult prints the result held by the state store
func (h *Handlers) renderCurrentResult(uploadDate string) {
	snap := h.config.Store.Snapshot()
	if snap.Result == nil {
		return
	}
	p := paletteFor(snap.Theme)
	doc := snap.Result.Document

	fmt.Fprintln(h.out, h.paint(p.heading, doc.Title))
	if uploadDate != "" {
		fmt.Fprintln(h.out, h.paint(p.muted, uploadDate))
	}
	if doc.ID != "" {
		fmt.Fprintln(h.out, h.paint(p.muted, "Document "+doc.ID))
	}

	if snap.Result.Summary == nil {
		fmt.Fprintln(h.out)
		fmt.Fprintln(h.out, summary.NoPreview)
		return
	}
	for _, section := range snap.Result.Summary.Sections() {
		fmt.Fprintln(h.out)
		fmt.Fprintln(h.out, h.paint(p.heading, section.Title))
		fmt.Fprintln(h.out, section.Body)
	}
}

func (h *Handlers) renderHistory(items []history.Item) {
	p := paletteFor(h.theme())
	if len(items) == 0 {
		fmt.Fprintln(h.out, "No uploads yet")
		return
	}
	for _, item := range items {
		fmt.Fprintf(h.out, "%s  %-4s  %-9s  %s\n",
			item.ID(), item.Document.FileType, item.Timestamp, h.paint(p.heading, item.Document.Title))
		fmt.Fprintf(h.out, "    %s\n", h.paint(p.muted, truncate(item.Preview, 100)))
	}
}

func (h *Handlers) renderMessage(msg chat.Message) {
	p := paletteFor(h.theme())
	fmt.Fprintln(h.out, h.paint(p.muted, "You: ")+msg.Question)
	if msg.State.Status == chat.StatusResolved {
		h.renderAnswer(msg)
	}
}

func (h *Handlers) renderAnswer(msg chat.Message) {
	p := paletteFor(h.theme())
	fmt.Fprintln(h.out, h.paint(p.heading, "Assistant: ")+msg.State.Answer)
}

func (h *Handlers) renderNotification(n state.Notification, theme state.Theme) {
	p := paletteFor(theme)
	line := n.Title
	if n.Detail != "" && n.Detail != n.Title {
		line += " (" + n.Detail + ")"
	}
	if n.Kind == state.NotificationSuccess {
		fmt.Fprintln(h.errOut, h.paint(p.success, "✔ "+line))
		return
	}
	fmt.Fprintln(h.errOut, h.paint(p.err, "✖ "+line))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
