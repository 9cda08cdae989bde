package gui

import (
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/process"
)

// logPanel renders timestamped output lines in a scrollable multi-line entry.
// It keeps its own copy of the visible text so switching tunnels can replace
// the whole pane from a runner's history.
type logPanel struct {
	entry  *widget.Entry
	scroll *container.Scroll
	lines  []string
}

func newLogPanel() *logPanel {
	p := &logPanel{
		entry: widget.NewMultiLineEntry(),
	}
	p.entry.Wrapping = fyne.TextWrapWord
	p.scroll = container.NewScroll(p.entry)
	return p
}

func (p *logPanel) container() fyne.CanvasObject {
	return p.scroll
}

func stampLine(when time.Time, line string) string {
	return "[" + when.Format("15:04:05") + "] " + line
}

// append adds one line stamped with the current time. UI thread only.
func (p *logPanel) append(line string) {
	p.appendAt(time.Now(), line)
}

func (p *logPanel) appendAt(when time.Time, line string) {
	p.lines = append(p.lines, stampLine(when, line))
	if len(p.lines) > process.HistoryLimit {
		p.lines = p.lines[len(p.lines)-process.HistoryLimit:]
	}
	p.render()
}

// setHistory replaces the pane content with a runner's buffered output,
// keeping the original line timestamps.
func (p *logPanel) setHistory(entries []process.Entry) {
	p.lines = p.lines[:0]
	for _, e := range entries {
		p.lines = append(p.lines, stampLine(e.When, e.Line))
	}
	p.render()
}

func (p *logPanel) clear() {
	p.lines = p.lines[:0]
	p.render()
}

func (p *logPanel) render() {
	p.entry.SetText(strings.Join(p.lines, "\n"))
	p.scroll.ScrollToBottom()
}
