package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"botfleet/internal/api"
)

// PlainTableWriter writes kubectl-style columns without box-drawing
// characters, so output can be piped to grep, awk and cut.
type PlainTableWriter struct {
	headers     []string
	rows        [][]string
	widths      []int
	padding     int
	showHeaders bool
	out         io.Writer
}

// NewPlainTableWriter creates a writer with the given upper-cased headers.
func NewPlainTableWriter(out io.Writer, headers ...string) *PlainTableWriter {
	w := &PlainTableWriter{
		headers:     make([]string, len(headers)),
		widths:      make([]int, len(headers)),
		padding:     3,
		showHeaders: true,
		out:         out,
	}
	for i, h := range headers {
		w.headers[i] = strings.ToUpper(h)
		w.widths[i] = len(w.headers[i])
	}
	return w
}

// SetNoHeaders controls whether to suppress the header row.
func (w *PlainTableWriter) SetNoHeaders(noHeaders bool) {
	w.showHeaders = !noHeaders
}

// AppendRow adds a row, padding or truncating it to the header count.
func (w *PlainTableWriter) AppendRow(cells ...string) {
	row := make([]string, len(w.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
		if len(row[i]) > w.widths[i] {
			w.widths[i] = len(row[i])
		}
	}
	w.rows = append(w.rows, row)
}

// Render writes the table.
func (w *PlainTableWriter) Render() {
	if len(w.headers) == 0 {
		return
	}
	if w.showHeaders {
		w.printRow(w.headers)
	}
	for _, row := range w.rows {
		w.printRow(row)
	}
}

func (w *PlainTableWriter) printRow(row []string) {
	var sb strings.Builder
	for i, cell := range row {
		if i == len(row)-1 {
			sb.WriteString(cell)
			continue
		}
		fmt.Fprintf(&sb, "%-*s", w.widths[i]+w.padding, cell)
	}
	fmt.Fprintln(w.out, strings.TrimRight(sb.String(), " "))
}

// statusColor picks the color a bot status is shown in inside boxed views.
func statusColor(s api.BotStatus) text.Colors {
	switch s {
	case api.BotStatusRunning:
		return text.Colors{text.FgGreen}
	case api.BotStatusPending:
		return text.Colors{text.FgYellow}
	case api.BotStatusError:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgHiBlack}
	}
}

func stageColor(s api.UpdateStage) text.Colors {
	switch s {
	case api.StageComplete:
		return text.Colors{text.FgGreen}
	case api.StageError:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgYellow}
	}
}

// newBox creates the rounded key/value table used for single-object views.
func newBox(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignLeft
	t.SetTitle(title)
	return t
}

func keyCell(key string) string {
	return text.FgHiCyan.Sprint(key)
}
