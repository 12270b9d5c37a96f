// Package output renders run progress on the terminal.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"golang.org/x/term"

	"github.com/petasbytes/aurora-agent/internal/metrics"
	"github.com/petasbytes/aurora-agent/memory"
	"github.com/petasbytes/aurora-agent/tools"
)

const (
	// DefaultRuleWidth is used when the terminal width is unknown or wider.
	DefaultRuleWidth = 60
	// PreviewRunes is how much of a tool result is echoed.
	PreviewRunes = 200

	prefix = "[aurora-agent]"
)

// Printer writes progress to stdout and failures to stderr. It implements
// runner.Reporter.
type Printer struct {
	writer    io.Writer
	errWriter io.Writer
	color     bool
	width     int
	midLine   bool // model text was written without a trailing newline
}

// NewPrinter writes to the process streams, with color and a narrower rule
// when stdout is a terminal.
func NewPrinter() *Printer {
	p := &Printer{writer: os.Stdout, errWriter: os.Stderr, width: DefaultRuleWidth}
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		p.color = true
		if w, _, err := term.GetSize(fd); err == nil && w > 0 && w < p.width {
			p.width = w
		}
	}
	return p
}

// NewPrinterWithWriters creates an uncolored Printer (for testing).
func NewPrinterWithWriters(stdout, stderr io.Writer) *Printer {
	return &Printer{writer: stdout, errWriter: stderr, width: DefaultRuleWidth}
}

func (p *Printer) paint(fn func(a ...interface{}) string, s string) string {
	if !p.color {
		return s
	}
	return fn(s)
}

func (p *Printer) tag() string { return p.paint(pterm.Cyan, prefix) }

func (p *Printer) rule() {
	fmt.Fprintln(p.writer, p.paint(pterm.Gray, strings.Repeat("─", p.width)))
}

// endLine terminates pending model text.
func (p *Printer) endLine() {
	if p.midLine {
		fmt.Fprintln(p.writer)
		p.midLine = false
	}
}

// Header prints the model and task followed by a rule.
func (p *Printer) Header(model, task string) {
	fmt.Fprintf(p.writer, "\n%s Model: %s\n", p.tag(), model)
	fmt.Fprintf(p.writer, "%s Task: %s\n\n", p.tag(), task)
	p.rule()
}

// Text streams model text as is.
func (p *Printer) Text(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(p.writer, text)
	p.midLine = !strings.HasSuffix(text, "\n")
}

func (p *Printer) ToolCall(call memory.ToolCallBlock) {
	p.endLine()
	fmt.Fprintf(p.writer, "%s %s %s(%s)\n", p.tag(), p.paint(pterm.Yellow, "→"), call.Name, compactArgs(call.Arguments))
}

func (p *Printer) ToolResult(_ memory.ToolCallBlock, outcome tools.Outcome) {
	arrow := p.paint(pterm.Green, "←")
	if outcome.IsError {
		arrow = p.paint(pterm.Red, "←")
	}
	fmt.Fprintf(p.writer, "%s %s %s\n\n", p.tag(), arrow, Preview(outcome.Content, PreviewRunes))
}

func (p *Printer) Done() {
	p.endLine()
	fmt.Fprintln(p.writer)
	p.rule()
	fmt.Fprintf(p.writer, "%s %s\n", p.tag(), p.paint(pterm.Green, "Done."))
}

// BudgetExhausted reports that the run stopped at the turn ceiling.
func (p *Printer) BudgetExhausted(maxTurns int) {
	p.endLine()
	p.rule()
	fmt.Fprintf(p.writer, "%s %s\n", p.tag(),
		p.paint(pterm.Yellow, fmt.Sprintf("Stopped after %d turns without a final answer.", maxTurns)))
}

// Error reports a fatal failure on stderr.
func (p *Printer) Error(format string, args ...interface{}) {
	p.endLine()
	fmt.Fprintf(p.errWriter, "%s %s\n", p.tag(), p.paint(pterm.Red, fmt.Sprintf(format, args...)))
}

// Summary prints per-tool counts. Nothing is printed for a run without tools.
func (p *Printer) Summary(t *metrics.RunTally) {
	if t == nil || t.ToolCalls == 0 {
		return
	}
	data := pterm.TableData{{"Tool", "Calls", "Errors", "Time"}}
	data = append(data, t.Rows()...)
	table := pterm.DefaultTable.WithWriter(p.writer).WithHasHeader().WithData(data)
	if !p.color {
		table = table.WithHeaderStyle(pterm.NewStyle()).WithSeparatorStyle(pterm.NewStyle())
	}
	table.Render() //nolint:errcheck
}

// Preview truncates s to n runes, appending "…" when anything was cut.
func Preview(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "…"
		}
		i++
	}
	return s
}

func compactArgs(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
