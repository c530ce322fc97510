package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// AssistantMarker prefixes chat replies.
const AssistantMarker = "AI: "

// Printer renders session messages onto a Console.
type Printer struct {
	console  *Console
	markdown *glamour.TermRenderer

	notice    lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	assistant lipgloss.Style
	prompt    lipgloss.Style
	command   lipgloss.Style
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer) error

// WithMarkdown renders explanations and chat replies as markdown wrapped
// to width columns.
func WithMarkdown(width int) PrinterOption {
	return func(p *Printer) error {
		if width <= 0 {
			width = 80
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width-4),
		)
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		p.markdown = r
		return nil
	}
}

// NewPrinter creates a Printer writing to console. Colors follow the
// capabilities of out, the writer the console ultimately targets.
func NewPrinter(console *Console, out io.Writer, opts ...PrinterOption) (*Printer, error) {
	r := lipgloss.NewRenderer(out)
	p := &Printer{
		console:   console,
		notice:    r.NewStyle().Foreground(lipgloss.Color("244")),
		success:   r.NewStyle().Foreground(lipgloss.Color("42")),
		failure:   r.NewStyle().Foreground(lipgloss.Color("203")),
		assistant: r.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		prompt:    r.NewStyle().Foreground(lipgloss.Color("220")),
		command:   r.NewStyle().Foreground(lipgloss.Color("255")).Bold(true),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Line prints s followed by a newline.
func (p *Printer) Line(s string) error {
	return p.console.Print(s + "\n")
}

// Notice prints s in the dimmed informational style.
func (p *Printer) Notice(s string) error {
	return p.Line(p.notice.Render(s))
}

// Success prints s in the confirmation style.
func (p *Printer) Success(s string) error {
	return p.Line(p.success.Render(s))
}

// Error prints err as a single failure line.
func (p *Printer) Error(err error) error {
	return p.Line(p.failure.Render("Error: " + oneLine(err.Error())))
}

// Prompt prints s without a trailing newline; the answer is typed after it.
func (p *Printer) Prompt(s string) error {
	return p.console.Print(p.prompt.Render(s))
}

// Command shows a synthesized command and how long it took.
func (p *Printer) Command(cmd string, elapsed float64) error {
	return p.console.Print(fmt.Sprintf("%s%s\n%s\n",
		p.notice.Render("Command: "), p.command.Render(cmd),
		p.notice.Render(fmt.Sprintf("Response time: %.2f sec", elapsed))))
}

// Assistant prints a chat reply behind the assistant marker.
func (p *Printer) Assistant(reply string) error {
	return p.Line(p.assistant.Render(AssistantMarker) + p.render(reply))
}

// Explanation prints a command explanation.
func (p *Printer) Explanation(text string) error {
	return p.Line(p.render(text))
}

func (p *Printer) render(text string) string {
	if p.markdown == nil {
		return text
	}
	out, err := p.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
