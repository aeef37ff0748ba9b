package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/temirov/rtree/internal/services/stream"
)

const (
	headerColor    = "212"
	directoryColor = "39"
	errorColor     = "196"
	summaryColor   = "245"
)

type lineStyles struct {
	header    lipgloss.Style
	directory lipgloss.Style
	failure   lipgloss.Style
	summary   lipgloss.Style
}

func newLineStyles(writer io.Writer, mode Mode) lineStyles {
	renderer := lipgloss.NewRenderer(writer)
	renderer.SetColorProfile(colorProfile(mode))
	return lineStyles{
		header:    renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(headerColor)),
		directory: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(directoryColor)),
		failure:   renderer.NewStyle().Foreground(lipgloss.Color(errorColor)),
		summary:   renderer.NewStyle().Foreground(lipgloss.Color(summaryColor)),
	}
}

// LineRenderer writes one line per event in arrival order. Producers deliver
// events in display order, so the renderer never sorts. A plain copy of every
// stdout line is kept for clipboard export.
type LineRenderer struct {
	stdout        io.Writer
	stderr        io.Writer
	mode          Mode
	styles        lineStyles
	plainText     strings.Builder
	summary       *stream.SummaryEvent
	renderedRoots int
}

// NewLineRenderer returns a renderer writing entries to stdout and warnings to stderr.
func NewLineRenderer(stdout, stderr io.Writer, mode Mode) *LineRenderer {
	return &LineRenderer{
		stdout: stdout,
		stderr: stderr,
		mode:   mode,
		styles: newLineStyles(stdout, mode),
	}
}

func (renderer *LineRenderer) Handle(event stream.Event) error {
	switch event.Kind {
	case stream.EventKindStart:
		if renderer.renderedRoots > 0 {
			if err := renderer.writeLine("", ""); err != nil {
				return err
			}
		}
		renderer.renderedRoots++
		return renderer.writeLine(event.Path, renderer.styles.header.Render(event.Path))
	case stream.EventKindNode:
		if event.Node == nil {
			return nil
		}
		plainLine := FormatEntryLine(event.Depth, event.Node.Name, event.Node.IsDirectory, false)
		styledLine := FormatEntryLine(event.Depth, event.Node.Name, event.Node.IsDirectory, renderer.mode.Interactive)
		if event.Node.IsDirectory {
			prefix := FormatEntryLine(event.Depth, "", false, renderer.mode.Interactive)
			styledLine = prefix + renderer.styles.directory.Render(strings.TrimPrefix(styledLine, prefix))
		}
		return renderer.writeLine(plainLine, styledLine)
	case stream.EventKindError:
		if event.Err == nil {
			return nil
		}
		line := FormatErrorLine(event.Depth, event.Err.Message)
		indentation := strings.Repeat(indentUnit, event.Depth)
		return renderer.writeLine(line, indentation+renderer.styles.failure.Render(strings.TrimPrefix(line, indentation)))
	case stream.EventKindWarning:
		if event.Message != nil && renderer.stderr != nil {
			if _, err := fmt.Fprintln(renderer.stderr, event.Message.Message); err != nil {
				return err
			}
		}
	case stream.EventKindSummary:
		renderer.summary = event.Summary
	}
	return nil
}

// Flush writes the summary line, once, after every root was rendered.
func (renderer *LineRenderer) Flush() error {
	if renderer.summary == nil {
		return nil
	}
	summaryLine := FormatSummaryLine(renderer.summary)
	renderer.summary = nil
	if err := renderer.writeLine("", ""); err != nil {
		return err
	}
	return renderer.writeLine(summaryLine, renderer.styles.summary.Render(summaryLine))
}

// PlainText returns every stdout line written so far as it renders with
// color disabled: no glyphs and no styling.
func (renderer *LineRenderer) PlainText() string {
	return renderer.plainText.String()
}

func (renderer *LineRenderer) writeLine(plainLine string, styledLine string) error {
	renderer.plainText.WriteString(plainLine)
	renderer.plainText.WriteString("\n")
	if renderer.stdout == nil {
		return nil
	}
	_, err := fmt.Fprintln(renderer.stdout, styledLine)
	return err
}

var _ StreamRenderer = (*LineRenderer)(nil)
