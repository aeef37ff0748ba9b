// Package output renders tree streams as indented lines.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/temirov/rtree/internal/services/stream"
	"github.com/temirov/rtree/internal/types"
)

const (
	indentUnit          = "    "
	treeBranchConnector = "├── "
	directorySuffix     = "/"
	errorLinePrefix     = "[error] "

	summaryFormat             = "%d directories, %d files"
	repositorySummaryFormat   = "%d repositories, " + summaryFormat
	errorUnsupportedColorMode = "unsupported color mode %q (expected %s, %s or %s)"
)

// Mode controls presentation only; it never changes structure, order or counts.
type Mode struct {
	// Interactive prefixes entries with a branch glyph.
	Interactive bool
	// Colored styles directories, headers and error lines.
	Colored bool
}

type fileDescriptor interface {
	Fd() uintptr
}

// ResolveMode decides the output mode once per invocation from the color
// setting and whether stdout is a terminal.
func ResolveMode(colorSetting string, stdout io.Writer) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(colorSetting)) {
	case "", types.ColorAuto:
		interactive := isTerminal(stdout)
		return Mode{Interactive: interactive, Colored: interactive}, nil
	case types.ColorAlways:
		return Mode{Interactive: true, Colored: true}, nil
	case types.ColorNever:
		return Mode{}, nil
	default:
		return Mode{}, fmt.Errorf(errorUnsupportedColorMode, colorSetting, types.ColorAuto, types.ColorAlways, types.ColorNever)
	}
}

func isTerminal(writer io.Writer) bool {
	descriptor, ok := writer.(fileDescriptor)
	if !ok {
		return false
	}
	return term.IsTerminal(int(descriptor.Fd()))
}

// colorProfile is the lipgloss profile for colored output. Colors are forced
// so that --color always works when stdout is redirected.
func colorProfile(mode Mode) termenv.Profile {
	if !mode.Colored {
		return termenv.Ascii
	}
	return termenv.ANSI256
}

// FormatEntryLine returns indentation, glyph and name for one entry. Directory
// names carry a trailing slash.
func FormatEntryLine(depth int, name string, isDirectory bool, interactive bool) string {
	var builder strings.Builder
	builder.WriteString(strings.Repeat(indentUnit, depth))
	if interactive {
		builder.WriteString(treeBranchConnector)
	}
	builder.WriteString(name)
	if isDirectory {
		builder.WriteString(directorySuffix)
	}
	return builder.String()
}

// FormatErrorLine returns the inline line reported for a folder that could not be listed.
func FormatErrorLine(depth int, message string) string {
	return strings.Repeat(indentUnit, depth) + errorLinePrefix + message
}

// FormatSummaryLine returns "<N> directories, <M> files", prefixed with the
// repository count for remote commands.
func FormatSummaryLine(summary *stream.SummaryEvent) string {
	if summary == nil {
		return ""
	}
	if summary.IncludeRepositories {
		return fmt.Sprintf(repositorySummaryFormat, summary.Repositories, summary.Directories, summary.Files)
	}
	return fmt.Sprintf(summaryFormat, summary.Directories, summary.Files)
}
