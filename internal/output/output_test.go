package output_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/temirov/rtree/internal/output"
	"github.com/temirov/rtree/internal/services/stream"
	"github.com/temirov/rtree/internal/types"
)

func nodeEvent(depth int, name string, isDirectory bool) stream.Event {
	return stream.Event{
		Kind:  stream.EventKindNode,
		Depth: depth,
		Node:  &stream.NodeEvent{Name: name, Path: name, IsDirectory: isDirectory},
	}
}

func sampleEvents() []stream.Event {
	return []stream.Event{
		{Kind: stream.EventKindStart, Path: "alpha"},
		nodeEvent(0, "src", true),
		nodeEvent(1, "sub", true),
		{Kind: stream.EventKindError, Depth: 2, Node: &stream.NodeEvent{Name: "sub", IsDirectory: true}, Err: &stream.ErrorEvent{Message: "listing /src/sub: forbidden"}},
		nodeEvent(1, "a.cs", false),
		nodeEvent(0, "readme.md", false),
		{Kind: stream.EventKindWarning, Path: "beta", Message: &stream.LogEvent{Message: "beta: unavailable"}},
		{Kind: stream.EventKindStart, Path: "gamma"},
		nodeEvent(0, "main.go", false),
		{Kind: stream.EventKindSummary, Summary: &stream.SummaryEvent{Repositories: 2, Directories: 2, Files: 3, IncludeRepositories: true}},
		{Kind: stream.EventKindDone},
	}
}

func render(t *testing.T, mode output.Mode) (*output.LineRenderer, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	renderer := output.NewLineRenderer(&stdout, &stderr, mode)
	for _, event := range sampleEvents() {
		if err := renderer.Handle(event); err != nil {
			t.Fatalf("Handle error: %v", err)
		}
	}
	if err := renderer.Flush(); err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	return renderer, stdout.String(), stderr.String()
}

func TestLineRendererPlainMode(t *testing.T) {
	renderer, stdout, stderr := render(t, output.Mode{})
	expected := strings.Join([]string{
		"alpha",
		"src/",
		"    sub/",
		"        [error] listing /src/sub: forbidden",
		"    a.cs",
		"readme.md",
		"",
		"gamma",
		"main.go",
		"",
		"2 repositories, 2 directories, 3 files",
	}, "\n") + "\n"
	if stdout != expected {
		t.Fatalf("unexpected output\nexpected:\n%s\nactual:\n%s", expected, stdout)
	}
	if stderr != "beta: unavailable\n" {
		t.Fatalf("unexpected stderr %q", stderr)
	}
	if renderer.PlainText() != expected {
		t.Fatalf("plain text differs from plain output")
	}
}

func TestLineRendererInteractiveModeKeepsStructure(t *testing.T) {
	plainRenderer, _, _ := render(t, output.Mode{})
	renderer, stdout, _ := render(t, output.Mode{Interactive: true, Colored: true})
	if !strings.Contains(stdout, "├── ") {
		t.Fatalf("expected branch glyphs in interactive output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "\x1b[") {
		t.Fatalf("expected ANSI styling in colored output")
	}
	if renderer.PlainText() != plainRenderer.PlainText() {
		t.Fatalf("mode changed the plain structure\nplain:\n%s\ninteractive:\n%s", plainRenderer.PlainText(), renderer.PlainText())
	}
	if strings.Count(stdout, "\n") != strings.Count(plainRenderer.PlainText(), "\n") {
		t.Fatalf("mode changed the line count")
	}
}

func TestLineRendererWithoutSummary(t *testing.T) {
	var stdout bytes.Buffer
	renderer := output.NewLineRenderer(&stdout, nil, output.Mode{})
	_ = renderer.Handle(stream.Event{Kind: stream.EventKindStart, Path: "/tmp/project"})
	_ = renderer.Handle(nodeEvent(0, "main.go", false))
	_ = renderer.Handle(stream.Event{Kind: stream.EventKindWarning, Message: &stream.LogEvent{Message: "ignored"}})
	if err := renderer.Flush(); err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	if stdout.String() != "/tmp/project\nmain.go\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestFormatSummaryLine(t *testing.T) {
	testCases := []struct {
		name     string
		summary  *stream.SummaryEvent
		expected string
	}{
		{name: "local", summary: &stream.SummaryEvent{Directories: 4, Files: 7}, expected: "4 directories, 7 files"},
		{name: "remote", summary: &stream.SummaryEvent{Repositories: 1, Directories: 0, Files: 1, IncludeRepositories: true}, expected: "1 repositories, 0 directories, 1 files"},
		{name: "missing", summary: nil, expected: ""},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if actual := output.FormatSummaryLine(testCase.summary); actual != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, actual)
			}
		})
	}
}

func TestFormatEntryLine(t *testing.T) {
	if actual := output.FormatEntryLine(2, "sub", true, false); actual != "        sub/" {
		t.Fatalf("unexpected plain line %q", actual)
	}
	if actual := output.FormatEntryLine(1, "a.cs", false, true); actual != "    ├── a.cs" {
		t.Fatalf("unexpected interactive line %q", actual)
	}
	if actual := output.FormatErrorLine(1, "boom"); actual != "    [error] boom" {
		t.Fatalf("unexpected error line %q", actual)
	}
}

func TestResolveMode(t *testing.T) {
	testCases := []struct {
		setting     string
		expected    output.Mode
		expectError bool
	}{
		{setting: types.ColorAuto, expected: output.Mode{}},
		{setting: "", expected: output.Mode{}},
		{setting: types.ColorAlways, expected: output.Mode{Interactive: true, Colored: true}},
		{setting: "NEVER", expected: output.Mode{}},
		{setting: "sometimes", expectError: true},
	}
	for _, testCase := range testCases {
		mode, err := output.ResolveMode(testCase.setting, &bytes.Buffer{})
		if testCase.expectError {
			if err == nil {
				t.Fatalf("expected error for %q", testCase.setting)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ResolveMode(%q) error: %v", testCase.setting, err)
		}
		if mode != testCase.expected {
			t.Fatalf("ResolveMode(%q): expected %+v, got %+v", testCase.setting, testCase.expected, mode)
		}
	}
}
