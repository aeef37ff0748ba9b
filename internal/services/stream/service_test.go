package stream_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/rtree/internal/commands"
	"github.com/temirov/rtree/internal/services/stream"
	"github.com/temirov/rtree/internal/types"
)

var errRepositoryUnavailable = errors.New("repository unavailable")

type stubSource struct {
	trees         map[string][]types.Entry
	folders       map[string]map[string][]types.Entry
	failingRoots  map[string]bool
	requestedTree []string
}

func (source *stubSource) ListTree(_ context.Context, repository string, scopePath string) ([]types.Entry, error) {
	source.requestedTree = append(source.requestedTree, repository+":"+scopePath)
	if source.failingRoots[repository] {
		return nil, errRepositoryUnavailable
	}
	return source.trees[repository], nil
}

func (source *stubSource) ListFolder(_ context.Context, repository string, folderPath string) ([]types.Entry, error) {
	if source.failingRoots[repository] && folderPath == "/" {
		return nil, errRepositoryUnavailable
	}
	entries, exists := source.folders[repository][folderPath]
	if !exists {
		return nil, errors.New("folder not found: " + folderPath)
	}
	return entries, nil
}

func newStubSource() *stubSource {
	return &stubSource{
		trees: map[string][]types.Entry{
			"alpha": {
				{Path: "/", IsDirectory: true},
				{Path: "/src", IsDirectory: true},
				{Path: "/src/a.cs"},
				{Path: "/readme.md"},
			},
			"beta": {
				{Path: "/main.go"},
			},
		},
		folders: map[string]map[string][]types.Entry{
			"alpha": {
				"/":    {{Path: "/src", IsDirectory: true}, {Path: "/readme.md"}, {Path: "/lost", IsDirectory: true}},
				"/src": {{Path: "/src/a.cs"}},
			},
		},
		failingRoots: map[string]bool{},
	}
}

func collectEvents(t *testing.T, producer func(chan<- stream.Event) error) []stream.Event {
	t.Helper()
	events := make(chan stream.Event, 32)
	errCh := make(chan error, 1)
	go func() {
		errCh <- producer(events)
		close(events)
	}()

	var out []stream.Event
	for event := range events {
		out = append(out, event)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("producer returned error: %v", err)
	}
	return out
}

// describe flattens events into comparable strings.
func describe(events []stream.Event) []string {
	var lines []string
	for _, event := range events {
		switch event.Kind {
		case stream.EventKindStart:
			lines = append(lines, "start "+event.Path)
		case stream.EventKindNode:
			lines = append(lines, strings.Repeat(".", event.Depth)+event.Node.Name)
		case stream.EventKindError:
			lines = append(lines, strings.Repeat(".", event.Depth)+"error "+event.Node.Name)
		case stream.EventKindWarning:
			lines = append(lines, "warning "+event.Path)
		default:
			lines = append(lines, string(event.Kind))
		}
	}
	return lines
}

func assertDescription(t *testing.T, events []stream.Event, expected []string) {
	t.Helper()
	actual := describe(events)
	if strings.Join(actual, "\n") != strings.Join(expected, "\n") {
		t.Fatalf("unexpected events\nexpected:\n%s\nactual:\n%s", strings.Join(expected, "\n"), strings.Join(actual, "\n"))
	}
}

func summaryOf(t *testing.T, events []stream.Event) *stream.SummaryEvent {
	t.Helper()
	for _, event := range events {
		if event.Kind == stream.EventKindSummary {
			return event.Summary
		}
	}
	t.Fatalf("summary event not emitted")
	return nil
}

func TestStreamFlatSkipsFailedRoot(t *testing.T) {
	source := newStubSource()
	source.failingRoots["broken"] = true
	traversal := commands.NewTraversalContext()

	events := collectEvents(t, func(ch chan<- stream.Event) error {
		return stream.StreamFlat(context.Background(), stream.RemoteOptions{
			Source:         source,
			Repositories:   []string{"alpha", "broken", "beta"},
			IncludeSummary: true,
			Traversal:      traversal,
		}, ch)
	})

	assertDescription(t, events, []string{
		"start alpha",
		"src",
		".a.cs",
		"readme.md",
		"start broken",
		"warning broken",
		"start beta",
		"main.go",
		"summary",
		"done",
	})
	summary := summaryOf(t, events)
	if summary.Repositories != 2 || summary.Directories != 1 || summary.Files != 3 || !summary.IncludeRepositories {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, event := range events {
		if event.Command != types.CommandRemote || event.Version != stream.SchemaVersion {
			t.Fatalf("unexpected event header %+v", event)
		}
	}
}

func TestStreamFlatResetsScopeForMultipleRepositories(t *testing.T) {
	source := newStubSource()
	observedCore, observedLogs := observer.New(zapcore.WarnLevel)
	events := collectEvents(t, func(ch chan<- stream.Event) error {
		return stream.StreamFlat(context.Background(), stream.RemoteOptions{
			Source:       source,
			Repositories: []string{"alpha", "beta"},
			ScopePath:    "/src",
			Logger:       zap.New(observedCore),
		}, ch)
	})
	if observedLogs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", observedLogs.Len())
	}
	if scope := observedLogs.All()[0].ContextMap()["scope"]; scope != "/src" {
		t.Fatalf("expected scope field, got %v", scope)
	}
	for _, requested := range source.requestedTree {
		if !strings.HasSuffix(requested, ":/") {
			t.Fatalf("expected root scope, got %s", requested)
		}
	}
	if events[0].Kind != stream.EventKindStart || events[len(events)-1].Kind != stream.EventKindDone {
		t.Fatalf("unexpected event sequence %v", describe(events))
	}
}

func TestStreamFlatKeepsScopeForSingleRepository(t *testing.T) {
	source := newStubSource()
	source.trees["alpha"] = []types.Entry{{Path: "/src", IsDirectory: true}, {Path: "/src/a.cs"}}
	events := collectEvents(t, func(ch chan<- stream.Event) error {
		return stream.StreamFlat(context.Background(), stream.RemoteOptions{
			Source:       source,
			Repositories: []string{"alpha"},
			ScopePath:    "/src",
		}, ch)
	})
	assertDescription(t, events, []string{"start alpha", "a.cs", "done"})
	if source.requestedTree[0] != "alpha:/src" {
		t.Fatalf("unexpected request %s", source.requestedTree[0])
	}
}

func TestStreamIncrementalEmitsInlineErrors(t *testing.T) {
	source := newStubSource()
	source.failingRoots["broken"] = true
	traversal := commands.NewTraversalContext()

	events := collectEvents(t, func(ch chan<- stream.Event) error {
		return stream.StreamIncremental(context.Background(), stream.RemoteOptions{
			Source:         source,
			Repositories:   []string{"alpha", "broken"},
			IncludeSummary: true,
			Traversal:      traversal,
		}, ch)
	})

	assertDescription(t, events, []string{
		"start alpha",
		"lost",
		".error lost",
		"src",
		".a.cs",
		"readme.md",
		"start broken",
		"warning broken",
		"summary",
		"done",
	})
	summary := summaryOf(t, events)
	if summary.Repositories != 1 || summary.Directories != 2 || summary.Files != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestStreamLocalEmitsEventsWithSummary(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	rootPath := filepath.Join("/", "workspace")
	for _, relativePath := range []string{"nested/example.txt", "top.txt"} {
		absolutePath := filepath.Join(rootPath, relativePath)
		if err := fileSystem.MkdirAll(filepath.Dir(absolutePath), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := afero.WriteFile(fileSystem, absolutePath, []byte("tree"), 0o600); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	traversal := commands.NewTraversalContext()

	events := collectEvents(t, func(ch chan<- stream.Event) error {
		return stream.StreamLocal(context.Background(), stream.LocalOptions{
			Roots:          []string{rootPath},
			FileSystem:     fileSystem,
			IncludeSummary: true,
			Traversal:      traversal,
		}, ch)
	})

	assertDescription(t, events, []string{
		"start " + rootPath,
		"nested",
		".example.txt",
		"top.txt",
		"summary",
		"done",
	})
	summary := summaryOf(t, events)
	if summary.IncludeRepositories || summary.Directories != 1 || summary.Files != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestStreamStopsWhenContextIsCancelled(t *testing.T) {
	cancellableContext, cancel := context.WithCancel(context.Background())
	cancel()
	events := make(chan stream.Event)
	err := stream.StreamFlat(cancellableContext, stream.RemoteOptions{
		Source:       newStubSource(),
		Repositories: []string{"alpha"},
	}, events)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestStreamRejectsMissingInputs(t *testing.T) {
	events := make(chan stream.Event, 1)
	if err := stream.StreamFlat(context.Background(), stream.RemoteOptions{}, events); err == nil {
		t.Fatalf("expected error for missing source")
	}
	if err := stream.StreamLocal(context.Background(), stream.LocalOptions{}, events); err == nil {
		t.Fatalf("expected error for missing roots")
	}
}
