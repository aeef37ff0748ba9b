package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/rtree/internal/commands"
	"github.com/temirov/rtree/internal/types"
)

const (
	levelWarning         = "warning"
	rootScopePath        = "/"
	logFieldRoot         = "root"
	logFieldScope        = "scope"
	logFieldInvocation   = "invocation"
	logFieldRepositories = "repositories"

	warningRootFailedFormat = "%s: %v"
	logRootFailed           = "root listing failed, skipping root"
	logScopeConflict        = "path scope applies to a single repository; listing every repository from /"
	errorNilChannel         = "stream: event channel is nil"
	errorMissingSource      = "stream: remote source is nil"
	errorMissingRoots       = "stream: no roots to render"
)

// RemoteSource lists repository items. ListTree returns the bulk listing of a
// scope and ListFolder the immediate children of one folder.
type RemoteSource interface {
	ListTree(ctx context.Context, repository string, scopePath string) ([]types.Entry, error)
	ListFolder(ctx context.Context, repository string, folderPath string) ([]types.Entry, error)
}

// RemoteOptions configures StreamFlat and StreamIncremental.
type RemoteOptions struct {
	Source         RemoteSource
	Repositories   []string
	ScopePath      string
	MaxDepth       int
	NameFilter     string
	IncludeSummary bool
	Traversal      *commands.TraversalContext
	Logger         *zap.Logger
}

// LocalOptions configures StreamLocal.
type LocalOptions struct {
	Roots          []string
	FileSystem     afero.Fs
	ExcludeGlobs   []string
	UseGitignore   bool
	UseIgnoreFile  bool
	MaxDepth       int
	IncludeSummary bool
	Traversal      *commands.TraversalContext
	Logger         *zap.Logger
}

type emitter struct {
	ctx     context.Context
	out     chan<- Event
	command string
}

func newEmitter(ctx context.Context, out chan<- Event, command string) *emitter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &emitter{ctx: ctx, out: out, command: command}
}

func (e *emitter) send(event Event) error {
	if e.out == nil {
		return errors.New(errorNilChannel)
	}
	event.Version = SchemaVersion
	if event.Command == "" {
		event.Command = e.command
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	select {
	case <-e.ctx.Done():
		return e.ctx.Err()
	case e.out <- event:
		return nil
	}
}

func (e *emitter) warn(path, message string) error {
	trimmed := strings.TrimRight(message, "\n")
	if trimmed == "" {
		return nil
	}
	return e.send(Event{
		Kind:    EventKindWarning,
		Path:    path,
		Message: &LogEvent{Level: levelWarning, Message: trimmed},
	})
}

// visitor converts core visits of one root into node and error events.
func (e *emitter) visitor(rootPath string) commands.VisitFunc {
	return func(visit commands.Visit) error {
		event := Event{
			Kind:  EventKindNode,
			Path:  rootPath,
			Depth: visit.Depth,
			Node: &NodeEvent{
				Name:        visit.Node.Name,
				Path:        visit.Node.Path,
				IsDirectory: visit.Node.IsDirectory,
			},
		}
		if visit.Err != nil {
			event.Kind = EventKindError
			event.Err = &ErrorEvent{Message: visit.Err.Error()}
		}
		return e.send(event)
	}
}

func (e *emitter) finish(traversal *commands.TraversalContext, includeSummary bool, includeRepositories bool) error {
	if includeSummary && traversal != nil {
		if err := e.send(Event{
			Kind: EventKindSummary,
			Summary: &SummaryEvent{
				Repositories:        traversal.RootCount,
				Directories:         traversal.DirectoryCount,
				Files:               traversal.FileCount,
				IncludeRepositories: includeRepositories,
			},
		}); err != nil {
			return err
		}
	}
	return e.send(Event{Kind: EventKindDone})
}

// StreamFlat renders each repository from one bulk listing call.
func StreamFlat(ctx context.Context, opts RemoteOptions, out chan<- Event) error {
	if opts.Source == nil {
		return errors.New(errorMissingSource)
	}
	emitter := newEmitter(ctx, out, types.CommandRemote)
	logger := invocationLogger(opts.Logger, opts.Traversal)
	scopePath := resolveScope(logger, opts.Repositories, opts.ScopePath)
	treeBuilder := commands.FlatListTreeBuilder{
		MaxDepth:   opts.MaxDepth,
		NameFilter: opts.NameFilter,
		Traversal:  opts.Traversal,
	}

	for _, repository := range opts.Repositories {
		if err := emitter.send(Event{Kind: EventKindStart, Path: repository}); err != nil {
			return err
		}
		entries, listErr := opts.Source.ListTree(ctx, repository, scopePath)
		if listErr != nil {
			if err := skipRoot(ctx, emitter, logger, repository, listErr); err != nil {
				return err
			}
			continue
		}
		root := treeBuilder.Build(repository, commands.RebaseEntries(entries, scopePath))
		if err := commands.WalkTree(root, emitter.visitor(repository)); err != nil {
			return err
		}
		opts.Traversal.CountRoot()
	}
	return emitter.finish(opts.Traversal, opts.IncludeSummary, true)
}

// StreamIncremental renders each repository with one listing call per expanded folder.
func StreamIncremental(ctx context.Context, opts RemoteOptions, out chan<- Event) error {
	if opts.Source == nil {
		return errors.New(errorMissingSource)
	}
	emitter := newEmitter(ctx, out, types.CommandRemote)
	logger := invocationLogger(opts.Logger, opts.Traversal)
	scopePath := resolveScope(logger, opts.Repositories, opts.ScopePath)

	for _, repository := range opts.Repositories {
		if err := emitter.send(Event{Kind: EventKindStart, Path: repository}); err != nil {
			return err
		}
		rootEntries, listErr := opts.Source.ListFolder(ctx, repository, scopePath)
		if listErr != nil {
			if err := skipRoot(ctx, emitter, logger, repository, listErr); err != nil {
				return err
			}
			continue
		}
		walker := commands.IncrementalTreeWalker{
			Lister:     repositoryFolderLister{source: opts.Source, repository: repository},
			MaxDepth:   opts.MaxDepth,
			NameFilter: opts.NameFilter,
			ScopePath:  scopePath,
			Traversal:  opts.Traversal,
			Logger:     logger.With(zap.String(logFieldRoot, repository)),
		}
		if err := walker.Walk(ctx, commands.NewRootNode(repository), rootEntries, emitter.visitor(repository)); err != nil {
			return err
		}
		opts.Traversal.CountRoot()
	}
	return emitter.finish(opts.Traversal, opts.IncludeSummary, true)
}

// StreamLocal renders each local root directory.
func StreamLocal(ctx context.Context, opts LocalOptions, out chan<- Event) error {
	if len(opts.Roots) == 0 {
		return errors.New(errorMissingRoots)
	}
	emitter := newEmitter(ctx, out, types.CommandLocal)
	logger := invocationLogger(opts.Logger, opts.Traversal)
	walker := commands.LocalTreeWalker{
		FileSystem:    opts.FileSystem,
		ExcludeGlobs:  opts.ExcludeGlobs,
		UseGitignore:  opts.UseGitignore,
		UseIgnoreFile: opts.UseIgnoreFile,
		MaxDepth:      opts.MaxDepth,
		Traversal:     opts.Traversal,
		Logger:        logger,
	}

	for _, root := range opts.Roots {
		if err := emitter.send(Event{Kind: EventKindStart, Path: root}); err != nil {
			return err
		}
		if err := walker.Walk(root, emitter.visitor(root)); err != nil {
			return err
		}
		opts.Traversal.CountRoot()
	}
	return emitter.finish(opts.Traversal, opts.IncludeSummary, false)
}

// resolveScope drops a path scope that was combined with several repositories.
func resolveScope(logger *zap.Logger, repositories []string, scopePath string) string {
	trimmedScope := strings.TrimSpace(scopePath)
	if trimmedScope == "" || trimmedScope == rootScopePath {
		return rootScopePath
	}
	if len(repositories) <= 1 {
		return trimmedScope
	}
	logger.Warn(logScopeConflict, zap.String(logFieldScope, trimmedScope), zap.Int(logFieldRepositories, len(repositories)))
	return rootScopePath
}

// skipRoot reports a failed root listing and lets the caller continue with the next root.
func skipRoot(ctx context.Context, emitter *emitter, logger *zap.Logger, root string, listErr error) error {
	if contextErr := ctx.Err(); contextErr != nil {
		return contextErr
	}
	logger.Debug(logRootFailed, zap.String(logFieldRoot, root), zap.Error(listErr))
	return emitter.warn(root, fmt.Sprintf(warningRootFailedFormat, root, listErr))
}

func invocationLogger(logger *zap.Logger, traversal *commands.TraversalContext) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if traversal != nil {
		logger = logger.With(zap.String(logFieldInvocation, traversal.InvocationID))
	}
	return logger
}

// repositoryFolderLister binds a RemoteSource to one repository.
type repositoryFolderLister struct {
	source     RemoteSource
	repository string
}

func (lister repositoryFolderLister) ListFolder(ctx context.Context, folderPath string) ([]types.Entry, error) {
	return lister.source.ListFolder(ctx, lister.repository, folderPath)
}
