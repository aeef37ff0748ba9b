package commands

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/rtree/internal/types"
	"github.com/temirov/rtree/internal/utils"
)

const (
	// errorListFolderFormat wraps a failed per-folder fetch.
	errorListFolderFormat = "listing %s: %w"
	// logFolderFetchFailed is logged when one folder cannot be listed.
	logFolderFetchFailed = "folder listing failed"
	// logFolderFetched is logged at debug level after each per-folder fetch.
	logFolderFetched = "folder listed"
)

// FolderLister lists the immediate children of one remote folder.
type FolderLister interface {
	ListFolder(ctx context.Context, folderPath string) ([]types.Entry, error)
}

// IncrementalTreeWalker expands a remote hierarchy one folder per fetch,
// depth first, with at most one outstanding fetch.
type IncrementalTreeWalker struct {
	Lister FolderLister
	// MaxDepth bounds expansion; top-level entries are level 1 and zero means unlimited.
	MaxDepth   int
	NameFilter string
	// ScopePath is the remote folder the traversal root stands for; node paths are relative to it.
	ScopePath string
	Traversal *TraversalContext
	Logger    *zap.Logger
}

// Walk emits rootEntries, the already fetched children of root, and every
// reachable descendant in display order. A folder that cannot be listed yields
// one inline error visit below it and the walk continues with its next sibling.
func (walker *IncrementalTreeWalker) Walk(ctx context.Context, root *TreeNode, rootEntries []types.Entry, visit VisitFunc) error {
	logger := walker.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	stack := []*walkFrame{{nodes: walker.attachLevel(root, rootEntries)}}
	for len(stack) > 0 {
		if contextError := ctx.Err(); contextError != nil {
			return contextError
		}
		frame := stack[len(stack)-1]
		node, ok := frame.next()
		if !ok {
			stack = stack[:len(stack)-1]
			continue
		}
		if err := visit(Visit{Depth: frame.depth, Node: node}); err != nil {
			return err
		}

		level := frame.depth + 1
		if !node.IsDirectory || !withinDepth(level, walker.MaxDepth) {
			continue
		}

		folderPath := ScopedFolderPath(walker.ScopePath, node.Path)
		childEntries, listError := walker.Lister.ListFolder(ctx, folderPath)
		if listError != nil {
			if contextError := ctx.Err(); contextError != nil {
				return contextError
			}
			logger.Debug(logFolderFetchFailed, zap.String("path", folderPath), zap.Error(listError))
			failure := fmt.Errorf(errorListFolderFormat, folderPath, listError)
			if err := visit(Visit{Depth: level, Node: node, Err: failure}); err != nil {
				return err
			}
			continue
		}
		logger.Debug(logFolderFetched, zap.String("path", folderPath), zap.Int("entries", len(childEntries)))

		childNodes := walker.attachLevel(node, childEntries)
		if len(childNodes) > 0 {
			stack = append(stack, &walkFrame{nodes: childNodes, depth: level})
		}
	}
	return nil
}

// attachLevel adds the retained entries as children of parent, counts them and
// returns them in display order.
func (walker *IncrementalTreeWalker) attachLevel(parent *TreeNode, entries []types.Entry) []*TreeNode {
	var levelNodes []*TreeNode
	for _, entry := range RebaseEntries(entries, walker.ScopePath) {
		segments, ok := splitEntryPath(entry.Path)
		if !ok {
			continue
		}
		if strings.Join(segments, pathSeparator) == parent.Path {
			continue
		}
		name := segments[len(segments)-1]
		if !entry.IsDirectory && walker.NameFilter != "" && !utils.MatchesNameGlob(walker.NameFilter, name) {
			continue
		}
		childNode, created := parent.AddChild(name, entry.IsDirectory)
		if !created {
			continue
		}
		walker.Traversal.countNode(entry.IsDirectory)
		levelNodes = append(levelNodes, childNode)
	}
	SortNodes(levelNodes)
	return levelNodes
}
