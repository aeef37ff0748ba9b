package commands

import (
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/rtree/internal/config"
	"github.com/temirov/rtree/internal/utils"
)

const (
	logIgnoreFileUnreadable = "ignore file unreadable, continuing without it"
	logDirectoryUnreadable  = "directory unreadable, skipping its children"
)

// LocalTreeWalker walks a local directory hierarchy and emits each retained
// entry as soon as it is listed, without materializing the tree.
type LocalTreeWalker struct {
	FileSystem afero.Fs
	// ExcludeGlobs are matched against bare names only.
	ExcludeGlobs  []string
	UseGitignore  bool
	UseIgnoreFile bool
	// MaxDepth bounds expansion; top-level entries are level 1 and zero means unlimited.
	MaxDepth  int
	Traversal *TraversalContext
	Logger    *zap.Logger
}

// Walk emits the retained descendants of rootDirectoryPath in display order
// and adds them to the traversal counters. Unreadable directories are emitted
// but not expanded, and no error is reported for them.
func (walker *LocalTreeWalker) Walk(rootDirectoryPath string, visit VisitFunc) error {
	ignorePatterns := walker.loadIgnorePatterns(rootDirectoryPath)
	return walker.traverse(rootDirectoryPath, ignorePatterns, func(currentVisit Visit) error {
		walker.Traversal.countNode(currentVisit.Node.IsDirectory)
		return visit(currentVisit)
	})
}

// Count is an independent pass over rootDirectoryPath with the same filters as
// Walk. It returns the directory and file totals without touching the traversal counters.
func (walker *LocalTreeWalker) Count(rootDirectoryPath string) (int, int) {
	ignorePatterns := walker.loadIgnorePatterns(rootDirectoryPath)
	var directoryCount, fileCount int
	_ = walker.traverse(rootDirectoryPath, ignorePatterns, func(currentVisit Visit) error {
		if currentVisit.Node.IsDirectory {
			directoryCount++
		} else {
			fileCount++
		}
		return nil
	})
	return directoryCount, fileCount
}

// loadIgnorePatterns parses the root ignore files once per walk.
func (walker *LocalTreeWalker) loadIgnorePatterns(rootDirectoryPath string) []string {
	if !walker.UseGitignore && !walker.UseIgnoreFile {
		return nil
	}
	ignorePatterns, loadError := config.LoadRootIgnorePatterns(walker.fileSystem(), rootDirectoryPath, walker.UseGitignore, walker.UseIgnoreFile)
	if loadError != nil {
		walker.logger().Debug(logIgnoreFileUnreadable, zap.String("path", rootDirectoryPath), zap.Error(loadError))
		return nil
	}
	return ignorePatterns
}

func (walker *LocalTreeWalker) traverse(rootDirectoryPath string, ignorePatterns []string, visit VisitFunc) error {
	rootNode := NewRootNode(filepath.Base(rootDirectoryPath))
	stack := []*walkFrame{{nodes: walker.listChildren(rootDirectoryPath, rootNode, ignorePatterns)}}
	for len(stack) > 0 {
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
		childNodes := walker.listChildren(rootDirectoryPath, node, ignorePatterns)
		if len(childNodes) > 0 {
			stack = append(stack, &walkFrame{nodes: childNodes, depth: level})
		}
	}
	return nil
}

// listChildren returns the retained children of parent in display order.
func (walker *LocalTreeWalker) listChildren(rootDirectoryPath string, parent *TreeNode, ignorePatterns []string) []*TreeNode {
	directoryPath := filepath.Join(rootDirectoryPath, filepath.FromSlash(parent.Path))
	directoryEntries, readDirectoryError := afero.ReadDir(walker.fileSystem(), directoryPath)
	if readDirectoryError != nil {
		walker.logger().Debug(logDirectoryUnreadable, zap.String("path", directoryPath), zap.Error(readDirectoryError))
		return nil
	}

	childNodes := make([]*TreeNode, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		name := directoryEntry.Name()
		isDirectory := directoryEntry.IsDir()
		if utils.MatchesAnyNameGlob(walker.ExcludeGlobs, name) {
			continue
		}
		relativePath := utils.JoinRelativePath(parent.Path, name)
		if _, ignored := utils.FirstMatchingPattern(ignorePatterns, relativePath, name, isDirectory); ignored {
			continue
		}
		childNodes = append(childNodes, NewTreeNode(name, relativePath, isDirectory))
	}
	SortNodes(childNodes)
	return childNodes
}

func (walker *LocalTreeWalker) fileSystem() afero.Fs {
	if walker.FileSystem == nil {
		return afero.NewOsFs()
	}
	return walker.FileSystem
}

func (walker *LocalTreeWalker) logger() *zap.Logger {
	if walker.Logger == nil {
		return zap.NewNop()
	}
	return walker.Logger
}
