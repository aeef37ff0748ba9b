package commands

import (
	"sort"
	"strings"

	"github.com/temirov/rtree/internal/types"
	"github.com/temirov/rtree/internal/utils"
)

// Visit is one position in display order. Depth 0 is a direct child of the
// root. When Err is set the visit is an inline failure reported for Node, a
// directory whose children could not be listed.
type Visit struct {
	Depth int
	Node  *TreeNode
	Err   error
}

// VisitFunc receives visits in display order. Returning an error stops the traversal.
type VisitFunc func(Visit) error

// CompareNodes orders directories before files and then names ordinally.
func CompareNodes(left *TreeNode, right *TreeNode) int {
	if left.IsDirectory != right.IsDirectory {
		if left.IsDirectory {
			return -1
		}
		return 1
	}
	return utils.CompareNames(left.Name, right.Name)
}

// SortNodes sorts nodes in place using CompareNodes.
func SortNodes(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(left, right int) bool {
		return CompareNodes(nodes[left], nodes[right]) < 0
	})
}

// walkFrame is one level of an iterative depth-first traversal.
type walkFrame struct {
	nodes []*TreeNode
	index int
	depth int
}

func (frame *walkFrame) next() (*TreeNode, bool) {
	if frame.index >= len(frame.nodes) {
		return nil, false
	}
	node := frame.nodes[frame.index]
	frame.index++
	return node, true
}

// WalkTree emits every descendant of root in display order.
func WalkTree(root *TreeNode, visit VisitFunc) error {
	if root == nil {
		return nil
	}
	stack := []*walkFrame{{nodes: root.SortedChildren()}}
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
		if node.IsDirectory && len(node.childOrder) > 0 {
			stack = append(stack, &walkFrame{nodes: node.SortedChildren(), depth: frame.depth + 1})
		}
	}
	return nil
}

// withinDepth reports whether a node at level (1 for top-level entries) may be
// expanded under maxDepth, where zero means unlimited.
func withinDepth(level int, maxDepth int) bool {
	return maxDepth <= 0 || level < maxDepth
}

// splitEntryPath strips one leading separator and splits the remainder into
// segments. It reports false for the pseudo-root and for paths with empty segments.
func splitEntryPath(entryPath string) ([]string, bool) {
	normalizedPath := strings.TrimPrefix(entryPath, pathSeparator)
	if normalizedPath == "" {
		return nil, false
	}
	segments := strings.Split(normalizedPath, pathSeparator)
	for _, segment := range segments {
		if segment == "" {
			return nil, false
		}
	}
	return segments, true
}

// RebaseEntries rewrites entry paths relative to scopePath. The scope folder
// itself becomes the pseudo-root; entries outside the scope are kept unchanged.
func RebaseEntries(entries []types.Entry, scopePath string) []types.Entry {
	normalizedScope := strings.Trim(scopePath, pathSeparator)
	if normalizedScope == "" {
		return entries
	}
	rebased := make([]types.Entry, 0, len(entries))
	for _, entry := range entries {
		normalizedPath := strings.TrimPrefix(entry.Path, pathSeparator)
		switch {
		case normalizedPath == normalizedScope:
			entry.Path = pathSeparator
		case strings.HasPrefix(normalizedPath, normalizedScope+pathSeparator):
			entry.Path = pathSeparator + strings.TrimPrefix(normalizedPath, normalizedScope+pathSeparator)
		}
		rebased = append(rebased, entry)
	}
	return rebased
}

// ScopedFolderPath returns the remote folder path of a node path relative to scopePath.
func ScopedFolderPath(scopePath string, nodePath string) string {
	normalizedScope := strings.Trim(scopePath, pathSeparator)
	if normalizedScope == "" {
		return pathSeparator + nodePath
	}
	if nodePath == "" {
		return pathSeparator + normalizedScope
	}
	return pathSeparator + normalizedScope + pathSeparator + nodePath
}
