// Package commands contains the core tree construction and traversal logic for each command.
package commands

import (
	"github.com/google/uuid"

	"github.com/temirov/rtree/internal/utils"
)

const pathSeparator = "/"

// TreeNode is one file or directory. Children are kept in an ordered map keyed
// by name so duplicate detection and insertion order are enforced by the type.
type TreeNode struct {
	Name        string
	Path        string
	IsDirectory bool

	childByName map[string]*TreeNode
	childOrder  []*TreeNode
}

// NewRootNode returns a synthetic directory node that anchors one traversal.
func NewRootNode(name string) *TreeNode {
	return &TreeNode{Name: name, IsDirectory: true}
}

// NewTreeNode returns a detached node, used by walkers that render without
// materializing the tree.
func NewTreeNode(name string, path string, isDirectory bool) *TreeNode {
	return &TreeNode{Name: name, Path: path, IsDirectory: isDirectory}
}

// AddChild returns the child called name, creating it when absent.
// The boolean reports whether a new node was created.
func (node *TreeNode) AddChild(name string, isDirectory bool) (*TreeNode, bool) {
	if existing, exists := node.childByName[name]; exists {
		return existing, false
	}
	if node.childByName == nil {
		node.childByName = make(map[string]*TreeNode)
	}
	child := &TreeNode{
		Name:        name,
		Path:        utils.JoinRelativePath(node.Path, name),
		IsDirectory: isDirectory,
	}
	node.childByName[name] = child
	node.childOrder = append(node.childOrder, child)
	return child, true
}

// Children returns the direct children in insertion order.
func (node *TreeNode) Children() []*TreeNode {
	return append([]*TreeNode(nil), node.childOrder...)
}

// SortedChildren returns the direct children in display order.
func (node *TreeNode) SortedChildren() []*TreeNode {
	sorted := node.Children()
	SortNodes(sorted)
	return sorted
}

// MarkDirectory upgrades a file node to a directory. It reports whether the
// flag changed; a directory is never turned back into a file.
func (node *TreeNode) MarkDirectory() bool {
	if node.IsDirectory {
		return false
	}
	node.IsDirectory = true
	return true
}

// TraversalContext carries the counters of one top-level invocation. Counts are
// cumulative across every root processed with the same context.
type TraversalContext struct {
	InvocationID   string
	DirectoryCount int
	FileCount      int
	RootCount      int
}

// NewTraversalContext returns zeroed counters tagged with a fresh invocation identifier.
func NewTraversalContext() *TraversalContext {
	return &TraversalContext{InvocationID: uuid.NewString()}
}

func (traversal *TraversalContext) countNode(isDirectory bool) {
	if traversal == nil {
		return
	}
	if isDirectory {
		traversal.DirectoryCount++
		return
	}
	traversal.FileCount++
}

// countUpgrade moves one count from files to directories after MarkDirectory.
func (traversal *TraversalContext) countUpgrade() {
	if traversal == nil {
		return
	}
	traversal.FileCount--
	traversal.DirectoryCount++
}

// CountRoot records a root that was processed without a root-level failure.
func (traversal *TraversalContext) CountRoot() {
	if traversal == nil {
		return
	}
	traversal.RootCount++
}
