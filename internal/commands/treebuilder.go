package commands

import (
	"sort"
	"strings"

	"github.com/temirov/rtree/internal/types"
	"github.com/temirov/rtree/internal/utils"
)

// FlatListTreeBuilder builds a tree from one bulk listing in a single pass.
type FlatListTreeBuilder struct {
	// MaxDepth drops entries with more path segments; zero means unlimited.
	MaxDepth int
	// NameFilter is a name glob that file entries must match; empty keeps every file.
	NameFilter string
	Traversal  *TraversalContext
}

type normalizedEntry struct {
	path        string
	segments    []string
	isDirectory bool
}

// Build returns the root node named rootName holding every retained entry.
// Malformed entries and the pseudo-root are skipped; Build never fails.
func (treeBuilder *FlatListTreeBuilder) Build(rootName string, entries []types.Entry) *TreeNode {
	rootNode := NewRootNode(rootName)

	normalizedEntries := make([]normalizedEntry, 0, len(entries))
	for _, entry := range entries {
		segments, ok := splitEntryPath(entry.Path)
		if !ok {
			continue
		}
		normalizedEntries = append(normalizedEntries, normalizedEntry{
			path:        strings.Join(segments, pathSeparator),
			segments:    segments,
			isDirectory: entry.IsDirectory,
		})
	}
	sort.SliceStable(normalizedEntries, func(left, right int) bool {
		return normalizedEntries[left].path < normalizedEntries[right].path
	})

	for _, entry := range normalizedEntries {
		treeBuilder.insert(rootNode, entry)
	}
	return rootNode
}

func (treeBuilder *FlatListTreeBuilder) insert(rootNode *TreeNode, entry normalizedEntry) {
	if treeBuilder.MaxDepth > 0 && len(entry.segments) > treeBuilder.MaxDepth {
		return
	}
	leafName := entry.segments[len(entry.segments)-1]
	if !entry.isDirectory && treeBuilder.NameFilter != "" && !utils.MatchesNameGlob(treeBuilder.NameFilter, leafName) {
		return
	}

	currentNode := rootNode
	for _, segment := range entry.segments[:len(entry.segments)-1] {
		childNode, created := currentNode.AddChild(segment, true)
		if created {
			treeBuilder.Traversal.countNode(true)
		} else if childNode.MarkDirectory() {
			treeBuilder.Traversal.countUpgrade()
		}
		currentNode = childNode
	}

	leafNode, created := currentNode.AddChild(leafName, entry.isDirectory)
	if created {
		treeBuilder.Traversal.countNode(entry.isDirectory)
		return
	}
	if entry.isDirectory && leafNode.MarkDirectory() {
		treeBuilder.Traversal.countUpgrade()
	}
}
