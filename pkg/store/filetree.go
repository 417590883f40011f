package store

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/gitgraph/pkg/model"
)

// FileNodeType discriminates the three node kinds of a file tree.
type FileNodeType int

const (
	NodeFolder FileNodeType = iota
	NodeFile
	NodeRepo
)

// FileNode is one node of the expanded commit's file tree. Folders hold a
// mapping from child name to child node plus an open flag and an aggregated
// reviewed flag (true iff every descendant file is reviewed). File leaves
// hold a stable index into the flat change list. Repo leaves mark a path
// prefix that is itself another known repository; descent stops there.
type FileNode struct {
	Name     string               `json:"name"`
	Type     FileNodeType         `json:"type"`
	Children map[string]*FileNode `json:"children,omitempty"`
	Open     bool                 `json:"open"`
	Reviewed bool                 `json:"reviewed"`

	// FileIndex indexes the expanded commit's flat change list (file leaves).
	FileIndex int `json:"fileIndex,omitempty"`

	// RepoPath is the nested repository's path (repo leaves).
	RepoPath string `json:"repoPath,omitempty"`
}

// CreateFileTree builds the recursive folder structure for a flat ordered
// change list. review may be nil; a file's initial reviewed flag is true
// iff no review is active or its path is not in the remaining set.
// nestedRepos are the relative path prefixes (within the current repo) of
// other known repositories; a file under such a prefix terminates descent
// with a repo-reference leaf. Folder reviewed flags are computed bottom-up
// in a second pass after construction.
func CreateFileTree(changes []model.FileChange, review *model.CodeReview, nestedRepos []string) *FileNode {
	root := &FileNode{
		Name:     "",
		Type:     NodeFolder,
		Children: make(map[string]*FileNode),
		Open:     true,
	}

	remaining := make(map[string]bool)
	if review != nil {
		for _, f := range review.RemainingFiles {
			remaining[f] = true
		}
	}

	for i := range changes {
		path := changes[i].Path()
		insertFileNode(root, path, i, !remaining[path], nestedRepos)
	}

	computeFolderReviewed(root)
	return root
}

func insertFileNode(root *FileNode, path string, fileIndex int, reviewed bool, nestedRepos []string) {
	parts := strings.Split(path, "/")
	node := root
	prefix := ""
	for depth, part := range parts {
		if prefix == "" {
			prefix = part
		} else {
			prefix = prefix + "/" + part
		}

		if depth == len(parts)-1 {
			node.Children[part] = &FileNode{
				Name:      part,
				Type:      NodeFile,
				FileIndex: fileIndex,
				Reviewed:  reviewed,
			}
			return
		}

		if repoPath, ok := matchNestedRepo(prefix, nestedRepos); ok {
			// The folder is itself a known repository: stop descending and
			// reference it instead of walking into its contents.
			if _, exists := node.Children[part]; !exists {
				node.Children[part] = &FileNode{
					Name:     part,
					Type:     NodeRepo,
					RepoPath: repoPath,
					Reviewed: true,
				}
			}
			return
		}

		child, ok := node.Children[part]
		if !ok || child.Type != NodeFolder {
			child = &FileNode{
				Name:     part,
				Type:     NodeFolder,
				Children: make(map[string]*FileNode),
				Open:     true,
			}
			node.Children[part] = child
		}
		node = child
	}
}

func matchNestedRepo(prefix string, nestedRepos []string) (string, bool) {
	for _, r := range nestedRepos {
		if r == prefix {
			return r, true
		}
	}
	return "", false
}

// computeFolderReviewed recomputes every folder's aggregated reviewed flag
// bottom-up. Repo leaves count as reviewed; an empty folder is reviewed.
func computeFolderReviewed(node *FileNode) bool {
	if node == nil {
		return true
	}
	switch node.Type {
	case NodeFile:
		return node.Reviewed
	case NodeRepo:
		return true
	}
	reviewed := true
	for _, child := range node.Children {
		if !computeFolderReviewed(child) {
			reviewed = false
		}
	}
	node.Reviewed = reviewed
	return reviewed
}

// SortedChildNames returns the node's child names, folders first, each
// group in lexical order. Map iteration order is never relied on.
func (n *FileNode) SortedChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := n.Children[names[i]], n.Children[names[j]]
		aFolder := a.Type == NodeFolder
		bFolder := b.Type == NodeFolder
		if aFolder != bFolder {
			return aFolder
		}
		return names[i] < names[j]
	})
	return names
}

// FlattenFilePaths walks the tree and returns every file leaf's path in
// sorted traversal order. Repo leaves contribute nothing.
func FlattenFilePaths(root *FileNode) []string {
	var paths []string
	var walk func(node *FileNode, prefix string)
	walk = func(node *FileNode, prefix string) {
		for _, name := range node.SortedChildNames() {
			child := node.Children[name]
			childPath := name
			if prefix != "" {
				childPath = prefix + "/" + name
			}
			switch child.Type {
			case NodeFile:
				paths = append(paths, childPath)
			case NodeFolder:
				walk(child, childPath)
			}
		}
	}
	if root != nil {
		walk(root, "")
	}
	return paths
}

// ToggleFolderOpen flips the open flag of the folder at path and returns
// the updated root. Nodes along the path are copied rather than mutated in
// place so a render reading the previous tree never observes a half-updated
// structure.
func ToggleFolderOpen(root *FileNode, path string) *FileNode {
	return updateNodeAt(root, path, func(n *FileNode) {
		if n.Type == NodeFolder {
			n.Open = !n.Open
		}
	})
}

// SetFileReviewed sets the reviewed flag of the file at path and returns
// the updated root with folder flags recomputed along the way.
func SetFileReviewed(root *FileNode, path string, reviewed bool) *FileNode {
	newRoot := updateNodeAt(root, path, func(n *FileNode) {
		if n.Type == NodeFile {
			n.Reviewed = reviewed
		}
	})
	computeFolderReviewed(newRoot)
	return newRoot
}

// SetAllReviewed marks every file leaf reviewed or unreviewed, returning a
// new tree with folder flags recomputed.
func SetAllReviewed(root *FileNode, reviewed bool) *FileNode {
	newRoot := cloneWithReviewed(root, reviewed)
	computeFolderReviewed(newRoot)
	return newRoot
}

func cloneWithReviewed(node *FileNode, reviewed bool) *FileNode {
	if node == nil {
		return nil
	}
	clone := *node
	if node.Children != nil {
		clone.Children = make(map[string]*FileNode, len(node.Children))
		for name, child := range node.Children {
			clone.Children[name] = cloneWithReviewed(child, reviewed)
		}
	}
	if clone.Type == NodeFile {
		clone.Reviewed = reviewed
	}
	return &clone
}

// updateNodeAt clones the nodes from root down to path, applies fn to the
// target node's clone, and returns the new root. A path that does not
// resolve returns the original root unchanged.
func updateNodeAt(root *FileNode, path string, fn func(*FileNode)) *FileNode {
	if root == nil {
		return nil
	}
	parts := strings.Split(path, "/")

	var rec func(node *FileNode, depth int) *FileNode
	rec = func(node *FileNode, depth int) *FileNode {
		if depth == len(parts) {
			clone := *node
			fn(&clone)
			return &clone
		}
		child, ok := node.Children[parts[depth]]
		if !ok {
			return node
		}
		newChild := rec(child, depth+1)
		if newChild == child {
			return node
		}
		clone := *node
		clone.Children = make(map[string]*FileNode, len(node.Children))
		for name, c := range node.Children {
			clone.Children[name] = c
		}
		clone.Children[parts[depth]] = newChild
		return &clone
	}

	return rec(root, 0)
}

// FindFileNode returns the node at path, or nil.
func FindFileNode(root *FileNode, path string) *FileNode {
	if root == nil || path == "" {
		return root
	}
	node := root
	for _, part := range strings.Split(path, "/") {
		if node.Children == nil {
			return nil
		}
		next, ok := node.Children[part]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}
