package email

import (
	"sort"
	"strings"

	"github.com/emersion/go-imap"
)

// FolderNode is one level of the mailbox hierarchy
type FolderNode struct {
	Name       string // last path segment
	Path       string // fully qualified name as reported by the server
	Delimiter  string
	Attributes []string
	// Listed is false for intermediate levels the server did not report itself
	Listed   bool
	Children []*FolderNode
}

// BuildFolderTree arranges a flat LIST response into a tree, splitting each
// name on its own delimiter.
func BuildFolderTree(infos []*imap.MailboxInfo) []*FolderNode {
	root := &FolderNode{}
	index := make(map[string]*FolderNode)

	for _, info := range infos {
		if info == nil || info.Name == "" || hasAttr(info.Attributes, "\\NonExistent") {
			continue
		}

		segments := []string{info.Name}
		if info.Delimiter != "" {
			segments = strings.Split(info.Name, info.Delimiter)
		}

		parent := root
		for i, segment := range segments {
			path := strings.Join(segments[:i+1], info.Delimiter)
			node, ok := index[path]
			if !ok {
				node = &FolderNode{Name: segment, Path: path, Delimiter: info.Delimiter}
				index[path] = node
				parent.Children = append(parent.Children, node)
			}
			parent = node
		}

		parent.Listed = true
		parent.Attributes = info.Attributes
	}

	sortFolderNodes(root.Children, true)
	return root.Children
}

// sortFolderNodes orders siblings by name, INBOX first at the top level
func sortFolderNodes(nodes []*FolderNode, top bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if top {
			iInbox := strings.EqualFold(nodes[i].Path, "INBOX")
			jInbox := strings.EqualFold(nodes[j].Path, "INBOX")
			if iInbox != jInbox {
				return iInbox
			}
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, node := range nodes {
		sortFolderNodes(node.Children, false)
	}
}

// Flatten walks the tree depth-first and returns the qualified names of all
// folders the server reported, parents before children.
func Flatten(nodes []*FolderNode) []string {
	var names []string
	var walk func([]*FolderNode)
	walk = func(level []*FolderNode) {
		for _, node := range level {
			if node.Listed {
				names = append(names, node.Path)
			}
			walk(node.Children)
		}
	}
	walk(nodes)
	return names
}

func hasAttr(attrs []string, want string) bool {
	for _, attr := range attrs {
		if strings.EqualFold(attr, want) {
			return true
		}
	}
	return false
}
