package compiler

import (
	"fmt"
	"strings"
)

// TreeNode is one grammar non-terminal (or token leaf) in the derivation
// tree. The tree exists only for the --abstract-syntax-tree dump; code
// generation never walks it.
type TreeNode struct {
	Name     string
	Tok      *Token // set on leaves
	Children []*TreeNode
}

// treeBuilder records the derivation while the parser runs. When disabled all
// operations are no-ops so parsing pays nothing for the optional dump.
type treeBuilder struct {
	enabled bool
	root    *TreeNode
	stack   []*TreeNode
}

func newTreeBuilder(enabled bool) *treeBuilder {
	tb := &treeBuilder{enabled: enabled}
	if enabled {
		tb.root = &TreeNode{Name: "Program"}
		tb.stack = []*TreeNode{tb.root}
	}
	return tb
}

// open starts a non-terminal node; every node and leaf added until the
// matching close becomes its child.
func (tb *treeBuilder) open(name string) {
	if !tb.enabled {
		return
	}
	n := &TreeNode{Name: name}
	top := tb.stack[len(tb.stack)-1]
	top.Children = append(top.Children, n)
	tb.stack = append(tb.stack, n)
}

func (tb *treeBuilder) close() {
	if !tb.enabled {
		return
	}
	if len(tb.stack) > 1 {
		tb.stack = tb.stack[:len(tb.stack)-1]
	}
}

// leaf attaches a consumed token to the open node.
func (tb *treeBuilder) leaf(tok Token) {
	if !tb.enabled || tok.Type == EOF {
		return
	}
	top := tb.stack[len(tb.stack)-1]
	top.Children = append(top.Children, &TreeNode{Name: tok.Lexeme, Tok: &tok})
}

// Text renders the derivation tree with box-drawing indentation.
func (tb *treeBuilder) Text() string {
	if !tb.enabled || tb.root == nil {
		return ""
	}
	var sb strings.Builder
	renderNode(&sb, tb.root, "", true, true)
	return sb.String()
}

func renderNode(sb *strings.Builder, n *TreeNode, prefix string, isLast, isRoot bool) {
	label := n.Name
	if n.Tok != nil {
		label = fmt.Sprintf("(%s, %s)", n.Tok.Type.Kind(), n.Tok.Lexeme)
	}
	if isRoot {
		sb.WriteString(label + "\n")
	} else {
		connector := "├── "
		if isLast {
			connector = "└── "
		}
		sb.WriteString(prefix + connector + label + "\n")
	}
	childPrefix := prefix
	if !isRoot {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}
	for i, c := range n.Children {
		renderNode(sb, c, childPrefix, i == len(n.Children)-1, false)
	}
}
