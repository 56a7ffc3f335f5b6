package service

import "talksphere/internal/model"

// BuildCommentTree turns a post's flat comment list into a forest of reply
// trees in a single pass. Input order is kept at every level, so a list that
// is oldest-first yields oldest-first roots and replies.
//
// A comment whose parent is not in the list becomes a root instead of being
// dropped. Every call allocates fresh nodes and copies the comments, so the
// result never aliases the input.
func BuildCommentTree(comments []model.Comment) []*model.CommentNode {
	nodes := make(map[string]*model.CommentNode, len(comments))
	ordered := make([]*model.CommentNode, 0, len(comments))

	for _, c := range comments {
		if _, dup := nodes[c.ID]; dup {
			continue
		}
		node := &model.CommentNode{Comment: c.Clone(), Replies: []*model.CommentNode{}}
		nodes[c.ID] = node
		ordered = append(ordered, node)
	}

	roots := make([]*model.CommentNode, 0)
	for _, node := range ordered {
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// walkTree visits every node depth-first without recursion.
func walkTree(roots []*model.CommentNode, visit func(n *model.CommentNode)) {
	stack := make([]*model.CommentNode, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)
		for i := len(n.Replies) - 1; i >= 0; i-- {
			stack = append(stack, n.Replies[i])
		}
	}
}
