package component

// PostOrder returns the components of the subtree with every child before
// its parent. Siblings keep their declared order.
func PostOrder(root *Component) []*Component {
	if root == nil {
		return nil
	}
	out := make([]*Component, 0, root.Count())

	// Iterative to keep deep directory chains off the goroutine stack.
	type frame struct {
		node *Component
		next int
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.node.Children) {
			child := top.node.Children[top.next]
			top.next++
			stack = append(stack, frame{node: child})
			continue
		}
		out = append(out, top.node)
		stack = stack[:len(stack)-1]
	}
	return out
}
