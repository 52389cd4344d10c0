package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/benz9527/xrbtree/lib/infra"
)

// invalidBlackHeight is the validator failure sentinel.
const invalidBlackHeight = -1

// blackHeight returns the number of black nodes on any path from node
// to a nil leaf, the nil leaf included. Returns invalidBlackHeight
// if there is a red-violation or a black-violation in the subtree.
func blackHeight[K any, V any](node *rbNode[K, V]) int {
	if node == nil {
		return 1
	}
	if node.isRed() && (node.left.isRed() || node.right.isRed()) {
		return invalidBlackHeight
	}
	l := blackHeight(node.left)
	if l == invalidBlackHeight {
		return invalidBlackHeight
	}
	r := blackHeight(node.right)
	if r == invalidBlackHeight || l != r {
		return invalidBlackHeight
	}
	if node.isBlack() {
		return l + 1
	}
	return l
}

func (tree *rbTree[K, V]) Validate() bool {
	return tree.root.isBlack() && blackHeight(tree.root) != invalidBlackHeight
}

var (
	redPainter   = color.New(color.FgRed, color.Bold)
	blackPainter = color.New(color.FgHiBlack, color.Bold)
)

/*
Print dumps the tree rotated 90 degrees counterclockwise.

	size: 3, Valid

	    /--(3, 3)
	---(2, 2)
	    \--(1, 1)
*/
func (tree *rbTree[K, V]) Print(w io.Writer) {
	state := "Invalid"
	if tree.Validate() {
		state = "Valid"
	}
	_, _ = fmt.Fprintf(w, "size: %d, %s\n\n", tree.count, state)
	printTreeStructure(w, tree.root, 0, '-')
}

func printTreeStructure[K any, V any](w io.Writer, node *rbNode[K, V], depth int, prefix rune) {
	if node == nil {
		return
	}

	printTreeStructure(w, node.right, depth+1, '/')
	_, _ = fmt.Fprintf(w, "%s%c--", strings.Repeat(" ", depth*4), prefix)
	painter := blackPainter
	if node.isRed() {
		painter = redPainter
	}
	_, _ = painter.Fprintf(w, "(%v, %v)", node.key, node.val)
	_, _ = fmt.Fprintln(w)
	printTreeStructure(w, node.left, depth+1, '\\')
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

func isRedNode[K any, V any](node RBNode[K, V]) bool {
	return node != nil && node.Color() == Red
}

func isBlackNode[K any, V any](node RBNode[K, V]) bool {
	return node == nil || node.Color() == Black
}

func blackDepthTo[K any, V any](target, to RBNode[K, V]) int {
	depth := 0
	for aux := target; aux != nil && aux != to; aux = aux.Parent() {
		if isBlackNode[K, V](aux) {
			depth++
		}
	}
	return depth
}

// Inorder traversal to validate the rbtree red rules (p3 and p5).
func RedViolationValidate[K any, V any](tree RBTree[K, V]) error {
	aux := tree.Root()
	if aux == nil {
		return nil
	}
	if isRedNode[K, V](aux) {
		return infra.NewErrorStack("[rbtree] red violation, the root is red")
	}

	stack := make([]RBNode[K, V], 0, 64)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}

	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; isRedNode[K, V](aux) {
			if isRedNode[K, V](aux.Parent()) || isRedNode[K, V](aux.Left()) || isRedNode[K, V](aux.Right()) {
				return infra.NewErrorStack(fmt.Sprintf("[rbtree] red violation at key %v", aux.Key()))
			}
		}

		stack = stack[:size-1]
		for aux = aux.Right(); aux != nil; aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

// BFS traversal to load all nodes owning a nil leaf.
func bfsLeaves[K any, V any](tree RBTree[K, V]) []RBNode[K, V] {
	aux := tree.Root()
	if aux == nil {
		return nil
	}

	leaves := make([]RBNode[K, V], 0, tree.Len()>>1+1)
	queue := make([]RBNode[K, V], 0, 64)
	queue = append(queue, aux)

	for len(queue) > 0 {
		aux = queue[0]
		queue = queue[1:]
		l, r := aux.Left(), aux.Right()
		if /* nil leaves, keep one */ l == nil || r == nil {
			leaves = append(leaves, aux)
		}
		if l != nil {
			queue = append(queue, l)
		}
		if r != nil {
			queue = append(queue, r)
		}
	}
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
		  /  \             /    \
		 /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each leaf node to root node black depth are equal (p4).
*/
func BlackViolationValidate[K any, V any](tree RBTree[K, V]) error {
	leaves := bfsLeaves[K, V](tree)
	if leaves == nil {
		return nil
	}

	blackDepth := blackDepthTo[K, V](leaves[0], nil)
	for i := 1; i < len(leaves); i++ {
		if depth := blackDepthTo[K, V](leaves[i], nil); depth != blackDepth {
			return infra.NewErrorStack(fmt.Sprintf(
				"[rbtree] black violation at key %v, black depth %d, expected %d",
				leaves[i].Key(), depth, blackDepth,
			))
		}
	}
	return nil
}

// OrderViolationValidate checks the keys are strictly ascending
// by the tree comparator in the inorder traversal (p0, BST order),
// and the parent back-references are consistent.
func OrderViolationValidate[K any, V any](tree RBTree[K, V]) error {
	t, ok := tree.(*rbTree[K, V])
	if !ok || t == nil {
		return infra.NewErrorStack("[rbtree] unknown tree implementation")
	}

	var prev *rbNode[K, V]
	for aux := t.root.minimum(); aux != nil; aux = aux.succ() {
		if (aux.left != nil && aux.left.parent != aux) ||
			(aux.right != nil && aux.right.parent != aux) {
			return infra.NewErrorStack(fmt.Sprintf("[rbtree] broken parent link at key %v", aux.key))
		}
		if prev != nil && t.keyCompare(prev.key, aux.key) >= 0 {
			return infra.NewErrorStack(fmt.Sprintf(
				"[rbtree] order violation, key %v is not less than key %v", prev.key, aux.key,
			))
		}
		prev = aux
	}
	if t.root != nil && t.root.parent != nil {
		return infra.NewErrorStack("[rbtree] the root has a parent")
	}
	return nil
}

// sizeViolationValidate checks the size and the cached begin.
func sizeViolationValidate[K any, V any](tree RBTree[K, V]) error {
	t, ok := tree.(*rbTree[K, V])
	if !ok || t == nil {
		return infra.NewErrorStack("[rbtree] unknown tree implementation")
	}

	count := int64(0)
	t.Foreach(func(idx int64, color RBColor, key K, val V) bool {
		count++
		return true
	})
	if count != t.count {
		return infra.NewErrorStack(fmt.Sprintf("[rbtree] size violation, len %d, nodes %d", t.count, count))
	}
	if _min := t.root.minimum(); _min != t.begin {
		return infra.NewErrorStack("[rbtree] begin is not the minimum")
	}
	return nil
}

// ValidateAll collects all the violations of the tree.
func ValidateAll[K any, V any](tree RBTree[K, V]) error {
	err := infra.AppendErrorStack(nil,
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
		OrderViolationValidate[K, V](tree),
		sizeViolationValidate[K, V](tree),
	)
	if err == nil {
		return nil
	}
	return infra.WrapErrorStack(err, "[rbtree] invalid")
}
