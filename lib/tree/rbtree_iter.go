package tree

// RBIterator is a thin reference to a node of the tree.
// The zero node is the end sentinel, one past the maximum and one
// before the minimum.
// An iterator becomes dangling if its node is removed, dereferencing
// or stepping a dangling iterator panics.
type RBIterator[K any, V any] struct {
	tree *rbTree[K, V]
	node *rbNode[K, V]
}

func (it RBIterator[K, V]) mustNode() *rbNode[K, V] {
	if it.node == nil {
		panic( /* precondition */ "[rbtree] dereference the end iterator")
	}
	if !it.node.hasKV {
		panic( /* precondition */ "[rbtree] dereference a dangling iterator")
	}
	return it.node
}

func (it RBIterator[K, V]) IsEnd() bool {
	return it.node == nil
}

func (it RBIterator[K, V]) Equal(that RBIterator[K, V]) bool {
	return it.tree == that.tree && it.node == that.node
}

func (it RBIterator[K, V]) Key() K {
	return it.mustNode().key
}

func (it RBIterator[K, V]) Val() V {
	return it.mustNode().val
}

func (it RBIterator[K, V]) Color() RBColor {
	return it.mustNode().color
}

// SetVal overwrites the value in place, the tree structure is untouched.
func (it RBIterator[K, V]) SetVal(val V) {
	it.mustNode().val = val
}

// Next steps to the succ. The maximum steps to the end.
func (it RBIterator[K, V]) Next() RBIterator[K, V] {
	return RBIterator[K, V]{
		tree: it.tree,
		node: it.mustNode().succ(),
	}
}

// Prev steps to the pred. The minimum steps to the end and the end
// steps back to the maximum.
func (it RBIterator[K, V]) Prev() RBIterator[K, V] {
	if it.node == nil {
		if it.tree == nil {
			panic( /* precondition */ "[rbtree] step a detached end iterator")
		}
		return it.tree.Last()
	}
	return RBIterator[K, V]{
		tree: it.tree,
		node: it.mustNode().pred(),
	}
}

// Begin is O(1) by the cached minimum.
func (tree *rbTree[K, V]) Begin() RBIterator[K, V] {
	return RBIterator[K, V]{tree: tree, node: tree.begin}
}

func (tree *rbTree[K, V]) Last() RBIterator[K, V] {
	return RBIterator[K, V]{tree: tree, node: tree.root.maximum()}
}

func (tree *rbTree[K, V]) End() RBIterator[K, V] {
	return RBIterator[K, V]{tree: tree}
}

// Find returns the end if the key is absent.
func (tree *rbTree[K, V]) Find(key K) RBIterator[K, V] {
	return RBIterator[K, V]{tree: tree, node: tree.search(key)}
}
