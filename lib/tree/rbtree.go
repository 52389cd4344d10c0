package tree

import (
	"errors"

	"github.com/benz9527/xrbtree/lib/infra"
)

var ErrRBTreeKeyExists = errors.New("[rbtree] key exists, replace disabled")

type rbNode[K any, V any] struct {
	parent *rbNode[K, V] // Back-reference only.
	left   *rbNode[K, V]
	right  *rbNode[K, V]
	key    K
	val    V
	color  RBColor
	hasKV  bool // False after the node has been detached.
}

func (node *rbNode[K, V]) Color() RBColor {
	return node.color
}

func (node *rbNode[K, V]) Key() K {
	return node.key
}

func (node *rbNode[K, V]) Val() V {
	return node.val
}

func (node *rbNode[K, V]) HasKeyVal() bool {
	if node == nil {
		return false
	}
	return node.hasKV
}

func (node *rbNode[K, V]) Left() RBNode[K, V] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *rbNode[K, V]) Parent() RBNode[K, V] {
	if node == nil || node.parent == nil {
		return nil
	}
	return node.parent
}

func (node *rbNode[K, V]) Right() RBNode[K, V] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

// All nil nodes are considered black.
func (node *rbNode[K, V]) isBlack() bool {
	return node == nil || node.color == Black
}

func (node *rbNode[K, V]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *rbNode[K, V]) direction() RBDirection {
	if node.parent == nil {
		return Root
	} else if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *rbNode[K, V]) minimum() *rbNode[K, V] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

func (node *rbNode[K, V]) maximum() *rbNode[K, V] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

// The pred node of the current node is its previous node in sorted order.
// Returns nil if the current node is the minimum.
func (node *rbNode[K, V]) pred() *rbNode[K, V] {
	x := node
	if x == nil {
		return nil
	}
	if x.left != nil {
		return x.left.maximum()
	}

	aux := x.parent
	// Backtrack to the first ancestor whose right subtree contains x.
	for aux != nil && x == aux.left {
		x = aux
		aux = aux.parent
	}
	return aux
}

// The succ node of the current node is its next node in sorted order.
// Returns nil if the current node is the maximum.
func (node *rbNode[K, V]) succ() *rbNode[K, V] {
	x := node
	if x == nil {
		return nil
	}
	if x.right != nil {
		return x.right.minimum()
	}

	aux := x.parent
	// Backtrack to the first ancestor whose left subtree contains x.
	for aux != nil && x == aux.right {
		x = aux
		aux = aux.parent
	}
	return aux
}

type rbTree[K any, V any] struct {
	root           *rbNode[K, V]
	begin          *rbNode[K, V] // Cached minimum, nil iff empty.
	cmp            infra.Comparator[K]
	count          int64
	isDesc         bool
	isRmBorrowSucc bool
	stats          *rbTreeStats
}

func (tree *rbTree[K, V]) keyCompare(k1, k2 K) int64 {
	res := tree.cmp(k1, k2)
	if tree.isDesc {
		res = -res
	}
	if res < 0 {
		return -1
	} else if res > 0 {
		return 1
	}
	return 0
}

func (tree *rbTree[K, V]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K, V]) Empty() bool {
	return tree.count == 0
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

func (tree *rbTree[K, V]) search(key K) *rbNode[K, V] {
	for aux := tree.root; aux != nil; {
		res := tree.keyCompare(key, aux.key)
		if res == 0 {
			return aux
		} else if res < 0 {
			aux = aux.left
		} else {
			aux = aux.right
		}
	}
	return nil
}

func (tree *rbTree[K, V]) Get(key K, defaultVal V) V {
	if node := tree.search(key); node != nil {
		return node.val
	}
	return defaultVal
}

func (tree *rbTree[K, V]) Load(key K) (val V, ok bool) {
	if node := tree.search(key); node != nil {
		return node.val, true
	}
	return val, false
}

func (tree *rbTree[K, V]) Contains(key K) bool {
	return tree.search(key) != nil
}

func (tree *rbTree[K, V]) Color(key K) RBColor {
	if node := tree.search(key); node != nil {
		return node.color
	}
	return None
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// (Conclusion) If a node X has exactly one child, it must be a red child,
//   because if it were black, its NIL descendants would sit at a different
//   black depth than X's NIL child, violating p4.

// relink replaces the child old of p by young. A nil p means old is
// the root.
func (tree *rbTree[K, V]) relink(p, old, young *rbNode[K, V]) {
	if p == nil {
		tree.root = young
	} else if p.left == old {
		p.left = young
	} else {
		p.right = young
	}
}

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc

Returns the new subtree root S.
*/
func (tree *rbTree[K, V]) leftRotate(x *rbNode[K, V]) *rbNode[K, V] {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	x.right, y.left = y.left, x
	if x.right != nil {
		x.right.parent = x
	}
	x.parent, y.parent = y, p
	tree.relink(p, x, y)
	tree.stats.IncreaseRotationCount(Left)
	return y
}

/*
			 |                         |
			 X                         L
			/ \     rightRotate(X)    / \
	       L   S    ============>   Ld   X
		  / \                           / \
		Ld   Lc                        Lc  S

Returns the new subtree root L.
*/
func (tree *rbTree[K, V]) rightRotate(x *rbNode[K, V]) *rbNode[K, V] {
	if x == nil || x.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	x.left, y.right = y.right, x
	if x.left != nil {
		x.left.parent = x
	}
	x.parent, y.parent = y, p
	tree.relink(p, x, y)
	tree.stats.IncreaseRotationCount(Right)
	return y
}

// rotateTowards rotates x so that x moves down to the dir side.
func (tree *rbTree[K, V]) rotateTowards(x *rbNode[K, V], dir RBDirection) *rbNode[K, V] {
	if dir == Left {
		return tree.leftRotate(x)
	}
	return tree.rightRotate(x)
}

func (tree *rbTree[K, V]) Upsert(key K, val V) {
	_ = tree.Insert(key, val)
}

// i1: Empty rbtree, the new node becomes the root and the begin,
// and it is painted to black.
func (tree *rbTree[K, V]) Insert(key K, val V, ifNotPresent ...bool) error {
	var (
		x, y *rbNode[K, V] = tree.root, nil
		res  int64
	)
	for x != nil {
		y = x
		res = tree.keyCompare(key, x.key)
		if /* equal */ res == 0 {
			if /* disabled */ len(ifNotPresent) > 0 && ifNotPresent[0] {
				return ErrRBTreeKeyExists
			}
			x.val = val
			tree.stats.IncreaseUpsertCount(false)
			return nil
		} else /* less */ if res < 0 {
			x = x.left
		} else /* greater */ {
			x = x.right
		}
	}

	z := &rbNode[K, V]{
		key:    key,
		val:    val,
		color:  Red,
		parent: y,
		hasKV:  true,
	}
	if /* i1 */ y == nil {
		tree.root = z
	} else if res < 0 {
		y.left = z
	} else {
		y.right = z
	}
	// The minimum has no left child, so a new minimum is always
	// attached as the left child of the current one.
	if tree.begin == nil || (y == tree.begin && res < 0) {
		tree.begin = z
	}
	tree.count++

	tree.insertRebalance(z)
	tree.stats.IncreaseUpsertCount(true)
	tree.stats.RecordNodeCount(1)
	return nil
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

im1: Current node X's parent P is black, hold p3 and p4.

im2: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Continue to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im3: The parent P is red but the uncle U is black. (red-violation)
X is the near child, opposite direction to P. Rotate P to the
opposite direction. After rotation P becomes the violating node
and it is the far child. Enter im4 to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im4: X is the far child, the same direction as parent.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]

At last, the root is painted to black unconditionally.
*/
func (tree *rbTree[K, V]) insertRebalance(x *rbNode[K, V]) {
	// A red parent is never the root, so the grandpa exists.
	for /* im1 */ x.parent.isRed() {
		p := x.parent
		gp := p.parent
		dir := p.direction()
		uncle := gp.left
		if dir == Left {
			uncle = gp.right
		}

		if /* im2 */ uncle.isRed() {
			p.color = Black
			uncle.color = Black
			gp.color = Red
			x = gp
			continue
		}

		if /* im3 */ x.direction() != dir {
			tree.rotateTowards(p, dir)
			x, p = p, x
		}

		/* im4 */
		p.color = Black
		gp.color = Red
		tree.rotateTowards(gp, -dir)
		break
	}
	tree.root.color = Black
}

func (tree *rbTree[K, V]) Remove(key K) (val V, ok bool) {
	z := tree.search(key)
	if z == nil {
		return val, false
	}
	val = z.val
	tree.removeNode(z)
	return val, true
}

func (tree *rbTree[K, V]) RemoveMin() (key K, val V, ok bool) {
	if tree.begin == nil {
		return key, val, false
	}
	key, val = tree.begin.key, tree.begin.val
	tree.removeNode(tree.begin)
	return key, val, true
}

/*
r1: Current node Z has left and right node.
Find node Z's pred or succ to be removed instead.
Exchange the key and value only.
Both of pred and succ have at most one child.

Find pred:

	  |                    |
	  Z                    L
	 / \                  / \
	L  ..   swap(Z, L)   Z  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  S  ..                S  ..

Find succ:

	  |                    |
	  Z                    S
	 / \                  / \
	L  ..   swap(Z, S)   L  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  S  ..                Z  ..

r2: The removed node Y is the begin, so the begin moves to its succ.

r3: Y has a child. The child must be red (see conclusion), it replaces Y
and is painted to black. No black-violation remains.

r4: Y is a red leaf, remove directly.

r5: Y is a black leaf, the side of its parent where Y was is one black
short after removing. (black-violation)
*/
func (tree *rbTree[K, V]) removeNode(z *rbNode[K, V]) {
	y := z
	if /* r1 */ z.left != nil && z.right != nil {
		if tree.isRmBorrowSucc {
			y = z.right.minimum()
		} else {
			y = z.left.maximum()
		}
		z.key, y.key = y.key, z.key
		z.val, y.val = y.val, z.val
	}

	if /* r2 */ y == tree.begin {
		tree.begin = y.succ()
	}

	p, dir, removed := tree.detach(y)
	if /* r5 */ removed == Black && p != nil {
		tree.removeRebalance(p, dir)
	}

	tree.count--
	if tree.count <= 0 {
		tree.count = 0
		tree.root, tree.begin = nil, nil
	}
	tree.stats.IncreaseRemoveCount()
	tree.stats.RecordNodeCount(-1)
}

// detach unlinks y, which has at most one child, and returns its former
// parent, its former direction and the color removed from that position.
func (tree *rbTree[K, V]) detach(y *rbNode[K, V]) (p *rbNode[K, V], dir RBDirection, removed RBColor) {
	child := y.left
	if child == nil {
		child = y.right
	}
	p, dir, removed = y.parent, y.direction(), y.color
	tree.relink(p, y, child)
	if /* r3 */ child != nil {
		child.parent = p
		if child.isRed() {
			child.color = Black
			removed = Red
		}
	}

	y.parent, y.left, y.right = nil, nil, nil
	y.hasKV = false
	return p, dir, removed
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

X is the deficient position at the dir side of parent P, maybe NIL.
Sc is the sibling's child at the same direction to X (near nephew).
Sd is the sibling's child at the opposite direction to X (far nephew).

rm1: X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. (Otherwise, red-violation)
Repaint S into black, P into red, rotate P towards X.
X gets a black sibling Sc. Continue with rm2-rm5.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: X's parent P is red, the sibling S, nephew node Sc and Sd
are black.
Repaint S into red and P into black. Done.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: All of X's parent P, the sibling S, nephew node Sc and Sd
are black.
Paint S into red to satisfy p4 locally, the whole subtree P is one
black short now. Continue to fix P.

	  [P]             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm4: X's sibling S is black, nephew node Sc is red and Sd is black.
Ignore P's color.
Repaint S into red, Sc into black, rotate S away from X.
Sc becomes the new sibling and S becomes the red far nephew.
Enter into rm5 to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm5: X's sibling S is black, nephew node Sd is red.
Ignore P and Sc color.
S takes P's color, repaint P and Sd into black, rotate P towards X.
Done.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K, V]) removeRebalance(p *rbNode[K, V], dir RBDirection) {
	for p != nil {
		// The deficient side is one black short, so the other side
		// contains at least one black node and the sibling exists.
		sibling := p.left
		if dir == Left {
			sibling = p.right
		}

		if /* rm1 */ sibling.isRed() {
			sibling.color = Black
			p.color = Red
			tree.rotateTowards(p, dir)
			sibling = p.left
			if dir == Left {
				sibling = p.right
			}
		}

		sc, sd := sibling.right, sibling.left
		if dir == Left {
			sc, sd = sibling.left, sibling.right
		}

		if sc.isBlack() && sd.isBlack() {
			sibling.color = Red
			if /* rm2 */ p.isRed() {
				p.color = Black
				return
			}
			/* rm3 */
			dir = p.direction()
			p = p.parent
			continue
		}

		if /* rm4 */ sd.isBlack() {
			sc.color = Black
			sibling.color = Red
			tree.rotateTowards(sibling, -dir)
			sibling, sd = sc, sibling
		}

		/* rm5 */
		sibling.color = p.color
		p.color = Black
		sd.color = Black
		tree.rotateTowards(p, dir)
		return
	}
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	aux := tree.root
	if aux == nil {
		return
	}

	stack := make([]*rbNode[K, V], 0, 64)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key, aux.val) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.right; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
}

// Release tears down all nodes. Iterators of the tree become dangling.
func (tree *rbTree[K, V]) Release() {
	aux := tree.root
	removed := tree.count
	tree.root, tree.begin, tree.count = nil, nil, 0
	if aux == nil {
		return
	}

	stack := make([]*rbNode[K, V], 0, 64)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, aux)

	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		if aux.left != nil {
			stack = append(stack, aux.left)
		}
		if aux.right != nil {
			stack = append(stack, aux.right)
		}
		aux.parent, aux.left, aux.right = nil, nil, nil
		aux.hasKV = false
	}
	tree.stats.RecordNodeCount(-removed)
}

type RBTreeOpt[K any, V any] func(*rbTree[K, V])

// WithRBTreeDesc sorts the keys in descending order of the comparator.
func WithRBTreeDesc[K any, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isDesc = true
	}
}

// WithRBTreeRemoveBorrowSucc exchanges the node to be removed with its
// succ instead of its pred, if it has two children.
func WithRBTreeRemoveBorrowSucc[K any, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isRmBorrowSucc = true
	}
}

func NewRBTree[K infra.OrderedKey, V any](opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	return NewRBTreeFunc[K, V](infra.OrderedKeyCompare[K], opts...)
}

// NewRBTreeFunc creates a tree ordered by cmp, it panics if cmp is nil.
func NewRBTreeFunc[K any, V any](cmp infra.Comparator[K], opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	if cmp == nil {
		panic("[rbtree] nil key comparator")
	}
	tree := &rbTree[K, V]{
		cmp:            cmp,
		isDesc:         false,
		isRmBorrowSucc: false,
	}
	for _, o := range opts {
		o(tree)
	}
	return tree
}
