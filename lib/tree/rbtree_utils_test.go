package tree

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/benz9527/xrbtree/lib/infra"
)

func TestRbtreeValidate_Violations(t *testing.T) {
	type testcase struct {
		name    string
		corrupt func(tree *rbTree[int, int])
		errMsg  string
	}
	testcases := []testcase{
		{
			name: "red root",
			corrupt: func(tree *rbTree[int, int]) {
				tree.root.color = Red
			},
			errMsg: "the root is red",
		},
		{
			name: "red-red adjacency",
			corrupt: func(tree *rbTree[int, int]) {
				tree.root.left.color = Red
				tree.root.left.left.color = Red
			},
			errMsg: "red violation at key",
		},
		{
			name: "black height mismatch",
			corrupt: func(tree *rbTree[int, int]) {
				tree.root.left.left.color = Red
			},
			errMsg: "black violation at key",
		},
		{
			name: "order violation",
			corrupt: func(tree *rbTree[int, int]) {
				tree.root.left.key = 100
			},
			errMsg: "order violation",
		},
		{
			name: "size violation",
			corrupt: func(tree *rbTree[int, int]) {
				tree.count++
			},
			errMsg: "size violation",
		},
		{
			name: "stale begin",
			corrupt: func(tree *rbTree[int, int]) {
				tree.begin = tree.root
			},
			errMsg: "begin is not the minimum",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			tree := newTestTree[int, int](false, false)
			for i := 0; i < 10; i++ {
				tree.Upsert(i, i)
			}
			requireValid[int, int](tt, tree)

			tc.corrupt(tree)
			err := ValidateAll[int, int](tree)
			require.Error(tt, err)
			require.Contains(tt, err.Error(), tc.errMsg)
			_, ok := err.(infra.ErrorStack)
			require.True(tt, ok)
		})
	}
}

func TestRbtreeValidate_BlackHeight(t *testing.T) {
	tree := newTestTree[int, int](false, false)
	require.True(t, tree.Validate())
	require.Equal(t, 1, blackHeight(tree.root))

	for i := 0; i < 10; i++ {
		tree.Upsert(i, i)
	}
	require.True(t, tree.Validate())
	require.Greater(t, blackHeight(tree.root), 1)

	tree.root.right.color ^= 1
	require.False(t, tree.Validate())
	require.Equal(t, invalidBlackHeight, blackHeight(tree.root))
}

func TestRbtreeValidate_UnknownImpl(t *testing.T) {
	var tree RBTree[int, int] = (*rbTree[int, int])(nil)
	require.Error(t, OrderViolationValidate[int, int](tree))
	require.Error(t, sizeViolationValidate[int, int](tree))
}

func TestRbtreePrint(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	defer func() {
		color.NoColor = noColor
	}()

	tree := NewRBTree[int, int]()
	buf := &bytes.Buffer{}
	tree.Print(buf)
	require.Equal(t, "size: 0, Valid\n\n", buf.String())

	for _, key := range []int{1, 2, 3, 4} {
		tree.Upsert(key, key*10)
	}
	buf.Reset()
	tree.Print(buf)
	expected := "size: 4, Valid\n\n" +
		"        /--(4, 40)\n" +
		"    /--(3, 30)\n" +
		"---(2, 20)\n" +
		"    \\--(1, 10)\n"
	require.Equal(t, expected, buf.String())

	tree.(*rbTree[int, int]).root.color = Red
	buf.Reset()
	tree.Print(buf)
	require.Contains(t, buf.String(), "size: 4, Invalid\n")
}
