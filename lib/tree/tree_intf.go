package tree

import "io"

type RBColor uint8

const (
	Black RBColor = iota
	Red
	// None is the color of an absent key.
	None
)

func (c RBColor) String() string {
	switch c {
	case Black:
		return "Black"
	case Red:
		return "Red"
	case None:
		return "None"
	default:
	}
	return "Unknown"
}

type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

type RBNode[K any, V any] interface {
	Key() K
	Val() V
	HasKeyVal() bool
	Color() RBColor
	Left() RBNode[K, V]
	Right() RBNode[K, V]
	Parent() RBNode[K, V]
}

// RBTree is an ordered map. It is not thread safe.
type RBTree[K any, V any] interface {
	Len() int64
	Empty() bool
	Root() RBNode[K, V]
	// Upsert inserts the key or overwrites the value of the present key.
	Upsert(key K, val V)
	// Insert acts as Upsert, but returns ErrRBTreeKeyExists instead of
	// overwriting if ifNotPresent is true.
	Insert(key K, val V, ifNotPresent ...bool) error
	Get(key K, defaultVal V) V
	Load(key K) (V, bool)
	Contains(key K) bool
	// Color returns None if the key is absent.
	Color(key K) RBColor
	// Remove is a no-op if the key is absent.
	Remove(key K) (V, bool)
	RemoveMin() (K, V, bool)
	Find(key K) RBIterator[K, V]
	Begin() RBIterator[K, V]
	Last() RBIterator[K, V]
	End() RBIterator[K, V]
	Foreach(action func(idx int64, color RBColor, key K, val V) bool)
	// Validate is only for debug.
	Validate() bool
	// Print is only for debug.
	Print(w io.Writer)
	Release()
}
