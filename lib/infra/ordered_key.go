package infra

type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is a constraint that permits any unsigned integer type.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

type Integer interface {
	Signed | Unsigned
}

type Float interface {
	~float32 | ~float64
}

// OrderedKey
// byte => ~uint8
type OrderedKey interface {
	Integer | Float | ~string
}

// Comparator is a three-way comparison over keys of any type.
// Assume i is the new key.
//  1. i == j, return 0.
//  2. i > j, return positive, turn to right part.
//  3. i < j, return negative, turn to left part.
//
// It must be consistent with a strict total order and stateless.
type Comparator[K any] func(i, j K) int64

// OrderedKeyComparator is the Comparator restricted to builtin ordered keys.
type OrderedKeyComparator[K OrderedKey] func(i, j K) int64

// OrderedKeyCompare compares builtin ordered keys by the < operator.
// NaN is not a valid key, it is unordered with everything.
func OrderedKeyCompare[K OrderedKey](i, j K) int64 {
	if i == j {
		return 0
	} else if i < j {
		return -1
	}
	return 1
}

// ReverseComparator swaps the sign of cmp results. The results are
// normalized into -1, 0 and 1 to avoid the overflow of math.MinInt64.
func ReverseComparator[K any](cmp Comparator[K]) Comparator[K] {
	return func(i, j K) int64 {
		if res := cmp(i, j); res < 0 {
			return 1
		} else if res > 0 {
			return -1
		}
		return 0
	}
}
