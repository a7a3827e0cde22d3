package internal

import (
	"iter"
)

// IterTree walks a tree depth first, pre-order, yielding each node with its
// depth below root.
func IterTree[T any](root T, children func(T) iter.Seq[T]) iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		iterTree(root, 0, children, yield)
	}
}

func iterTree[T any](node T, depth int, children func(T) iter.Seq[T], yield func(int, T) bool) bool {
	if !yield(depth, node) {
		return false
	}

	for child := range children(node) {
		if !iterTree(child, depth+1, children, yield) {
			return false // Stop if the consumer stops
		}
	}

	return true
}
