package internal

import (
	"iter"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

type node struct {
	name string
	kids []*node
}

func kids(n *node) iter.Seq[*node] {
	return slices.Values(n.kids)
}

func TestIterTree(t *testing.T) {
	assert := assert.New(t)

	root := &node{name: "a", kids: []*node{
		{name: "b", kids: []*node{{name: "c"}}},
		{name: "d"},
	}}

	var names []string
	var depths []int
	for depth, n := range IterTree(root, kids) {
		names = append(names, n.name)
		depths = append(depths, depth)
	}

	assert.Equal([]string{"a", "b", "c", "d"}, names)
	assert.Equal([]int{0, 1, 2, 1}, depths)

	// Early termination.
	names = names[:0]
	for _, n := range IterTree(root, kids) {
		names = append(names, n.name)
		if n.name == "c" {
			break
		}
	}
	assert.Equal([]string{"a", "b", "c"}, names)
}
