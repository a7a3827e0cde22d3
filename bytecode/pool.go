package bytecode

import (
	"slices"
)

// MAX_POOL is the number of entries addressable by a 16-bit operand.
const MAX_POOL = 0x10000

// ConstantPool is an append-only, deduplicating constant store.
type ConstantPool struct {
	constants []Constant
	index     map[string]int
}

// Add a constant, returning its index. A constant equal by kind and value
// to one already in the pool returns the existing index.
func (pool *ConstantPool) Add(c Constant) (index int) {
	return pool.insert(c.key(), c)
}

// Defer reserves a code constant for a symbol whose code object is not yet
// known. The same symbol always returns the same index.
func (pool *ConstantPool) Defer(symbol string) (index int) {
	return pool.insert("@"+symbol, Constant{Kind: CONST_CODE})
}

// Resolve binds the code object of a deferred constant.
func (pool *ConstantPool) Resolve(index int, code *Code) {
	pool.constants[index].Code = code
}

func (pool *ConstantPool) insert(key string, c Constant) (index int) {
	index, ok := pool.index[key]
	if ok {
		return
	}

	if pool.index == nil {
		pool.index = make(map[string]int, 16)
	}

	index = len(pool.constants)
	pool.constants = append(pool.constants, c)
	pool.index[key] = index

	return
}

// Len returns the number of constants in the pool.
func (pool *ConstantPool) Len() int {
	return len(pool.constants)
}

// Get returns the constant at index.
func (pool *ConstantPool) Get(index int) Constant {
	return pool.constants[index]
}

// Constants returns a copy of the pool contents, in index order.
func (pool *ConstantPool) Constants() []Constant {
	return slices.Clone(pool.constants)
}

// IdentifierPool is an append-only, deduplicating name store.
type IdentifierPool struct {
	names []string
	index map[string]int
}

// Add a name, returning its index.
func (pool *IdentifierPool) Add(name string) (index int) {
	index, ok := pool.index[name]
	if ok {
		return
	}

	if pool.index == nil {
		pool.index = make(map[string]int, 16)
	}

	index = len(pool.names)
	pool.names = append(pool.names, name)
	pool.index[name] = index

	return
}

// Len returns the number of names in the pool.
func (pool *IdentifierPool) Len() int {
	return len(pool.names)
}

// Identifiers returns a copy of the pool contents, in index order.
func (pool *IdentifierPool) Identifiers() []string {
	return slices.Clone(pool.names)
}
