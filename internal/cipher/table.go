package cipher

// Table is a 5-bit substitution table.
type Table [1 << SBoxSize]byte

// Apply substitutes each 5-bit group of the block, most significant group
// first.
func (t *Table) Apply(state Block) Block {
	var result Block
	for i := 0; i < sboxGroups; i++ {
		result = result<<SBoxSize | Block(t[(state>>(SBoxSize*(sboxGroups-i-1)))&sboxMask])
	}
	return result
}

// Inverse returns the table u with u[t[x]] == x for every x. It fails with
// ErrNotPermutation unless t is a permutation of 0..31.
func (t *Table) Inverse() (Table, error) {
	var inv Table
	var seen [len(t)]bool
	for x, y := range t {
		if int(y) >= len(t) || seen[y] {
			return Table{}, ErrNotPermutation
		}
		seen[y] = true
		inv[y] = byte(x)
	}
	return inv, nil
}
