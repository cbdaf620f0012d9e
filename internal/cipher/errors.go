package cipher

import "errors"

var (
	// ErrNotPermutation is returned when a substitution table does not map
	// 0..31 onto itself one to one.
	ErrNotPermutation = errors.New("cipher: substitution table is not a permutation")

	// ErrBlockRange is returned for a block with bits set above BlockSize bytes.
	ErrBlockRange = errors.New("cipher: block exceeds 40 bits")
)
