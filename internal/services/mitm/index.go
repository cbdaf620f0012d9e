package mitm

import (
	"context"

	"keycrack/internal/cipher"
)

// MaxLowSpace is the number of distinct low keys.
const MaxLowSpace = 1 << (cipher.LowKeySize * 8)

// Index maps the midpoint reached by encrypting the first plaintext
// through the front rounds to the low key that produced it. Every low key
// is kept: the first one lands in primary, later ones for the same
// midpoint go to overflow.
type Index struct {
	primary  map[cipher.Block]uint32
	overflow map[cipher.Block][]uint32
	size     int
}

// BuildIndex encrypts plaintext through cipher.LowKeySize rounds under each
// low key in [0, lowSpace). The trailing key bytes are left zero since a
// partial encryption never reads them.
func BuildIndex(ctx context.Context, c *cipher.Cipher, plaintext cipher.Block, lowSpace uint32) (*Index, error) {
	if lowSpace == 0 || lowSpace > MaxLowSpace {
		lowSpace = MaxLowSpace
	}
	idx := &Index{
		primary:  make(map[cipher.Block]uint32, lowSpace),
		overflow: make(map[cipher.Block][]uint32),
	}
	for low := uint32(0); low < lowSpace; low++ {
		if low&0xFFFF == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		mid := c.Encrypt(plaintext, cipher.JoinKey(low, 0), cipher.LowKeySize)
		idx.insert(mid, low)
	}
	return idx, nil
}

func (idx *Index) insert(mid cipher.Block, low uint32) {
	idx.size++
	if _, ok := idx.primary[mid]; !ok {
		idx.primary[mid] = low
		return
	}
	idx.overflow[mid] = append(idx.overflow[mid], low)
}

// Lookup returns the low keys that reach mid. rest is nil unless mid
// collided during the build.
func (idx *Index) Lookup(mid cipher.Block) (first uint32, rest []uint32, ok bool) {
	first, ok = idx.primary[mid]
	if !ok {
		return 0, nil, false
	}
	return first, idx.overflow[mid], true
}

// Len is the number of low keys indexed.
func (idx *Index) Len() int { return idx.size }

// Collisions is the number of low keys that share a midpoint with an
// earlier one.
func (idx *Index) Collisions() int { return idx.size - len(idx.primary) }
