// Package cipher implements a small substitution-permutation block cipher
// with a 40-bit block and a 56-bit key. Each round mixes one key byte into
// the whole block, runs eight 5-bit S-boxes and rotates the block right by
// one byte. A full encryption is six rounds followed by a whitening step
// with the seventh key byte.
package cipher

const (
	// KeySize is the key length in bytes.
	KeySize = 7
	// SBoxSize is the S-box width in bits.
	SBoxSize = 5
	// BlockSize is the block length in bytes.
	BlockSize = 5
	// Rounds is the round count of a full encryption.
	Rounds = KeySize - 1

	// BlockMask selects the meaningful bits of a Block.
	BlockMask Block = 1<<(BlockSize*8) - 1

	sboxMask   = 1<<SBoxSize - 1
	sboxGroups = BlockSize * 8 / SBoxSize
	topShift   = 8 * (BlockSize - 1)
)

// Block holds one cipher block in its low BlockSize bytes.
type Block uint64

// ValidBlock reports whether b fits in BlockSize bytes.
func ValidBlock(b Block) bool { return b&^BlockMask == 0 }

// Cipher carries the forward and inverse substitution tables. The zero
// value is not usable; use Default or NewCipher.
type Cipher struct {
	sbox  Table
	rsbox Table
}

var standardSBox = Table{22, 0, 19, 9, 15, 3, 21, 18, 4, 26, 28, 13, 27, 5, 25, 31,
	29, 12, 24, 6, 23, 8, 2, 11, 16, 30, 14, 10, 20, 7, 17, 1}

var standardRSBox = Table{1, 31, 22, 5, 8, 13, 19, 29, 21, 3, 27, 23, 17, 11, 26, 4,
	24, 30, 7, 2, 28, 6, 0, 20, 18, 14, 9, 12, 10, 16, 25, 15}

// Default returns the cipher with the standard substitution tables.
func Default() *Cipher {
	return &Cipher{sbox: standardSBox, rsbox: standardRSBox}
}

// NewCipher builds a cipher around sbox, deriving the inverse table.
func NewCipher(sbox Table) (*Cipher, error) {
	inv, err := sbox.Inverse()
	if err != nil {
		return nil, err
	}
	return &Cipher{sbox: sbox, rsbox: inv}, nil
}

// SBox returns a copy of the forward substitution table.
func (c *Cipher) SBox() Table { return c.sbox }

// RSBox returns a copy of the inverse substitution table.
func (c *Cipher) RSBox() Table { return c.rsbox }

// AddKey XORs state with k, ^k, k, ... spread over BlockSize bytes, most
// significant byte first. It is its own inverse.
func AddKey(state Block, k byte) Block {
	var expansion Block
	for i := 0; i < BlockSize; i++ {
		b := k
		if i%2 == 1 {
			b ^= 0xFF
		}
		expansion = expansion<<8 | Block(b)
	}
	return state ^ expansion
}

// RotateRight rotates the block right by one byte.
func RotateRight(v Block) Block {
	return v>>8 | (v&0xFF)<<topShift
}

// RotateLeft rotates the block left by one byte.
func RotateLeft(v Block) Block {
	return (v<<8)&BlockMask | v>>topShift
}

// Substitute runs every 5-bit group of state through the forward S-box.
func (c *Cipher) Substitute(state Block) Block { return c.sbox.Apply(state) }

// InvSubstitute runs every 5-bit group of state through the inverse S-box.
func (c *Cipher) InvSubstitute(state Block) Block { return c.rsbox.Apply(state) }

// Step is one forward round: key mixing, substitution, rotation.
func (c *Cipher) Step(state Block, k byte) Block {
	return RotateRight(c.sbox.Apply(AddKey(state, k)))
}

// InvStep undoes Step for the same key byte.
func (c *Cipher) InvStep(state Block, k byte) Block {
	return AddKey(c.rsbox.Apply(RotateLeft(state)), k)
}

// Encrypt applies rounds rounds keyed by key[0], key[1], ... When rounds is
// Rounds the result is whitened with the last key byte; partial encryptions
// stop after the last round. rounds must be in 0..Rounds; Encrypt panics
// when it exceeds KeySize.
func (c *Cipher) Encrypt(plaintext Block, key Key, rounds int) Block {
	state := plaintext
	for i := 0; i < rounds; i++ {
		state = c.Step(state, key[i])
	}
	if rounds == Rounds {
		state = AddKey(state, key[KeySize-1])
	}
	return state
}

// Decrypt is the exact inverse of Encrypt with the same key and rounds.
// rounds must be in 0..Rounds.
func (c *Cipher) Decrypt(ciphertext Block, key Key, rounds int) Block {
	state := ciphertext
	if rounds == Rounds {
		state = AddKey(state, key[KeySize-1])
	}
	for i := rounds - 1; i >= 0; i-- {
		state = c.InvStep(state, key[i])
	}
	return state
}

// DecryptTail peels a full encryption from the back: it removes the
// whitening with key[KeySize-1], then undoes rounds rounds keyed by
// key[KeySize-2], key[KeySize-3], ... The result equals
// Encrypt(plaintext, key, Rounds-rounds) for the matching plaintext, and
// only the last rounds+1 key bytes are read. rounds must be in 0..Rounds.
func (c *Cipher) DecryptTail(ciphertext Block, key Key, rounds int) Block {
	state := AddKey(ciphertext, key[KeySize-1])
	for i := 0; i < rounds; i++ {
		state = c.InvStep(state, key[KeySize-2-i])
	}
	return state
}
