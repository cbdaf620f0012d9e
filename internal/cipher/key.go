package cipher

import "fmt"

const (
	// LowKeySize is the number of leading key bytes covered by the
	// precomputed half of the attack.
	LowKeySize = 3
	// HighKeySize is the number of trailing key bytes covered by the
	// searched half.
	HighKeySize = KeySize - LowKeySize

	// MaxKey is the largest key as a big-endian integer.
	MaxKey = 1<<(KeySize*8) - 1
)

// Key is a full cipher key, key[0] first.
type Key [KeySize]byte

// KeyFromUint64 unpacks the low KeySize bytes of v, big-endian.
func KeyFromUint64(v uint64) Key {
	var k Key
	for i := KeySize - 1; i >= 0; i-- {
		k[i] = byte(v)
		v >>= 8
	}
	return k
}

// Uint64 packs the key big-endian.
func (k Key) Uint64() uint64 {
	var v uint64
	for _, b := range k {
		v = v<<8 | uint64(b)
	}
	return v
}

// String renders the key as 0x followed by 14 upper-case hex digits.
func (k Key) String() string {
	return fmt.Sprintf("0x%0*X", KeySize*2, k.Uint64())
}

// Low returns the leading LowKeySize bytes as an integer.
func (k Key) Low() uint32 {
	return uint32(k[0])<<16 | uint32(k[1])<<8 | uint32(k[2])
}

// High returns the trailing HighKeySize bytes as an integer.
func (k Key) High() uint32 {
	return uint32(k[3])<<24 | uint32(k[4])<<16 | uint32(k[5])<<8 | uint32(k[6])
}

// LowBytes splits the low 24 bits of v into bytes, big-endian.
func LowBytes(v uint32) [LowKeySize]byte {
	return [LowKeySize]byte{byte(v >> 16), byte(v >> 8), byte(v)}
}

// HighBytes splits v into bytes, big-endian.
func HighBytes(v uint32) [HighKeySize]byte {
	return [HighKeySize]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// JoinKey concatenates the low and high halves into a full key.
func JoinKey(low, high uint32) Key {
	var k Key
	lb, hb := LowBytes(low), HighBytes(high)
	copy(k[:LowKeySize], lb[:])
	copy(k[LowKeySize:], hb[:])
	return k
}
