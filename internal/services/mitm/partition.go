package mitm

// Range is the half-open interval [Lo, Hi) of high keys.
type Range struct {
	Lo, Hi uint64
}

// Len is the number of keys in r.
func (r Range) Len() uint64 { return r.Hi - r.Lo }

// Partition splits [0, space) into at most workers contiguous ranges whose
// sizes differ by at most one. The ranges cover the space exactly.
func Partition(space uint64, workers int) []Range {
	if workers < 1 {
		workers = 1
	}
	n := uint64(workers)
	if space < n {
		n = space
	}
	if n == 0 {
		return nil
	}
	size, extra := space/n, space%n
	out := make([]Range, 0, n)
	var lo uint64
	for i := uint64(0); i < n; i++ {
		hi := lo + size
		if i < extra {
			hi++
		}
		out = append(out, Range{Lo: lo, Hi: hi})
		lo = hi
	}
	return out
}
