// Package pairs reads and writes known plaintext/ciphertext pair files.
//
// A pairs file starts with one header line, followed by one pair per line:
//
//	plaintext,ciphertext
//	0x00DEADBEEF,0xA85A692205
//
// Each column carries a two character prefix before its hex digits.
package pairs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"keycrack/internal/cipher"
	"keycrack/internal/util"
)

// Header is the first line written by Write.
const Header = "plaintext,ciphertext"

var (
	// ErrNoPairs is returned when a pair set is empty.
	ErrNoPairs = errors.New("pairs: at least one known pair is required")
	// ErrMissingColumn is returned for a line with fewer than two columns.
	ErrMissingColumn = errors.New("pairs: expected plaintext and ciphertext columns")
)

// Pair is one known plaintext and its ciphertext under the unknown key.
type Pair struct {
	Plaintext  cipher.Block `json:"plaintext"`
	Ciphertext cipher.Block `json:"ciphertext"`
}

// Parse reads a pairs file. Blank lines are skipped; the block range is
// not checked here, see Validate.
func Parse(r io.Reader) ([]Pair, error) {
	var out []Pair
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		p, err := ParseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseLine parses a single "plaintext,ciphertext" row.
func ParseLine(text string) (Pair, error) {
	cols := strings.Split(text, ",")
	if len(cols) < 2 {
		return Pair{}, ErrMissingColumn
	}
	pt, err := util.ParsePrefixedHex(cols[0])
	if err != nil {
		return Pair{}, fmt.Errorf("plaintext %q: %w", cols[0], err)
	}
	ct, err := util.ParsePrefixedHex(cols[1])
	if err != nil {
		return Pair{}, fmt.Errorf("ciphertext %q: %w", cols[1], err)
	}
	return Pair{Plaintext: cipher.Block(pt), Ciphertext: cipher.Block(ct)}, nil
}

// Validate checks that ps is non-empty and every block fits in 40 bits.
func Validate(ps []Pair) error {
	if len(ps) == 0 {
		return ErrNoPairs
	}
	for i, p := range ps {
		if !cipher.ValidBlock(p.Plaintext) {
			return fmt.Errorf("pair %d plaintext %#x: %w", i, uint64(p.Plaintext), cipher.ErrBlockRange)
		}
		if !cipher.ValidBlock(p.Ciphertext) {
			return fmt.Errorf("pair %d ciphertext %#x: %w", i, uint64(p.Ciphertext), cipher.ErrBlockRange)
		}
	}
	return nil
}

// Write emits ps in the format Parse reads.
func Write(w io.Writer, ps []Pair) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header); err != nil {
		return err
	}
	for _, p := range ps {
		if _, err := fmt.Fprintf(bw, "0x%0*X,0x%0*X\n", cipher.BlockSize*2, uint64(p.Plaintext), cipher.BlockSize*2, uint64(p.Ciphertext)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Generate encrypts n random plaintexts under key with the full cipher.
func Generate(c *cipher.Cipher, key cipher.Key, n int, rnd *rand.Rand) []Pair {
	out := make([]Pair, n)
	for i := range out {
		pt := cipher.Block(rnd.Uint64()) & cipher.BlockMask
		out[i] = Pair{Plaintext: pt, Ciphertext: c.Encrypt(pt, key, cipher.Rounds)}
	}
	return out
}
