// Command genpairs writes a file of known pairs encrypted under a chosen
// key, in the format keycrack reads.
//
//	genpairs [-n 16] [-key C0FFEE15C0FFEE] [-seed 1] [-o pairs.txt]
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"keycrack/internal/cipher"
	"keycrack/internal/pairs"
	"keycrack/internal/util"
)

func main() {
	n := flag.Int("n", 16, "number of pairs")
	keyHex := flag.String("key", "", "key as 14 hex digits (random when empty)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for plaintexts and key")
	out := flag.String("o", "", "output file (stdout when empty)")
	flag.Parse()

	if *n <= 0 {
		fmt.Fprintln(os.Stderr, "n must be positive")
		os.Exit(2)
	}
	rnd := rand.New(rand.NewSource(*seed))

	var key cipher.Key
	if *keyHex == "" {
		key = cipher.KeyFromUint64(rnd.Uint64())
	} else {
		v, err := util.ParseHex(*keyHex)
		if err != nil || v > cipher.MaxKey {
			fmt.Fprintf(os.Stderr, "key must be at most %d hex digits: %q\n", cipher.KeySize*2, *keyHex)
			os.Exit(2)
		}
		key = cipher.KeyFromUint64(v)
	}

	var w io.Writer = os.Stdout
	var f *os.File
	if *out != "" {
		var err error
		if f, err = os.Create(*out); err != nil {
			fmt.Fprintf(os.Stderr, "could not create %s: %v\n", *out, err)
			os.Exit(1)
		}
		w = f
	}

	ps := pairs.Generate(cipher.Default(), key, *n, rnd)
	err := pairs.Write(w, ps)
	if f != nil {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "key: %s\n", key)
}
