// Command keycrack recovers the key behind a file of known
// plaintext/ciphertext pairs.
//
//	keycrack [-workers N] [-progress 10s] <pairs-file>
//
// It prints "<pairs-file>: 0x<key>" on success. Exit status is 1 when no
// key exists in the key space, 2 for bad input, 3 when a search worker
// failed and 130 when interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"keycrack/internal/config"
	"keycrack/internal/logger"
	"keycrack/internal/pairs"
	"keycrack/internal/services/mitm"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	workers := flag.Int("workers", cfg.Workers, "number of parallel search workers")
	progress := flag.Duration("progress", cfg.ProgressInterval, "progress log interval (0 disables)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <pairs-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}
	path := flag.Arg(0)

	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read input file: %v\n", err)
		return 2
	}
	ps, err := pairs.Parse(f)
	f.Close()
	if err == nil {
		err = pairs.Validate(ps)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := mitm.Solve(ctx, ps, mitm.Config{
		Workers:          *workers,
		ProgressInterval: *progress,
		Logger:           lg.With("input", path),
	})
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "interrupted")
		return 130
	case err != nil:
		lg.Errorw("search failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 3
	}
	fmt.Println(res.Format(path))
	if !res.Found() {
		return 1
	}
	return 0
}
