// Package mitm recovers a cipher key from known plaintext/ciphertext pairs
// with a meet-in-the-middle attack.
//
// The key is split into a low half (the first three bytes) and a high half
// (the last four). Encrypting the first plaintext through three rounds
// depends on the low half only; peeling the whitening and three rounds off
// the first ciphertext depends on the high half only. Both land on the same
// midpoint under the right key. Solve indexes every low-half midpoint, then
// scans the high half in parallel and verifies each index hit against all
// pairs.
package mitm

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"keycrack/internal/cipher"
	"keycrack/internal/pairs"
)

// MaxHighSpace is the number of distinct high keys.
const MaxHighSpace = 1 << (cipher.HighKeySize * 8)

const defaultCheckEvery = 1 << 14

// ErrWorkerFault marks a search that ended without a key while one or more
// workers had crashed, so part of the key space was never scanned.
var ErrWorkerFault = errors.New("mitm: worker fault, key space not fully searched")

// Config tunes a search. The zero value searches the full key space with
// one worker per CPU.
type Config struct {
	// Workers is the number of parallel scanners.
	Workers int
	// LowSpace limits the low keys indexed to [0, LowSpace).
	LowSpace uint32
	// HighSpace limits the high keys scanned to [0, HighSpace).
	HighSpace uint64
	// CheckEvery is how many candidates a worker tries between polls of the
	// stop flag.
	CheckEvery uint64
	// ProgressInterval enables periodic progress logging when positive.
	ProgressInterval time.Duration
	Logger           *zap.SugaredLogger
	Cipher           *cipher.Cipher

	// fault runs at the start of every worker when set.
	fault func(worker int)
}

func (cfg Config) withDefaults() Config {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.LowSpace == 0 || cfg.LowSpace > MaxLowSpace {
		cfg.LowSpace = MaxLowSpace
	}
	if cfg.HighSpace == 0 || cfg.HighSpace > MaxHighSpace {
		cfg.HighSpace = MaxHighSpace
	}
	if cfg.CheckEvery == 0 {
		cfg.CheckEvery = defaultCheckEvery
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Cipher == nil {
		cfg.Cipher = cipher.Default()
	}
	return cfg
}

// Verify reports whether key encrypts every plaintext in ps to its
// ciphertext.
func Verify(c *cipher.Cipher, key cipher.Key, ps []pairs.Pair) bool {
	for _, p := range ps {
		if c.Encrypt(p.Plaintext, key, cipher.Rounds) != p.Ciphertext {
			return false
		}
	}
	return true
}

// Solve searches for a key consistent with every pair in ps. Exhausting
// the key space is not an error: the result's Outcome is NotFound. Solve
// returns ctx.Err() when ctx ends before the search does.
func Solve(ctx context.Context, ps []pairs.Pair, cfg Config) (Result, error) {
	if err := pairs.Validate(ps); err != nil {
		return Result{}, err
	}
	cfg = cfg.withDefaults()
	lg := cfg.Logger
	start := time.Now()

	idx, err := BuildIndex(ctx, cfg.Cipher, ps[0].Plaintext, cfg.LowSpace)
	if err != nil {
		return Result{}, err
	}
	lg.Infow("index built",
		"entries", idx.Len(),
		"collisions", idx.Collisions(),
		"elapsed", time.Since(start))

	s := &search{
		c:          cfg.Cipher,
		idx:        idx,
		pairs:      ps,
		checkEvery: cfg.CheckEvery,
		inject:     cfg.fault,
		lg:         lg,
	}
	ranges := Partition(cfg.HighSpace, cfg.Workers)
	lg.Infow("search started", "workers", len(ranges), "high_space", cfg.HighSpace, "pairs", len(ps))

	done := make(chan struct{})
	var reporter sync.WaitGroup
	if cfg.ProgressInterval > 0 {
		reporter.Add(1)
		go func() {
			defer reporter.Done()
			s.report(cfg.ProgressInterval, cfg.HighSpace, start, done)
		}()
	}

	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go s.worker(ctx, i, r, &wg)
	}
	wg.Wait()
	close(done)
	reporter.Wait()

	res := Result{
		Outcome:    NotFound,
		Tried:      s.tried.Load(),
		Hits:       s.hits.Load(),
		Collisions: idx.Collisions(),
		Elapsed:    time.Since(start),
	}
	if s.found {
		res.Outcome = Found
		res.Key = s.key
		lg.Infow("key found", "key", res.Key.String(), "tried", res.Tried, "elapsed", res.Elapsed)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if len(s.faults) > 0 {
		return res, fmt.Errorf("%w: %w", ErrWorkerFault, errors.Join(s.faults...))
	}
	lg.Infow("key space exhausted", "tried", res.Tried, "hits", res.Hits, "elapsed", res.Elapsed)
	return res, nil
}

type search struct {
	c          *cipher.Cipher
	idx        *Index
	pairs      []pairs.Pair
	checkEvery uint64
	inject     func(worker int)
	lg         *zap.SugaredLogger

	stop  atomic.Bool
	tried atomic.Uint64
	hits  atomic.Uint64

	once  sync.Once
	found bool
	key   cipher.Key

	mu     sync.Mutex
	faults []error
}

func (s *search) worker(ctx context.Context, id int, r Range, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if v := recover(); v != nil {
			err := fmt.Errorf("worker %d range [%#x, %#x): %v", id, r.Lo, r.Hi, v)
			s.lg.Errorw("worker crashed", "worker", id, "error", err)
			s.mu.Lock()
			s.faults = append(s.faults, err)
			s.mu.Unlock()
		}
	}()

	var local uint64
	defer func() { s.tried.Add(local) }()

	if s.inject != nil {
		s.inject(id)
	}

	ct := s.pairs[0].Ciphertext
	for h := r.Lo; h < r.Hi; h++ {
		if local == s.checkEvery {
			s.tried.Add(local)
			local = 0
			if s.stop.Load() || ctx.Err() != nil {
				return
			}
		}
		local++

		high := uint32(h)
		mid := s.c.DecryptTail(ct, cipher.JoinKey(0, high), cipher.HighKeySize-1)
		first, rest, ok := s.idx.Lookup(mid)
		if !ok {
			continue
		}
		if s.try(first, high) {
			return
		}
		for _, low := range rest {
			if s.try(low, high) {
				return
			}
		}
	}
}

// try verifies one candidate and records it if it is the first winner.
func (s *search) try(low, high uint32) bool {
	s.hits.Add(1)
	key := cipher.JoinKey(low, high)
	if !Verify(s.c, key, s.pairs) {
		return false
	}
	s.once.Do(func() {
		s.found = true
		s.key = key
		s.stop.Store(true)
	})
	return true
}

func (s *search) report(interval time.Duration, total uint64, start time.Time, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			tried := s.tried.Load()
			elapsed := time.Since(start).Seconds()
			s.lg.Infow("search progress",
				"tried", tried,
				"total", total,
				"percent", 100*float64(tried)/float64(total),
				"rate", float64(tried)/(elapsed+1e-9),
				"hits", s.hits.Load())
		}
	}
}
