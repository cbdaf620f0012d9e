package handlers

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"keycrack/internal/auth"
	"keycrack/internal/cipher"
	"keycrack/internal/pairs"
	"keycrack/internal/util"
)

// CipherInfo describes the cipher parameters.
func CipherInfo(c *cipher.Cipher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]any{
			"key_size":   cipher.KeySize,
			"block_size": cipher.BlockSize,
			"sbox_size":  cipher.SBoxSize,
			"rounds":     cipher.Rounds,
			"sbox":       c.SBox(),
			"rsbox":      c.RSBox(),
		})
	}
}

func parseKey(s string) (cipher.Key, error) {
	v, err := util.ParseHex(s)
	if err != nil {
		return cipher.Key{}, fmt.Errorf("key: %w", err)
	}
	if v > cipher.MaxKey {
		return cipher.Key{}, fmt.Errorf("key %q exceeds %d bytes", s, cipher.KeySize)
	}
	return cipher.KeyFromUint64(v), nil
}

type transformReq struct {
	Key       string `json:"key"`
	Input     string `json:"input"`
	Rounds    int    `json:"rounds,omitempty"`
	Direction string `json:"direction,omitempty"` // ENCRYPT (default) or DECRYPT
}

// Transform encrypts or decrypts one block.
func Transform(c *cipher.Cipher, db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transformReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		key, err := parseKey(req.Key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in, err := util.ParseHex(req.Input)
		if err != nil || !cipher.ValidBlock(cipher.Block(in)) {
			http.Error(w, "input must be a hex block of at most 40 bits", http.StatusBadRequest)
			return
		}
		if req.Rounds == 0 {
			req.Rounds = cipher.Rounds
		}
		if req.Rounds < 1 || req.Rounds > cipher.Rounds {
			http.Error(w, fmt.Sprintf("rounds must be in 1..%d", cipher.Rounds), http.StatusBadRequest)
			return
		}

		dir := strings.ToUpper(strings.TrimSpace(req.Direction))
		var out cipher.Block
		switch dir {
		case "", "ENCRYPT":
			dir = "ENCRYPT"
			out = c.Encrypt(cipher.Block(in), key, req.Rounds)
		case "DECRYPT":
			out = c.Decrypt(cipher.Block(in), key, req.Rounds)
		default:
			http.Error(w, "direction must be ENCRYPT or DECRYPT", http.StatusBadRequest)
			return
		}
		recordAudit(db, lg, auth.Subject(r.Context()), "", "CIPHER_"+dir, map[string]any{"rounds": req.Rounds})
		respondJSON(w, map[string]any{
			"direction": dir,
			"rounds":    req.Rounds,
			"input":     fmt.Sprintf("0x%010X", in),
			"output":    fmt.Sprintf("0x%010X", uint64(out)),
		})
	}
}

type generateReq struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	Seed  *int64 `json:"seed,omitempty"`
}

// MaxGeneratedPairs caps GeneratePairs.
const MaxGeneratedPairs = 1000

// GeneratePairs returns a pairs file for a caller-chosen key.
func GeneratePairs(c *cipher.Cipher, db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		key, err := parseKey(req.Key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Count <= 0 {
			req.Count = 8
		}
		if req.Count > MaxGeneratedPairs {
			http.Error(w, fmt.Sprintf("count must be <= %d", MaxGeneratedPairs), http.StatusBadRequest)
			return
		}
		seed := time.Now().UnixNano()
		if req.Seed != nil {
			seed = *req.Seed
		}
		ps := pairs.Generate(c, key, req.Count, rand.New(rand.NewSource(seed)))
		recordAudit(db, lg, auth.Subject(r.Context()), "", "PAIRS_GENERATE", map[string]any{"count": req.Count})

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="pairs.txt"`)
		if err := pairs.Write(w, ps); err != nil {
			lg.Warnw("write pairs failed", "error", err)
		}
	}
}
