package handlers

import (
	"context"
	"testing"
	"time"

	"keycrack/internal/cipher"
	"keycrack/internal/jobs"
	"keycrack/internal/models"
	"keycrack/internal/pairs"
	"keycrack/internal/services/mitm"
)

func TestCancelUserJobs(t *testing.T) {
	store := newFakeStore()
	// The full high key space keeps both jobs active until canceled.
	runner := jobs.NewRunner(store, mitm.Config{Workers: 1, LowSpace: 16, CheckEvery: 64}, 1, nop)

	ps := []pairs.Pair{{Plaintext: 0x00DEADBEEF, Ciphertext: cipher.Default().Encrypt(0x00DEADBEEF, cipher.KeyFromUint64(0xC0FFEE15FFFFEE), cipher.Rounds)}}
	ctx := context.Background()
	alice, err := runner.Submit(ctx, "alice", "a.txt", ps)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	bob, err := runner.Submit(ctx, "bob", "b.txt", ps)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if n := cancelUserJobs(ctx, runner, store, "alice", nop); n != 1 {
		t.Fatalf("canceled %d jobs, want 1", n)
	}
	if err := runner.Cancel(bob.ID); err != nil {
		t.Fatalf("bob's job should still be active: %v", err)
	}

	sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := runner.Shutdown(sctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	got, _ := store.Get(ctx, alice.ID)
	if got.Status != models.JobCanceled {
		t.Fatalf("alice's job status = %s", got.Status)
	}
	if n := cancelUserJobs(ctx, runner, store, "alice", nop); n != 0 {
		t.Errorf("finished jobs canceled again: %d", n)
	}
}
