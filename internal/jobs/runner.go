// Package jobs runs key recovery searches in the background and records
// their progress through a Store.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"keycrack/internal/models"
	"keycrack/internal/pairs"
	"keycrack/internal/services/mitm"
)

var ErrNotActive = errors.New("jobs: job is not queued or running")

// Runner executes submitted jobs, at most concurrency at a time.
type Runner struct {
	store Store
	base  mitm.Config
	lg    *zap.SugaredLogger
	sem   chan struct{}

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewRunner returns a runner solving with base. base.Logger is replaced by
// a per-job child of lg.
func NewRunner(store Store, base mitm.Config, concurrency int, lg *zap.SugaredLogger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	root, stop := context.WithCancel(context.Background())
	return &Runner{
		store:   store,
		base:    base,
		lg:      lg,
		sem:     make(chan struct{}, concurrency),
		root:    root,
		stop:    stop,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Submit stores a queued job for ps and starts it in the background.
func (r *Runner) Submit(ctx context.Context, userID, label string, ps []pairs.Pair) (*models.Job, error) {
	if err := pairs.Validate(ps); err != nil {
		return nil, err
	}
	now := time.Now()
	job := models.Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Label:     label,
		PairCount: len(ps),
		Pairs:     models.NewJSONB(ps),
		Status:    models.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Create(ctx, &job); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(r.root)
	r.mu.Lock()
	r.cancels[job.ID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(jobCtx, job.ID, append([]pairs.Pair(nil), ps...))
	r.lg.Infow("job queued", "job_id", job.ID, "label", label, "pairs", len(ps))
	return &job, nil
}

// Cancel stops a queued or running job.
func (r *Runner) Cancel(id string) error {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if !ok {
		return ErrNotActive
	}
	cancel()
	return nil
}

// Wait blocks until every submitted job has finished.
func (r *Runner) Wait() { r.wg.Wait() }

// Shutdown cancels all jobs and waits for them, or for ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.stop()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(ctx context.Context, id string, ps []pairs.Pair) {
	defer r.wg.Done()
	defer r.release(id)
	lg := r.lg.With("job_id", id)

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		r.release(id)
		r.finish(lg, id, mitm.Result{}, ctx.Err())
		return
	}

	job, err := r.store.Get(context.Background(), id)
	if err != nil {
		lg.Errorw("load job failed", "error", err)
		return
	}
	started := time.Now()
	job.Status = models.JobRunning
	job.StartedAt = &started
	job.UpdatedAt = started
	if err := r.store.Update(context.Background(), job); err != nil {
		lg.Errorw("mark running failed", "error", err)
	}

	cfg := r.base
	cfg.Logger = lg
	res, err := mitm.Solve(ctx, ps, cfg)
	r.release(id)
	r.finish(lg, id, res, err)
}

// release forgets the job's cancel func so Cancel reports it inactive
// before its final status is stored. It is safe to call more than once.
func (r *Runner) release(id string) {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	delete(r.cancels, id)
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

func (r *Runner) finish(lg *zap.SugaredLogger, id string, res mitm.Result, err error) {
	job, gerr := r.store.Get(context.Background(), id)
	if gerr != nil {
		lg.Errorw("load job failed", "error", gerr)
		return
	}
	now := time.Now()
	job.FinishedAt = &now
	job.UpdatedAt = now
	job.Tried, job.Hits, job.Collisions = res.Tried, res.Hits, res.Collisions

	switch {
	case errors.Is(err, context.Canceled):
		job.Status = models.JobCanceled
	case err != nil:
		msg := err.Error()
		job.Status = models.JobFailed
		job.Error = &msg
	case res.Found():
		key := res.Key.String()
		job.Status = models.JobFound
		job.KeyHex = &key
	default:
		job.Status = models.JobNotFound
	}
	if uerr := r.store.Update(context.Background(), job); uerr != nil {
		lg.Errorw("store result failed", "error", uerr)
		return
	}
	lg.Infow("job finished", "status", job.Status, "tried", job.Tried, "elapsed", res.Elapsed)
}
