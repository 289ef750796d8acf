// Package dispatch advances a run phase by phase: it selects pending items in
// the current phase, executes them in bounded concurrent batches, persists
// every individual result, and halts on the first failed batch so the run
// stays resumable from exactly that point.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/worker"
)

// ErrPaused indicates the run was interrupted and its pause marker persisted.
var ErrPaused = errors.New("run paused")

// Dispatcher drives one run. All state mutation goes through the store so
// every result survives a crash.
type Dispatcher struct {
	store    *state.Store
	exec     ItemExecutor
	feed     worker.Feed
	registry *worker.Registry
	log      logger.Logger
	reload   func() (config.Options, bool)
}

func New(store *state.Store, exec ItemExecutor, feed worker.Feed, registry *worker.Registry, log logger.Logger) *Dispatcher {
	return &Dispatcher{store: store, exec: exec, feed: feed, registry: registry, log: log}
}

// Run advances phases until the run completes, an item fails, or the context
// is cancelled. Cancellation persists a pause marker and returns ErrPaused.
func (d *Dispatcher) Run(ctx context.Context, rs *state.RunState) error {
	if err := d.recover(rs); err != nil {
		return err
	}

	for rs.CurrentPhase <= rs.TotalPhases {
		if ctx.Err() != nil {
			return d.pause(rs)
		}
		if err := d.dispatchPhase(ctx, rs); err != nil {
			if ctx.Err() != nil {
				return d.pause(rs)
			}
			return err
		}
	}

	d.log.Info("run complete",
		logger.F("run_id", rs.RunID),
		logger.F("phases", rs.TotalPhases))
	return nil
}

// recover clears a stale pause marker and re-queues items a previous process
// left in_progress, so a resumed run picks them up again.
func (d *Dispatcher) recover(rs *state.RunState) error {
	dirty := rs.PausedAt != nil
	rs.PausedAt = nil
	for i := range rs.Items {
		if rs.Items[i].Status == item.StatusInProgress {
			d.log.Warn("re-queueing interrupted item", logger.F("item", rs.Items[i].ID))
			rs.Items[i].Status = item.StatusPending
			dirty = true
		}
	}
	if !dirty {
		return nil
	}
	return d.store.Save(rs)
}

// SetReload installs a hook consulted at each phase boundary. When it
// reports changed options, the run's tuning knobs (parallelism, model order,
// worker timeout) are updated without a restart.
func (d *Dispatcher) SetReload(fn func() (config.Options, bool)) {
	d.reload = fn
}

func (d *Dispatcher) applyReload(rs *state.RunState) {
	if d.reload == nil {
		return
	}
	opts, changed := d.reload()
	if !changed {
		return
	}
	rs.Options.MaxParallel = opts.MaxParallel
	rs.Options.Models = opts.Models
	rs.Options.WorkerTimeout = opts.WorkerTimeout
	d.log.Info("options reloaded",
		logger.F("max_parallel", opts.MaxParallel),
		logger.F("models", len(opts.Models)))
}

// dispatchPhase runs the current phase's pending items. With nothing pending
// it just advances the pointer, which makes re-dispatch idempotent.
func (d *Dispatcher) dispatchPhase(ctx context.Context, rs *state.RunState) error {
	d.applyReload(rs)

	phase := rs.Phases[rs.CurrentPhase-1]
	var pending []string
	for _, id := range phase {
		if it, ok := rs.Item(id); ok && it.Status == item.StatusPending {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		rs.CurrentPhase++
		return d.store.Save(rs)
	}

	maxParallel := rs.Options.MaxParallel
	if maxParallel < 1 {
		maxParallel = 1
	}
	// Residual cycle items run strictly one at a time.
	if rs.CycleFallback && rs.CurrentPhase == rs.TotalPhases {
		d.log.Warn("phase holds an unresolved dependency cycle, running sequentially",
			logger.F("phase", rs.CurrentPhase),
			logger.F("items", len(pending)))
		maxParallel = 1
	}

	d.log.Info("dispatching phase",
		logger.F("phase", rs.CurrentPhase),
		logger.F("total_phases", rs.TotalPhases),
		logger.F("pending", len(pending)),
		logger.F("max_parallel", maxParallel))

	d.reassignUnavailable(rs, pending)

	for start := 0; start < len(pending); start += maxParallel {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		end := start + maxParallel
		if end > len(pending) {
			end = len(pending)
		}
		failed, err := d.runBatch(ctx, rs, pending[start:end])
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("phase %d halted: %d item(s) failed, fix and resume", rs.CurrentPhase, failed)
		}
	}
	return nil
}

type itemResult struct {
	id     string
	worker string
	res    Result
}

// runBatch marks a batch in_progress, executes its items concurrently, and
// persists each result as it arrives so a mid-batch crash loses no
// completed work.
func (d *Dispatcher) runBatch(ctx context.Context, rs *state.RunState, ids []string) (int, error) {
	for _, id := range ids {
		if err := d.store.UpdateItemStatus(rs, id, item.StatusInProgress); err != nil {
			return 0, err
		}
	}

	results := make(chan itemResult, len(ids))
	for _, id := range ids {
		it, _ := rs.Item(id)
		snapshot := *it
		go func() {
			results <- itemResult{
				id:     snapshot.ID,
				worker: snapshot.Worker,
				res:    d.exec.Execute(ctx, &snapshot, rs.Options),
			}
		}()
	}

	failed := 0
	for range ids {
		r := <-results
		rs.AddUsage(r.worker, r.res.Usage)

		// An interrupt kills in-flight workers; those items were not tried
		// and failed, they were never finished. Re-queue them so a resume
		// runs them again instead of advancing past the phase.
		if !r.res.Success && ctx.Err() != nil {
			d.log.Info("item interrupted, re-queued",
				logger.F("item", r.id),
				logger.F("worker", r.worker))
			if err := d.store.UpdateItemStatus(rs, r.id, item.StatusPending); err != nil {
				return failed, err
			}
			continue
		}

		status := item.StatusCompleted
		if !r.res.Success {
			status = item.StatusFailed
			failed++
			if it, ok := rs.Item(r.id); ok {
				it.Reason = r.res.Reason
			}
			d.log.Error("item failed",
				logger.F("item", r.id),
				logger.F("worker", r.worker),
				logger.F("reason", r.res.Reason))
		} else {
			d.log.Info("item completed",
				logger.F("item", r.id),
				logger.F("worker", r.worker))
		}
		if err := d.store.UpdateItemStatus(rs, r.id, status); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// reassignUnavailable consults the advisory availability feed once per phase
// and moves items off workers that appear exhausted. Absence of signal means
// no reassignment; the feed is never fatal.
func (d *Dispatcher) reassignUnavailable(rs *state.RunState, ids []string) {
	if d.feed == nil || d.registry == nil {
		return
	}
	avail := worker.StaticFeed(d.feed.Availability())
	if avail == nil {
		return
	}

	for _, id := range ids {
		it, ok := rs.Item(id)
		if !ok {
			continue
		}
		w, err := d.registry.Get(it.Worker)
		if err != nil || worker.Available(avail, w.Name()) {
			continue
		}
		for _, candidate := range rs.Options.Models {
			cw, err := d.registry.Get(candidate)
			if err != nil || cw.Name() == w.Name() || !worker.Available(avail, cw.Name()) {
				continue
			}
			d.log.Warn("reassigning item, preferred worker unavailable",
				logger.F("item", id),
				logger.F("from", it.Worker),
				logger.F("to", candidate))
			it.Worker = candidate
			break
		}
	}
}

func (d *Dispatcher) pause(rs *state.RunState) error {
	now := time.Now().UTC()
	rs.PausedAt = &now
	if err := d.store.Save(rs); err != nil {
		return err
	}
	d.log.Info("run paused", logger.F("run_id", rs.RunID))
	return ErrPaused
}
