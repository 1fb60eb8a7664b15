package connectivity

import (
	"context"
	"time"

	"github.com/the-lightning-land/netwatchd/probe"
)

// maxBackoffCounter bounds the counter before squaring it.
const maxBackoffCounter = 1 << 15

// BackoffDelay returns counter² × multiplier, capped at maxDelay.
func BackoffDelay(counter int, multiplier time.Duration, maxDelay time.Duration) time.Duration {
	if counter <= 0 || multiplier <= 0 {
		return 0
	}

	if counter > maxBackoffCounter {
		return maxDelay
	}

	square := time.Duration(counter * counter)
	delay := square * multiplier

	if delay/multiplier != square || delay > maxDelay {
		return maxDelay
	}

	return delay
}

// startCycle replaces any outstanding cycle with a new one that may use up
// to budget attempts.
func (w *Watcher) startCycle(budget int) {
	if budget <= 0 {
		budget = 1
	}

	w.cancelPending()

	w.budget = budget
	w.phase = Probing

	gen := w.gen
	delay := BackoffDelay(w.counter, w.multiplier, w.maxDelay)

	w.log.Debugf("Scheduling probe in %v (attempt %d, %d left)", delay, w.counter+1, budget)

	w.pending = w.timer.AfterFunc(delay, func() {
		w.post(func() {
			w.tick(gen)
		})
	})
}

// cancelPending drops the scheduled tick and any in-flight probe. Callbacks
// that already fired are ignored by their generation.
func (w *Watcher) cancelPending() {
	w.gen++

	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}

	if w.cancelProbe != nil {
		w.cancelProbe()
		w.cancelProbe = nil
	}
}

func (w *Watcher) tick(gen uint64) {
	if gen != w.gen {
		return
	}

	w.pending = nil
	w.probes++

	ctx, cancel := context.WithTimeout(context.Background(), w.wait)
	w.cancelProbe = cancel

	prober, target, wait := w.prober, w.target, w.wait

	go func() {
		defer cancel()

		res := prober.Probe(ctx, target, wait)

		w.post(func() {
			w.handleResult(gen, res)
		})
	}()
}

func (w *Watcher) handleResult(gen uint64, res probe.Result) {
	if gen != w.gen {
		w.log.Debugf("Dropping stale probe result")
		return
	}

	w.cancelProbe = nil

	if res.Replied {
		w.log.Debugf("Reply from %v after %v", w.target, res.RTT)

		w.budget = 1
		w.phase = Idle
		w.reconcile(Connected)

		return
	}

	if res.Err != nil {
		w.log.Debugf("Probe to %v failed: %v", w.target, res.Err)
	} else {
		w.log.Debugf("No reply from %v within %v", w.target, w.wait)
	}

	if w.budget <= 1 {
		w.phase = Idle
		w.reconcile(Disconnected)

		return
	}

	w.counter++
	w.startCycle(w.budget - 1)
}
