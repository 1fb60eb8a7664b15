package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/the-lightning-land/netwatchd/alert"
	"github.com/the-lightning-land/netwatchd/network"
	"github.com/the-lightning-land/netwatchd/probe"
)

type fakeTask struct {
	mu      sync.Mutex
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTask) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := !t.stopped && !t.fired
	t.stopped = true

	return pending
}

// fire runs the callback unless the task was stopped.
func (t *fakeTask) fire() bool {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	t.mu.Unlock()

	t.f()

	return true
}

func (t *fakeTask) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stopped
}

// fakeTimer records scheduled tasks and only runs them when told to.
type fakeTimer struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

func (t *fakeTimer) AfterFunc(d time.Duration, f func()) Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	task := &fakeTask{delay: d, f: f}
	t.tasks = append(t.tasks, task)

	return task
}

func (t *fakeTimer) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.tasks)
}

func (t *fakeTimer) task(i int) *fakeTask {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.tasks[i]
}

func (t *fakeTimer) delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	delays := make([]time.Duration, len(t.tasks))
	for i, task := range t.tasks {
		delays[i] = task.delay
	}

	return delays
}

// recordingTimer schedules for real and remembers the delays.
type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (t *recordingTimer) AfterFunc(d time.Duration, f func()) Task {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()

	return time.AfterFunc(d, f)
}

func (t *recordingTimer) recorded() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]time.Duration(nil), t.delays...)
}

// manualProber blocks every probe until the test hands it a result.
type manualProber struct {
	calls     chan string
	results   chan probe.Result
	cancelled int32
}

func newManualProber() *manualProber {
	return &manualProber{
		calls:   make(chan string, 16),
		results: make(chan probe.Result),
	}
}

func (p *manualProber) Probe(ctx context.Context, target string, wait time.Duration) probe.Result {
	p.calls <- target

	select {
	case res := <-p.results:
		return res
	case <-ctx.Done():
		atomic.AddInt32(&p.cancelled, 1)
		return probe.Result{Err: ctx.Err()}
	}
}

// scriptedProber answers immediately, replaying its script and repeating
// the last entry.
type scriptedProber struct {
	mu     sync.Mutex
	script []bool
	calls  int
}

func (p *scriptedProber) Probe(ctx context.Context, target string, wait time.Duration) probe.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	replied := false
	if len(p.script) > 0 {
		i := p.calls
		if i >= len(p.script) {
			i = len(p.script) - 1
		}
		replied = p.script[i]
	}
	p.calls++

	if replied {
		return probe.Result{Replied: true, RTT: time.Millisecond}
	}

	return probe.Result{}
}

type spyNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *spyNotifier) OnConnected(kind network.ConnectionType) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, "connected:"+kind.String())
}

func (n *spyNotifier) OnDisconnected() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, "disconnected")
}

func (n *spyNotifier) recorded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.events...)
}

type spyAlerter struct {
	mu    sync.Mutex
	shown map[uint32]*alert.Alert
	shows []*alert.Alert
	hides int
}

func newSpyAlerter() *spyAlerter {
	return &spyAlerter{
		shown: make(map[uint32]*alert.Alert),
	}
}

func (a *spyAlerter) Show(key uint32, al *alert.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.shown[key] = al
	a.shows = append(a.shows, al)

	return nil
}

func (a *spyAlerter) Hide(key uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.hides++

	if _, ok := a.shown[key]; !ok {
		return alert.ErrNoAlert
	}

	delete(a.shown, key)

	return nil
}

func (a *spyAlerter) visible(key uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.shown[key]

	return ok
}

func (a *spyAlerter) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.shows), a.hides
}

func (a *spyAlerter) last() *alert.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.shows) == 0 {
		return nil
	}

	return a.shows[len(a.shows)-1]
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", what)
}

func snapshot(t *testing.T, w *Watcher) Snapshot {
	t.Helper()

	s, err := w.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	return s
}
