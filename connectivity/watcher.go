// Package connectivity decides whether the host is online by combining OS
// connectivity events with ICMP echo probes, and tells the host application
// and the user about every transition.
package connectivity

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/netwatchd/alert"
	"github.com/the-lightning-land/netwatchd/network"
	"github.com/the-lightning-land/netwatchd/probe"
)

// AlertID identifies the disconnect alert.
const AlertID uint32 = 987231393

const (
	DefaultTarget      = "8.8.8.8"
	DefaultProbeWait   = time.Second
	DefaultMultiplier  = 20 * time.Millisecond
	DefaultMaxDelay    = 60 * time.Second
	DefaultEventBudget = 1
)

const (
	lifecycleNew int32 = iota
	lifecycleRunning
	lifecycleStopped
)

var (
	ErrNotRunning        = errors.New("watcher is not running")
	ErrAlreadyRegistered = errors.New("a network is already registered")
)

// AlertConfig controls the disconnect alert. Its zero value disables
// alerts, DefaultAlertConfig matches the documented defaults.
type AlertConfig struct {
	Enabled    bool
	Cancelable bool
	Message    string
	Icon       string
}

func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		Enabled:    true,
		Cancelable: true,
	}
}

type Config struct {
	Prober   Prober
	Alerter  Alerter
	Timer    Timer
	Logger   Logger
	Notifier Notifier

	Target    string
	ProbeWait time.Duration

	Multiplier time.Duration
	MaxDelay   time.Duration

	// EventBudget is the repeat budget of cycles started by network events.
	EventBudget int

	Alert AlertConfig
	// Template replaces the alert that is otherwise built from Alert on the
	// first disconnect.
	Template *alert.Alert
}

// Watcher is the single authority on connectivity. All of its state is
// owned by one event loop goroutine; public methods hand work to that loop
// and wait for it.
type Watcher struct {
	prober  Prober
	alerter Alerter
	timer   Timer
	log     Logger

	target      string
	wait        time.Duration
	multiplier  time.Duration
	maxDelay    time.Duration
	eventBudget int

	state       State
	changedAt   time.Time
	counter     int
	budget      int
	phase       Phase
	gen         uint64
	pending     Task
	cancelProbe context.CancelFunc
	probes      uint64
	notifier    Notifier
	alertCfg    AlertConfig
	template    *alert.Alert
	alertShown  bool
	network     network.Network
	client      *network.Client

	ops       chan func()
	quit      chan struct{}
	done      chan struct{}
	lifecycle int32
}

func NewWatcher(config *Config) *Watcher {
	w := &Watcher{
		prober:      config.Prober,
		alerter:     config.Alerter,
		timer:       config.Timer,
		target:      config.Target,
		wait:        config.ProbeWait,
		multiplier:  config.Multiplier,
		maxDelay:    config.MaxDelay,
		eventBudget: config.EventBudget,
		budget:      1,
		notifier:    config.Notifier,
		alertCfg:    config.Alert,
		template:    config.Template,
		ops:         make(chan func()),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	if config.Logger != nil {
		w.log = config.Logger
	} else {
		w.log = noopLogger{}
	}

	if w.prober == nil {
		w.prober = probe.NewIcmpProber(nil)
	}

	if w.alerter == nil {
		w.alerter = alert.NewNoopAlerter()
	}

	if w.timer == nil {
		w.timer = realTimer{}
	}

	if w.target == "" {
		w.target = DefaultTarget
	}

	if w.wait <= 0 {
		w.wait = DefaultProbeWait
	}

	if w.multiplier <= 0 {
		w.multiplier = DefaultMultiplier
	}

	if w.maxDelay <= 0 {
		w.maxDelay = DefaultMaxDelay
	}

	if w.eventBudget <= 0 {
		w.eventBudget = DefaultEventBudget
	}

	return w
}

func (w *Watcher) Start() error {
	if !atomic.CompareAndSwapInt32(&w.lifecycle, lifecycleNew, lifecycleRunning) {
		return errors.New("watcher can only be started once")
	}

	go w.run()

	w.log.Infof("Started watching %v", w.target)

	return nil
}

// Stop tears down like Unregister and ends the event loop.
func (w *Watcher) Stop() error {
	if atomic.LoadInt32(&w.lifecycle) != lifecycleRunning {
		return nil
	}

	err := w.Unregister()

	if !atomic.CompareAndSwapInt32(&w.lifecycle, lifecycleRunning, lifecycleStopped) {
		return nil
	}

	close(w.quit)
	<-w.done

	w.log.Infof("Stopped watching")

	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	for {
		select {
		case op := <-w.ops:
			op()
		case <-w.quit:
			return
		}
	}
}

// do runs op on the event loop and waits for its result.
func (w *Watcher) do(op func() error) error {
	if atomic.LoadInt32(&w.lifecycle) != lifecycleRunning {
		return ErrNotRunning
	}

	errChan := make(chan error, 1)

	select {
	case w.ops <- func() { errChan <- op() }:
	case <-w.quit:
		return ErrNotRunning
	}

	return <-errChan
}

// post queues op on the event loop without waiting. Ops posted after Stop
// are dropped.
func (w *Watcher) post(op func()) {
	select {
	case w.ops <- op:
	case <-w.quit:
	}
}

// CheckState restarts probing with the current repeat budget.
func (w *Watcher) CheckState() error {
	return w.do(func() error {
		w.check(w.budget)
		return nil
	})
}

// CheckStateWithBudget restarts probing, allowing budget attempts before a
// missing reply counts as a disconnect.
func (w *Watcher) CheckStateWithBudget(budget int) error {
	return w.do(func() error {
		w.check(budget)
		return nil
	})
}

func (w *Watcher) check(budget int) {
	w.counter = 0
	w.startCycle(budget)
}

// HideAlert hides the disconnect alert if one is shown.
func (w *Watcher) HideAlert() error {
	return w.do(func() error {
		w.hideAlert()
		return nil
	})
}

func (w *Watcher) SetNotifier(notifier Notifier) error {
	return w.do(func() error {
		w.notifier = notifier
		return nil
	})
}

func (w *Watcher) SetAlertEnabled(enabled bool) error {
	return w.do(func() error {
		w.alertCfg.Enabled = enabled
		return nil
	})
}

// SetCancelable, SetMessage and SetIcon only affect the alert template
// until it was built on the first disconnect.
func (w *Watcher) SetCancelable(cancelable bool) error {
	return w.do(func() error {
		w.alertCfg.Cancelable = cancelable
		return nil
	})
}

func (w *Watcher) SetMessage(message string) error {
	return w.do(func() error {
		w.alertCfg.Message = message
		return nil
	})
}

func (w *Watcher) SetIcon(icon string) error {
	return w.do(func() error {
		w.alertCfg.Icon = icon
		return nil
	})
}

func (w *Watcher) SetAlertTemplate(template *alert.Alert) error {
	return w.do(func() error {
		w.template = template
		return nil
	})
}

func (w *Watcher) Snapshot() (Snapshot, error) {
	var s Snapshot

	err := w.do(func() error {
		s = Snapshot{
			State:      w.state,
			Phase:      w.phase,
			Counter:    w.counter,
			Budget:     w.budget,
			NextDelay:  BackoffDelay(w.counter, w.multiplier, w.maxDelay),
			ChangedAt:  w.changedAt,
			Probes:     w.probes,
			Registered: w.client != nil,
		}

		if w.state == Connected {
			s.Type = w.connectionType()
		}

		return nil
	})

	return s, err
}
