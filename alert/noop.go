package alert

import "sync"

// LogAlerter writes alerts to the log, for hosts without a desktop.
type LogAlerter struct {
	log   Logger
	mu    sync.Mutex
	shown map[uint32]*Alert
}

func NewLogAlerter(logger Logger) *LogAlerter {
	alerter := &LogAlerter{
		shown: make(map[uint32]*Alert),
	}

	if logger != nil {
		alerter.log = logger
	} else {
		alerter.log = noopLogger{}
	}

	return alerter
}

func (l *LogAlerter) Show(key uint32, a *Alert) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.shown[key] = a
	l.log.Warnf("%v", a.Title)

	return nil
}

func (l *LogAlerter) Hide(key uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.shown[key]
	if !ok {
		return ErrNoAlert
	}

	delete(l.shown, key)
	l.log.Infof("Cleared alert: %v", a.Title)

	return nil
}

type NoopAlerter struct {
}

func NewNoopAlerter() *NoopAlerter {
	return &NoopAlerter{}
}

func (n *NoopAlerter) Show(key uint32, a *Alert) error {
	return nil
}

func (n *NoopAlerter) Hide(key uint32) error {
	return nil
}
