package alert

import (
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/go-errors/errors"
)

type BeeepConfig struct {
	Logger Logger
}

// BeeepAlerter uses the platform notification backend of beeep. Those
// notifications cannot be withdrawn, so Hide only forgets them.
type BeeepAlerter struct {
	log    Logger
	notify func(title, message, icon string) error
	mu     sync.Mutex
	shown  map[uint32]struct{}
}

func NewBeeepAlerter(config *BeeepConfig) *BeeepAlerter {
	alerter := &BeeepAlerter{
		notify: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
		shown: make(map[uint32]struct{}),
	}

	if config != nil && config.Logger != nil {
		alerter.log = config.Logger
	} else {
		alerter.log = noopLogger{}
	}

	return alerter
}

func (b *BeeepAlerter) Show(key uint32, a *Alert) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.notify(a.Title, a.Body, a.Icon)
	if err != nil {
		return errors.Errorf("could not show notification: %v", err)
	}

	b.shown[key] = struct{}{}

	return nil
}

func (b *BeeepAlerter) Hide(key uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.shown[key]; !ok {
		return ErrNoAlert
	}

	delete(b.shown, key)

	b.log.Debugf("Alert %v can not be withdrawn, forgetting it", key)

	return nil
}
