package alert

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const (
	notificationsBus   = "org.freedesktop.Notifications"
	notificationsPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsIface = "org.freedesktop.Notifications"

	urgencyCritical = byte(2)
)

type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

type DesktopConfig struct {
	AppName string
	Logger  Logger
}

// DesktopAlerter shows alerts through the freedesktop notification service
// on the session bus. Alert keys are mapped to the ids handed out by the
// notification server, so showing the same key twice replaces the alert.
type DesktopAlerter struct {
	appName string
	log     Logger
	conn    *dbus.Conn
	obj     caller
	mu      sync.Mutex
	ids     map[uint32]uint32
}

func NewDesktopAlerter(config *DesktopConfig) *DesktopAlerter {
	alerter := &DesktopAlerter{
		appName: "netwatchd",
		ids:     make(map[uint32]uint32),
	}

	if config != nil && config.AppName != "" {
		alerter.appName = config.AppName
	}

	if config != nil && config.Logger != nil {
		alerter.log = config.Logger
	} else {
		alerter.log = noopLogger{}
	}

	return alerter
}

func (d *DesktopAlerter) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return errors.Errorf("could not connect to session bus: %v", err)
	}

	d.conn = conn
	d.obj = conn.Object(notificationsBus, notificationsPath)

	return nil
}

func (d *DesktopAlerter) Stop() error {
	if d.conn == nil {
		return nil
	}

	err := d.conn.Close()
	if err != nil {
		return errors.Errorf("could not close session bus connection: %v", err)
	}

	return nil
}

func (d *DesktopAlerter) Show(key uint32, a *Alert) error {
	if d.obj == nil {
		return errors.New("desktop alerter is not started")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(urgencyCritical),
		"resident": dbus.MakeVariant(!a.Cancelable),
	}

	// -1 lets the server decide, 0 never expires
	expire := int32(-1)
	if !a.Cancelable {
		expire = 0
	}

	call := d.obj.Call(notificationsIface+".Notify", 0,
		d.appName, d.ids[key], a.Icon, a.Title, a.Body, []string{}, hints, expire)
	if call.Err != nil {
		return errors.Errorf("could not show notification: %v", call.Err)
	}

	var id uint32
	err := call.Store(&id)
	if err != nil {
		return errors.Errorf("could not store notification id: %v", err)
	}

	d.ids[key] = id

	d.log.Debugf("Showing notification %v for alert %v", id, key)

	return nil
}

func (d *DesktopAlerter) Hide(key uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.ids[key]
	if !ok {
		return ErrNoAlert
	}

	if d.obj == nil {
		return errors.New("desktop alerter is not started")
	}

	// the id is kept on failure so the alert can still be withdrawn later
	call := d.obj.Call(notificationsIface+".CloseNotification", 0, id)
	if call.Err != nil {
		return errors.Errorf("could not close notification %v: %v", id, call.Err)
	}

	delete(d.ids, key)

	d.log.Debugf("Closed notification %v for alert %v", id, key)

	return nil
}
