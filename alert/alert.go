// Package alert shows and hides the persistent "connection lost" alert.
package alert

import "github.com/go-errors/errors"

// DefaultMessage is used when no message was configured.
const DefaultMessage = "Network connection lost"

// ErrNoAlert is returned when hiding an alert that is not shown.
var ErrNoAlert = errors.New("no such alert")

// Alert is a pre-built alert template.
type Alert struct {
	Title string
	Body  string
	Icon  string
	// Cancelable alerts may be dismissed by the user, others stay until
	// they are hidden.
	Cancelable bool
}

// New builds an alert template, falling back to DefaultMessage.
func New(message string, icon string, cancelable bool) *Alert {
	if message == "" {
		message = DefaultMessage
	}

	return &Alert{
		Title:      message,
		Icon:       icon,
		Cancelable: cancelable,
	}
}
