// Package progress carries optional status events out of the backtest
// pipeline. The collector and simulators publish through the Observer
// interface instead of depending on a concrete logger; observers must not
// block.
package progress

import (
	"time"

	"go.uber.org/zap"
)

type Event struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Observer interface {
	Publish(Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Publish(Event) {}

// Logged forwards events to a zap logger.
type Logged struct {
	Logger *zap.Logger
}

func (l Logged) Publish(e Event) {
	l.Logger.Info(e.Message, zap.String("stage", e.Stage))
}

// Multi fans one event out to several observers.
type Multi []Observer

func (m Multi) Publish(e Event) {
	for _, o := range m {
		o.Publish(e)
	}
}

// Emit publishes a stamped event, tolerating a nil observer.
func Emit(o Observer, stage, message string) {
	if o == nil {
		return
	}
	o.Publish(Event{Stage: stage, Message: message, At: time.Now()})
}
