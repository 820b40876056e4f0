package main

import (
	"fmt"
	"time"

	"sitetrack/internal/screen"
)

// waitSink adapts the CLI's synchronous world to the screens' signal
// stream: commands mount a screen, then block here until a terminal
// signal arrives.
type waitSink struct {
	ch chan screen.Event
}

func newWaitSink() *waitSink {
	return &waitSink{ch: make(chan screen.Event, 16)}
}

func (w *waitSink) sink(ev screen.Event) {
	w.ch <- ev
}

// wait blocks until one of the wanted kinds (or a failure signal) shows
// up, translating failures into errors.
func (w *waitSink) wait(wanted ...screen.EventKind) (screen.Event, error) {
	deadline := time.After(screen.DefaultTimeout + 5*time.Second)
	for {
		select {
		case ev := <-w.ch:
			for _, k := range wanted {
				if ev.Kind == k {
					return ev, nil
				}
			}
			switch ev.Kind {
			case screen.EventRequireSignIn:
				return ev, fmt.Errorf("session expired, sign in again")
			case screen.EventLoadFailed:
				return ev, fmt.Errorf("load failed: %w", ev.Err)
			case screen.EventSubmitFailed:
				return ev, fmt.Errorf("submit failed: %w", ev.Err)
			case screen.EventFieldInvalid:
				return ev, fmt.Errorf("invalid %s: %s", ev.Field.Field, ev.Field.Reason)
			}
			// Loading, Submitting and the like: keep waiting.
		case <-deadline:
			return screen.Event{}, fmt.Errorf("timed out waiting for the screen")
		}
	}
}
