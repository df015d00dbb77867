package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

func SessionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("session_id", id)
	}
}

// Command adds the command name and the caller-supplied command id.
func Command(name, id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		e = e.Str("command", name)
		if id != "" {
			e = e.Str("command_id", id)
		}
		return e
	}
}

func Version(v int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("version", v)
	}
}

func Step(step int, title string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("step", step).Str("step_title", title)
	}
}

func SyncStatus(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("sync_status", s)
	}
}

func Code(code string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("code", code)
	}
}

func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
