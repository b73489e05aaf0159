// Package history journals supervisor actions (starts, stops, kills, port
// frees) to a local sqlite database. The journal is advisory: a write
// failure is logged and never fails the operation that produced it.
package history

import (
	"context"
	"time"
)

type Action string

const (
	ActionStart    Action = "start"
	ActionStop     Action = "stop"
	ActionKill     Action = "kill"
	ActionPortFree Action = "port-free"
)

// Event is one recorded supervisor action.
type Event struct {
	OccurredAt time.Time
	Service    string
	Action     Action
	PID        int
	Detail     string
}

// Sink records events and can replay the most recent ones.
type Sink interface {
	Record(ctx context.Context, e Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
	Close() error
}
