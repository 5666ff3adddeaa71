// Package queue carries portal activity events from the components that
// produce them to the activity log.  Producers hand events to a Dispatcher,
// which publishes them to RabbitMQ off the request path; a Consumer drains
// the queue and forwards each event to a Handler.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Activity log sheets.  Each event targets exactly one.
const (
	SheetUsers        = "Users"
	SheetTransactions = "Transactions"
	SheetWallets      = "Wallets"
	SheetLandVotes    = "LandVotes"
	SheetFilmIdeas    = "FilmIdeas"
)

// Event is one activity row.  Data holds the sheet's columns.
type Event struct {
	ID         string         `json:"id"`
	Sheet      string         `json:"sheet"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent stamps an event for sheet with a fresh id and the current time.
func NewEvent(sheet string, data map[string]any) Event {
	return Event{ID: uuid.NewString(), Sheet: sheet, Data: data, OccurredAt: time.Now().UTC()}
}

// Emitter accepts events without blocking the caller.
type Emitter interface {
	Emit(ev Event)
}

// Discard is an Emitter that drops everything.
type Discard struct{}

func (Discard) Emit(Event) {}
