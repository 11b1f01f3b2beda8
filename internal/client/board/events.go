package board

import (
	"context"
	"errors"
)

var (
	// ErrStaleMove is returned when the card at the move's source position is
	// not the record being moved.
	ErrStaleMove = errors.New("board: move source does not match the board")
	// ErrRolledBack is returned by a queued move abandoned because an
	// earlier move failed and the board was reloaded.
	ErrRolledBack = errors.New("board: move abandoned after rollback")
)

// EventKind classifies an Event.
type EventKind int

const (
	// EventConfirmed: the server accepted a move.
	EventConfirmed EventKind = iota
	// EventRolledBack: a move failed and the board was reloaded.
	EventRolledBack
	// EventAbandoned: a queued move was dropped after a rollback.
	EventAbandoned
)

func (k EventKind) String() string {
	switch k {
	case EventConfirmed:
		return "confirmed"
	case EventRolledBack:
		return "rolled back"
	case EventAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Event reports the outcome of a move that issued a request.
type Event struct {
	Kind EventKind
	Move Move
	// Err is the update error for EventRolledBack and ErrRolledBack for
	// EventAbandoned.
	Err error
	// ReloadErr is set when the reload after a failure also failed and the
	// board fell back to the last confirmed state.
	ReloadErr error
}

// Pending tracks the server side of one MoveCard call.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolvedPending() *Pending {
	p := newPending()
	close(p.done)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once the move is confirmed, rolled back or abandoned.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the outcome. It is nil before Done is closed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the move resolves or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
