package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atinyakov/JobTracker/internal/models"
	"go.uber.org/zap"
)

// Store is the server side of the board.
type Store interface {
	// ListByOwner returns every record of userID, newest first.
	ListByOwner(ctx context.Context, userID int64) ([]models.Application, error)
	// UpdateFields applies a partial update and returns the persisted row.
	UpdateFields(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier registers fn to receive an Event for every move that reached
// the network. fn is called from background goroutines without locks held,
// before the move's Pending resolves.
func WithNotifier(fn func(Event)) Option {
	return func(m *Manager) { m.notify = fn }
}

// WithLogger sets the logger used for failed moves and reloads.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// Manager owns the board of one user.
//
// A move across columns is shown at once and sent as a status-only update in
// the background. Updates of one record are sent one at a time in the order
// the moves were made. When an update fails the whole board is reloaded from
// the store, which discards every optimistic change; moves still waiting in a
// queue at that point are abandoned with ErrRolledBack. If the reload fails
// as well, the board returns to the last state the server confirmed.
type Manager struct {
	store  Store
	userID int64
	log    *zap.Logger
	notify func(Event)

	mu    sync.Mutex
	view  Grouping
	base  Grouping
	tails map[int64]chan struct{}
	queue map[int64]int
	// newest is the epoch of the latest move made on each queued record.
	newest map[int64]uint64
	epoch  uint64

	// Confirmations that arrive while a reload is listing records are
	// journaled and replayed onto the reloaded board.
	confirms uint64
	reloads  int
	journal  []confirmation

	wg sync.WaitGroup
}

type confirmation struct {
	seq uint64
	row models.Application
}

// NewManager returns a Manager with an empty board. Call Load to fill it.
func NewManager(store Store, userID int64, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		userID: userID,
		log:    zap.NewNop(),
		notify: func(Event) {},
		view:   NewGrouping(),
		base:   NewGrouping(),
		tails:  make(map[int64]chan struct{}),
		queue:  make(map[int64]int),
		newest: make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current board.
func (m *Manager) Snapshot() Grouping {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view.Clone()
}

// Load lists the user's records and replaces the board with them. On error
// the board is left as it was.
func (m *Manager) Load(ctx context.Context) error {
	from := m.beginReload()
	records, err := m.store.ListByOwner(ctx, m.userID)

	m.mu.Lock()
	if err != nil {
		m.endReload()
		m.mu.Unlock()
		return fmt.Errorf("load board: %w", err)
	}
	m.view = m.replay(Reduce(m.view, LoadSuccess{Records: records}), from)
	m.base = m.view.Clone()
	m.endReload()
	unmatched := len(m.view.Unmatched)
	m.mu.Unlock()

	if unmatched > 0 {
		m.log.Warn("records with unknown status hidden from the board", zap.Int("count", unmatched))
	}
	return nil
}

// MoveCard moves a card and returns once the board shows the result. The
// returned Pending resolves when the server side is settled; its error is
// the update error, ErrRolledBack, or nil.
//
// A move to the same position does nothing. A move inside one column only
// reorders the board and sends nothing, since the server keeps no order.
func (m *Manager) MoveCard(ctx context.Context, mv Move) (*Pending, error) {
	if mv.IsNoop() {
		return resolvedPending(), nil
	}
	if !mv.To.Valid() || !mv.From.Valid() {
		return nil, fmt.Errorf("%w: move %s -> %s", models.ErrInvalidStatus, mv.From, mv.To)
	}

	m.mu.Lock()
	src := m.view.Columns[mv.From]
	if mv.FromIndex < 0 || mv.FromIndex >= len(src) || src[mv.FromIndex].ID != mv.RecordID {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: record %d at %s[%d]", ErrStaleMove, mv.RecordID, mv.From, mv.FromIndex)
	}
	m.view = Reduce(m.view, MoveOptimistic{Move: mv})
	if mv.From == mv.To {
		m.mu.Unlock()
		return resolvedPending(), nil
	}

	p := newPending()
	prev := m.tails[mv.RecordID]
	mine := make(chan struct{})
	m.tails[mv.RecordID] = mine
	m.queue[mv.RecordID]++
	epoch := m.epoch
	m.newest[mv.RecordID] = epoch
	m.wg.Add(1)
	m.mu.Unlock()

	go m.send(ctx, mv, prev, mine, epoch, p)
	return p, nil
}

func (m *Manager) send(ctx context.Context, mv Move, prev <-chan struct{}, mine chan struct{}, epoch uint64, p *Pending) {
	defer m.wg.Done()
	defer m.release(mv.RecordID, mine)

	if prev != nil {
		<-prev
	}

	m.mu.Lock()
	stale := m.epoch != epoch
	m.mu.Unlock()
	if stale {
		m.notify(Event{Kind: EventAbandoned, Move: mv, Err: ErrRolledBack})
		p.resolve(ErrRolledBack)
		return
	}

	row, err := m.store.UpdateFields(ctx, mv.RecordID, models.StatusPatch(mv.To))
	if err != nil {
		reloadErr := m.rollback(ctx, mv, err)
		m.notify(Event{Kind: EventRolledBack, Move: mv, Err: err, ReloadErr: reloadErr})
		p.resolve(err)
		return
	}

	m.mu.Lock()
	// A later move of this record keeps its optimistic slot only if it will
	// still be sent; moves from before a rollback are abandoned.
	keep := m.queue[mv.RecordID] > 1 && m.newest[mv.RecordID] == m.epoch
	m.view = Reduce(m.view, MoveConfirmed{Record: *row, KeepPlacement: keep})
	m.base = Reduce(m.base, MoveConfirmed{Record: *row})
	m.confirms++
	if m.reloads > 0 {
		m.journal = append(m.journal, confirmation{seq: m.confirms, row: row.Clone()})
	}
	m.mu.Unlock()

	m.notify(Event{Kind: EventConfirmed, Move: mv})
	p.resolve(nil)
}

// rollback reloads the board after a failed update and invalidates every
// queued move. It returns the reload error, if any.
func (m *Manager) rollback(ctx context.Context, mv Move, cause error) error {
	m.log.Warn("move failed, reloading board",
		zap.Int64("record_id", mv.RecordID),
		zap.String("from", string(mv.From)),
		zap.String("to", string(mv.To)),
		zap.Error(cause),
	)

	// The reload must run even if the move's own context is done.
	reloadCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		reloadCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
	}
	from := m.beginReload()
	records, err := m.store.ListByOwner(reloadCtx, m.userID)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.endReload()
	m.epoch++
	if err != nil {
		m.log.Error("reload after failed move failed, restoring last confirmed board", zap.Error(err))
		m.view = m.base.Clone()
		return err
	}
	m.view = m.replay(Reduce(m.view, MoveFailedReload{Records: records}), from)
	m.base = m.view.Clone()
	return nil
}

// beginReload marks a reload in progress and returns the confirmation count
// at its start.
func (m *Manager) beginReload() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	return m.confirms
}

// endReload must be called with mu held.
func (m *Manager) endReload() {
	if m.reloads--; m.reloads == 0 {
		m.journal = nil
	}
}

// replay applies the confirmations that arrived after seq to a freshly
// listed board. Must be called with mu held.
func (m *Manager) replay(g Grouping, seq uint64) Grouping {
	for _, c := range m.journal {
		if c.seq > seq {
			g = Reduce(g, MoveConfirmed{Record: c.row})
		}
	}
	return g
}

func (m *Manager) release(id int64, mine chan struct{}) {
	m.mu.Lock()
	if m.tails[id] == mine {
		delete(m.tails, id)
	}
	if m.queue[id]--; m.queue[id] <= 0 {
		delete(m.queue, id)
		delete(m.newest, id)
	}
	m.mu.Unlock()
	close(mine)
}

// Wait blocks until every move issued so far has resolved.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// StartAutoRefresh reloads the board every interval until ctx is done.
// Reload errors are logged and the previous board is kept.
func (m *Manager) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
					m.log.Warn("auto refresh failed", zap.Error(err))
				}
			}
		}
	}()
}
