package board

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atinyakov/JobTracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store. Updates block on gate when it is set.
// Lists block on listHold after taking their snapshot.
type fakeStore struct {
	mu       sync.Mutex
	records  []models.Application
	listErr  error
	listHold chan struct{}
	updErr   map[int64]error
	gate     chan struct{}
	gates    map[int]chan struct{}
	lists    int
	updates  []models.ApplicationPatch
	inflight map[int64]int
	maxPer   map[int64]int
}

func newFakeStore(records ...models.Application) *fakeStore {
	return &fakeStore{
		records:  records,
		updErr:   map[int64]error{},
		gates:    map[int]chan struct{}{},
		inflight: map[int64]int{},
		maxPer:   map[int64]int{},
	}
}

func (f *fakeStore) ListByOwner(ctx context.Context, userID int64) ([]models.Application, error) {
	f.mu.Lock()
	f.lists++
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	out := make([]models.Application, len(f.records))
	copy(out, f.records)
	hold := f.listHold
	f.mu.Unlock()

	if hold != nil {
		<-hold
	}
	return out, nil
}

func (f *fakeStore) UpdateFields(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error) {
	f.mu.Lock()
	call := len(f.updates)
	f.updates = append(f.updates, patch)
	f.inflight[id]++
	f.maxPer[id] = max(f.maxPer[id], f.inflight[id])
	gate, own := f.gate, f.gates[call]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if own != nil {
		<-own
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight[id]--
	if err := f.updErr[id]; err != nil {
		return nil, err
	}
	for i := range f.records {
		if f.records[i].ID == id {
			patch.Apply(&f.records[i])
			row := f.records[i]
			return &row, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeStore) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeStore) status(id int64) models.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			return r.Status
		}
	}
	return ""
}

// assertMatchesServer checks that every column holds the records the store
// has in that status.
func assertMatchesServer(t *testing.T, m *Manager, store *fakeStore) {
	t.Helper()
	store.mu.Lock()
	fresh := Reduce(NewGrouping(), LoadSuccess{Records: append([]models.Application(nil), store.records...)})
	store.mu.Unlock()

	snap := m.Snapshot()
	for _, s := range models.Statuses {
		assert.ElementsMatch(t, fresh.IDs(s), snap.IDs(s), "column %s", s)
		for _, a := range snap.Column(s) {
			assert.Equal(t, s, a.Status, "record %d", a.ID)
		}
	}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func loadedManager(t *testing.T, store *fakeStore, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(store, 1, opts...)
	require.NoError(t, m.Load(context.Background()))
	return m
}

func TestScenario_MoveConfirmed(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	store.gate = make(chan struct{})
	var events []Event
	var evMu sync.Mutex
	m := loadedManager(t, store, WithNotifier(func(e Event) {
		evMu.Lock()
		events = append(events, e)
		evMu.Unlock()
	}))

	p, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusApplied, FromIndex: 0, To: models.StatusInterview, ToIndex: 0})
	require.NoError(t, err)

	// The board changes before the server has answered.
	snap := m.Snapshot()
	assert.Equal(t, []int64{7}, snap.IDs(models.StatusInterview))
	assert.Empty(t, snap.Column(models.StatusApplied))
	select {
	case <-p.Done():
		t.Fatal("move resolved before the server answered")
	default:
	}

	close(store.gate)
	require.NoError(t, p.Wait(waitCtx(t)))

	require.Len(t, store.updates, 1)
	assert.Equal(t, models.StatusPatch(models.StatusInterview), store.updates[0])
	assert.Equal(t, models.StatusInterview, store.status(7))

	optimistic := m.Snapshot()
	require.NoError(t, m.Load(context.Background()))
	reloaded := m.Snapshot()
	assert.Equal(t, optimistic.IDs(models.StatusInterview), reloaded.IDs(models.StatusInterview))
	assert.Equal(t, "Acme", reloaded.Column(models.StatusInterview)[0].Company)

	evMu.Lock()
	defer evMu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, EventConfirmed, events[0].Kind)
}

func TestScenario_MoveRejectedReloads(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	store.updErr[7] = models.ErrNotFound
	events := make(chan Event, 1)
	m := loadedManager(t, store, WithNotifier(func(e Event) { events <- e }))

	p, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusApplied, FromIndex: 0, To: models.StatusInterview, ToIndex: 0})
	require.NoError(t, err)

	err = p.Wait(waitCtx(t))
	assert.ErrorIs(t, err, models.ErrNotFound)

	snap := m.Snapshot()
	assert.Equal(t, []int64{7}, snap.IDs(models.StatusApplied))
	assert.Empty(t, snap.Column(models.StatusInterview))
	assert.Equal(t, 2, store.listCount())

	e := <-events
	assert.Equal(t, EventRolledBack, e.Kind)
	assert.ErrorIs(t, e.Err, models.ErrNotFound)
	assert.NoError(t, e.ReloadErr)
}

func TestRollbackMatchesFreshLoad(t *testing.T) {
	store := newFakeStore(
		rec(1, models.StatusApplied, "A"),
		rec(2, models.StatusInterview, "B"),
	)
	store.updErr[1] = errors.New("boom")
	m := loadedManager(t, store)

	// Another client changes record 2 meanwhile.
	store.mu.Lock()
	store.records[1].Status = models.StatusOffer
	store.mu.Unlock()

	p, err := m.MoveCard(context.Background(), Move{RecordID: 1, From: models.StatusApplied, To: models.StatusRejected})
	require.NoError(t, err)
	require.Error(t, p.Wait(waitCtx(t)))

	fresh := NewManager(store, 1)
	require.NoError(t, fresh.Load(context.Background()))
	assert.Equal(t, fresh.Snapshot(), m.Snapshot())
}

func TestNoopMoveIssuesNothing(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	m := loadedManager(t, store)
	before := m.Snapshot()

	p, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusApplied, FromIndex: 0, To: models.StatusApplied, ToIndex: 0})
	require.NoError(t, err)
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Equal(t, before, m.Snapshot())
	assert.Equal(t, 0, store.updateCount())
}

func TestReorderWithinColumnIsLocal(t *testing.T) {
	store := newFakeStore(rec(1, models.StatusApplied, "A"), rec(2, models.StatusApplied, "B"))
	m := loadedManager(t, store)

	p, err := m.MoveCard(context.Background(), Move{RecordID: 1, From: models.StatusApplied, FromIndex: 0, To: models.StatusApplied, ToIndex: 1})
	require.NoError(t, err)
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Equal(t, []int64{2, 1}, m.Snapshot().IDs(models.StatusApplied))
	assert.Equal(t, 0, store.updateCount())
}

func TestMoveValidation(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	m := loadedManager(t, store)

	_, err := m.MoveCard(context.Background(), Move{RecordID: 8, From: models.StatusApplied, FromIndex: 0, To: models.StatusOffer})
	assert.ErrorIs(t, err, ErrStaleMove)

	_, err = m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusApplied, FromIndex: 3, To: models.StatusOffer})
	assert.ErrorIs(t, err, ErrStaleMove)

	_, err = m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusApplied, FromIndex: 0, To: "Ghosted"})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	assert.Equal(t, []int64{7}, m.Snapshot().IDs(models.StatusApplied))
	assert.Equal(t, 0, store.updateCount())
}

func TestMovesOfOneRecordAreSerialized(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	store.gate = make(chan struct{})
	m := loadedManager(t, store)

	first, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusApplied, To: models.StatusInterview})
	require.NoError(t, err)
	second, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusInterview, To: models.StatusOffer})
	require.NoError(t, err)

	// Both moves are visible at once even though only one request is out.
	assert.Equal(t, []int64{7}, m.Snapshot().IDs(models.StatusOffer))
	require.Eventually(t, func() bool { return store.updateCount() == 1 }, time.Second, time.Millisecond)

	close(store.gate)
	require.NoError(t, first.Wait(waitCtx(t)))
	require.NoError(t, second.Wait(waitCtx(t)))

	assert.Equal(t, 1, store.maxPer[7])
	require.Len(t, store.updates, 2)
	assert.Equal(t, models.StatusInterview, *store.updates[0].Status)
	assert.Equal(t, models.StatusOffer, *store.updates[1].Status)
	assert.Equal(t, models.StatusOffer, store.status(7))
	assert.Equal(t, []int64{7}, m.Snapshot().IDs(models.StatusOffer))
}

func TestConfirmKeepsPlacementWhileQueued(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	firstGate, secondGate := make(chan struct{}), make(chan struct{})
	store.gates[0], store.gates[1] = firstGate, secondGate
	m := loadedManager(t, store)

	first, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusApplied, To: models.StatusInterview})
	require.NoError(t, err)
	second, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusInterview, To: models.StatusOffer})
	require.NoError(t, err)

	// The first confirmation lands while the second request is held.
	close(firstGate)
	require.NoError(t, first.Wait(waitCtx(t)))
	assert.Equal(t, []int64{7}, m.Snapshot().IDs(models.StatusOffer))
	assert.Empty(t, m.Snapshot().Column(models.StatusInterview))

	close(secondGate)
	require.NoError(t, second.Wait(waitCtx(t)))
	assert.Equal(t, []int64{7}, m.Snapshot().IDs(models.StatusOffer))
}

func TestFailureAbandonsQueuedMoves(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	store.gate = make(chan struct{})
	store.updErr[7] = errors.New("server down")
	var abandoned atomic.Int32
	m := loadedManager(t, store, WithNotifier(func(e Event) {
		if e.Kind == EventAbandoned {
			abandoned.Add(1)
		}
	}))

	first, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusApplied, To: models.StatusInterview})
	require.NoError(t, err)
	second, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusInterview, To: models.StatusOffer})
	require.NoError(t, err)

	close(store.gate)
	assert.Error(t, first.Wait(waitCtx(t)))
	assert.ErrorIs(t, second.Wait(waitCtx(t)), ErrRolledBack)

	assert.Equal(t, 1, store.updateCount())
	assert.Equal(t, int32(1), abandoned.Load())
	assert.Equal(t, []int64{7}, m.Snapshot().IDs(models.StatusApplied))

	// Moves made after the rollback go through normally.
	store.mu.Lock()
	delete(store.updErr, 7)
	store.mu.Unlock()
	third, err := m.MoveCard(context.Background(), Move{RecordID: 7, From: models.StatusApplied, To: models.StatusRejected})
	require.NoError(t, err)
	require.NoError(t, third.Wait(waitCtx(t)))
	assert.Equal(t, models.StatusRejected, store.status(7))
}

func TestFailedReloadRestoresConfirmedBoard(t *testing.T) {
	store := newFakeStore(
		rec(1, models.StatusApplied, "A"),
		rec(2, models.StatusApplied, "B"),
	)
	m := loadedManager(t, store)

	ok, err := m.MoveCard(context.Background(), Move{RecordID: 1, From: models.StatusApplied, FromIndex: 0, To: models.StatusOffer})
	require.NoError(t, err)
	require.NoError(t, ok.Wait(waitCtx(t)))

	store.mu.Lock()
	store.updErr[2] = errors.New("timeout")
	store.listErr = errors.New("offline")
	store.mu.Unlock()

	events := make(chan Event, 1)
	m.notify = func(e Event) { events <- e }
	bad, err := m.MoveCard(context.Background(), Move{RecordID: 2, From: models.StatusApplied, FromIndex: 0, To: models.StatusRejected})
	require.NoError(t, err)
	require.Error(t, bad.Wait(waitCtx(t)))

	snap := m.Snapshot()
	assert.Equal(t, []int64{1}, snap.IDs(models.StatusOffer))
	assert.Equal(t, []int64{2}, snap.IDs(models.StatusApplied))
	assert.Empty(t, snap.Column(models.StatusRejected))
	assert.Error(t, (<-events).ReloadErr)
}

func TestLoadErrorKeepsBoard(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	m := loadedManager(t, store)

	store.mu.Lock()
	store.listErr = models.ErrTransient
	store.mu.Unlock()

	err := m.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrTransient)
	assert.Equal(t, []int64{7}, m.Snapshot().IDs(models.StatusApplied))
}

func TestSnapshotIsACopy(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	m := loadedManager(t, store)

	snap := m.Snapshot()
	snap.Columns[models.StatusApplied][0].Company = "changed"

	assert.Equal(t, "Acme", m.Snapshot().Column(models.StatusApplied)[0].Company)
}

func TestStartAutoRefresh(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	m := loadedManager(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartAutoRefresh(ctx, 5*time.Millisecond)

	store.mu.Lock()
	store.records = append([]models.Application{rec(8, models.StatusInterview, "Globex")}, store.records...)
	store.mu.Unlock()

	require.Eventually(t, func() bool {
		return len(m.Snapshot().Column(models.StatusInterview)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestManagerWait(t *testing.T) {
	store := newFakeStore(rec(1, models.StatusApplied, "A"), rec(2, models.StatusApplied, "B"))
	m := loadedManager(t, store)

	_, err := m.MoveCard(context.Background(), Move{RecordID: 1, From: models.StatusApplied, FromIndex: 0, To: models.StatusOffer})
	require.NoError(t, err)
	_, err = m.MoveCard(context.Background(), Move{RecordID: 2, From: models.StatusApplied, FromIndex: 0, To: models.StatusRejected})
	require.NoError(t, err)

	m.Wait()
	assert.Equal(t, models.StatusOffer, store.status(1))
	assert.Equal(t, models.StatusRejected, store.status(2))
}

func TestOtherRecordRollback_ConfirmBeforeReload(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"), rec(8, models.StatusApplied, "Globex"))
	store.updErr[8] = models.ErrNotFound
	store.gates[1] = make(chan struct{})
	m := loadedManager(t, store)
	ctx := waitCtx(t)

	p7, err := m.MoveCard(ctx, Move{RecordID: 7, From: models.StatusApplied, FromIndex: 0, To: models.StatusInterview})
	require.NoError(t, err)
	require.NoError(t, p7.Wait(ctx))

	_, idx, _ := m.Snapshot().Find(8)
	p8, err := m.MoveCard(ctx, Move{RecordID: 8, From: models.StatusApplied, FromIndex: idx, To: models.StatusRejected})
	require.NoError(t, err)
	close(store.gates[1])
	assert.ErrorIs(t, p8.Wait(ctx), models.ErrNotFound)

	m.Wait()
	assert.Equal(t, models.StatusInterview, store.status(7))
	assertMatchesServer(t, m, store)
}

func TestOtherRecordRollback_ConfirmAfterReload(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"), rec(8, models.StatusApplied, "Globex"))
	store.updErr[8] = models.ErrNotFound
	store.gates[0] = make(chan struct{})
	m := loadedManager(t, store)
	ctx := waitCtx(t)

	p7, err := m.MoveCard(ctx, Move{RecordID: 7, From: models.StatusApplied, FromIndex: 0, To: models.StatusInterview})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return store.updateCount() == 1 }, time.Second, time.Millisecond)

	// The reload lists 7 as Applied because its update has not committed.
	p8, err := m.MoveCard(ctx, Move{RecordID: 8, From: models.StatusApplied, FromIndex: 0, To: models.StatusRejected})
	require.NoError(t, err)
	assert.ErrorIs(t, p8.Wait(ctx), models.ErrNotFound)
	s, _, _ := m.Snapshot().Find(7)
	assert.Equal(t, models.StatusApplied, s)

	close(store.gates[0])
	require.NoError(t, p7.Wait(ctx))

	m.Wait()
	assertMatchesServer(t, m, store)
}

func TestOtherRecordRollback_QueuedMoveAbandoned(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"), rec(8, models.StatusApplied, "Globex"))
	store.updErr[8] = models.ErrNotFound
	store.gates[0] = make(chan struct{})
	store.gates[1] = make(chan struct{})
	var saved []Event
	var evMu sync.Mutex
	m := loadedManager(t, store, WithNotifier(func(e Event) {
		evMu.Lock()
		saved = append(saved, e)
		evMu.Unlock()
	}))
	ctx := waitCtx(t)

	first, err := m.MoveCard(ctx, Move{RecordID: 7, From: models.StatusApplied, FromIndex: 0, To: models.StatusInterview})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return store.updateCount() == 1 }, time.Second, time.Millisecond)
	second, err := m.MoveCard(ctx, Move{RecordID: 7, From: models.StatusInterview, FromIndex: 0, To: models.StatusOffer})
	require.NoError(t, err)

	p8, err := m.MoveCard(ctx, Move{RecordID: 8, From: models.StatusApplied, FromIndex: 0, To: models.StatusRejected})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return store.updateCount() == 2 }, time.Second, time.Millisecond)
	close(store.gates[1])
	assert.ErrorIs(t, p8.Wait(ctx), models.ErrNotFound)

	close(store.gates[0])
	require.NoError(t, first.Wait(ctx))
	assert.ErrorIs(t, second.Wait(ctx), ErrRolledBack)

	m.Wait()
	assert.Equal(t, models.StatusInterview, store.status(7))
	assertMatchesServer(t, m, store)

	evMu.Lock()
	defer evMu.Unlock()
	kinds := map[int64][]EventKind{}
	for _, e := range saved {
		kinds[e.Move.RecordID] = append(kinds[e.Move.RecordID], e.Kind)
	}
	assert.ElementsMatch(t, []EventKind{EventConfirmed, EventAbandoned}, kinds[7])
	assert.Equal(t, []EventKind{EventRolledBack}, kinds[8])
}

func TestConfirmDuringReloadIsReplayed(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"), rec(8, models.StatusApplied, "Globex"))
	store.updErr[8] = models.ErrNotFound
	store.gates[0] = make(chan struct{})
	m := loadedManager(t, store)
	ctx := waitCtx(t)

	p7, err := m.MoveCard(ctx, Move{RecordID: 7, From: models.StatusApplied, FromIndex: 0, To: models.StatusInterview})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return store.updateCount() == 1 }, time.Second, time.Millisecond)

	store.mu.Lock()
	store.listHold = make(chan struct{})
	hold := store.listHold
	store.mu.Unlock()

	p8, err := m.MoveCard(ctx, Move{RecordID: 8, From: models.StatusApplied, FromIndex: 0, To: models.StatusRejected})
	require.NoError(t, err)
	// The rollback has listed 7 as Applied and is held before applying it.
	require.Eventually(t, func() bool { return store.listCount() == 2 }, time.Second, time.Millisecond)

	close(store.gates[0])
	require.NoError(t, p7.Wait(ctx))

	close(hold)
	assert.ErrorIs(t, p8.Wait(ctx), models.ErrNotFound)

	m.Wait()
	assertMatchesServer(t, m, store)
	s, _, _ := m.Snapshot().Find(7)
	assert.Equal(t, models.StatusInterview, s)
}

func TestConfirmDuringLoadIsReplayed(t *testing.T) {
	store := newFakeStore(rec(7, models.StatusApplied, "Acme"))
	store.gates[0] = make(chan struct{})
	m := loadedManager(t, store)
	ctx := waitCtx(t)

	p7, err := m.MoveCard(ctx, Move{RecordID: 7, From: models.StatusApplied, FromIndex: 0, To: models.StatusInterview})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return store.updateCount() == 1 }, time.Second, time.Millisecond)

	store.mu.Lock()
	store.listHold = make(chan struct{})
	hold := store.listHold
	store.mu.Unlock()

	loaded := make(chan error, 1)
	go func() { loaded <- m.Load(ctx) }()
	require.Eventually(t, func() bool { return store.listCount() == 2 }, time.Second, time.Millisecond)

	close(store.gates[0])
	require.NoError(t, p7.Wait(ctx))
	close(hold)
	require.NoError(t, <-loaded)

	assertMatchesServer(t, m, store)
}
