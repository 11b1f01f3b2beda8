// Package board holds the client-side state of the application board: the
// records of one user grouped into the four status columns, moved between
// columns optimistically and reconciled with the server.
//
// State changes go through Reduce, a pure function over a fixed set of
// actions. Manager owns the current Grouping and drives the network side.
package board

import (
	"slices"

	"github.com/atinyakov/JobTracker/internal/models"
)

// Grouping is the board view. Columns has one entry per models.Statuses
// value, each ordered as displayed. Records whose status is not a column key
// are kept in Unmatched and never shown in a column.
type Grouping struct {
	Columns   map[models.Status][]models.Application
	Unmatched []models.Application
}

// NewGrouping returns a board with every column present and empty.
func NewGrouping() Grouping {
	g := Grouping{Columns: make(map[models.Status][]models.Application, len(models.Statuses))}
	for _, s := range models.Statuses {
		g.Columns[s] = []models.Application{}
	}
	return g
}

// Clone returns a deep copy of g.
func (g Grouping) Clone() Grouping {
	out := NewGrouping()
	for s, col := range g.Columns {
		out.Columns[s] = cloneRecords(col)
	}
	if g.Unmatched != nil {
		out.Unmatched = cloneRecords(g.Unmatched)
	}
	return out
}

func cloneRecords(in []models.Application) []models.Application {
	out := make([]models.Application, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// Column returns the records of status s in display order.
func (g Grouping) Column(s models.Status) []models.Application {
	return g.Columns[s]
}

// Find locates record id. ok is false when it is in no column.
func (g Grouping) Find(id int64) (status models.Status, index int, ok bool) {
	for _, s := range models.Statuses {
		for i, a := range g.Columns[s] {
			if a.ID == id {
				return s, i, true
			}
		}
	}
	return "", 0, false
}

// Len returns the number of records shown in columns.
func (g Grouping) Len() int {
	n := 0
	for _, col := range g.Columns {
		n += len(col)
	}
	return n
}

// IDs returns the record ids of column s in display order.
func (g Grouping) IDs(s models.Status) []int64 {
	col := g.Columns[s]
	ids := make([]int64, len(col))
	for i, a := range col {
		ids[i] = a.ID
	}
	return ids
}

// Move describes one drag of a card: the record at From[FromIndex] goes to
// To at ToIndex.
type Move struct {
	RecordID  int64
	From      models.Status
	FromIndex int
	To        models.Status
	ToIndex   int
}

// IsNoop reports whether the move leaves the card where it is.
func (m Move) IsNoop() bool {
	return m.From == m.To && m.FromIndex == m.ToIndex
}

// Action is one of LoadSuccess, MoveOptimistic, MoveConfirmed and
// MoveFailedReload.
type Action interface {
	action()
}

// LoadSuccess replaces the board with freshly listed records.
type LoadSuccess struct {
	Records []models.Application
}

// MoveOptimistic applies a move locally before the server has answered.
type MoveOptimistic struct {
	Move Move
}

// MoveConfirmed replaces the local copy of a record with the server's row.
// With KeepPlacement the card stays in its current column and position,
// which is used while later moves of the same record are still queued.
type MoveConfirmed struct {
	Record        models.Application
	KeepPlacement bool
}

// MoveFailedReload replaces the board with the records listed after a
// failed update, discarding every optimistic change.
type MoveFailedReload struct {
	Records []models.Application
}

func (LoadSuccess) action()      {}
func (MoveOptimistic) action()   {}
func (MoveConfirmed) action()    {}
func (MoveFailedReload) action() {}

// Reduce returns the board that results from applying a to g. g is never
// modified.
func Reduce(g Grouping, a Action) Grouping {
	switch a := a.(type) {
	case LoadSuccess:
		return group(a.Records)
	case MoveFailedReload:
		return group(a.Records)
	case MoveOptimistic:
		return applyMove(g, a.Move)
	case MoveConfirmed:
		return confirm(g, a.Record, a.KeepPlacement)
	default:
		return g.Clone()
	}
}

// group partitions records by exact status, keeping their order.
func group(records []models.Application) Grouping {
	g := NewGrouping()
	for _, r := range records {
		if col, ok := g.Columns[r.Status]; ok {
			g.Columns[r.Status] = append(col, r.Clone())
			continue
		}
		g.Unmatched = append(g.Unmatched, r.Clone())
	}
	return g
}

func applyMove(g Grouping, m Move) Grouping {
	out := g.Clone()
	if _, ok := out.Columns[m.To]; !ok {
		return out
	}

	from, idx := m.From, m.FromIndex
	src, ok := out.Columns[from]
	if !ok || idx < 0 || idx >= len(src) || src[idx].ID != m.RecordID {
		if from, idx, ok = out.Find(m.RecordID); !ok {
			return out
		}
		src = out.Columns[from]
	}

	card := src[idx]
	out.Columns[from] = slices.Delete(src, idx, idx+1)
	card.Status = m.To
	out.Columns[m.To] = insertAt(out.Columns[m.To], m.ToIndex, card)
	return out
}

func insertAt(col []models.Application, i int, a models.Application) []models.Application {
	i = max(0, min(i, len(col)))
	return slices.Insert(col, i, a)
}

func confirm(g Grouping, row models.Application, keep bool) Grouping {
	out := g.Clone()
	s, i, ok := out.Find(row.ID)
	if !ok {
		for j, a := range out.Unmatched {
			if a.ID == row.ID {
				out.Unmatched = slices.Delete(out.Unmatched, j, j+1)
				return placeConfirmed(out, row, -1)
			}
		}
		return out
	}

	if keep {
		row.Status = s
		out.Columns[s][i] = row.Clone()
		return out
	}
	if row.Status == s {
		out.Columns[s][i] = row.Clone()
		return out
	}
	out.Columns[s] = slices.Delete(out.Columns[s], i, i+1)
	return placeConfirmed(out, row, i)
}

// placeConfirmed puts row into its status column at index i, or at the
// front when i is negative.
func placeConfirmed(g Grouping, row models.Application, i int) Grouping {
	if _, ok := g.Columns[row.Status]; !ok {
		g.Unmatched = append(g.Unmatched, row.Clone())
		return g
	}
	if i < 0 {
		i = 0
	}
	g.Columns[row.Status] = insertAt(g.Columns[row.Status], i, row.Clone())
	return g
}
