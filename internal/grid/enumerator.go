package grid

import (
	"iter"

	"github.com/MeKo-Tech/tilearchive/internal/tile"
)

// State is the lifecycle of an Enumerator.
type State int

const (
	NotStarted State = iota
	Enumerating
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Enumerating:
		return "enumerating"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Enumerator is a pull-style cursor over a grid. Once exhausted it stays
// exhausted. It is not safe for concurrent use.
type Enumerator struct {
	next    func() (tile.Tile, bool)
	stop    func()
	state   State
	yielded int
}

// Enumerator returns a fresh cursor positioned before the first tile.
// Callers that abandon it before exhaustion must call Stop.
func (g *Grid) Enumerator() *Enumerator {
	next, stop := iter.Pull(g.All())
	return &Enumerator{next: next, stop: stop}
}

// Next returns the next tile, or false when the grid is exhausted.
func (e *Enumerator) Next() (tile.Tile, bool) {
	if e.state == Done {
		return tile.Tile{}, false
	}
	e.state = Enumerating

	t, ok := e.next()
	if !ok {
		e.finish()
		return tile.Tile{}, false
	}
	e.yielded++
	return t, true
}

// NextBatch returns up to size tiles. An empty result means exhaustion.
func (e *Enumerator) NextBatch(size int) []tile.Tile {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var batch []tile.Tile
	for len(batch) < size {
		t, ok := e.Next()
		if !ok {
			break
		}
		batch = append(batch, t)
	}
	return batch
}

// Stop releases the cursor. Subsequent calls to Next return false.
func (e *Enumerator) Stop() {
	e.finish()
}

// State reports the lifecycle state.
func (e *Enumerator) State() State {
	return e.state
}

// Yielded returns the number of tiles produced so far.
func (e *Enumerator) Yielded() int {
	return e.yielded
}

func (e *Enumerator) finish() {
	if e.state != Done {
		e.stop()
		e.state = Done
	}
}
