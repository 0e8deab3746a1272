// Package world holds the server's authoritative simulation state: the
// ordered map of live snakes and the food clusters scattered across the
// play area, plus the proximity queries the net-tick uses to decide what
// to broadcast to each client.
package world

import (
	"sort"

	"wyrm/internal/fixed"
	"wyrm/internal/snake"
)

// World is the full server-side simulation state for one game instance.
type World struct {
	snakes   map[uint16]*snake.Snake
	order    []uint16 // insertion order, snake_id ascending join order
	nextID   uint16
	Clusters []Cluster
}

// New returns an empty world.
func New() *World {
	return &World{snakes: make(map[uint16]*snake.Snake)}
}

// AddSnake assigns the next snake_id, inserts a new snake spawned at spawn
// into the world under it, and returns that snake.
func (w *World) AddSnake(spawn fixed.QWPos) *snake.Snake {
	w.nextID++
	id := w.nextID
	s := snake.New(id, spawn)
	w.snakes[id] = s
	w.order = append(w.order, id)
	return s
}

// RemoveSnake deletes a snake from the world. A no-op if id is unknown.
func (w *World) RemoveSnake(id uint16) {
	if _, ok := w.snakes[id]; !ok {
		return
	}
	delete(w.snakes, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Snake looks up a snake by id.
func (w *World) Snake(id uint16) (*snake.Snake, bool) {
	s, ok := w.snakes[id]
	return s, ok
}

// SnakeIDs returns every live snake id in join order.
func (w *World) SnakeIDs() []uint16 {
	out := make([]uint16, len(w.order))
	copy(out, w.order)
	return out
}

// Count returns the number of live snakes.
func (w *World) Count() int {
	return len(w.snakes)
}

// Step advances every non-held snake one simulation tick and trims any
// trailing segments that fell stale, then lets food clusters react to the
// new snake positions. It is the server-side [WORLD] update described for
// each sim-tick: step snakes, then advance food and global world state.
func (w *World) Step(frame uint16, simTickRate int) {
	for _, id := range w.order {
		s := w.snakes[id]
		stale := s.StepFrame(frame, simTickRate)
		if stale > 0 {
			snake.RemoveStaleSegments(&s.Data, stale)
		}
	}
	w.advanceFood()
}

// advanceFood lets every snake eat nearby food and respawns clusters that
// have been fully depleted, centered where they last sat.
func (w *World) advanceFood() {
	const eatRange = 2 // world units a head may reach to eat food, in QW whole units
	eatRangeQW := fixed.MakeQW(eatRange)

	for i := range w.Clusters {
		c := &w.Clusters[i]
		if c.Empty {
			continue
		}
		for _, id := range w.order {
			s := w.snakes[id]
			n := Eat(c, s.Head.Pos, eatRangeQW)
			if n > 0 {
				s.FoodEaten += n
			}
		}
		if c.Empty {
			center := fixed.QWPos{
				X: c.AABB.Min.X.Add(c.AABB.Max.X).Div(fixed.MakeQW(2)),
				Y: c.AABB.Min.Y.Add(c.AABB.Max.Y).Div(fixed.MakeQW(2)),
			}
			*c = NewCluster(center, MaxClusterFood/8, c.Seed+1)
		}
	}
}

// SpawnCluster adds a new food cluster to the world and returns it.
func (w *World) SpawnCluster(center fixed.QWPos, count int, seed uint32) Cluster {
	c := NewCluster(center, count, seed)
	w.Clusters = append(w.Clusters, c)
	return c
}

// ProximitySnakeIDs returns, in ascending id order, every live snake other
// than exclude whose head lies within radius of center. This is the query
// driving the net-tick fan-out described for [WORLD]: a client only
// receives SNAKE_HEAD/bézier updates for snakes near its own.
func (w *World) ProximitySnakeIDs(center fixed.QWPos, radius fixed.QW, exclude uint16) []uint16 {
	radiusSq := radius.Mul(radius)
	var out []uint16
	for _, id := range w.order {
		if id == exclude {
			continue
		}
		s := w.snakes[id]
		if s.Head.Pos.DistSq(center) <= radiusSq {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
