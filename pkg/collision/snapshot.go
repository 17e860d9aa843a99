package collision

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/spatial"
)

// ErrSnapshotDecode is returned when snapshot bytes cannot be decoded
var ErrSnapshotDecode = errors.New("decode snapshot")

// Snapshot is a point-in-time copy of a world's grid occupancy, used for
// debugging tools and replays.
type Snapshot struct {
	WorldID  string         `msgpack:"worldId"`
	Cols     int            `msgpack:"cols"`
	Rows     int            `msgpack:"rows"`
	CellSize float64        `msgpack:"cellSize"`
	Cells    []CellSnapshot `msgpack:"cells"`
	Bodies   []BodySnapshot `msgpack:"bodies"`
	Stats    Stats          `msgpack:"stats"`
}

// CellSnapshot lists the bodies in one non-empty cell in bucket order
type CellSnapshot struct {
	Col    int         `msgpack:"col"`
	Row    int         `msgpack:"row"`
	Bodies []entity.ID `msgpack:"bodies"`
}

// BodySnapshot records one registration
type BodySnapshot struct {
	ID     entity.ID   `msgpack:"id"`
	Kind   entity.Kind `msgpack:"kind"`
	Role   Role        `msgpack:"role"`
	X      float64     `msgpack:"x"`
	Y      float64     `msgpack:"y"`
	Active bool        `msgpack:"active"`
	InGrid bool        `msgpack:"inGrid"`
	Cell   int         `msgpack:"cell"`
}

// Snapshot captures the world's current state. Bodies are ordered by ID.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		WorldID:  w.ID(),
		Cols:     w.grid.Cols(),
		Rows:     w.grid.Rows(),
		CellSize: w.grid.CellSize(),
		Stats:    w.resolver.stats,
	}

	w.grid.ForEachCell(func(col, row int, b *spatial.Bucket) {
		ids := make([]entity.ID, b.Len())
		for i := range ids {
			ids[i] = b.At(i).GetID()
		}
		s.Cells = append(s.Cells, CellSnapshot{Col: col, Row: row, Bodies: ids})
	})

	s.Bodies = make([]BodySnapshot, 0, len(w.registry))
	for _, reg := range w.registry {
		pos := reg.body.GetPosition()
		s.Bodies = append(s.Bodies, BodySnapshot{
			ID:     reg.body.GetID(),
			Kind:   reg.body.GetKind(),
			Role:   reg.role,
			X:      pos.X,
			Y:      pos.Y,
			Active: reg.body.IsActive(),
			InGrid: reg.inGrid,
			Cell:   reg.cell,
		})
	}
	sort.Slice(s.Bodies, func(i, j int) bool { return s.Bodies[i].ID < s.Bodies[j].ID })
	return s
}

// Encode serializes the snapshot with msgpack
func (s Snapshot) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses bytes produced by Snapshot.Encode
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrSnapshotDecode, err)
	}
	return s, nil
}
