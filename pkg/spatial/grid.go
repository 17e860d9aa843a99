// Package spatial provides the uniform bucket grid used for broad-phase
// collision detection.
//
// Moving bodies live in exactly one cell, chosen by their center. Stationary
// bodies are copied into every cell their footprint touches and stay there
// until removed. Bodies are assumed to span no more than about two cells, so
// a body's own cell and its four orthogonal neighbors hold every candidate it
// can touch.
package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/opd-ai/go-collide/pkg/entity"
)

// ErrInvalidGrid is returned for grid dimensions that cannot be allocated
var ErrInvalidGrid = errors.New("invalid grid dimensions")

// NoCell is the cell index of a body that is not in any moving cell
const NoCell = -1

// MaxNeighbors is the most buckets Neighbors can report
const MaxNeighbors = 5

// CellRange is an inclusive rectangle of cells
type CellRange struct {
	MinCol, MinRow int
	MaxCol, MaxRow int
}

// EmptyRange is a range that covers no cells
var EmptyRange = CellRange{MinCol: 0, MinRow: 0, MaxCol: -1, MaxRow: -1}

// Empty reports whether the range covers no cells
func (r CellRange) Empty() bool {
	return r.MinCol > r.MaxCol || r.MinRow > r.MaxRow
}

// Contains reports whether the cell lies within the range
func (r CellRange) Contains(col, row int) bool {
	return col >= r.MinCol && col <= r.MaxCol && row >= r.MinRow && row <= r.MaxRow
}

// Grid is a fixed 2D array of buckets covering the world. It is not safe for
// concurrent use.
type Grid struct {
	width    float64
	height   float64
	cellSize float64
	cols     int
	rows     int
	cells    []Bucket // index = row*cols + col
}

// NewGrid creates a grid covering width x height with square cells
func NewGrid(width, height, cellSize float64) (*Grid, error) {
	for _, v := range []float64{width, height, cellSize} {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("new grid %vx%v cell %v: %w", width, height, cellSize, ErrInvalidGrid)
		}
	}

	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols <= 0 || rows <= 0 || cols > math.MaxInt32/rows {
		return nil, fmt.Errorf("new grid %dx%d cells: %w", cols, rows, ErrInvalidGrid)
	}

	return &Grid{
		width:    width,
		height:   height,
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([]Bucket, cols*rows),
	}, nil
}

// Width returns the world width the grid was built for
func (g *Grid) Width() float64 { return g.width }

// Height returns the world height the grid was built for
func (g *Grid) Height() float64 { return g.height }

// Cols returns the number of cells along X
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of cells along Y
func (g *Grid) Rows() int { return g.rows }

// CellSize returns the world size of one cell
func (g *Grid) CellSize() float64 { return g.cellSize }

// Cell converts a world position to cell coordinates. ok is false outside
// the grid, including for NaN positions.
func (g *Grid) Cell(x, y float64) (col, row int, ok bool) {
	fx := math.Floor(x / g.cellSize)
	fy := math.Floor(y / g.cellSize)
	if !(fx >= 0 && fx < float64(g.cols) && fy >= 0 && fy < float64(g.rows)) {
		return NoCell, NoCell, false
	}
	return int(fx), int(fy), true
}

// CellIndex returns the flat index of the cell holding (x, y), or NoCell
func (g *Grid) CellIndex(x, y float64) int {
	col, row, ok := g.Cell(x, y)
	if !ok {
		return NoCell
	}
	return row*g.cols + col
}

// Bucket returns the bucket at a cell, nil when out of range
func (g *Grid) Bucket(col, row int) *Bucket {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return nil
	}
	return &g.cells[row*g.cols+col]
}

// BucketAt returns the bucket holding world position (x, y), nil outside the grid
func (g *Grid) BucketAt(x, y float64) *Bucket {
	col, row, ok := g.Cell(x, y)
	if !ok {
		return nil
	}
	return &g.cells[row*g.cols+col]
}

// BucketByIndex returns the bucket for a flat cell index, nil for NoCell
func (g *Grid) BucketByIndex(index int) *Bucket {
	if index < 0 || index >= len(g.cells) {
		return nil
	}
	return &g.cells[index]
}

// InsertMoving adds a body to the cell under its center and returns the
// cell index to cache, or NoCell when the body is outside the grid.
func (g *Grid) InsertMoving(body entity.Body) int {
	pos := body.GetPosition()
	index := g.CellIndex(pos.X, pos.Y)
	if index == NoCell {
		return NoCell
	}
	g.cells[index].Add(body)
	return index
}

// Footprint returns the in-grid cells covered by a w x h box centered on
// (x, y). Cells are chosen by flooring each edge of the box, so an edge lying
// exactly on a cell border includes the cell beyond it.
func (g *Grid) Footprint(x, y, w, h float64) CellRange {
	minX := math.Floor((x - w/2) / g.cellSize)
	maxX := math.Floor((x + w/2) / g.cellSize)
	minY := math.Floor((y - h/2) / g.cellSize)
	maxY := math.Floor((y + h/2) / g.cellSize)

	cols, rows := float64(g.cols), float64(g.rows)
	if !(maxX >= 0 && minX < cols && maxY >= 0 && minY < rows) {
		return EmptyRange
	}
	return CellRange{
		MinCol: int(math.Max(minX, 0)),
		MinRow: int(math.Max(minY, 0)),
		MaxCol: int(math.Min(maxX, cols-1)),
		MaxRow: int(math.Min(maxY, rows-1)),
	}
}

// InsertStationary adds a body to every cell its bounds footprint overlaps
// and returns the covered range.
func (g *Grid) InsertStationary(body entity.Body) CellRange {
	pos := body.GetPosition()
	var w, h float64
	if b := body.GetBounds(); b != nil && b.Shape != nil {
		w, h = b.Shape.Width(), b.Shape.Height()
	}

	r := g.Footprint(pos.X, pos.Y, w, h)
	if r.Empty() {
		return r
	}
	for row := r.MinRow; row <= r.MaxRow; row++ {
		for col := r.MinCol; col <= r.MaxCol; col++ {
			g.cells[row*g.cols+col].Add(body)
		}
	}
	return r
}

// Relocate moves a body from its cached cell to the cell under its current
// center. It does nothing when the cell has not changed. Returns the new
// cell index to cache.
func (g *Grid) Relocate(body entity.Body, cached int) int {
	pos := body.GetPosition()
	index := g.CellIndex(pos.X, pos.Y)
	if index == cached {
		return cached
	}
	if old := g.BucketByIndex(cached); old != nil {
		old.Remove(body)
	}
	if index != NoCell {
		g.cells[index].Add(body)
	}
	return index
}

// Remove takes a moving body out of its cached cell
func (g *Grid) Remove(body entity.Body, cached int) {
	if b := g.BucketByIndex(cached); b != nil {
		b.Remove(body)
	}
}

// RemoveRange takes a stationary body out of every cell in r
func (g *Grid) RemoveRange(body entity.Body, r CellRange) {
	if r.Empty() {
		return
	}
	for row := r.MinRow; row <= r.MaxRow; row++ {
		for col := r.MinCol; col <= r.MaxCol; col++ {
			g.cells[row*g.cols+col].Remove(body)
		}
	}
}

// Neighbors writes the body's own bucket followed by its left, upper, right
// and lower neighbors into dst, skipping cells outside the grid. Returns the
// number of buckets written. Nothing is written for a body outside the grid.
func (g *Grid) Neighbors(body entity.Body, dst *[MaxNeighbors]*Bucket) int {
	pos := body.GetPosition()
	col, row, ok := g.Cell(pos.X, pos.Y)
	if !ok {
		return 0
	}

	n := 0
	dst[n] = &g.cells[row*g.cols+col]
	n++
	if col-1 >= 0 {
		dst[n] = &g.cells[row*g.cols+col-1]
		n++
	}
	if row-1 >= 0 {
		dst[n] = &g.cells[(row-1)*g.cols+col]
		n++
	}
	if col+1 < g.cols {
		dst[n] = &g.cells[row*g.cols+col+1]
		n++
	}
	if row+1 < g.rows {
		dst[n] = &g.cells[(row+1)*g.cols+col]
		n++
	}
	return n
}

// WithinRadius appends every non-empty bucket in the square of cells with
// half-width ceil(radius/cellSize) around (x, y).
func (g *Grid) WithinRadius(x, y, radius float64, dst []*Bucket) []*Bucket {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) || !(radius >= 0) {
		return dst
	}
	reach := math.Ceil(radius / g.cellSize)
	cx := math.Floor(x / g.cellSize)
	cy := math.Floor(y / g.cellSize)

	// Clamp before converting; far away coordinates overflow int
	if cx+reach < 0 || cx-reach >= float64(g.cols) || cy+reach < 0 || cy-reach >= float64(g.rows) {
		return dst
	}
	minCol := int(math.Max(cx-reach, 0))
	maxCol := int(math.Min(cx+reach, float64(g.cols-1)))
	minRow := int(math.Max(cy-reach, 0))
	maxRow := int(math.Min(cy+reach, float64(g.rows-1)))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			b := &g.cells[row*g.cols+col]
			if b.Len() > 0 {
				dst = append(dst, b)
			}
		}
	}
	return dst
}

// ForEachCell calls fn for every non-empty bucket in row-major order
func (g *Grid) ForEachCell(fn func(col, row int, b *Bucket)) {
	for i := range g.cells {
		if g.cells[i].Len() == 0 {
			continue
		}
		fn(i%g.cols, i/g.cols, &g.cells[i])
	}
}
