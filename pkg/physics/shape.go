// pkg/physics/shape.go
package physics

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegeneratePolygon is returned when a polygon has too few points to enclose an area.
var ErrDegeneratePolygon = errors.New("polygon needs at least 3 points")

// Shape is the capability set the collision code needs from a body's outline.
// Offsets are the world position of the shape's owner; shapes are stored in
// local coordinates around that position.
type Shape interface {
	// Width of the axis-aligned extent.
	Width() float64
	// Height of the axis-aligned extent.
	Height() float64
	// Radius of a circle around the owner's position enclosing the whole shape.
	Radius() float64
	// Project returns the span covered on axis when placed at offset.
	Project(axis, offset Vector2D) Span
	// AxisCount is how many SAT axes this shape contributes against opponent.
	AxisCount(opponent Shape) int
	// Axis returns the i-th normalized SAT axis. ok is false for a degenerate
	// (zero length) axis, which callers skip.
	Axis(i int, offset Vector2D, opponent Shape, opponentOffset Vector2D) (axis Vector2D, ok bool)
	// Vertices returns the local-space corner points, nil for curved shapes.
	Vertices() []Vector2D
	// Transform writes a rotated (degrees, clockwise in screen space) and scaled
	// version of this shape into dst. dst must be the same concrete type;
	// otherwise Transform does nothing.
	Transform(rotation, scale float64, dst Shape)
	// Copy returns an independent deep copy.
	Copy() Shape
}

// AxisCount returns how many axes a SAT test between a and b enumerates:
// the sum of both shapes' contributions, or the single center-to-center axis
// when neither shape has vertices.
func AxisCount(a, b Shape) int {
	if len(a.Vertices()) == 0 && len(b.Vertices()) == 0 {
		return 1
	}
	return a.AxisCount(b) + b.AxisCount(a)
}

// Circle is a round shape centered on its owner's position.
type Circle struct {
	radius float64
}

// NewCircle creates a circle with the given radius
func NewCircle(radius float64) *Circle {
	return &Circle{radius: radius}
}

func (c *Circle) Width() float64  { return c.radius * 2 }
func (c *Circle) Height() float64 { return c.radius * 2 }
func (c *Circle) Radius() float64 { return c.radius }

// Vertices returns nil; a circle has no corners.
func (c *Circle) Vertices() []Vector2D { return nil }

// Project returns center·axis ± radius.
func (c *Circle) Project(axis, offset Vector2D) Span {
	center := axis.Dot(offset)
	return Span{Min: center - c.radius, Max: center + c.radius}
}

// AxisCount is always one: the direction toward the opponent.
func (c *Circle) AxisCount(opponent Shape) int {
	return 1
}

// Axis points from the circle's center toward the opponent. Against a
// polygon that is the polygon's vertex nearest to the center, against another
// circle it is the other center.
func (c *Circle) Axis(i int, offset Vector2D, opponent Shape, opponentOffset Vector2D) (Vector2D, bool) {
	target := opponentOffset
	if verts := opponent.Vertices(); len(verts) > 0 {
		best := math.MaxFloat64
		for _, p := range verts {
			world := p.Add(opponentOffset)
			if d := world.DistanceSquared(offset); d < best {
				best = d
				target = world
			}
		}
	}
	axis := target.Sub(offset)
	if axis.IsZero() {
		return Vector2D{}, false
	}
	return axis.Normalize(), true
}

// Transform scales the radius; circles are rotation invariant.
func (c *Circle) Transform(rotation, scale float64, dst Shape) {
	other, ok := dst.(*Circle)
	if !ok || other == nil {
		return
	}
	other.radius = c.radius * scale
}

// Copy returns a new circle with the same radius
func (c *Circle) Copy() Shape {
	return &Circle{radius: c.radius}
}

// Polygon is a closed convex outline. Points are wound in insertion order and
// edges[i] runs from points[i] to points[(i+1)%n].
type Polygon struct {
	points []Vector2D
	edges  []Vector2D
	width  float64
	height float64
	radius float64
}

// NewPolygon creates a polygon from its points in winding order.
// The slice is copied.
func NewPolygon(points ...Vector2D) (*Polygon, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("new polygon with %d points: %w", len(points), ErrDegeneratePolygon)
	}
	p := &Polygon{
		points: append([]Vector2D(nil), points...),
		edges:  make([]Vector2D, len(points)),
	}
	p.rebuildEdges()
	p.updateExtents()
	for _, pt := range p.points {
		p.radius = math.Max(p.radius, pt.LengthSquared())
	}
	p.radius = math.Sqrt(p.radius)
	return p, nil
}

// NewRectangle creates an axis-aligned box of the given size centered on the origin.
func NewRectangle(width, height float64) *Polygon {
	hw, hh := width/2, height/2
	p, _ := NewPolygon(
		Vector2D{X: -hw, Y: -hh},
		Vector2D{X: hw, Y: -hh},
		Vector2D{X: hw, Y: hh},
		Vector2D{X: -hw, Y: hh},
	)
	return p
}

func (p *Polygon) Width() float64  { return p.width }
func (p *Polygon) Height() float64 { return p.height }
func (p *Polygon) Radius() float64 { return p.radius }

// Vertices returns the polygon's points. The slice is owned by the polygon.
func (p *Polygon) Vertices() []Vector2D { return p.points }

// Edges returns the edge vectors. The slice is owned by the polygon.
func (p *Polygon) Edges() []Vector2D { return p.edges }

// Project returns the extreme dot products of every point against axis.
func (p *Polygon) Project(axis, offset Vector2D) Span {
	first := p.points[0]
	dot := axis.X*(first.X+offset.X) + axis.Y*(first.Y+offset.Y)
	span := Span{Min: dot, Max: dot}
	for _, pt := range p.points[1:] {
		dot = axis.X*(pt.X+offset.X) + axis.Y*(pt.Y+offset.Y)
		if dot < span.Min {
			span.Min = dot
		} else if dot > span.Max {
			span.Max = dot
		}
	}
	return span
}

// AxisCount is one axis per edge.
func (p *Polygon) AxisCount(opponent Shape) int {
	return len(p.edges)
}

// Axis returns the normalized normal of edge i.
func (p *Polygon) Axis(i int, offset Vector2D, opponent Shape, opponentOffset Vector2D) (Vector2D, bool) {
	edge := p.edges[i]
	if edge.IsZero() {
		return Vector2D{}, false
	}
	return edge.Perp().Normalize(), true
}

// Transform rotates and scales this polygon's points into dst in place.
func (p *Polygon) Transform(rotation, scale float64, dst Shape) {
	other, ok := dst.(*Polygon)
	if !ok || other == nil || len(other.points) != len(p.points) {
		return
	}

	rad := DegreesToRadians(rotation)
	cos := math.Cos(rad)
	sin := math.Sin(rad)
	for i, raw := range p.points {
		other.points[i] = Vector2D{
			X: (cos*raw.X - sin*raw.Y) * scale,
			Y: (sin*raw.X + cos*raw.Y) * scale,
		}
	}
	other.rebuildEdges()
	other.updateExtents()
	// Rotation keeps distances from the origin
	other.radius = p.radius * math.Abs(scale)
}

// Copy returns a deep copy of the polygon
func (p *Polygon) Copy() Shape {
	return &Polygon{
		points: append([]Vector2D(nil), p.points...),
		edges:  append([]Vector2D(nil), p.edges...),
		width:  p.width,
		height: p.height,
		radius: p.radius,
	}
}

func (p *Polygon) rebuildEdges() {
	n := len(p.points)
	for i := 0; i < n; i++ {
		p.edges[i] = p.points[(i+1)%n].Sub(p.points[i])
	}
}

// updateExtents recomputes width and height from the points
func (p *Polygon) updateExtents() {
	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	for _, pt := range p.points {
		minX = math.Min(minX, pt.X)
		maxX = math.Max(maxX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}

	p.width, p.height = maxX-minX, maxY-minY
}

// PolygonBuilder accumulates points for a polygon.
type PolygonBuilder struct {
	points []Vector2D
}

// NewPolygonBuilder creates an empty builder
func NewPolygonBuilder() *PolygonBuilder {
	return &PolygonBuilder{}
}

// Add appends a point in winding order
func (b *PolygonBuilder) Add(x, y float64) *PolygonBuilder {
	b.points = append(b.points, Vector2D{X: x, Y: y})
	return b
}

// Build creates the polygon
func (b *PolygonBuilder) Build() (*Polygon, error) {
	return NewPolygon(b.points...)
}
