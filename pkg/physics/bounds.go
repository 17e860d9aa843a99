package physics

// Bounds pairs a shape's original form with the rotated and scaled copy used
// for collision checks. Raw is never modified; Shape always has Raw's
// concrete type.
type Bounds struct {
	Raw   Shape
	Shape Shape
}

// NewBounds creates bounds around raw. The working shape starts as a copy.
func NewBounds(raw Shape) *Bounds {
	return &Bounds{
		Raw:   raw,
		Shape: raw.Copy(),
	}
}

// Transform rewrites the working shape from the raw shape.
func (b *Bounds) Transform(rotation, scale float64) {
	b.Raw.Transform(rotation, scale, b.Shape)
}
