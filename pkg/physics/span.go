package physics

// Span is the 1D interval a shape covers when projected onto an axis.
type Span struct {
	Min float64
	Max float64
}

// DistanceBetween returns the gap between two spans on the same axis.
// A negative result is the overlap depth, zero means the spans touch
// and a positive result is the distance separating them.
func (s Span) DistanceBetween(other Span) float64 {
	if s.Min < other.Min {
		return other.Min - s.Max
	}
	return s.Min - other.Max
}

// Sweep grows the span in the direction of a displacement projected
// onto the same axis. The span keeps its original extent and gains the
// area swept over.
func (s Span) Sweep(projected float64) Span {
	if projected < 0 {
		s.Min += projected
	} else {
		s.Max += projected
	}
	return s
}

// Overlaps reports whether the spans share more than a single point.
func (s Span) Overlaps(other Span) bool {
	return s.DistanceBetween(other) < 0
}
