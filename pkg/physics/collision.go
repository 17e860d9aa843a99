// pkg/physics/collision.go
package physics

import "math"

// CirclesOverlap checks if two circles overlap. Circles that only touch
// (distance equal to the radius sum) do not overlap.
func CirclesOverlap(a Vector2D, ra float64, b Vector2D, rb float64) bool {
	minDist := ra + rb
	return a.DistanceSquared(b) < minDist*minDist
}

// CollisionResult contains information about a collision
type CollisionResult struct {
	Collided     bool
	Normal       Vector2D
	Penetration  float64
	ContactPoint Vector2D
}

// CheckCircleCollision performs detailed collision detection between two circles
func CheckCircleCollision(a Vector2D, ra float64, b Vector2D, rb float64) CollisionResult {
	if !CirclesOverlap(a, ra, b, rb) {
		return CollisionResult{Collided: false}
	}

	// Vector from A to B
	normal := b.Sub(a)
	distance := normal.Length()
	penetration := ra + rb - distance

	if normal.IsZero() {
		normal = Vector2D{X: 1}
	}
	normal = normal.Normalize()

	return CollisionResult{
		Collided:     true,
		Normal:       normal,
		Penetration:  penetration,
		ContactPoint: a.Add(normal.Scale(ra)),
	}
}

// SweptCirclesOverlap reports whether a circle at a moving by disp passes
// strictly within ra+rb of a circle at b at any point of the move.
func SweptCirclesOverlap(a Vector2D, ra float64, disp Vector2D, b Vector2D, rb float64) bool {
	minDist := ra + rb
	toB := b.Sub(a)
	t := 0.0
	if lenSq := disp.LengthSquared(); lenSq > 0 {
		t = math.Max(0, math.Min(1, toB.Dot(disp)/lenSq))
	}
	closest := a.Add(disp.Scale(t))
	return closest.DistanceSquared(b) < minDist*minDist
}
