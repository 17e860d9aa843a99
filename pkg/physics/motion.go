package physics

// DefaultTimeScaler converts a tick duration in milliseconds into the
// fraction of a velocity applied per tick: displacement = v * dt / scaler.
const DefaultTimeScaler = 200

// Displacement returns how far velocity carries a body over deltaTimeMs.
// A non-positive scaler yields no movement.
func Displacement(velocity Vector2D, deltaTimeMs, timeScaler float64) Vector2D {
	if timeScaler <= 0 {
		return Vector2D{}
	}
	return velocity.Scale(deltaTimeMs / timeScaler)
}
