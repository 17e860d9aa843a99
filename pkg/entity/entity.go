// pkg/entity/entity.go
package entity

import (
	"github.com/opd-ai/go-collide/pkg/physics"
)

// ID is a unique identifier for an entity
type ID uint64

// Kind is a gameplay category used by proximity queries ("ship", "rock", ...)
type Kind string

// AnyKind matches every body in proximity queries
const AnyKind Kind = ""

// Body is the simulated object the collision engine works against. The
// engine never owns a body; it only keeps references to it while it is
// registered.
type Body interface {
	GetID() ID
	GetKind() Kind
	GetPosition() physics.Vector2D
	GetVelocity() physics.Vector2D
	GetBounds() *physics.Bounds
	IsActive() bool
	// Collide is called on the source of a detected collision with the
	// other body and the vector that moves this body out of contact.
	Collide(other Body, correction physics.Vector2D)
}

// CollideFunc is notified after a BaseEntity has applied a correction
type CollideFunc func(self *BaseEntity, other Body, correction physics.Vector2D)

// BaseEntity contains common functionality for all entities and is a
// ready-made Body implementation.
type BaseEntity struct {
	ID       ID
	Kind     Kind
	Position physics.Vector2D
	Velocity physics.Vector2D
	Angle    float64 // degrees
	Rotation float64 // degrees per time-scaler unit
	Scale    float64
	Bounds   *physics.Bounds
	Active   bool

	// OnCollide, when set, runs after the correction has been applied.
	OnCollide CollideFunc
}

// NewBaseEntity creates an active entity at position with the given outline
func NewBaseEntity(id ID, kind Kind, position physics.Vector2D, shape physics.Shape) *BaseEntity {
	e := &BaseEntity{
		ID:       id,
		Kind:     kind,
		Position: position,
		Scale:    1,
		Bounds:   physics.NewBounds(shape),
		Active:   true,
	}
	e.Bounds.Transform(e.Angle, e.Scale)
	return e
}

// GetID returns the entity's unique identifier
func (e *BaseEntity) GetID() ID {
	return e.ID
}

// GetKind returns the entity's category
func (e *BaseEntity) GetKind() Kind {
	return e.Kind
}

// GetPosition returns the entity's position
func (e *BaseEntity) GetPosition() physics.Vector2D {
	return e.Position
}

// GetVelocity returns the entity's velocity
func (e *BaseEntity) GetVelocity() physics.Vector2D {
	return e.Velocity
}

// GetBounds returns the entity's collision bounds
func (e *BaseEntity) GetBounds() *physics.Bounds {
	return e.Bounds
}

// IsActive reports whether the entity takes part in the simulation
func (e *BaseEntity) IsActive() bool {
	return e.Active
}

// SetAngle rotates the entity and its bounds. Degrees.
func (e *BaseEntity) SetAngle(angle float64) {
	if angle == e.Angle {
		return
	}
	e.Angle = angle
	if e.Bounds != nil {
		e.Bounds.Transform(e.Angle, e.Scale)
	}
}

// SetScale resizes the entity's bounds
func (e *BaseEntity) SetScale(scale float64) {
	if scale == e.Scale {
		return
	}
	e.Scale = scale
	if e.Bounds != nil {
		e.Bounds.Transform(e.Angle, e.Scale)
	}
}

// Advance moves the entity by its velocity and spins it by its rotation
// over deltaTimeMs.
func (e *BaseEntity) Advance(deltaTimeMs, timeScaler float64) {
	e.Position = e.Position.Add(physics.Displacement(e.Velocity, deltaTimeMs, timeScaler))
	if e.Rotation != 0 && timeScaler > 0 {
		e.SetAngle(e.Angle + e.Rotation*deltaTimeMs/timeScaler)
	}
}

// Collide moves the entity by the correction vector
func (e *BaseEntity) Collide(other Body, correction physics.Vector2D) {
	e.Position = e.Position.Add(correction)
	if e.OnCollide != nil {
		e.OnCollide(e, other, correction)
	}
}
