// pkg/system/collision_system.go
package system

import (
	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/entity"
)

// Priority of the collision system. ecs runs higher priorities first, so
// collisions are settled before systems that read positions.
const Priority = 100

// Mover is implemented by bodies that integrate their own velocity
type Mover interface {
	Advance(deltaTimeMs, timeScaler float64)
}

type collisionEntity struct {
	basic *ecs.BasicEntity
	reg   *collision.Registration
}

// CollisionSystem drives a collision world from an ecs.World. Each Update
// steps every added body once and then advances bodies that implement Mover.
//
// Entities removed from inside Update, for example by a collision callback,
// are unregistered at once but stay in the entity list until Update returns.
type CollisionSystem struct {
	world    *collision.World
	entities []collisionEntity
	index    map[uint64]int
	updating bool
	pending  []uint64
}

// NewCollisionSystem creates a system stepping world
func NewCollisionSystem(world *collision.World) *CollisionSystem {
	return &CollisionSystem{
		world: world,
		index: make(map[uint64]int),
	}
}

// World returns the driven collision world
func (cs *CollisionSystem) World() *collision.World {
	return cs.world
}

// Priority satisfies the ecs.Prioritizer interface
func (cs *CollisionSystem) Priority() int {
	return Priority
}

// Add registers body under role for the ecs entity. Adding an entity twice
// keeps the first registration.
func (cs *CollisionSystem) Add(basic *ecs.BasicEntity, body entity.Body, role collision.Role) *collision.Registration {
	if i, ok := cs.index[basic.ID()]; ok {
		return cs.entities[i].reg
	}
	reg := cs.world.Register(body, role)
	if reg == nil {
		return nil
	}
	cs.index[basic.ID()] = len(cs.entities)
	cs.entities = append(cs.entities, collisionEntity{basic: basic, reg: reg})
	return reg
}

// Remove satisfies the ecs.System interface and unregisters the entity's body
func (cs *CollisionSystem) Remove(basic ecs.BasicEntity) {
	i, ok := cs.index[basic.ID()]
	if !ok {
		return
	}
	cs.world.Unregister(cs.entities[i].reg)
	if cs.updating {
		cs.pending = append(cs.pending, basic.ID())
		return
	}
	cs.removeAt(i)
}

func (cs *CollisionSystem) removeAt(i int) {
	id := cs.entities[i].basic.ID()
	last := len(cs.entities) - 1
	if i != last {
		cs.entities[i] = cs.entities[last]
		cs.index[cs.entities[i].basic.ID()] = i
	}
	cs.entities[last] = collisionEntity{}
	cs.entities = cs.entities[:last]
	delete(cs.index, id)
}

// Update steps every body. dt is in seconds, as ecs passes it.
func (cs *CollisionSystem) Update(dt float32) {
	deltaTimeMs := float64(dt) * 1000
	timeScaler := cs.world.Config().TimeScaler

	cs.updating = true
	defer cs.flushRemovals()

	for _, e := range cs.entities {
		cs.world.StepOne(e.reg, deltaTimeMs)
	}
	for _, e := range cs.entities {
		if !e.reg.Registered() || !e.reg.Body().IsActive() {
			continue
		}
		if m, ok := e.reg.Body().(Mover); ok {
			m.Advance(deltaTimeMs, timeScaler)
		}
	}
}

func (cs *CollisionSystem) flushRemovals() {
	cs.updating = false
	for _, id := range cs.pending {
		if i, ok := cs.index[id]; ok {
			cs.removeAt(i)
		}
	}
	cs.pending = cs.pending[:0]
}

// Len returns the number of entities in the system
func (cs *CollisionSystem) Len() int {
	return len(cs.entities)
}
