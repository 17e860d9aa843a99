// cmd/sandbox/sandbox.go
package main

import (
	"context"
	"math"
	"math/rand"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/logging"
	"github.com/opd-ai/go-collide/pkg/physics"
	"github.com/opd-ai/go-collide/pkg/system"
)

// Body kinds spawned by the sandbox
const (
	KindShip   entity.Kind = "ship"
	KindBullet entity.Kind = "bullet"
	KindRock   entity.Kind = "rock"
	KindWall   entity.Kind = "wall"
)

// population is how many bodies of each kind to spawn
type population struct {
	Ships   int
	Bullets int
	Rocks   int
	Walls   int
}

// teams maps bodies to a team. Team 0 is neutral.
type teams map[entity.ID]int

// ShouldSkipPair skips pairs of bodies on the same team
func (t teams) ShouldSkipPair(src, dst entity.Body, _ float64) bool {
	team := t[src.GetID()]
	return team != 0 && team == t[dst.GetID()]
}

// sandbox owns a collision world driven through an ecs.World
type sandbox struct {
	world   *collision.World
	ecs     ecs.World
	system  *system.CollisionSystem
	bodies  []*entity.BaseEntity
	teams   teams
	rng     *rand.Rand
	logger  *logging.Logger
	ctx     context.Context
	nextID  entity.ID
	hits    map[entity.Kind]uint64
	bounces uint64
}

func newSandbox(world *collision.World, t teams, bus *event.Bus, logger *logging.Logger, seed int64) *sandbox {
	s := &sandbox{
		world:  world,
		system: system.NewCollisionSystem(world),
		teams:  t,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
		ctx:    logging.WithWorldID(context.Background(), world.ID()),
		hits:   make(map[entity.Kind]uint64),
	}
	s.ecs.AddSystem(s.system)

	if bus != nil {
		bus.Subscribe(event.Collision, s.onCollision)
		bus.Subscribe(event.PairFailed, func(e event.Event) {
			s.logger.Warn(s.ctx, "pair check failed",
				"source", uint64(e.Source),
				"target", uint64(e.Target),
			)
		})
	}
	return s
}

func (s *sandbox) onCollision(e event.Event) {
	if reg, ok := s.world.Lookup(e.Target); ok {
		s.hits[reg.Body().GetKind()]++
	}
	s.logger.Debug(s.ctx, "collision",
		"source", uint64(e.Source),
		"target", uint64(e.Target),
		"correction_x", e.Correction.X,
		"correction_y", e.Correction.Y,
	)
}

// spawn creates the population at random positions inside the world
func (s *sandbox) spawn(p population) {
	cfg := s.world.Config()

	for i := 0; i < p.Walls; i++ {
		w := 20 + s.rng.Float64()*80
		h := 5 + s.rng.Float64()*15
		if s.rng.Intn(2) == 0 {
			w, h = h, w
		}
		s.add(KindWall, physics.NewRectangle(w, h), 0, collision.Stationary, 0)
	}
	for i := 0; i < p.Rocks; i++ {
		rock := s.add(KindRock, s.randomPolygon(4+s.rng.Intn(4), 4+s.rng.Float64()*8), 0, collision.ReceiveOnly, 0)
		rock.Rotation = s.rng.Float64()*20 - 10
	}
	for i := 0; i < p.Ships; i++ {
		team := 1 + i%2
		ship := s.add(KindShip, s.randomPolygon(3, 4+s.rng.Float64()*4), 1+s.rng.Float64()*2, collision.HitAndReceive, team)
		ship.SetAngle(ship.Velocity.Angle() * 180 / math.Pi)
	}
	for i := 0; i < p.Bullets; i++ {
		s.add(KindBullet, physics.NewCircle(1), 10+s.rng.Float64()*10, collision.HitOnly, 1+i%2)
	}

	s.logger.Info(s.ctx, "population spawned",
		"ships", p.Ships,
		"bullets", p.Bullets,
		"rocks", p.Rocks,
		"walls", p.Walls,
		"world_width", cfg.WorldWidth,
		"world_height", cfg.WorldHeight,
	)
}

func (s *sandbox) add(kind entity.Kind, shape physics.Shape, speed float64, role collision.Role, team int) *entity.BaseEntity {
	cfg := s.world.Config()
	s.nextID++
	pos := physics.Vector2D{
		X: s.rng.Float64() * cfg.WorldWidth,
		Y: s.rng.Float64() * cfg.WorldHeight,
	}
	body := entity.NewBaseEntity(s.nextID, kind, pos, shape)
	if speed > 0 {
		body.Velocity = physics.FromAngle(s.rng.Float64()*2*math.Pi, speed)
	}

	basic := ecs.NewBasic()
	if s.system.Add(&basic, body, role) == nil {
		return body
	}
	if team != 0 {
		s.teams[body.ID] = team
	}
	s.bodies = append(s.bodies, body)
	return body
}

// randomPolygon returns a convex polygon with n points on a circle
func (s *sandbox) randomPolygon(n int, radius float64) physics.Shape {
	b := physics.NewPolygonBuilder()
	for i := 0; i < n; i++ {
		p := physics.FromAngle(float64(i)*2*math.Pi/float64(n), radius)
		b.Add(p.X, p.Y)
	}
	poly, err := b.Build()
	if err != nil {
		return physics.NewCircle(radius)
	}
	return poly
}

// tick steps and moves every body, then bounces bodies off the world edges
func (s *sandbox) tick(deltaTimeMs float64) {
	s.ecs.Update(float32(deltaTimeMs / 1000))

	cfg := s.world.Config()
	for _, b := range s.bodies {
		if b.Velocity.IsZero() {
			continue
		}
		if (b.Position.X < 0 && b.Velocity.X < 0) || (b.Position.X >= cfg.WorldWidth && b.Velocity.X > 0) {
			b.Velocity.X = -b.Velocity.X
			s.bounces++
		}
		if (b.Position.Y < 0 && b.Velocity.Y < 0) || (b.Position.Y >= cfg.WorldHeight && b.Velocity.Y > 0) {
			b.Velocity.Y = -b.Velocity.Y
			s.bounces++
		}
	}
}

// report logs the world counters
func (s *sandbox) report() {
	stats := s.world.Stats()
	s.logger.Info(s.ctx, "simulation stats",
		"bodies", s.world.Len(),
		"steps", stats.Steps,
		"pairs_tested", stats.PairsTested,
		"collisions", stats.Collisions,
		"pair_failures", stats.PairFailures,
		"ship_hits", s.hits[KindShip],
		"rock_hits", s.hits[KindRock],
		"wall_hits", s.hits[KindWall],
		"bounces", s.bounces,
	)
}
