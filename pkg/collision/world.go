package collision

import (
	"context"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/logging"
	"github.com/opd-ai/go-collide/pkg/spatial"
)

// World is one collision simulation: a grid, the registrations placed in it
// and the resolver that tests them. A World is driven by a single goroutine;
// none of its methods are safe for concurrent use.
type World struct {
	cfg       config.WorldConfig
	grid      *spatial.Grid
	registry  map[entity.ID]*Registration
	resolver  *Resolver
	proximity *Proximity
	logger    *logging.Logger
	bus       *event.Bus
	ctx       context.Context
}

// Option configures a World
type Option func(*World)

// WithLogger sets the logger used for world and pair failure logs
func WithLogger(logger *logging.Logger) Option {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithEventBus publishes registration and collision events to bus
func WithEventBus(bus *event.Bus) Option {
	return func(w *World) {
		w.bus = bus
	}
}

// WithPairFilter installs a host predicate consulted before each pair test
func WithPairFilter(filter PairFilter) Option {
	return func(w *World) {
		w.resolver.filter = filter
	}
}

// WithWorldID tags every log entry of the world with id
func WithWorldID(id string) Option {
	return func(w *World) {
		w.ctx = logging.WithWorldID(w.ctx, id)
	}
}

// NewWorld creates a world from cfg. A nil cfg uses config.DefaultConfig.
func NewWorld(cfg *config.WorldConfig, opts ...Option) (*World, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, logging.WrapError(err, "create world")
	}

	grid, err := spatial.NewGrid(cfg.WorldWidth, cfg.WorldHeight, cfg.CellSize)
	if err != nil {
		return nil, logging.WrapError(err, "create world")
	}

	registry := make(map[entity.ID]*Registration)
	w := &World{
		cfg:       *cfg,
		grid:      grid,
		registry:  registry,
		resolver:  newResolver(grid, registry, cfg),
		proximity: newProximity(grid, registry, cfg.Proximity),
		logger:    logging.Discard(),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if logging.GetWorldID(w.ctx) == "" {
		w.ctx = logging.WithWorldID(w.ctx, "")
	}

	w.resolver.logger = w.logger
	w.resolver.bus = w.bus
	w.resolver.ctx = w.ctx

	w.logger.Info(w.ctx, "collision world created",
		"width", cfg.WorldWidth,
		"height", cfg.WorldHeight,
		"cell_size", cfg.CellSize,
		"cols", grid.Cols(),
		"rows", grid.Rows(),
		"response", string(cfg.Response),
	)
	return w, nil
}

// Config returns a copy of the world's configuration
func (w *World) Config() config.WorldConfig { return w.cfg }

// Grid returns the broad-phase grid
func (w *World) Grid() *spatial.Grid { return w.grid }

// Resolver returns the world's resolver
func (w *World) Resolver() *Resolver { return w.resolver }

// Proximity returns the world's proximity query helper
func (w *World) Proximity() *Proximity { return w.proximity }

// ID returns the world ID attached to log entries
func (w *World) ID() string { return logging.GetWorldID(w.ctx) }

// Len returns the number of live registrations
func (w *World) Len() int { return len(w.registry) }

// Register binds body to role. Registering a body that is already registered
// returns the existing registration unchanged. The body enters the grid on
// its first active StepOne.
func (w *World) Register(body entity.Body, role Role) *Registration {
	if body == nil {
		return nil
	}
	if !role.Valid() {
		w.logger.Warn(w.ctx, "register with unknown role ignored",
			"body", uint64(body.GetID()),
			"role", int(role),
		)
		return nil
	}
	if reg, ok := w.registry[body.GetID()]; ok {
		return reg
	}

	reg := newRegistration(body, role)
	w.registry[body.GetID()] = reg
	w.logger.Debug(w.ctx, "body registered", "body", uint64(body.GetID()), "role", role.String())
	w.publish(event.Event{Type: event.BodyRegistered, Source: body.GetID()})
	return reg
}

// Lookup returns the live registration for id
func (w *World) Lookup(id entity.ID) (*Registration, bool) {
	reg, ok := w.registry[id]
	return reg, ok
}

// Unregister removes the registration and takes its body out of the grid.
// Unregistering twice is a no-op.
func (w *World) Unregister(reg *Registration) {
	if reg == nil || reg.removed {
		return
	}
	reg.removed = true

	if reg.inGrid {
		if reg.role == Stationary {
			w.grid.RemoveRange(reg.body, reg.footprint)
		} else {
			w.grid.Remove(reg.body, reg.cell)
		}
		reg.inGrid = false
		reg.cell = spatial.NoCell
		reg.footprint = spatial.EmptyRange
	}

	id := reg.body.GetID()
	if w.registry[id] == reg {
		delete(w.registry, id)
	}
	w.logger.Debug(w.ctx, "body unregistered", "body", uint64(id))
	w.publish(event.Event{Type: event.BodyUnregistered, Source: id})
}

// StepOne runs one tick of collision handling for reg. Inactive bodies are
// skipped. Bodies that initiate checks are tested against their
// neighborhood; ReceiveOnly bodies only have their grid cell updated.
func (w *World) StepOne(reg *Registration, deltaTimeMs float64) {
	if reg == nil || reg.removed || !reg.body.IsActive() {
		return
	}
	w.resolver.stats.Steps++

	if !reg.inGrid {
		w.insert(reg)
	}

	if reg.role.Receives() && reg.role != Stationary {
		reg.cell = w.grid.Relocate(reg.body, reg.cell)
	}
	if reg.role.Initiates() {
		w.resolver.step(reg, deltaTimeMs)
	}
}

func (w *World) insert(reg *Registration) {
	switch {
	case !reg.role.Receives():
	case reg.role != Stationary:
		reg.cell = w.grid.InsertMoving(reg.body)
	default:
		reg.footprint = w.grid.InsertStationary(reg.body)
		if reg.footprint.Empty() {
			w.logger.Warn(w.ctx, "stationary body outside the world",
				"body", uint64(reg.body.GetID()),
			)
		}
	}
	reg.inGrid = true
}

// NearestOfKind returns the closest active body of kind within radius of
// (x, y), skipping exclude, or nil
func (w *World) NearestOfKind(kind entity.Kind, x, y, radius float64, exclude entity.Body) entity.Body {
	return w.proximity.NearestOfKind(kind, x, y, radius, exclude)
}

// AllWithinRadius appends every active body of kind within radius of (x, y) to dst
func (w *World) AllWithinRadius(dst []entity.Body, kind entity.Kind, x, y, radius float64) []entity.Body {
	return w.proximity.AllWithinRadius(dst, kind, x, y, radius)
}

// Stats returns the resolver counters
func (w *World) Stats() Stats {
	return w.resolver.stats
}

func (w *World) publish(e event.Event) {
	if w.bus != nil {
		w.bus.Publish(e)
	}
}
