// Package collision detects and separates overlapping bodies.
//
// A World owns a spatial grid of registered bodies. Each tick the host calls
// StepOne for every active registration; bodies that initiate checks are
// tested against the bodies in their own and orthogonally adjacent grid
// cells using the separating axis theorem, extended with a swept test so
// that fast bodies cannot pass through thin targets within one tick. A
// detected collision produces a correction vector which is handed to the
// body's Collide callback.
package collision

import (
	"context"
	"fmt"
	"math"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/logging"
	"github.com/opd-ai/go-collide/pkg/physics"
	"github.com/opd-ai/go-collide/pkg/spatial"
)

// Contact describes how to separate a source body from a target: moving the
// source by Normal*Depth ends the contact. Normal points from the target
// toward the source.
type Contact struct {
	Normal physics.Vector2D
	Depth  float64
}

// Correction returns the full separation vector for the source
func (c Contact) Correction() physics.Vector2D {
	return c.Normal.Scale(c.Depth)
}

// maxSweepSteps bounds the swept sub-test for absurd velocities. The swept
// span only ever grows, so fewer, longer steps cover the same ground.
const maxSweepSteps = 1 << 16

// Stats counts the work done by a resolver
type Stats struct {
	Steps        uint64 `json:"steps" msgpack:"steps"`
	PairsTested  uint64 `json:"pairsTested" msgpack:"pairsTested"`
	Collisions   uint64 `json:"collisions" msgpack:"collisions"`
	PairFailures uint64 `json:"pairFailures" msgpack:"pairFailures"`
}

// Resolver runs the narrow phase for one world.
//
// A Resolver keeps scratch state between calls to avoid allocating during a
// step. It is not safe for concurrent use and must not be re-entered: a
// Collide callback may register or unregister bodies but must not call
// StepOne on the same world.
type Resolver struct {
	grid       *spatial.Grid
	registry   map[entity.ID]*Registration
	maxStep    float64
	timeScaler float64
	response   config.ResponseMode
	filter     PairFilter
	logger     *logging.Logger
	bus        *event.Bus
	ctx        context.Context

	stats     Stats
	neighbors [spatial.MaxNeighbors]*spatial.Bucket
}

func newResolver(grid *spatial.Grid, registry map[entity.ID]*Registration, cfg *config.WorldConfig) *Resolver {
	return &Resolver{
		grid:       grid,
		registry:   registry,
		maxStep:    cfg.MaxStepDistance,
		timeScaler: cfg.TimeScaler,
		response:   cfg.Response,
		logger:     logging.Discard(),
		ctx:        context.Background(),
	}
}

// Stats returns the counters accumulated so far
func (r *Resolver) Stats() Stats {
	return r.stats
}

// step tests the registration's body against every candidate in its
// neighborhood.
func (r *Resolver) step(reg *Registration, deltaTimeMs float64) {
	src := reg.body
	n := r.grid.Neighbors(src, &r.neighbors)
	for i := 0; i < n; i++ {
		bucket := r.neighbors[i]
		// Len is re-read every iteration; callbacks may unregister bodies
		for j := 0; j < bucket.Len(); j++ {
			dst := bucket.At(j)
			if dst.GetID() == src.GetID() || !dst.IsActive() {
				continue
			}
			if i > 0 && r.seenInEarlierBucket(dst, i) {
				continue
			}
			before := bucket.Len()
			r.checkPair(src, dst, deltaTimeMs)
			if reg.removed {
				return
			}
			if bucket.Len() < before {
				j = resumeIndex(bucket, dst, j)
			}
		}
	}
}

// resumeIndex returns the index of the last candidate handled after a
// callback removed bodies from the bucket being scanned. When dst itself was
// removed the next candidate now sits at j. A callback that removes dst
// together with bodies stored before it may cause one candidate to be skipped
// for this tick.
func resumeIndex(bucket *spatial.Bucket, dst entity.Body, j int) int {
	if k := bucket.IndexOf(dst); k >= 0 {
		return k
	}
	return j - 1
}

// seenInEarlierBucket reports whether a stationary body spanning several
// cells was already tested from a previous neighbor bucket.
func (r *Resolver) seenInEarlierBucket(dst entity.Body, index int) bool {
	reg, ok := r.registry[dst.GetID()]
	if !ok || reg.role != Stationary {
		return false
	}
	for k := 0; k < index; k++ {
		if r.neighbors[k].Contains(dst) {
			return true
		}
	}
	return false
}

// checkPair tests one pair and applies the response. Any panic raised by a
// shape or a host callback is contained here so the rest of the step runs.
func (r *Resolver) checkPair(src, dst entity.Body, deltaTimeMs float64) (hit bool) {
	defer func() {
		if p := recover(); p != nil {
			hit = false
			r.stats.PairFailures++
			r.logger.Error(r.ctx, "pair check failed", fmt.Errorf("panic: %v", p),
				"source", uint64(src.GetID()),
				"target", uint64(dst.GetID()),
			)
			r.publish(event.Event{Type: event.PairFailed, Source: src.GetID(), Target: dst.GetID()})
		}
	}()

	if r.filter != nil && r.filter.ShouldSkipPair(src, dst, deltaTimeMs) {
		return false
	}

	r.stats.PairsTested++
	contact, ok := r.Test(src, dst, deltaTimeMs)
	if !ok {
		return false
	}

	r.stats.Collisions++
	correction := r.resolve(src, dst, contact)
	r.publish(event.Event{Type: event.Collision, Source: src.GetID(), Target: dst.GetID(), Correction: correction})
	return true
}

func (r *Resolver) publish(e event.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

// resolve hands the correction to the bodies and returns the source's share
func (r *Resolver) resolve(src, dst entity.Body, c Contact) physics.Vector2D {
	if r.response != config.ResponseSplit {
		correction := c.Correction()
		src.Collide(dst, correction)
		return correction
	}

	// Bounding circle area stands in for mass: the larger body moves less.
	ra := src.GetBounds().Shape.Radius()
	rb := dst.GetBounds().Shape.Radius()
	areaA := math.Pi * ra * ra
	areaB := math.Pi * rb * rb

	srcShare, dstShare := 0.5, 0.5
	if total := areaA + areaB; total > 0 {
		srcShare, dstShare = areaB/total, areaA/total
	}
	if reg, ok := r.registry[dst.GetID()]; ok && reg.role == Stationary {
		srcShare, dstShare = 1, 0
	}

	correction := c.Normal.Scale(c.Depth * srcShare)
	src.Collide(dst, correction)
	if dstShare > 0 {
		dst.Collide(src, c.Normal.Scale(-c.Depth*dstShare))
	}
	return correction
}

// Test reports whether src, moving by its velocity over deltaTimeMs, collides
// with dst, and how to separate them. It has no side effects.
func (r *Resolver) Test(src, dst entity.Body, deltaTimeMs float64) (Contact, bool) {
	sb, db := src.GetBounds(), dst.GetBounds()
	if sb == nil || db == nil || sb.Shape == nil || db.Shape == nil {
		return Contact{}, false
	}
	srcShape, dstShape := sb.Shape, db.Shape
	srcPos, dstPos := src.GetPosition(), dst.GetPosition()
	disp := physics.Displacement(src.GetVelocity(), deltaTimeMs, r.timeScaler)

	if isRound(srcShape) && isRound(dstShape) {
		return circleContact(srcPos, srcShape.Radius(), disp, dstPos, dstShape.Radius())
	}

	// Bounding circles rule most pairs out before the full test
	if !physics.SweptCirclesOverlap(srcPos, srcShape.Radius(), disp, dstPos, dstShape.Radius()) {
		return Contact{}, false
	}
	return r.separatingAxis(srcShape, srcPos, dstShape, dstPos, disp)
}

func isRound(s physics.Shape) bool {
	return len(s.Vertices()) == 0
}

// circleContact resolves a circle pair without SAT. The direction is taken
// from the current centers when they overlap now, else from the centers
// after the move.
func circleContact(srcPos physics.Vector2D, ra float64, disp, dstPos physics.Vector2D, rb float64) (Contact, bool) {
	if res := physics.CheckCircleCollision(dstPos, rb, srcPos, ra); res.Collided {
		return Contact{Normal: res.Normal, Depth: res.Penetration}, true
	}

	current := srcPos.Sub(dstPos)
	futurePos := srcPos.Add(disp)
	if res := physics.CheckCircleCollision(dstPos, rb, futurePos, ra); res.Collided {
		normal := res.Normal
		if futurePos == dstPos {
			normal = direction(current)
		}
		return Contact{Normal: normal, Depth: res.Penetration}, true
	}

	// Passing straight through within one tick: push back to the side the
	// source came from so that the move ends touching.
	if physics.SweptCirclesOverlap(srcPos, ra, disp, dstPos, rb) {
		normal := direction(current)
		future := futurePos.Sub(dstPos)
		return Contact{Normal: normal, Depth: ra + rb - future.Dot(normal)}, true
	}
	return Contact{}, false
}

func direction(v physics.Vector2D) physics.Vector2D {
	if v.IsZero() {
		return physics.Vector2D{X: 1}
	}
	return v.Normalize()
}

// separatingAxis runs SAT with a swept sub-test on every axis.
//
// An axis on which the shapes are apart now and stay apart for the whole
// move proves there is no collision and ends the test. Otherwise the axis is
// a candidate: its weight is the current overlap, or zero when the overlap
// only appears during the move. The lightest axis wins and becomes the
// contact normal.
func (r *Resolver) separatingAxis(srcShape physics.Shape, srcPos physics.Vector2D, dstShape physics.Shape, dstPos, disp physics.Vector2D) (Contact, bool) {
	steps := 0
	var perStep physics.Vector2D
	if length := disp.Length(); length > 0 && !math.IsInf(length, 0) {
		steps = int(math.Min(math.Ceil(length/r.maxStep), maxSweepSteps))
		perStep = disp.Scale(1 / float64(steps))
	}

	srcAxes := srcShape.AxisCount(dstShape)
	total := srcAxes + dstShape.AxisCount(srcShape)
	separation := srcPos.Sub(dstPos)

	found := false
	bestWeight := math.MaxFloat64
	var best Contact

	for i := 0; i < total; i++ {
		var axis physics.Vector2D
		var ok bool
		if i < srcAxes {
			axis, ok = srcShape.Axis(i, srcPos, dstShape, dstPos)
		} else {
			axis, ok = dstShape.Axis(i-srcAxes, dstPos, srcShape, srcPos)
		}
		if !ok {
			continue
		}

		a := srcShape.Project(axis, srcPos)
		b := dstShape.Project(axis, dstPos)
		distance := a.DistanceBetween(b)
		weight := distance

		if distance >= 0 {
			if !sweepOverlaps(a, b, axis.Dot(perStep), steps) {
				return Contact{}, false
			}
			distance = a.Sweep(axis.Dot(disp)).DistanceBetween(b)
			weight = 0
		}

		weight = math.Abs(weight)
		if weight < bestWeight {
			bestWeight = weight
			best = Contact{Normal: axis, Depth: math.Abs(distance)}
			if separation.Dot(axis) < 0 {
				best.Normal = axis.Neg()
			}
		}
		found = true
	}

	return best, found
}

// sweepOverlaps grows a by perStep up to steps times and reports whether it
// reaches b.
func sweepOverlaps(a, b physics.Span, perStep float64, steps int) bool {
	for s := 0; s < steps; s++ {
		a = a.Sweep(perStep)
		if a.Overlaps(b) {
			return true
		}
	}
	return false
}
