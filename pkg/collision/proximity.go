package collision

import (
	"math"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/spatial"
)

// Proximity answers distance queries against the grid. Distances are
// measured between body centers; shapes are ignored. HitOnly bodies are not
// stored in the grid and are never found.
//
// Queries reuse scratch buffers and are not safe for concurrent use.
type Proximity struct {
	grid     *spatial.Grid
	registry map[entity.ID]*Registration
	buckets  []*spatial.Bucket
	results  []entity.Body
}

func newProximity(grid *spatial.Grid, registry map[entity.ID]*Registration, cfg config.ProximityConfig) *Proximity {
	return &Proximity{
		grid:     grid,
		registry: registry,
		buckets:  make([]*spatial.Bucket, 0, cfg.BucketCapacity),
		results:  make([]entity.Body, 0, cfg.ResultCapacity),
	}
}

// Nearby returns up to the configured result capacity of active bodies of
// kind within radius of (x, y). The slice is reused by the next call.
func (p *Proximity) Nearby(kind entity.Kind, x, y, radius float64) []entity.Body {
	p.results = p.results[:0]
	limit := cap(p.results)
	p.visit(kind, x, y, radius, func(body entity.Body, _ float64) bool {
		if p.isDuplicate(p.results, body) {
			return true
		}
		p.results = append(p.results, body)
		return len(p.results) < limit
	})
	return p.results
}

// AllWithinRadius appends every active body of kind within radius of (x, y)
// to dst. Bodies occupying several cells are reported once.
func (p *Proximity) AllWithinRadius(dst []entity.Body, kind entity.Kind, x, y, radius float64) []entity.Body {
	start := len(dst)
	p.visit(kind, x, y, radius, func(body entity.Body, _ float64) bool {
		if !p.isDuplicate(dst[start:], body) {
			dst = append(dst, body)
		}
		return true
	})
	return dst
}

// NearestOfKind returns the closest active body of kind within radius of
// (x, y), skipping exclude. Returns nil when there is none.
func (p *Proximity) NearestOfKind(kind entity.Kind, x, y, radius float64, exclude entity.Body) entity.Body {
	var nearest entity.Body
	best := math.MaxFloat64
	p.visit(kind, x, y, radius, func(body entity.Body, distSq float64) bool {
		if exclude != nil && body.GetID() == exclude.GetID() {
			return true
		}
		if distSq < best {
			best = distSq
			nearest = body
		}
		return true
	})
	return nearest
}

// visit calls fn for every matching body until fn returns false
func (p *Proximity) visit(kind entity.Kind, x, y, radius float64, fn func(body entity.Body, distSq float64) bool) {
	if !(radius >= 0) {
		return
	}
	maxDistSq := radius * radius
	p.buckets = p.grid.WithinRadius(x, y, radius, p.buckets[:0])

	for _, bucket := range p.buckets {
		for _, body := range bucket.Items() {
			if !body.IsActive() {
				continue
			}
			if kind != entity.AnyKind && body.GetKind() != kind {
				continue
			}
			pos := body.GetPosition()
			dx, dy := x-pos.X, y-pos.Y
			distSq := dx*dx + dy*dy
			if distSq > maxDistSq {
				continue
			}
			if !fn(body, distSq) {
				return
			}
		}
	}
}

// isDuplicate reports whether a stationary body already appears in found.
// Moving bodies live in a single cell and cannot repeat.
func (p *Proximity) isDuplicate(found []entity.Body, body entity.Body) bool {
	reg, ok := p.registry[body.GetID()]
	if !ok || reg.role != Stationary {
		return false
	}
	id := body.GetID()
	for _, b := range found {
		if b.GetID() == id {
			return true
		}
	}
	return false
}
