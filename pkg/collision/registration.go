package collision

import (
	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/spatial"
)

// Registration binds one body to one role inside a World. It caches where
// the body sits in the grid so relocation is O(1). A registration is never
// shared between bodies.
type Registration struct {
	body entity.Body
	role Role

	cell      int               // moving roles; spatial.NoCell when outside every cell
	footprint spatial.CellRange // Stationary only
	inGrid    bool
	removed   bool
}

func newRegistration(body entity.Body, role Role) *Registration {
	return &Registration{
		body:      body,
		role:      role,
		cell:      spatial.NoCell,
		footprint: spatial.EmptyRange,
	}
}

// Body returns the registered body
func (r *Registration) Body() entity.Body { return r.body }

// Role returns the collision role
func (r *Registration) Role() Role { return r.role }

// Cell returns the cached flat cell index, spatial.NoCell when the body is in
// no moving cell
func (r *Registration) Cell() int { return r.cell }

// Footprint returns the cells a stationary body occupies
func (r *Registration) Footprint() spatial.CellRange { return r.footprint }

// InGrid reports whether the body has been inserted into the grid. Insertion
// happens on the first active step.
func (r *Registration) InGrid() bool { return r.inGrid }

// Registered reports whether the registration is still live
func (r *Registration) Registered() bool { return !r.removed }
