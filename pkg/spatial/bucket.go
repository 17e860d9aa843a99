package spatial

import (
	"github.com/opd-ai/go-collide/pkg/entity"
)

// InitialBucketCapacity is the capacity a bucket reserves on its first insert.
const InitialBucketCapacity = 8

// Bucket holds the bodies located in one grid cell. It keeps insertion
// order, never holds the same body twice and only ever grows, doubling its
// capacity when full. Identity is the body's ID.
type Bucket struct {
	items []entity.Body
}

// Len returns the number of bodies in the bucket
func (b *Bucket) Len() int {
	return len(b.items)
}

// Cap returns the reserved capacity
func (b *Bucket) Cap() int {
	return cap(b.items)
}

// At returns the i-th body in insertion order
func (b *Bucket) At(i int) entity.Body {
	return b.items[i]
}

// Items returns a view of the bucket's bodies. The slice is only valid until
// the bucket is next modified.
func (b *Bucket) Items() []entity.Body {
	return b.items
}

// Contains reports whether the body is in the bucket
func (b *Bucket) Contains(body entity.Body) bool {
	return b.indexOf(body.GetID()) >= 0
}

// IndexOf returns the body's position in insertion order, or -1
func (b *Bucket) IndexOf(body entity.Body) int {
	return b.indexOf(body.GetID())
}

// Add appends the body unless it is already present. Returns false for a
// duplicate.
func (b *Bucket) Add(body entity.Body) bool {
	if b.indexOf(body.GetID()) >= 0 {
		return false
	}
	if len(b.items) == cap(b.items) {
		b.grow()
	}
	b.items = append(b.items, body)
	return true
}

// Remove deletes the body and closes the gap, keeping the order of the
// remaining bodies. Returns false when the body was not present.
func (b *Bucket) Remove(body entity.Body) bool {
	i := b.indexOf(body.GetID())
	if i < 0 {
		return false
	}
	copy(b.items[i:], b.items[i+1:])
	last := len(b.items) - 1
	b.items[last] = nil
	b.items = b.items[:last]
	return true
}

func (b *Bucket) indexOf(id entity.ID) int {
	for i, item := range b.items {
		if item.GetID() == id {
			return i
		}
	}
	return -1
}

func (b *Bucket) grow() {
	newCap := cap(b.items) * 2
	if newCap < InitialBucketCapacity {
		newCap = InitialBucketCapacity
	}
	grown := make([]entity.Body, len(b.items), newCap)
	copy(grown, b.items)
	b.items = grown
}
