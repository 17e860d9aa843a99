package collision

import (
	"math"
	"testing"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/physics"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func vecAlmostEqual(a, b physics.Vector2D) bool {
	return almostEqual(a.X, b.X) && almostEqual(a.Y, b.Y)
}

type collisionRecord struct {
	other      entity.ID
	correction physics.Vector2D
}

func newSquare(id entity.ID, x, y, size float64) *entity.BaseEntity {
	return entity.NewBaseEntity(id, "square", physics.Vector2D{X: x, Y: y}, physics.NewRectangle(size, size))
}

func newBall(id entity.ID, x, y, radius float64) *entity.BaseEntity {
	return entity.NewBaseEntity(id, "ball", physics.Vector2D{X: x, Y: y}, physics.NewCircle(radius))
}

// record captures every Collide callback the entity receives
func record(e *entity.BaseEntity) *[]collisionRecord {
	records := &[]collisionRecord{}
	e.OnCollide = func(_ *entity.BaseEntity, other entity.Body, correction physics.Vector2D) {
		*records = append(*records, collisionRecord{other: other.GetID(), correction: correction})
	}
	return records
}

func newTestWorld(t testing.TB, modify func(c *config.WorldConfig), opts ...Option) *World {
	t.Helper()
	cfg := config.DefaultConfig()
	if modify != nil {
		modify(cfg)
	}
	w, err := NewWorld(cfg, opts...)
	if err != nil {
		t.Fatalf("NewWorld() failed: %v", err)
	}
	return w
}

// countingShape counts projections and panics once more than failAfter have
// been made. failAfter < 0 never panics.
type countingShape struct {
	physics.Shape
	projections int
	failAfter   int
}

func (c *countingShape) Project(axis, offset physics.Vector2D) physics.Span {
	c.projections++
	if c.failAfter >= 0 && c.projections > c.failAfter {
		panic("projected past the separating axis")
	}
	return c.Shape.Project(axis, offset)
}

func withShape(e *entity.BaseEntity, shape physics.Shape) *entity.BaseEntity {
	e.Bounds = &physics.Bounds{Raw: shape, Shape: shape}
	return e
}

func TestResolver_ScenarioA_HalfOverlappingSquares(t *testing.T) {
	w := newTestWorld(t, nil)
	src := newSquare(1, 100, 100, 1)
	dst := newSquare(2, 100.5, 100, 1)
	srcHits := record(src)
	dstHits := record(dst)

	dstReg := w.Register(dst, ReceiveOnly)
	srcReg := w.Register(src, HitAndReceive)
	w.StepOne(dstReg, 16)
	w.StepOne(srcReg, 16)

	if len(*srcHits) != 1 {
		t.Fatalf("source got %d collisions, expected 1", len(*srcHits))
	}
	got := (*srcHits)[0]
	if got.other != dst.ID {
		t.Errorf("collided with %d, expected %d", got.other, dst.ID)
	}
	if !vecAlmostEqual(got.correction, physics.Vector2D{X: -0.5}) {
		t.Errorf("correction = %v, expected {-0.5 0}", got.correction)
	}
	if !vecAlmostEqual(src.Position, physics.Vector2D{X: 99.5, Y: 100}) {
		t.Errorf("source moved to %v, expected {99.5 100}", src.Position)
	}
	if len(*dstHits) != 0 {
		t.Errorf("target got %d callbacks in source response mode, expected 0", len(*dstHits))
	}
	if s := w.Stats(); s.Collisions != 1 || s.PairsTested != 1 {
		t.Errorf("Stats() = %+v, expected 1 pair tested and 1 collision", s)
	}
}

func TestResolver_ScenarioB_SeparatedSquares(t *testing.T) {
	w := newTestWorld(t, nil)
	src := newSquare(1, 100, 100, 1)
	dst := newSquare(2, 103, 100, 1)
	srcHits := record(src)
	dstHits := record(dst)

	dstReg := w.Register(dst, ReceiveOnly)
	srcReg := w.Register(src, HitAndReceive)
	w.StepOne(dstReg, 16)
	w.StepOne(srcReg, 16)

	if len(*srcHits) != 0 || len(*dstHits) != 0 {
		t.Errorf("unexpected callbacks: source %v, target %v", *srcHits, *dstHits)
	}
	if _, ok := w.Resolver().Test(src, dst, 16); ok {
		t.Error("Test() reported a collision for separated squares")
	}
}

func TestResolver_ScenarioC_SweptCircles(t *testing.T) {
	w := newTestWorld(t, func(c *config.WorldConfig) {
		c.TimeScaler = 2000
		c.CellSize = 50
	})
	src := newBall(1, 100, 100, 1)
	src.Velocity = physics.Vector2D{X: 100}
	dst := newBall(2, 150, 100, 1)
	srcHits := record(src)

	t.Run("narrow_phase", func(t *testing.T) {
		contact, ok := w.Resolver().Test(src, dst, 1000)
		if !ok {
			t.Fatal("Test() missed a collision found only by the sweep")
		}
		if !vecAlmostEqual(contact.Normal, physics.Vector2D{X: -1}) {
			t.Errorf("Normal = %v, expected {-1 0}", contact.Normal)
		}
		if !almostEqual(contact.Depth, 2) {
			t.Errorf("Depth = %v, expected 2", contact.Depth)
		}
	})

	t.Run("through_the_world", func(t *testing.T) {
		dstReg := w.Register(dst, Stationary)
		srcReg := w.Register(src, HitOnly)
		w.StepOne(dstReg, 1000)
		w.StepOne(srcReg, 1000)

		if len(*srcHits) != 1 {
			t.Fatalf("source got %d collisions, expected 1", len(*srcHits))
		}
		if !vecAlmostEqual((*srcHits)[0].correction, physics.Vector2D{X: -2}) {
			t.Errorf("correction = %v, expected {-2 0}", (*srcHits)[0].correction)
		}
	})
}

func TestResolver_CircleSymmetry(t *testing.T) {
	w := newTestWorld(t, nil)

	tests := []struct {
		name     string
		distance float64
		expected bool
	}{
		{"overlapping", 1.5, true},
		{"touching", 2, false},
		{"apart", 2.5, false},
		{"concentric", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newBall(1, 100, 100, 1)
			b := newBall(2, 100+tt.distance, 100, 1)
			_, ab := w.Resolver().Test(a, b, 16)
			_, ba := w.Resolver().Test(b, a, 16)
			if ab != tt.expected || ba != tt.expected {
				t.Errorf("Test() = %v/%v at distance %v, expected %v", ab, ba, tt.distance, tt.expected)
			}
		})
	}

	t.Run("concentric_fallback_normal", func(t *testing.T) {
		contact, _ := w.Resolver().Test(newBall(1, 5, 5, 1), newBall(2, 5, 5, 1), 16)
		if !vecAlmostEqual(contact.Normal, physics.Vector2D{X: 1}) {
			t.Errorf("Normal = %v, expected {1 0}", contact.Normal)
		}
	})
}

func TestResolver_AxisCount(t *testing.T) {
	w := newTestWorld(t, nil)
	hexagon, _ := physics.NewPolygonBuilder().
		Add(1, 0).Add(0.5, 0.87).Add(-0.5, 0.87).
		Add(-1, 0).Add(-0.5, -0.87).Add(0.5, -0.87).Build()

	tests := []struct {
		name     string
		target   physics.Shape
		expected int
	}{
		{"square_vs_hexagon", hexagon, 4 + 6},
		{"square_vs_square", physics.NewRectangle(2, 2), 4 + 4},
		{"square_vs_circle", physics.NewCircle(1), 4 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSquare(1, 100, 100, 2)
			counter := &countingShape{Shape: tt.target, failAfter: -1}
			dst := withShape(newSquare(2, 100.5, 100, 1), counter)

			if _, ok := w.Resolver().Test(src, dst, 16); !ok {
				t.Fatal("Test() expected overlapping shapes to collide")
			}
			if counter.projections != tt.expected {
				t.Errorf("tested %d axes, expected %d", counter.projections, tt.expected)
			}
		})
	}
}

func TestResolver_SeparatingAxisEarlyExit(t *testing.T) {
	w := newTestWorld(t, nil)

	// The source's first axis is (0,1), on which the squares are 0.5 apart.
	// Their bounding circles overlap so the full test runs.
	src := newSquare(1, 100, 100, 2)
	faulty := &countingShape{Shape: physics.NewRectangle(2, 2), failAfter: 1}
	dst := withShape(newSquare(2, 100, 102.5, 2), faulty)
	srcHits := record(src)

	dstReg := w.Register(dst, ReceiveOnly)
	srcReg := w.Register(src, HitOnly)
	w.StepOne(dstReg, 16)
	w.StepOne(srcReg, 16)

	if s := w.Stats(); s.PairFailures != 0 {
		t.Errorf("PairFailures = %d, expected the test to stop at the first axis", s.PairFailures)
	}
	if faulty.projections != 1 {
		t.Errorf("target projected %d times, expected 1", faulty.projections)
	}
	if len(*srcHits) != 0 {
		t.Errorf("unexpected collisions %v", *srcHits)
	}
}

func TestResolver_PairFailureIsContained(t *testing.T) {
	w := newTestWorld(t, nil)

	src := newSquare(1, 100, 100, 2)
	broken := withShape(newSquare(2, 100, 101, 2), &countingShape{Shape: physics.NewRectangle(2, 2), failAfter: 0})
	healthy := newSquare(3, 101, 100, 2)
	srcHits := record(src)

	regs := []*Registration{
		w.Register(broken, ReceiveOnly),
		w.Register(healthy, ReceiveOnly),
		w.Register(src, HitOnly),
	}
	for _, reg := range regs {
		w.StepOne(reg, 16)
	}

	if s := w.Stats(); s.PairFailures != 1 {
		t.Errorf("PairFailures = %d, expected 1", s.PairFailures)
	}
	if len(*srcHits) != 1 || (*srcHits)[0].other != healthy.ID {
		t.Errorf("source collisions = %v, expected one with the healthy body", *srcHits)
	}
}

func TestResolver_TunnelingPrevention(t *testing.T) {
	w := newTestWorld(t, nil)
	wall := newSquare(2, 120, 100, 1)
	wall.Bounds = physics.NewBounds(physics.NewRectangle(0.2, 10))

	// At the default time scaler a 1000ms tick moves a body 5x its speed.
	// Slow enough to stop short of the wall:
	slow := newSquare(1, 100, 100, 1)
	slow.Velocity = physics.Vector2D{X: 2}
	if _, ok := w.Resolver().Test(slow, wall, 1000); ok {
		t.Fatal("Test() reported a collision for a body stopping short of the wall")
	}

	for _, speed := range []float64{4, 8, 20, 100, 1000, 10000, 1e6} {
		src := newSquare(1, 100, 100, 1)
		src.Velocity = physics.Vector2D{X: speed}

		contact, ok := w.Resolver().Test(src, wall, 1000)
		if !ok {
			t.Errorf("speed %v: collision missed", speed)
			continue
		}
		if contact.Normal.X >= 0 {
			t.Errorf("speed %v: normal %v should push back toward the start", speed, contact.Normal)
		}
	}
}

func TestResolver_TunnelingPrevention_Circles(t *testing.T) {
	w := newTestWorld(t, nil)
	target := newBall(2, 150, 100, 1)

	for _, speed := range []float64{10, 100, 1000, 1e5} {
		src := newBall(1, 100, 100, 1)
		src.Velocity = physics.Vector2D{X: speed}
		contact, ok := w.Resolver().Test(src, target, 1000)
		if !ok {
			t.Errorf("speed %v: collision missed", speed)
			continue
		}
		// The correction applied before the move leaves the source touching
		// the near side of the target.
		end := src.Position.Add(contact.Correction()).Add(physics.Displacement(src.Velocity, 1000, 200))
		if !almostEqual(end.X, 148) && end.X > 148 {
			t.Errorf("speed %v: source ends at %v, expected at most 148", speed, end.X)
		}
	}
}

func TestResolver_ZeroVelocityDisablesSweep(t *testing.T) {
	w := newTestWorld(t, nil)
	src := newSquare(1, 100, 100, 1)
	dst := newSquare(2, 101.2, 100, 1)

	if _, ok := w.Resolver().Test(src, dst, 1000); ok {
		t.Error("Test() reported a collision for resting, separated squares")
	}

	src.Velocity = physics.Vector2D{X: 1}
	contact, ok := w.Resolver().Test(src, dst, 1000)
	if !ok {
		t.Fatal("Test() missed a collision one tick ahead")
	}
	if !vecAlmostEqual(contact.Normal, physics.Vector2D{X: -1}) {
		t.Errorf("Normal = %v, expected {-1 0}", contact.Normal)
	}
}

func TestResolver_SplitResponse(t *testing.T) {
	w := newTestWorld(t, func(c *config.WorldConfig) { c.Response = config.ResponseSplit })

	small := newBall(1, 100, 100, 1)
	large := newBall(2, 102, 100, 2)
	smallHits := record(small)
	largeHits := record(large)

	largeReg := w.Register(large, ReceiveOnly)
	smallReg := w.Register(small, HitOnly)
	w.StepOne(largeReg, 16)
	w.StepOne(smallReg, 16)

	if len(*smallHits) != 1 || len(*largeHits) != 1 {
		t.Fatalf("callbacks: small %d, large %d, expected 1 each", len(*smallHits), len(*largeHits))
	}
	// Overlap is 1; areas are pi and 4pi, so the small body moves 4/5 of it.
	if !vecAlmostEqual((*smallHits)[0].correction, physics.Vector2D{X: -0.8}) {
		t.Errorf("small correction = %v, expected {-0.8 0}", (*smallHits)[0].correction)
	}
	if !vecAlmostEqual((*largeHits)[0].correction, physics.Vector2D{X: 0.2}) {
		t.Errorf("large correction = %v, expected {0.2 0}", (*largeHits)[0].correction)
	}
	if (*largeHits)[0].other != small.ID {
		t.Errorf("large body told it hit %d, expected %d", (*largeHits)[0].other, small.ID)
	}
}

func TestResolver_SplitResponse_StationaryDoesNotMove(t *testing.T) {
	w := newTestWorld(t, func(c *config.WorldConfig) { c.Response = config.ResponseSplit })

	ball := newBall(1, 100, 100, 1)
	pillar := newBall(2, 102, 100, 2)
	ballHits := record(ball)
	pillarHits := record(pillar)

	pillarReg := w.Register(pillar, Stationary)
	ballReg := w.Register(ball, HitOnly)
	w.StepOne(pillarReg, 16)
	w.StepOne(ballReg, 16)

	if len(*ballHits) != 1 || !vecAlmostEqual((*ballHits)[0].correction, physics.Vector2D{X: -1}) {
		t.Errorf("ball collisions = %v, expected full correction {-1 0}", *ballHits)
	}
	if len(*pillarHits) != 0 {
		t.Errorf("pillar collisions = %v, expected none", *pillarHits)
	}
	if pillar.Position != (physics.Vector2D{X: 102, Y: 100}) {
		t.Errorf("pillar moved to %v", pillar.Position)
	}
}

func TestContact_Correction(t *testing.T) {
	c := Contact{Normal: physics.Vector2D{Y: -1}, Depth: 3}
	if got := c.Correction(); got != (physics.Vector2D{Y: -3}) {
		t.Errorf("Correction() = %v, expected {0 -3}", got)
	}
}
