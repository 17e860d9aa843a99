// pkg/physics/collision_test.go
package physics

import (
	"testing"
)

func TestCirclesOverlap(t *testing.T) {
	tests := []struct {
		name     string
		a        Vector2D
		ra       float64
		b        Vector2D
		rb       float64
		expected bool
	}{
		{
			name:     "circles_touching",
			a:        Vector2D{X: 0, Y: 0},
			ra:       5,
			b:        Vector2D{X: 10, Y: 0},
			rb:       5,
			expected: false, // Distance equals sum of radii, boundary does not overlap
		},
		{
			name:     "circles_overlapping",
			a:        Vector2D{X: 0, Y: 0},
			ra:       5,
			b:        Vector2D{X: 5, Y: 0},
			rb:       5,
			expected: true,
		},
		{
			name:     "circles_not_touching",
			a:        Vector2D{X: 0, Y: 0},
			ra:       5,
			b:        Vector2D{X: 15, Y: 0},
			rb:       5,
			expected: false,
		},
		{
			name:     "circles_same_position",
			a:        Vector2D{X: 0, Y: 0},
			ra:       3,
			b:        Vector2D{X: 0, Y: 0},
			rb:       2,
			expected: true,
		},
		{
			name:     "circles_diagonal_collision",
			a:        Vector2D{X: 0, Y: 0},
			ra:       5,
			b:        Vector2D{X: 3, Y: 4},
			rb:       3,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CirclesOverlap(tt.a, tt.ra, tt.b, tt.rb); got != tt.expected {
				t.Errorf("CirclesOverlap() = %v, expected %v", got, tt.expected)
			}
			// Symmetric in argument order
			if got := CirclesOverlap(tt.b, tt.rb, tt.a, tt.ra); got != tt.expected {
				t.Errorf("CirclesOverlap() swapped = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestCirclesOverlap_Boundary(t *testing.T) {
	for _, d := range []float64{0.5, 1.999, 2, 2.001, 10} {
		got := CirclesOverlap(Vector2D{}, 1, Vector2D{X: d}, 1)
		want := d < 2
		if got != want {
			t.Errorf("distance %v: CirclesOverlap() = %v, expected %v", d, got, want)
		}
	}
}

func TestCheckCircleCollision(t *testing.T) {
	t.Run("no_collision", func(t *testing.T) {
		result := CheckCircleCollision(Vector2D{}, 5, Vector2D{X: 15}, 5)
		if result.Collided {
			t.Error("Expected no collision, but got collision")
		}
	})

	t.Run("collision_with_penetration", func(t *testing.T) {
		result := CheckCircleCollision(Vector2D{}, 5, Vector2D{X: 8}, 5)
		if !result.Collided {
			t.Fatal("Expected collision, but got no collision")
		}
		if result.Penetration != 2 {
			t.Errorf("Expected penetration 2, got %v", result.Penetration)
		}
		if !vecAlmostEqual(result.Normal, Vector2D{X: 1}) {
			t.Errorf("Expected normal {1 0}, got %v", result.Normal)
		}
		if !vecAlmostEqual(result.ContactPoint, Vector2D{X: 5}) {
			t.Errorf("Expected contact point {5 0}, got %v", result.ContactPoint)
		}
	})

	t.Run("concentric_circles_get_fallback_normal", func(t *testing.T) {
		result := CheckCircleCollision(Vector2D{X: 3, Y: 3}, 1, Vector2D{X: 3, Y: 3}, 1)
		if !result.Collided {
			t.Fatal("Expected collision")
		}
		if !vecAlmostEqual(result.Normal, Vector2D{X: 1}) {
			t.Errorf("Expected fallback normal {1 0}, got %v", result.Normal)
		}
		if result.Penetration != 2 {
			t.Errorf("Expected penetration 2, got %v", result.Penetration)
		}
	})
}

func TestSweptCirclesOverlap(t *testing.T) {
	tests := []struct {
		name     string
		a        Vector2D
		disp     Vector2D
		b        Vector2D
		expected bool
	}{
		{"overlapping_at_start", Vector2D{}, Vector2D{}, Vector2D{X: 1.5}, true},
		{"overlapping_at_end", Vector2D{}, Vector2D{X: 10}, Vector2D{X: 11}, true},
		{"passes_through", Vector2D{}, Vector2D{X: 100}, Vector2D{X: 50}, true},
		{"passes_beside", Vector2D{}, Vector2D{X: 100}, Vector2D{X: 50, Y: 2.5}, false},
		{"grazes_exactly", Vector2D{}, Vector2D{X: 100}, Vector2D{X: 50, Y: 2}, false},
		{"moving_away", Vector2D{}, Vector2D{X: -100}, Vector2D{X: 5}, false},
		{"falls_short", Vector2D{}, Vector2D{X: 2}, Vector2D{X: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SweptCirclesOverlap(tt.a, 1, tt.disp, tt.b, 1); got != tt.expected {
				t.Errorf("SweptCirclesOverlap() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
