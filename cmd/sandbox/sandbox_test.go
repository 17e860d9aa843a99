package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/logging"
)

func newTestSandbox(t *testing.T, seed int64) *sandbox {
	t.Helper()
	sides := make(teams)
	bus := event.NewEventBus()
	world, err := collision.NewWorld(nil,
		collision.WithEventBus(bus),
		collision.WithPairFilter(sides),
		collision.WithWorldID("sandbox-test"),
	)
	if err != nil {
		t.Fatalf("NewWorld() failed: %v", err)
	}
	return newSandbox(world, sides, bus, logging.Discard(), seed)
}

func TestTeams_ShouldSkipPair(t *testing.T) {
	sides := teams{1: 1, 2: 1, 3: 2}

	tests := []struct {
		name     string
		src, dst entity.ID
		expected bool
	}{
		{"same_team", 1, 2, true},
		{"other_team", 1, 3, false},
		{"neutral_target", 1, 4, false},
		{"neutral_pair", 4, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &entity.BaseEntity{ID: tt.src}
			dst := &entity.BaseEntity{ID: tt.dst}
			if got := sides.ShouldSkipPair(src, dst, 16); got != tt.expected {
				t.Errorf("ShouldSkipPair() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestSandbox_SpawnAndTick(t *testing.T) {
	s := newTestSandbox(t, 7)
	p := population{Ships: 10, Bullets: 30, Rocks: 20, Walls: 5}
	s.spawn(p)

	total := p.Ships + p.Bullets + p.Rocks + p.Walls
	if s.world.Len() != total || len(s.bodies) != total {
		t.Fatalf("spawned %d/%d bodies, expected %d", s.world.Len(), len(s.bodies), total)
	}
	if len(s.teams) != p.Ships+p.Bullets {
		t.Errorf("%d bodies on a team, expected ships and bullets only", len(s.teams))
	}

	for i := 0; i < 200; i++ {
		s.tick(16)
	}

	stats := s.world.Stats()
	if stats.Steps == 0 || stats.PairsTested == 0 {
		t.Errorf("Stats() = %+v, expected steps and pair tests", stats)
	}
	if stats.PairFailures != 0 {
		t.Errorf("PairFailures = %d, expected 0", stats.PairFailures)
	}

	cfg := s.world.Config()
	margin := 150.0
	for _, b := range s.bodies {
		if b.Position.X < -margin || b.Position.X > cfg.WorldWidth+margin ||
			b.Position.Y < -margin || b.Position.Y > cfg.WorldHeight+margin {
			t.Errorf("body %d escaped to %v", b.ID, b.Position)
		}
	}
}

func TestSandbox_Deterministic(t *testing.T) {
	run := func() collision.Stats {
		s := newTestSandbox(t, 42)
		s.spawn(population{Ships: 8, Bullets: 20, Rocks: 10, Walls: 4})
		for i := 0; i < 100; i++ {
			s.tick(16)
		}
		return s.world.Stats()
	}

	if a, b := run(), run(); a != b {
		t.Errorf("same seed produced %+v and %+v", a, b)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing_file_uses_defaults", func(t *testing.T) {
		cfg, err := loadConfig(filepath.Join(dir, "missing.json"), logging.Discard())
		if err != nil {
			t.Fatalf("loadConfig() failed: %v", err)
		}
		if *cfg != *config.DefaultConfig() {
			t.Errorf("loadConfig() = %+v, expected defaults", cfg)
		}
	})

	t.Run("environment_overrides_file", func(t *testing.T) {
		path := filepath.Join(dir, "world.json")
		fileCfg := config.DefaultConfig()
		fileCfg.CellSize = 40
		if err := config.SaveConfig(fileCfg, path); err != nil {
			t.Fatalf("SaveConfig() failed: %v", err)
		}
		t.Setenv(config.EnvTimeScaler, "400")

		cfg, err := loadConfig(path, logging.Discard())
		if err != nil {
			t.Fatalf("loadConfig() failed: %v", err)
		}
		if cfg.CellSize != 40 || cfg.TimeScaler != 400 {
			t.Errorf("CellSize = %v, TimeScaler = %v, expected 40 and 400", cfg.CellSize, cfg.TimeScaler)
		}
	})

	t.Run("invalid_file", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := loadConfig(path, logging.Discard()); err == nil {
			t.Error("loadConfig() accepted a broken file")
		}
	})
}

func TestWriteSnapshot(t *testing.T) {
	s := newTestSandbox(t, 3)
	s.spawn(population{Ships: 3, Rocks: 3, Walls: 2})
	s.tick(16)

	path := filepath.Join(t.TempDir(), "world.snap")
	if err := writeSnapshot(s.world, path); err != nil {
		t.Fatalf("writeSnapshot() failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	snap, err := collision.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot() failed: %v", err)
	}
	if snap.WorldID != "sandbox-test" || len(snap.Bodies) != 8 {
		t.Errorf("snapshot = %q with %d bodies, expected sandbox-test with 8", snap.WorldID, len(snap.Bodies))
	}
}
