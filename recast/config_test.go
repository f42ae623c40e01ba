package recast

import (
	"errors"
	"testing"

	"navbuild/pkg/geom"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		mod  func(s *Settings)
	}{
		{"zero cell size", func(s *Settings) { s.CellSize = 0 }},
		{"negative cell height", func(s *Settings) { s.CellHeight = -1 }},
		{"vertical slope", func(s *Settings) { s.AgentMaxSlope = 90 }},
		{"zero tile size", func(s *Settings) { s.TileSize = 0 }},
		{"two verts per poly", func(s *Settings) { s.VertsPerPoly = 2 }},
		{"seven verts per poly", func(s *Settings) { s.VertsPerPoly = 7 }},
		{"negative detail error", func(s *Settings) { s.DetailSampleMaxError = -0.1 }},
		{"agent shorter than three cells", func(s *Settings) { s.AgentHeight = 0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mod(&s)
			if _, err := NewConfig(s); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewConfig error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewConfigDerived(t *testing.T) {
	s := DefaultSettings()
	cfg, err := NewConfig(s)
	if err != nil {
		t.Fatal(err)
	}
	// 180 / 5, 50 / 5, ceil(40 / 10)
	if cfg.WalkableHeight != 36 || cfg.WalkableClimb != 10 || cfg.WalkableRadius != 4 {
		t.Errorf("walkable h/c/r = %d/%d/%d", cfg.WalkableHeight, cfg.WalkableClimb, cfg.WalkableRadius)
	}
	if cfg.BorderSize != cfg.WalkableRadius+3 {
		t.Errorf("border %d, radius %d", cfg.BorderSize, cfg.WalkableRadius)
	}
	if cfg.DetailSampleDist != 60 {
		t.Errorf("detail sample dist %v, want 60", cfg.DetailSampleDist)
	}

	s.AgentRadius = 0.41
	if cfg, err = NewConfig(s); err != nil {
		t.Fatal(err)
	}
	if cfg.WalkableRadius != 5 {
		t.Errorf("radius rounds up: got %d, want 5", cfg.WalkableRadius)
	}

	s.DetailSampleDist = 0.05
	if cfg, err = NewConfig(s); err != nil {
		t.Fatal(err)
	}
	if cfg.DetailSampleDist != 0 {
		t.Errorf("sample distance under 0.9 cells should disable sampling, got %v", cfg.DetailSampleDist)
	}
}

func TestNewConfigCeilExactMultiples(t *testing.T) {
	tests := []struct {
		name           string
		height, radius float32 // meters
		wantH, wantR   int
	}{
		{"radius 0.3m", 1.8, 0.3, 36, 3},
		{"radius 0.6m", 1.8, 0.6, 36, 6},
		{"height 1.2m", 1.2, 0.4, 24, 4},
		{"radius 0.31m", 1.8, 0.31, 36, 4},
		{"height 1.21m", 1.21, 0.4, 25, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.AgentHeight, s.AgentRadius = tt.height, tt.radius
			cfg, err := NewConfig(s)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.WalkableHeight != tt.wantH || cfg.WalkableRadius != tt.wantR {
				t.Errorf("walkable height/radius = %d/%d, want %d/%d", cfg.WalkableHeight, cfg.WalkableRadius, tt.wantH, tt.wantR)
			}
			if cfg.BorderSize != tt.wantR+3 {
				t.Errorf("border %d, want %d", cfg.BorderSize, tt.wantR+3)
			}
		})
	}
}

func TestForWorldGrid(t *testing.T) {
	cfg, err := NewConfig(DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	w, err := cfg.ForWorld(geom.AABB{Max: mgl32.Vec3{4096, 10, 4096}})
	if err != nil {
		t.Fatal(err)
	}
	if w.Width != 410 || w.Height != 410 {
		t.Errorf("grid %dx%d, want 410x410", w.Width, w.Height)
	}
	if cfg.Width != 0 {
		t.Error("ForWorld modified the receiver")
	}
	if _, err := cfg.ForWorld(geom.AABB{Max: mgl32.Vec3{0, 10, 4096}}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("flat extent error = %v", err)
	}
}

func TestTileConfigPadding(t *testing.T) {
	cfg, err := NewConfig(DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	tb := geom.AABB{Min: mgl32.Vec3{0, -5, 0}, Max: mgl32.Vec3{2560, 5, 2560}}
	tc := NewTileConfig(cfg, tb, 1, 2)
	pad := float32(cfg.BorderSize) * cfg.Cs
	if tc.FieldMin != (mgl32.Vec3{-pad, -5, -pad}) || tc.FieldMax != (mgl32.Vec3{2560 + pad, 5, 2560 + pad}) {
		t.Errorf("field bounds %v %v", tc.FieldMin, tc.FieldMax)
	}
	if tc.FieldW != cfg.TileSize+2*cfg.BorderSize || tc.FieldH != tc.FieldW {
		t.Errorf("field %dx%d", tc.FieldW, tc.FieldH)
	}
}
