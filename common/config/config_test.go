package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.hjson")
	data := `
{
  # only overrides
  database: { url: "mongodb://127.0.0.1:27017" }
  build: { workers: 8, tile_size: 128 }
}
`
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBF"+data), 0o644); err != nil {
		t.Fatal(err)
	}
	InitConfig(path)
	c := GetConfig()
	if c.Database.Url != "mongodb://127.0.0.1:27017" {
		t.Errorf("database url %q", c.Database.Url)
	}
	if c.Build.Workers != 8 || c.Build.TileSize != 128 {
		t.Errorf("build workers %d tile size %d", c.Build.Workers, c.Build.TileSize)
	}
	if c.Build.CellSize != 10 || c.Persist.MaxAttempts != 5 || c.Logger.Level != "INFO" {
		t.Errorf("defaults lost: %+v %+v %+v", c.Build, c.Persist, c.Logger)
	}
}

func TestInitConfigMissingFile(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a missing config file")
		}
	}()
	InitConfig(filepath.Join(t.TempDir(), "missing.hjson"))
}
