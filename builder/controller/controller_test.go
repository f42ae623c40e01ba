package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"navbuild/builder/tile"

	"github.com/flswld/halo/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger(&logger.Config{AppName: "controller_test", Level: logger.ParseLevel("WARN"), DisableColor: true})
	code := m.Run()
	logger.CloseLogger()
	os.Exit(code)
}

func TestStatusRoutes(t *testing.T) {
	progress := tile.NewProgress()
	progress.Start("g1", "dungeon_01", 4)
	progress.Record("g1", tile.TileStatus{Kind: tile.StatusPersisted, Bytes: 10})
	progress.Record("g1", tile.TileStatus{
		Coord: tile.Coord{X: 1},
		Kind:  tile.StatusFailed,
		Err:   &tile.TileError{Coord: tile.Coord{X: 1}, Stage: tile.StagePersist, Err: errors.New("down")},
	})
	progress.Abort("g2", "dungeon_02", errors.New("mesh missing"))
	router := NewController(progress).Router()

	tests := []struct {
		path     string
		code     int
		retcode  int32
		nlevels  int
		hasLevel bool
	}{
		{"/status", http.StatusOK, 0, 2, false},
		{"/status/g1", http.StatusOK, 0, 0, true},
		{"/status/unknown", http.StatusNotFound, -1, 0, false},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.code {
			t.Errorf("%s: code %d, want %d", tt.path, w.Code, tt.code)
			continue
		}
		rsp := new(StatusRsp)
		if err := json.Unmarshal(w.Body.Bytes(), rsp); err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		if rsp.Retcode != tt.retcode || len(rsp.Levels) != tt.nlevels || (rsp.Level != nil) != tt.hasLevel {
			t.Errorf("%s: %+v", tt.path, rsp)
		}
		if rsp.Level != nil {
			if rsp.Level.Persisted != 1 || rsp.Level.Failed != 1 || len(rsp.Level.Failures) != 1 {
				t.Errorf("%s: level %+v", tt.path, rsp.Level)
			}
		}
	}
}
