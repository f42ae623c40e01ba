package level

import (
	"sync"

	"navbuild/recast"

	"github.com/flswld/halo/logger"
)

// Cache holds parsed world meshes by path for the duration of one level.
// It is cleared at level boundaries so meshes never outlive their level.
type Cache struct {
	lock   sync.Mutex
	meshes map[string]*recast.InputGeom
	hits   int
	misses int
}

func NewCache() *Cache {
	return &Cache{meshes: make(map[string]*recast.InputGeom)}
}

func (c *Cache) Get(path string) (*recast.InputGeom, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	g, ok := c.meshes[path]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return g, ok
}

func (c *Cache) Put(path string, g *recast.InputGeom) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.meshes[path] = g
}

func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.meshes)
}

// Clear drops every cached mesh and resets the counters.
func (c *Cache) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if len(c.meshes) > 0 {
		logger.Debug("level cache clear, meshes: %v, hits: %v, misses: %v", len(c.meshes), c.hits, c.misses)
	}
	c.meshes = make(map[string]*recast.InputGeom)
	c.hits, c.misses = 0, 0
}

// Loader loads level geometry through a Cache.
type Loader struct {
	Cache *Cache
}

func NewLoader(cache *Cache) *Loader {
	return &Loader{Cache: cache}
}

// Load returns the world mesh of the OBJ file at path.
func (l *Loader) Load(path string) (*recast.InputGeom, error) {
	if l.Cache != nil {
		if g, ok := l.Cache.Get(path); ok {
			return g, nil
		}
	}
	g, err := LoadObj(path)
	if err != nil {
		return nil, err
	}
	logger.Info("load world mesh: %v, verts: %v, tris: %v", path, g.VertCount(), g.TriCount())
	if l.Cache != nil {
		l.Cache.Put(path, g)
	}
	return g, nil
}
