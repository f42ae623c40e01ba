package tile

import (
	"sync"
	"time"
)

// LevelProgress is a point in time view of one level build.
type LevelProgress struct {
	WorldGUID string   `json:"world_guid"`
	Package   string   `json:"package"`
	Total     int      `json:"total"`
	Done      int      `json:"done"`
	Persisted int      `json:"persisted"`
	Existing  int      `json:"existing"`
	Empty     int      `json:"empty"`
	Failed    int      `json:"failed"`
	Failures  []string `json:"failures"`
	Error     string   `json:"error,omitempty"` // level aborted before tile work
	Finished  bool     `json:"finished"`
	StartTime int64    `json:"start_time"` // ms
	EndTime   int64    `json:"end_time"`
}

// Progress tracks every level of a generate run. Safe for concurrent use.
type Progress struct {
	lock   sync.RWMutex
	levels map[string]*LevelProgress
	order  []string
}

func NewProgress() *Progress {
	return &Progress{levels: make(map[string]*LevelProgress)}
}

func (p *Progress) level(guid, pkg string) *LevelProgress {
	lp, ok := p.levels[guid]
	if !ok {
		lp = &LevelProgress{WorldGUID: guid, Package: pkg}
		p.levels[guid] = lp
		p.order = append(p.order, guid)
	}
	return lp
}

// Start resets the counters of a level about to build total tiles.
func (p *Progress) Start(guid, pkg string, total int) {
	p.lock.Lock()
	defer p.lock.Unlock()
	lp := p.level(guid, pkg)
	*lp = LevelProgress{WorldGUID: guid, Package: pkg, Total: total, StartTime: time.Now().UnixMilli()}
}

func (p *Progress) Record(guid string, st TileStatus) {
	p.lock.Lock()
	defer p.lock.Unlock()
	lp := p.level(guid, "")
	lp.Done++
	switch st.Kind {
	case StatusPersisted:
		lp.Persisted++
	case StatusExisting:
		lp.Existing++
	case StatusEmpty:
		lp.Empty++
	case StatusFailed:
		lp.Failed++
		lp.Failures = append(lp.Failures, st.Coord.String()+" "+st.String())
	}
}

// Abort marks a level that failed before or instead of its tile work.
func (p *Progress) Abort(guid, pkg string, err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	lp := p.level(guid, pkg)
	lp.Error = err.Error()
	lp.Finished = true
	lp.EndTime = time.Now().UnixMilli()
}

func (p *Progress) Finish(guid string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	lp := p.level(guid, "")
	lp.Finished = true
	lp.EndTime = time.Now().UnixMilli()
}

// Level returns a copy of the progress of one level.
func (p *Progress) Level(guid string) (LevelProgress, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	lp, ok := p.levels[guid]
	if !ok {
		return LevelProgress{}, false
	}
	c := *lp
	c.Failures = append([]string(nil), lp.Failures...)
	return c, true
}

// Snapshot returns every level in start order.
func (p *Progress) Snapshot() []LevelProgress {
	p.lock.RLock()
	defer p.lock.RUnlock()
	result := make([]LevelProgress, 0, len(p.order))
	for _, guid := range p.order {
		c := *p.levels[guid]
		c.Failures = append([]string(nil), c.Failures...)
		result = append(result, c)
	}
	return result
}
