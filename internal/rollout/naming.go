// Package rollout replaces the index behind the read alias with a freshly
// built one without a window in which searches see no index.
package rollout

import (
	"fmt"
	"strconv"
	"sync"
	"time"
	_ "time/tzdata"
)

const (
	indexTimeLayout = "20060102150405"
	indexTimeZone   = "Asia/Seoul"
)

// NameGenerator issues versioned index names: base + "-v" + a
// second-resolution timestamp in Asia/Seoul. A name that would repeat the
// previous one within this process gets a -1, -2, ... suffix.
type NameGenerator struct {
	loc *time.Location
	now func() time.Time

	mu       sync.Mutex
	lastStem string
	seq      int
}

// NewNameGenerator creates a generator. now may be nil for time.Now.
func NewNameGenerator(now func() time.Time) (*NameGenerator, error) {
	loc, err := time.LoadLocation(indexTimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %s: %w", indexTimeZone, err)
	}
	if now == nil {
		now = time.Now
	}
	return &NameGenerator{loc: loc, now: now}, nil
}

// Generate returns the next name for base.
func (g *NameGenerator) Generate(base string) string {
	stem := base + "-v" + g.now().In(g.loc).Format(indexTimeLayout)

	g.mu.Lock()
	defer g.mu.Unlock()
	if stem != g.lastStem {
		g.lastStem = stem
		g.seq = 0
		return stem
	}
	g.seq++
	return stem + "-" + strconv.Itoa(g.seq)
}
