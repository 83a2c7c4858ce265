package categoryboost

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utafrali/aisearch/internal/domain"
)

// DefaultTTL is the version check interval used when none is configured.
const DefaultTTL = 60 * time.Second

const neverChecked = math.MinInt64

// Store serves rules from an immutable snapshot and revalidates it against
// the source at most once per TTL. Only one caller performs a check at a
// time; concurrent callers read the current snapshot without waiting.
// Check failures are logged and the snapshot is kept.
type Store struct {
	source RuleSource
	ttl    time.Duration
	logger *slog.Logger

	start time.Time
	now   func() time.Time

	snapshot    atomic.Pointer[domain.CategoryBoostRuleSet]
	lastChecked atomic.Int64
	mu          sync.Mutex
}

var (
	_ Rules    = (*Store)(nil)
	_ Reloader = (*Store)(nil)
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now. Tests use it to move the TTL gate.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore loads the initial rules. A failed initial load leaves an empty
// rule set and is not returned as an error.
func NewStore(ctx context.Context, source RuleSource, ttl time.Duration, logger *slog.Logger, opts ...StoreOption) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{source: source, ttl: ttl, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.start = s.now()
	s.snapshot.Store(domain.EmptyCategoryBoostRuleSet())
	s.lastChecked.Store(neverChecked)

	if err := s.check(ctx); err != nil {
		logger.WarnContext(ctx, "initial category boost rule load failed, starting with no rules",
			slog.String("error", err.Error()),
		)
	}
	s.arm()
	return s
}

// FindByKeyword returns the boosts for keyword, revalidating the snapshot
// first when the TTL gate has expired.
func (s *Store) FindByKeyword(ctx context.Context, keyword string) (map[string]float64, bool) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, false
	}
	s.refreshIfDue(ctx)
	return s.snapshot.Load().Find(keyword)
}

// Reload checks the source immediately, bypassing the TTL gate. On error
// the previous snapshot stays in place and the error is returned.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.check(ctx)
	s.arm()
	if err != nil {
		s.logger.WarnContext(ctx, "category boost rule reload failed, keeping cached rules",
			slog.String("version", s.snapshot.Load().Version()),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// Snapshot returns the version and keyword count currently served.
func (s *Store) Snapshot() (version string, ruleCount int) {
	set := s.snapshot.Load()
	return set.Version(), set.Len()
}

func (s *Store) elapsed() int64 {
	return int64(s.now().Sub(s.start))
}

func (s *Store) gateWarm() bool {
	last := s.lastChecked.Load()
	return last != neverChecked && s.elapsed()-last < int64(s.ttl)
}

func (s *Store) arm() {
	s.lastChecked.Store(s.elapsed())
}

func (s *Store) refreshIfDue(ctx context.Context) {
	if s.gateWarm() {
		return
	}
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()

	if s.gateWarm() {
		return
	}
	if err := s.check(ctx); err != nil {
		s.logger.WarnContext(ctx, "category boost rule check failed, keeping cached rules",
			slog.String("version", s.snapshot.Load().Version()),
			slog.String("error", err.Error()),
		)
	}
	s.arm()
}

// check compares the source version with the snapshot and swaps in a
// freshly loaded rule set when they differ. Callers hold s.mu.
func (s *Store) check(ctx context.Context) error {
	version, err := s.source.Version(ctx)
	if err != nil {
		ruleReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("read category boost rule version: %w", err)
	}
	version = strings.TrimSpace(version)
	if version == "" {
		ruleReloads.WithLabelValues("error").Inc()
		return domain.ErrInvalidRuleDocument
	}

	current := s.snapshot.Load()
	if version == current.Version() {
		ruleReloads.WithLabelValues("unchanged").Inc()
		return nil
	}

	doc, err := s.source.Load(ctx)
	if err != nil {
		ruleReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("load category boost rules: %w", err)
	}
	next, err := domain.NewCategoryBoostRuleSet(doc)
	if err != nil {
		ruleReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("load category boost rules: %w", err)
	}

	s.snapshot.Store(next)
	ruleReloads.WithLabelValues("updated").Inc()
	s.logger.InfoContext(ctx, "category boost rules loaded",
		slog.String("previous_version", current.Version()),
		slog.String("version", next.Version()),
		slog.Int("keywords", next.Len()),
	)
	return nil
}
