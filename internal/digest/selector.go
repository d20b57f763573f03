package digest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"leetbot/internal/catalog"
	"leetbot/internal/storage"
	logx "leetbot/pkg/logx"
)

// ErrAlreadySent means a batch for the requested day exists; callers treat
// it as "already done", not a failure.
var ErrAlreadySent = errors.New("daily batch already sent")

// ExhaustedError means a tier has no unsent problems left even after a
// catalog refresh. Operator action (new source problems) is required.
type ExhaustedError struct {
	Tier catalog.Tier
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("catalog exhausted: no unsent %s problems", e.Tier)
}

// Refresher re-fetches the source catalog into the store.
type Refresher interface {
	FetchAll(ctx context.Context) (added, total int, err error)
}

// Selector implements the daily selection algorithm.
type Selector struct {
	store     storage.Store
	refresher Refresher
	rnd       *rand.Rand
	log       logx.Logger
}

// New builds a Selector. rnd may be nil, in which case a time-seeded source
// is used; tests inject a seeded one for deterministic picks.
func New(store storage.Store, refresher Refresher, rnd *rand.Rand, log logx.Logger) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Selector{store: store, refresher: refresher, rnd: rnd, log: log}
}

// SelectDaily produces the batch for day and commits it.
//
// Returns ErrAlreadySent when day already has a batch, *ExhaustedError when
// a tier is still empty after one refresh, and plain errors for storage or
// refresh failures. Nothing is persisted unless all three tiers fill; the
// commit (three delivery records + the batch row) is a single transaction.
func (s *Selector) SelectDaily(ctx context.Context, day catalog.Day) (*catalog.Batch, error) {
	sent, err := s.store.BatchSentOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("check batch for %s: %w", day, err)
	}
	if sent {
		return nil, ErrAlreadySent
	}

	picks := map[catalog.Tier]catalog.Problem{}
	var missing []catalog.Tier
	for _, tier := range catalog.Tiers() {
		p, ok, err := s.pick(ctx, tier)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, tier)
			continue
		}
		picks[tier] = p
	}

	if len(missing) > 0 {
		s.log.Warn("catalog low, refreshing", logx.Any("missing", missing))
		if _, _, err := s.refresher.FetchAll(ctx); err != nil {
			return nil, fmt.Errorf("refresh catalog: %w", err)
		}
		// One retry, for the missing tiers only.
		for _, tier := range missing {
			p, ok, err := s.pick(ctx, tier)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &ExhaustedError{Tier: tier}
			}
			picks[tier] = p
		}
	}

	batch := &catalog.Batch{
		Day:    day,
		Easy:   picks[catalog.TierEasy],
		Medium: picks[catalog.TierMedium],
		Hard:   picks[catalog.TierHard],
	}
	if err := s.store.CommitBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("commit batch for %s: %w", day, err)
	}
	return batch, nil
}

// pick samples one unsent problem of the tier uniformly at random. The
// arbitrary tie-break spreads picks across the candidate pool instead of
// always returning the lowest id.
func (s *Selector) pick(ctx context.Context, tier catalog.Tier) (catalog.Problem, bool, error) {
	candidates, err := s.store.UnsentProblems(ctx, tier)
	if err != nil {
		return catalog.Problem{}, false, fmt.Errorf("unsent %s problems: %w", tier, err)
	}
	if len(candidates) == 0 {
		return catalog.Problem{}, false, nil
	}
	return candidates[s.rnd.Intn(len(candidates))], true, nil
}

// Stats reports remaining/total per tier for the stats message.
func (s *Selector) Stats(ctx context.Context) (totals, sent map[catalog.Tier]int, err error) {
	totals, err = s.store.CountByTier(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("count problems: %w", err)
	}
	sent, err = s.store.SentCountByTier(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("count sent problems: %w", err)
	}
	return totals, sent, nil
}
