package digest

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"leetbot/internal/catalog"
	"leetbot/internal/storage"
	logx "leetbot/pkg/logx"
)

func openTestStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "catalog.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seed(t *testing.T, st storage.Store, lcID int64, title string, tier catalog.Tier) catalog.Problem {
	t.Helper()
	p := catalog.Problem{LeetCodeID: lcID, Title: title, Tier: tier, URL: "https://leetcode.com/problems/x/"}
	id, err := st.AddProblem(context.Background(), p)
	if err != nil {
		t.Fatalf("AddProblem: %v", err)
	}
	p.ID = id
	return p
}

// stubRefresher counts calls and optionally tops up the store.
type stubRefresher struct {
	calls int
	fill  func(ctx context.Context) error
	err   error
}

func (r *stubRefresher) FetchAll(ctx context.Context) (int, int, error) {
	r.calls++
	if r.err != nil {
		return 0, 0, r.err
	}
	if r.fill != nil {
		if err := r.fill(ctx); err != nil {
			return 0, 0, err
		}
	}
	return 0, 0, nil
}

func seededRand() *rand.Rand { return rand.New(rand.NewSource(42)) }

func TestSelectDailyEndToEnd(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	e := seed(t, st, 1, "Easy One", catalog.TierEasy)
	m := seed(t, st, 2, "Medium One", catalog.TierMedium)
	h := seed(t, st, 3, "Hard One", catalog.TierHard)

	ref := &stubRefresher{}
	sel := New(st, ref, seededRand(), logx.Nop())

	batch, err := sel.SelectDaily(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("SelectDaily: %v", err)
	}
	if batch.Easy.ID != e.ID || batch.Medium.ID != m.ID || batch.Hard.ID != h.ID {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if ref.calls != 0 {
		t.Fatalf("refresh called %d times with a full catalog", ref.calls)
	}
	sent, err := st.SentCountByTier(ctx)
	if err != nil {
		t.Fatalf("SentCountByTier: %v", err)
	}
	for _, tier := range catalog.Tiers() {
		if sent[tier] != 1 {
			t.Fatalf("tier %s: %d delivery records, want 1", tier, sent[tier])
		}
	}
	ok, err := st.BatchSentOn(ctx, "2024-01-01")
	if err != nil || !ok {
		t.Fatalf("BatchSentOn = %v, %v; want true", ok, err)
	}

	// Same day again: no-op, no new records.
	if _, err := sel.SelectDaily(ctx, "2024-01-01"); !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("second call error = %v, want ErrAlreadySent", err)
	}
	sent, _ = st.SentCountByTier(ctx)
	for _, tier := range catalog.Tiers() {
		if sent[tier] != 1 {
			t.Fatalf("tier %s: extra delivery record after no-op call", tier)
		}
	}

	// Next day: everything is delivered, so exhaustion.
	_, err = sel.SelectDaily(ctx, "2024-01-02")
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("third call error = %v, want ExhaustedError", err)
	}
	if ok, _ := st.BatchSentOn(ctx, "2024-01-02"); ok {
		t.Fatal("batch recorded for exhausted day")
	}
}

func TestSelectDailyExhaustionIsAtomic(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	seed(t, st, 1, "Easy One", catalog.TierEasy)
	seed(t, st, 2, "Medium One", catalog.TierMedium)
	// No Hard problems at all.

	ref := &stubRefresher{}
	sel := New(st, ref, seededRand(), logx.Nop())

	_, err := sel.SelectDaily(ctx, "2024-01-01")
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want ExhaustedError", err)
	}
	if exhausted.Tier != catalog.TierHard {
		t.Fatalf("exhausted tier = %s, want Hard", exhausted.Tier)
	}
	if ref.calls != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", ref.calls)
	}

	// All-or-nothing: the Easy and Medium picks must not be consumed.
	sent, err := st.SentCountByTier(ctx)
	if err != nil {
		t.Fatalf("SentCountByTier: %v", err)
	}
	for _, tier := range catalog.Tiers() {
		if sent[tier] != 0 {
			t.Fatalf("tier %s has %d delivery records after aborted cycle", tier, sent[tier])
		}
	}
	if ok, _ := st.BatchSentOn(ctx, "2024-01-01"); ok {
		t.Fatal("batch recorded for aborted cycle")
	}
}

func TestSelectDailyRefreshTopsUp(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	seed(t, st, 1, "Easy One", catalog.TierEasy)
	seed(t, st, 2, "Medium One", catalog.TierMedium)

	ref := &stubRefresher{fill: func(ctx context.Context) error {
		_, err := st.AddProblem(ctx, catalog.Problem{
			LeetCodeID: 3, Title: "Hard One", Tier: catalog.TierHard, URL: "https://leetcode.com/problems/h/",
		})
		return err
	}}
	sel := New(st, ref, seededRand(), logx.Nop())

	batch, err := sel.SelectDaily(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("SelectDaily: %v", err)
	}
	if batch.Hard.Title != "Hard One" {
		t.Fatalf("hard pick = %+v, want the refreshed problem", batch.Hard)
	}
	if ref.calls != 1 {
		t.Fatalf("refresh calls = %d, want 1", ref.calls)
	}
}

func TestSelectDailyRefreshFailure(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	seed(t, st, 1, "Easy One", catalog.TierEasy)

	ref := &stubRefresher{err: errors.New("network down")}
	sel := New(st, ref, seededRand(), logx.Nop())

	_, err := sel.SelectDaily(ctx, "2024-01-01")
	if err == nil || errors.Is(err, ErrAlreadySent) {
		t.Fatalf("error = %v, want refresh failure", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Fatal("refresh failure must not be reported as exhaustion")
	}
	if sent, _ := st.SentCountByTier(ctx); sent[catalog.TierEasy] != 0 {
		t.Fatal("delivery record created despite aborted cycle")
	}
}

func TestSelectDailyNeverRepeats(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	// Three days worth of problems per tier.
	var lcID int64 = 1
	for day := 0; day < 3; day++ {
		for _, tier := range catalog.Tiers() {
			seed(t, st, lcID, tier.String(), tier)
			lcID++
		}
	}

	sel := New(st, &stubRefresher{}, seededRand(), logx.Nop())
	seen := map[int64]catalog.Day{}
	days := []catalog.Day{"2024-01-01", "2024-01-02", "2024-01-03"}
	for _, day := range days {
		batch, err := sel.SelectDaily(ctx, day)
		if err != nil {
			t.Fatalf("SelectDaily(%s): %v", day, err)
		}
		for _, p := range batch.ByTier() {
			if prev, dup := seen[p.ID]; dup {
				t.Fatalf("problem %d delivered on both %s and %s", p.ID, prev, day)
			}
			seen[p.ID] = day
		}
	}

	var exhausted *ExhaustedError
	if _, err := sel.SelectDaily(ctx, "2024-01-04"); !errors.As(err, &exhausted) {
		t.Fatalf("day 4 error = %v, want ExhaustedError", err)
	}
}

func TestSelectDailyDeterministicUnderSeed(t *testing.T) {
	t.Parallel()
	mk := func() (storage.Store, catalog.Day) {
		st := openTestStore(t)
		var lcID int64 = 1
		for _, tier := range catalog.Tiers() {
			for i := 0; i < 10; i++ {
				seed(t, st, lcID, tier.String(), tier)
				lcID++
			}
		}
		return st, "2024-01-01"
	}

	stA, day := mk()
	stB, _ := mk()
	a, err := New(stA, &stubRefresher{}, rand.New(rand.NewSource(7)), logx.Nop()).SelectDaily(context.Background(), day)
	if err != nil {
		t.Fatalf("SelectDaily A: %v", err)
	}
	b, err := New(stB, &stubRefresher{}, rand.New(rand.NewSource(7)), logx.Nop()).SelectDaily(context.Background(), day)
	if err != nil {
		t.Fatalf("SelectDaily B: %v", err)
	}
	if a.Easy.LeetCodeID != b.Easy.LeetCodeID || a.Medium.LeetCodeID != b.Medium.LeetCodeID || a.Hard.LeetCodeID != b.Hard.LeetCodeID {
		t.Fatalf("same seed picked different batches: %+v vs %+v", a, b)
	}
}

func TestStatsArithmetic(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 4; i++ {
		seed(t, st, i, "E", catalog.TierEasy)
	}
	seed(t, st, 5, "M", catalog.TierMedium)
	p := seed(t, st, 6, "H", catalog.TierHard)
	if err := st.MarkSent(ctx, p.ID, p.Tier, "2024-01-01"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	sel := New(st, &stubRefresher{}, seededRand(), logx.Nop())
	totals, sent, err := sel.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	for _, tier := range catalog.Tiers() {
		remaining := totals[tier] - sent[tier]
		if remaining < 0 {
			t.Fatalf("tier %s: remaining went negative", tier)
		}
	}
	if totals[catalog.TierEasy] != 4 || sent[catalog.TierHard] != 1 {
		t.Fatalf("unexpected stats: totals=%v sent=%v", totals, sent)
	}
}
