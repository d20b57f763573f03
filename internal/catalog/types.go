package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a problem difficulty. The three values are fixed and ordered;
// everything that renders tiers iterates Tiers() to keep the order stable.
type Tier string

const (
	TierEasy   Tier = "Easy"
	TierMedium Tier = "Medium"
	TierHard   Tier = "Hard"
)

// Tiers returns all tiers in display order (Easy, Medium, Hard).
func Tiers() []Tier { return []Tier{TierEasy, TierMedium, TierHard} }

// ParseTier normalizes a difficulty string from the remote catalog.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return TierEasy, nil
	case "medium":
		return TierMedium, nil
	case "hard":
		return TierHard, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

func (t Tier) String() string { return string(t) }

// Problem is one catalog entry. ID is the local row identity;
// LeetCodeID is the stable identifier from the source catalog.
type Problem struct {
	ID         int64
	LeetCodeID int64
	Title      string
	Tier       Tier
	URL        string
}

// Day is a calendar date at day granularity, formatted YYYY-MM-DD.
// It is the key for sent records and daily batches.
type Day string

const dayLayout = "2006-01-02"

// DayOf truncates t to its calendar date in t's location.
func DayOf(t time.Time) Day { return Day(t.Format(dayLayout)) }

func (d Day) String() string { return string(d) }

// Batch is one day's selection: one problem per tier.
type Batch struct {
	Day    Day
	Easy   Problem
	Medium Problem
	Hard   Problem
}

// ByTier returns the batch entries keyed by tier.
func (b *Batch) ByTier() map[Tier]Problem {
	return map[Tier]Problem{
		TierEasy:   b.Easy,
		TierMedium: b.Medium,
		TierHard:   b.Hard,
	}
}
