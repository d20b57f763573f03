package digest

import (
	"fmt"
	"strings"

	"leetbot/internal/catalog"
)

var tierMarkers = map[catalog.Tier]string{
	catalog.TierEasy:   "🟢",
	catalog.TierMedium: "🟡",
	catalog.TierHard:   "🔴",
}

// FormatMessage renders the daily batch. The template is deterministic and
// the tier order is always Easy, Medium, Hard.
func FormatMessage(b *catalog.Batch) string {
	var sb strings.Builder
	sb.WriteString("🚀 *Daily LeetCode Challenge!* 🚀\n\n")
	sb.WriteString("Here are your 3 problems for today:\n\n")

	byTier := b.ByTier()
	for _, tier := range catalog.Tiers() {
		p := byTier[tier]
		fmt.Fprintf(&sb, "%s *%s*: %s\n", tierMarkers[tier], strings.ToUpper(tier.String()), p.Title)
		fmt.Fprintf(&sb, "🔗 %s\n\n", p.URL)
	}

	sb.WriteString("Good luck and happy coding! 💪\n\n")
	sb.WriteString("Remember:\n")
	sb.WriteString("• Read the problem carefully\n")
	sb.WriteString("• Think about edge cases\n")
	sb.WriteString("• Optimize your solution\n")
	sb.WriteString("• Test with examples")
	return sb.String()
}

// FormatStats renders remaining/total per tier in fixed order. Remaining
// never goes below zero even if the counts drift.
func FormatStats(totals, sent map[catalog.Tier]int) string {
	var sb strings.Builder
	sb.WriteString("📊 *Problem Statistics*\n")
	for _, tier := range catalog.Tiers() {
		total := totals[tier]
		remaining := total - sent[tier]
		if remaining < 0 {
			remaining = 0
		}
		fmt.Fprintf(&sb, "\n%s: %d/%d remaining", tier, remaining, total)
	}
	return sb.String()
}
