// Package storage persists the problem catalog and its delivery ledger.
//
// It owns three collections:
//   - problems: every known catalog entry, unique by leetcode_id
//   - sent_problems: append-only facts "problem X went out on day D"
//   - daily_batches: one row per day, the three problems sent that day
package storage
