// Package digest selects the daily batch of problems and renders it.
//
// A batch is one unseen problem per tier (Easy, Medium, Hard). Selection
// is at-most-once per calendar day and all-or-nothing across tiers: the
// commit writes the three delivery records and the batch row in a single
// transaction, and later attempts the same day short-circuit.
package digest
