// Package catalog holds the problem-catalog domain types and the remote
// fetcher that keeps the local store topped up from LeetCode.
package catalog
