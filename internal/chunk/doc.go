// Package chunk splits oversized diffs into token-bounded units and runs
// per-chunk analysis with bounded concurrency and isolated failure.
package chunk
