// Package review holds the review domain model: comments, severities,
// the analysis boundary, and merging of per-chunk results.
package review
