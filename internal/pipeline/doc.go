// Package pipeline orchestrates one review run end to end: parse the
// diff, widen hunks with file context, split into token-bounded chunks,
// analyze chunks in parallel, merge the results, and submit the review.
//
// Collaborators (content provider, analyzer, review poster) are injected
// interfaces; every expected failure is reported in the run's Result
// rather than raised.
package pipeline
