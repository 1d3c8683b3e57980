// Package github is the REST client for the review-delivery side of the
// pipeline: fetching PR diffs and file contents, posting reviews, and
// posting plain PR comments.
//
// Errors are classified for callers: a 422 comes back as *StructuralError
// (the payload itself was rejected; retrying identically is pointless),
// while 429, 5xx, and network failures come back as *TransientError and
// are retried here with exponential back-off honoring Retry-After.
package github
