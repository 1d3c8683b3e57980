// Package gitctx extracts diffs and repository metadata from a local git
// checkout by shelling out to git.
//
// It supports the staged and unstaged review modes and serves file content
// at a ref through [Files], so locally gathered diffs flow through the same
// pipeline as PR diffs. Results are filtered by exclude glob patterns and
// truncated to a configurable maximum byte size.
package gitctx
