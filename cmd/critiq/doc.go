// Critiq is a CLI for reviewing code changes with an LLM and delivering
// the review as inline pull-request comments.
//
// It reviews local staged and unstaged diffs as well as GitHub pull
// requests, splitting large diffs into token-bounded chunks, widening
// hunks with surrounding file context, and posting comments with a
// fallback cascade so review content is never silently lost.
//
// Usage:
//
//	critiq review unstaged                 # review working tree changes
//	critiq review staged                   # review staged changes
//	critiq review pr octo/widgets 42       # review and post to a pull request
//	critiq review pr octo/widgets 42 --dry-run
//
// Authentication comes from the ANTHROPIC_API_KEY and GITHUB_TOKEN
// environment variables.
package main
