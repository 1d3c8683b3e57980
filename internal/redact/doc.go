// Package redact removes secrets from diff content before it crosses the
// analysis boundary.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS credentials, bearer tokens, and well-known
// provider token prefixes.
//
// Path-based redaction is also supported: files whose paths match configured
// glob patterns have their entire content replaced with [REDACTED] rather
// than being scanned line by line.
package redact
