// Package analyze implements the review.Analyzer boundary against
// Anthropic's messages API.
//
// The analyzer receives one redacted diff chunk at a time, asks the model
// for a structured JSON review, and parses it into a review.AnalysisResult.
// Rate limits are retried with exponential back-off; auth failures are not.
// The HTTP endpoint is injectable so tests run against local httptest
// servers.
package analyze
