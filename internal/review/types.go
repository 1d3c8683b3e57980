package review

import "strings"

// Severity grades a review comment.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Verdicts accepted by the review API.
const (
	VerdictComment        = "COMMENT"
	VerdictApprove        = "APPROVE"
	VerdictRequestChanges = "REQUEST_CHANGES"
)

// Comment is one proposed inline review comment. StartLine is 0 for
// single-line comments; a non-zero StartLine makes it a multi-line
// comment ending at Line.
type Comment struct {
	Path      string   `json:"path"`
	Line      int      `json:"line"`
	StartLine int      `json:"startLine,omitempty"`
	Body      string   `json:"body"`
	Severity  Severity `json:"severity,omitempty"`
}

// SeverityCounts holds comment counts by severity level.
type SeverityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Total returns the number of counted comments.
func (c SeverityCounts) Total() int {
	return c.Low + c.Medium + c.High
}

// AnalysisResult is what one analysis call over a chunk produces.
type AnalysisResult struct {
	Comments []Comment `json:"comments"`
	Summary  string    `json:"summary"`
	Verdict  string    `json:"verdict,omitempty"`
}

// Result is the merged review across all chunks.
type Result struct {
	Comments []Comment      `json:"comments"`
	Summary  string         `json:"summary"`
	Verdict  string         `json:"verdict"`
	Counts   SeverityCounts `json:"counts"`
}

// ComputeCounts tallies comments by severity.
func ComputeCounts(comments []Comment) SeverityCounts {
	var counts SeverityCounts
	for _, c := range comments {
		switch c.Severity {
		case SeverityLow:
			counts.Low++
		case SeverityMedium:
			counts.Medium++
		case SeverityHigh:
			counts.High++
		}
	}
	return counts
}

// NormalizeBody canonicalizes a comment body for duplicate detection:
// lowercased with whitespace runs collapsed to single spaces.
func NormalizeBody(body string) string {
	return strings.Join(strings.Fields(strings.ToLower(body)), " ")
}
