package review

import (
	"fmt"
	"strings"
)

// Merge combines per-chunk analysis results into a single review.
// Comments are deduplicated on (path, line, normalized body) so the same
// issue reported by overlapping chunks lands once; summary fragments are
// concatenated in chunk order; severity counts are recomputed from the
// surviving comments; the strongest verdict wins.
func Merge(results []*AnalysisResult) *Result {
	merged := &Result{}

	seen := make(map[string]bool)
	var summaries []string

	for _, r := range results {
		if r == nil {
			continue
		}
		for _, c := range r.Comments {
			key := fmt.Sprintf("%s:%d:%s", c.Path, c.Line, NormalizeBody(c.Body))
			if seen[key] {
				continue
			}
			seen[key] = true
			merged.Comments = append(merged.Comments, c)
		}
		if s := strings.TrimSpace(r.Summary); s != "" {
			summaries = append(summaries, s)
		}
		if verdictRank(r.Verdict) > verdictRank(merged.Verdict) {
			merged.Verdict = r.Verdict
		}
	}

	if merged.Verdict == "" {
		merged.Verdict = VerdictComment
	}
	merged.Summary = strings.Join(summaries, "\n\n")
	merged.Counts = ComputeCounts(merged.Comments)
	return merged
}

func verdictRank(v string) int {
	switch v {
	case VerdictRequestChanges:
		return 2
	case VerdictComment:
		return 1
	case VerdictApprove:
		return 0
	default:
		return -1
	}
}
