package analyze

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/critiq/critiq/internal/review"
)

// resultPayload is the wire shape the model is instructed to produce.
type resultPayload struct {
	Comments []struct {
		Path      string `json:"path"`
		Line      int    `json:"line"`
		StartLine int    `json:"startLine"`
		Body      string `json:"body"`
		Severity  string `json:"severity"`
	} `json:"comments"`
	Summary string `json:"summary"`
	Verdict string `json:"verdict"`
}

// ParseResult converts raw model output into an AnalysisResult. Models
// sometimes wrap JSON in markdown fences or preamble text, so the parser
// extracts the outermost JSON object before unmarshaling. Comments
// missing a path or line are dropped rather than failing the chunk.
func ParseResult(raw string) (*review.AnalysisResult, error) {
	jsonText := extractJSON(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in analysis response")
	}

	var payload resultPayload
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, fmt.Errorf("parsing analysis response: %w", err)
	}

	result := &review.AnalysisResult{
		Summary: strings.TrimSpace(payload.Summary),
		Verdict: normalizeVerdict(payload.Verdict),
	}
	for _, c := range payload.Comments {
		if c.Path == "" || c.Line <= 0 || strings.TrimSpace(c.Body) == "" {
			continue
		}
		result.Comments = append(result.Comments, review.Comment{
			Path:      c.Path,
			Line:      c.Line,
			StartLine: c.StartLine,
			Body:      strings.TrimSpace(c.Body),
			Severity:  normalizeSeverity(c.Severity),
		})
	}
	return result, nil
}

// extractJSON returns the outermost {...} block of raw, tolerating
// markdown fences and surrounding prose.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

func normalizeVerdict(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case review.VerdictApprove:
		return review.VerdictApprove
	case review.VerdictRequestChanges:
		return review.VerdictRequestChanges
	case review.VerdictComment:
		return review.VerdictComment
	default:
		return ""
	}
}

func normalizeSeverity(s string) review.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical":
		return review.SeverityHigh
	case "medium":
		return review.SeverityMedium
	case "low", "info":
		return review.SeverityLow
	default:
		return ""
	}
}
