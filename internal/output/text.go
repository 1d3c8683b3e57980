package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/critiq/critiq/internal/pipeline"
	"github.com/critiq/critiq/internal/review"
)

// TextWriter outputs a human-readable report of a review run.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, res *pipeline.Result) error {
	ew := &errWriter{w: w}

	ew.printf("Critiq Review (run %s)\n", res.RunID)
	ew.printf("Files: %d changed (+%d/-%d)", res.FilesChanged, res.Additions, res.Deletions)
	if res.Chunked {
		ew.printf(", analyzed in %d chunks", res.TotalChunks)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if len(res.SkippedFiles) > 0 {
		ew.println("\nContext extension skipped:")
		paths := make([]string, 0, len(res.SkippedFiles))
		for p := range res.SkippedFiles {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			ew.printf("  %s: %s\n", p, res.SkippedFiles[p])
		}
	}

	for _, f := range res.Failures {
		ew.printf("\nChunk %d failed (%s): %v\n", f.Index+1, strings.Join(f.Files, ", "), f.Err)
	}

	if res.Review == nil {
		ew.println("\nNothing to review.")
		return ew.err
	}

	total := res.Review.Counts.Total()
	ew.printf("\nComments: %d", total)
	if total > 0 {
		ew.printf(" (%d high, %d medium, %d low)",
			res.Review.Counts.High,
			res.Review.Counts.Medium,
			res.Review.Counts.Low,
		)
	}
	ew.printf("  Verdict: %s\n", res.Review.Verdict)

	if total == 0 {
		ew.println("\nNo issues found. Looks good!")
	} else {
		grouped := groupBySeverity(res.Review.Comments)
		for _, sev := range []review.Severity{review.SeverityHigh, review.SeverityMedium, review.SeverityLow, ""} {
			comments := grouped[sev]
			if len(comments) == 0 {
				continue
			}

			label := strings.ToUpper(string(sev))
			if sev == "" {
				label = "UNRATED"
			}
			ew.printf("\n%s %s\n", severityIcon(sev), label)
			ew.println(strings.Repeat("─", 40))

			sort.SliceStable(comments, func(i, j int) bool {
				if comments[i].Path != comments[j].Path {
					return comments[i].Path < comments[j].Path
				}
				return comments[i].Line < comments[j].Line
			})

			for _, c := range comments {
				if c.StartLine > 0 {
					ew.printf("\n  %s:%d-%d\n", c.Path, c.StartLine, c.Line)
				} else {
					ew.printf("\n  %s:%d\n", c.Path, c.Line)
				}
				for _, line := range wrapText(c.Body, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if res.Review.Summary != "" {
		ew.printf("\n%s\n", strings.Repeat("─", 60))
		for _, line := range wrapText(res.Review.Summary, 76) {
			ew.printf("%s\n", line)
		}
	}

	if sub := res.Submission; sub != nil {
		ew.printf("\n%s\n", strings.Repeat("─", 60))
		ew.printf("Submitted: %d comment(s) posted", sub.PostedCount)
		if len(sub.InvalidComments) > 0 {
			ew.printf(", %d moved to the summary", len(sub.InvalidComments))
		}
		if len(sub.FailedComments) > 0 {
			ew.printf(", %d rejected inline", len(sub.FailedComments))
		}
		if sub.FellBackToPlainComment {
			ew.printf(" (delivered as a plain PR comment)")
		}
		ew.println("")
	}

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func groupBySeverity(comments []review.Comment) map[review.Severity][]review.Comment {
	m := make(map[review.Severity][]review.Comment)
	for _, c := range comments {
		m[c.Severity] = append(m[c.Severity], c)
	}
	return m
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityHigh:
		return "[!!]"
	case review.SeverityMedium:
		return "[!]"
	case review.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
