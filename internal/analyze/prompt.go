package analyze

import (
	"fmt"
	"strings"

	"github.com/critiq/critiq/internal/review"
)

const systemPrompt = `You are a code reviewer. You receive a unified diff and respond with a
single JSON object, no prose, no markdown fences, with this shape:

{
  "comments": [
    {"path": "file path from the diff", "line": <new-side line number>,
     "startLine": <optional first line of a multi-line range>,
     "body": "the review comment", "severity": "low" | "medium" | "high"}
  ],
  "summary": "a short walkthrough of the change",
  "verdict": "APPROVE" | "COMMENT" | "REQUEST_CHANGES"
}

Comment only on lines visible in the diff. Anchor each comment to a line
that was added or shown as context, never to a removed line. Keep comments
specific and actionable; omit praise-only comments.`

// userPrompt renders one chunk for review. Chunk metadata tells the model
// where this piece sits in a larger diff so cross-chunk summaries stay
// coherent.
func userPrompt(chunkDiff string, meta review.ChunkMeta) string {
	var b strings.Builder
	if meta.TotalChunks > 1 {
		fmt.Fprintf(&b, "This is part %d of %d of a larger diff", meta.Index+1, meta.TotalChunks)
		if len(meta.Files) > 0 {
			fmt.Fprintf(&b, ", covering: %s", strings.Join(meta.Files, ", "))
		}
		b.WriteString(".\n")
		if !meta.IsFirst {
			b.WriteString("Earlier parts were reviewed separately; do not repeat their findings.\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Review this diff:\n\n")
	b.WriteString(chunkDiff)
	return b.String()
}
