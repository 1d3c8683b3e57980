package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/critiq/critiq/internal/pipeline"
	"github.com/critiq/critiq/internal/review"
)

// JSONWriter outputs the run result as machine-readable JSON.
type JSONWriter struct{}

// jsonResult mirrors pipeline.Result with error values rendered as
// strings so the document round-trips.
type jsonResult struct {
	RunID        string            `json:"runId"`
	FilesChanged int               `json:"filesChanged"`
	Additions    int               `json:"additions"`
	Deletions    int               `json:"deletions"`
	SkippedFiles map[string]string `json:"skippedFiles,omitempty"`
	Chunked      bool              `json:"chunked"`
	TotalChunks  int               `json:"totalChunks"`
	Failures     []jsonFailure     `json:"failures,omitempty"`
	Review       *review.Result    `json:"review,omitempty"`
	Submission   *jsonSubmission   `json:"submission,omitempty"`
}

type jsonFailure struct {
	Index int      `json:"index"`
	Files []string `json:"files"`
	Error string   `json:"error"`
}

type jsonSubmission struct {
	PostedCount            int              `json:"postedCount"`
	InvalidComments        []review.Comment `json:"invalidComments,omitempty"`
	FailedComments         []review.Comment `json:"failedComments,omitempty"`
	FellBackToPlainComment bool             `json:"fellBackToPlainComment"`
	Error                  string           `json:"error,omitempty"`
}

func (j *JSONWriter) Write(w io.Writer, res *pipeline.Result) error {
	doc := jsonResult{
		RunID:        res.RunID,
		FilesChanged: res.FilesChanged,
		Additions:    res.Additions,
		Deletions:    res.Deletions,
		SkippedFiles: res.SkippedFiles,
		Chunked:      res.Chunked,
		TotalChunks:  res.TotalChunks,
		Review:       res.Review,
	}

	for _, f := range res.Failures {
		jf := jsonFailure{Index: f.Index, Files: f.Files}
		if f.Err != nil {
			jf.Error = f.Err.Error()
		}
		doc.Failures = append(doc.Failures, jf)
	}

	if sub := res.Submission; sub != nil {
		js := &jsonSubmission{
			PostedCount:            sub.PostedCount,
			InvalidComments:        sub.InvalidComments,
			FailedComments:         sub.FailedComments,
			FellBackToPlainComment: sub.FellBackToPlainComment,
		}
		if sub.Err != nil {
			js.Error = sub.Err.Error()
		}
		doc.Submission = js
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
