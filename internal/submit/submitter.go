package submit

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/critiq/critiq/internal/github"
	"github.com/critiq/critiq/internal/position"
	"github.com/critiq/critiq/internal/review"
)

// ReviewPoster is the review-delivery surface. CreateIssueComment is the
// non-positional fallback when inline delivery fails entirely.
type ReviewPoster interface {
	CreateReview(ctx context.Context, owner, repo string, prNumber int, review github.ReviewRequest) error
	CreateIssueComment(ctx context.Context, owner, repo string, prNumber int, body string) error
}

// Input carries everything one submission needs.
type Input struct {
	Owner    string
	Repo     string
	PRNumber int
	CommitID string
	Review   *review.Result
	Resolver *position.Resolver
}

// Outcome describes exactly what was delivered. InvalidComments failed
// location validation and went into the summary addendum; FailedComments
// were rejected by the API at every level of the cascade.
type Outcome struct {
	PostedCount            int
	InvalidComments        []review.Comment
	FailedComments         []review.Comment
	FellBackToPlainComment bool
	Err                    error
}

// Submitter posts a merged review, running the fallback cascade on
// structural rejections so review content is never silently lost.
type Submitter struct {
	poster ReviewPoster
	log    *zap.Logger
}

// New creates a Submitter.
func New(poster ReviewPoster, log *zap.Logger) *Submitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Submitter{poster: poster, log: log}
}

// anchored pairs a candidate comment with its API representation after
// location resolution.
type anchored struct {
	src review.Comment
	api github.ReviewComment
}

// Submit delivers the review in three phases. Phase A validates every
// candidate location, moving invalid ones into a collapsible summary
// addendum. Phase B posts one batch review. Phase C runs only on a
// structural rejection: comments retry individually, still-failing
// ranges downgrade to single-line, and whatever remains is delivered
// through a plain PR comment or a summary note. Transient failures that
// survive retries propagate unchanged in Outcome.Err.
func (s *Submitter) Submit(ctx context.Context, in Input) *Outcome {
	out := &Outcome{}

	valid := s.resolve(in, out)
	summary := buildSummary(in.Review, out.InvalidComments)

	verdict := in.Review.Verdict
	if verdict == "" {
		verdict = review.VerdictComment
	}

	batch := github.ReviewRequest{
		CommitID: in.CommitID,
		Body:     summary,
		Event:    verdict,
		Comments: apiComments(valid),
	}
	err := s.poster.CreateReview(ctx, in.Owner, in.Repo, in.PRNumber, batch)
	if err == nil {
		out.PostedCount = len(valid)
		return out
	}
	if !github.IsStructural(err) {
		out.Err = err
		return out
	}

	s.log.Warn("batch review rejected, retrying comments individually",
		zap.Int("comments", len(valid)),
		zap.Error(err))
	s.cascade(ctx, in, out, valid, summary, verdict)
	return out
}

// resolve runs Phase A: every candidate goes through the Resolver and
// comes back adjusted, downgraded, or shunted to InvalidComments.
func (s *Submitter) resolve(in Input, out *Outcome) []anchored {
	var valid []anchored
	for _, c := range in.Review.Comments {
		v := in.Resolver.Validate(c.Path, c.Line, c.StartLine)
		if !v.Valid {
			s.log.Debug("comment location rejected",
				zap.String("path", c.Path),
				zap.Int("line", c.Line),
				zap.String("reason", v.Reason))
			out.InvalidComments = append(out.InvalidComments, c)
			continue
		}

		api := github.ReviewComment{
			Path: c.Path,
			Line: v.Line(c.Line),
			Side: "RIGHT",
			Body: c.Body,
		}
		if c.StartLine > 0 && !v.Downgraded {
			start := c.StartLine
			if v.AdjustedStartLine != 0 {
				start = v.AdjustedStartLine
			}
			api.StartLine = start
			api.StartSide = "RIGHT"
		}
		valid = append(valid, anchored{src: c, api: api})
	}
	return valid
}

// cascade is Phase C. Each comment retries as its own review; a
// still-failing range downgrades to single-line at its end line. If
// nothing lands inline the whole review becomes one plain PR comment.
func (s *Submitter) cascade(ctx context.Context, in Input, out *Outcome, valid []anchored, summary, verdict string) {
	for i, a := range valid {
		one := github.ReviewRequest{
			CommitID: in.CommitID,
			Body:     "",
			Event:    review.VerdictComment,
			Comments: []github.ReviewComment{a.api},
		}
		err := s.poster.CreateReview(ctx, in.Owner, in.Repo, in.PRNumber, one)

		if err != nil && github.IsStructural(err) && a.api.StartLine != 0 {
			single := a.api
			single.StartLine = 0
			single.StartSide = ""
			one.Comments = []github.ReviewComment{single}
			err = s.poster.CreateReview(ctx, in.Owner, in.Repo, in.PRNumber, one)
		}

		switch {
		case err == nil:
			out.PostedCount++
		case github.IsStructural(err):
			out.FailedComments = append(out.FailedComments, a.src)
		default:
			// The transport itself is failing after the client's own
			// retries; the fallback surfaces would ride the same
			// transport. Stop and propagate the error unchanged.
			for _, rest := range valid[i:] {
				out.FailedComments = append(out.FailedComments, rest.src)
			}
			out.Err = err
			return
		}
	}

	if out.PostedCount == 0 {
		// Every rejection was structural: deliver everything through
		// the conversation so no content is lost.
		body := buildPlainFallback(in.Review, append(out.FailedComments, out.InvalidComments...))
		if err := s.poster.CreateIssueComment(ctx, in.Owner, in.Repo, in.PRNumber, body); err != nil {
			out.Err = err
			return
		}
		out.FellBackToPlainComment = true
		return
	}

	// Some comments landed individually but the batch summary never
	// posted; deliver it now with a note about the stragglers.
	note := summary
	if len(out.FailedComments) > 0 {
		note += "\n\n" + formatAddendum("Comments that could not be attached inline", out.FailedComments)
	}
	if err := s.poster.CreateReview(ctx, in.Owner, in.Repo, in.PRNumber, github.ReviewRequest{
		CommitID: in.CommitID,
		Body:     note,
		Event:    verdict,
	}); err != nil {
		out.Err = err
	}
}

func apiComments(valid []anchored) []github.ReviewComment {
	comments := make([]github.ReviewComment, len(valid))
	for i, a := range valid {
		comments[i] = a.api
	}
	return comments
}

// buildSummary appends invalid comments to the review summary as a
// collapsible addendum so they are surfaced rather than dropped.
func buildSummary(r *review.Result, invalid []review.Comment) string {
	summary := r.Summary
	if len(invalid) > 0 {
		summary += "\n\n" + formatAddendum("Comments on lines outside the diff", invalid)
	}
	return summary
}

func formatAddendum(title string, comments []review.Comment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<details>\n<summary>%s (%d)</summary>\n\n", title, len(comments))
	for _, c := range comments {
		fmt.Fprintf(&b, "- `%s:%d`: %s\n", c.Path, c.Line, c.Body)
	}
	b.WriteString("\n</details>")
	return b.String()
}

// buildPlainFallback renders the entire review as one conversation
// comment, each candidate in its own collapsible section.
func buildPlainFallback(r *review.Result, comments []review.Comment) string {
	var b strings.Builder
	b.WriteString(r.Summary)
	b.WriteString("\n\n---\n")
	b.WriteString("The following comments could not be attached to diff lines:\n")
	for _, c := range comments {
		fmt.Fprintf(&b, "\n<details>\n<summary><code>%s:%d</code>", c.Path, c.Line)
		if c.Severity != "" {
			fmt.Fprintf(&b, " (%s)", c.Severity)
		}
		fmt.Fprintf(&b, "</summary>\n\n%s\n\n</details>\n", c.Body)
	}
	return b.String()
}
