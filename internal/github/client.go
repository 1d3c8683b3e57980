package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	defaultAPIURL = "https://api.github.com"

	// maxConcurrentCalls bounds in-flight API requests across the whole
	// process, on top of per-call backoff.
	maxConcurrentCalls = 4
)

// Client provides access to the GitHub REST API surfaces this pipeline
// needs: PR diffs, file contents, reviews, and issue comments.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
	sem     *semaphore.Weighted
	log     *zap.Logger
}

// NewClient creates a GitHub client. Requires GITHUB_TOKEN; GITHUB_API_URL
// overrides the endpoint for GitHub Enterprise.
func NewClient(log *zap.Logger) (*Client, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}
	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: &http.Client{Timeout: 60 * time.Second},
		sem:     semaphore.NewWeighted(maxConcurrentCalls),
		log:     log,
	}, nil
}

// NewClientForTest creates a client against a test server.
func NewClientForTest(apiURL, token string) *Client {
	return &Client{
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: &http.Client{Timeout: 10 * time.Second},
		sem:     semaphore.NewWeighted(maxConcurrentCalls),
		log:     zap.NewNop(),
	}
}

// GetPRDiff fetches the unified diff for a pull request.
func (c *Client) GetPRDiff(ctx context.Context, owner, repo string, prNumber int) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.apiURL, owner, repo, prNumber)

	var diff string
	err := retryTransient(ctx, c.log, "GetPRDiff", func() error {
		body, status, err := c.do(ctx, "GET", url, "application/vnd.github.v3.diff", nil)
		if err != nil {
			return err
		}
		switch {
		case status == http.StatusOK:
			diff = string(body)
			return nil
		case status == http.StatusNotFound:
			return fmt.Errorf("PR #%d not found in %s/%s", prNumber, owner, repo)
		default:
			return classifyStatus(status, body, "")
		}
	})
	return diff, err
}

// GetPRHead fetches the SHA of the pull request's head commit. Context
// extension and review anchoring must both use it: an empty ref would
// resolve to the default branch, not the branch under review.
func (c *Client) GetPRHead(ctx context.Context, owner, repo string, prNumber int) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.apiURL, owner, repo, prNumber)

	var sha string
	err := retryTransient(ctx, c.log, "GetPRHead", func() error {
		body, status, err := c.do(ctx, "GET", url, "application/vnd.github.v3+json", nil)
		if err != nil {
			return err
		}
		switch {
		case status == http.StatusOK:
			var pr struct {
				Head struct {
					SHA string `json:"sha"`
				} `json:"head"`
			}
			if err := json.Unmarshal(body, &pr); err != nil {
				return fmt.Errorf("decoding PR: %w", err)
			}
			if pr.Head.SHA == "" {
				return fmt.Errorf("PR #%d has no head SHA", prNumber)
			}
			sha = pr.Head.SHA
			return nil
		case status == http.StatusNotFound:
			return fmt.Errorf("PR #%d not found in %s/%s", prNumber, owner, repo)
		default:
			return classifyStatus(status, body, "")
		}
	})
	return sha, err
}

// GetFileContent fetches raw file content at ref. A missing file is
// (_, false, nil), not an error.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, bool, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", c.apiURL, owner, repo, path, ref)

	var content string
	var found bool
	err := retryTransient(ctx, c.log, "GetFileContent", func() error {
		body, status, err := c.do(ctx, "GET", url, "application/vnd.github.v3.raw", nil)
		if err != nil {
			return err
		}
		switch {
		case status == http.StatusOK:
			content, found = string(body), true
			return nil
		case status == http.StatusNotFound:
			return nil // absent at this ref
		default:
			return classifyStatus(status, body, "")
		}
	})
	return content, found, err
}

// ReviewComment is one inline comment in a review request. Side is
// always RIGHT: comments anchor to new-side lines.
type ReviewComment struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	StartLine int    `json:"start_line,omitempty"`
	Side      string `json:"side"`
	StartSide string `json:"start_side,omitempty"`
	Body      string `json:"body"`
}

// ReviewRequest is the payload for creating a PR review.
type ReviewRequest struct {
	CommitID string          `json:"commit_id,omitempty"`
	Body     string          `json:"body"`
	Event    string          `json:"event"`
	Comments []ReviewComment `json:"comments,omitempty"`
}

// CreateReview posts a pull request review. A 422 comes back as
// *StructuralError so callers can run their fallback cascade; transient
// failures are retried here with backoff and surfaced only when
// exhausted.
func (c *Client) CreateReview(ctx context.Context, owner, repo string, prNumber int, review ReviewRequest) error {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", c.apiURL, owner, repo, prNumber)

	payload, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshaling review: %w", err)
	}

	return retryTransient(ctx, c.log, "CreateReview", func() error {
		body, status, err := c.do(ctx, "POST", url, "application/vnd.github.v3+json", payload)
		if err != nil {
			return err
		}
		if status >= 200 && status < 300 {
			return nil
		}
		return classifyStatus(status, body, "")
	})
}

// CreateIssueComment posts a plain, non-positional comment on the PR
// conversation. This is the last-resort delivery surface.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, prNumber int, body string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.apiURL, owner, repo, prNumber)

	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return fmt.Errorf("marshaling comment: %w", err)
	}

	return retryTransient(ctx, c.log, "CreateIssueComment", func() error {
		respBody, status, err := c.do(ctx, "POST", url, "application/vnd.github.v3+json", payload)
		if err != nil {
			return err
		}
		if status >= 200 && status < 300 {
			return nil
		}
		return classifyStatus(status, respBody, "")
	})
}

// RepoFiles binds the client to one repository, satisfying the
// extend.ContentProvider shape of (path, ref).
type RepoFiles struct {
	client *Client
	owner  string
	repo   string
}

// Files returns a content provider scoped to owner/repo.
func (c *Client) Files(owner, repo string) *RepoFiles {
	return &RepoFiles{client: c, owner: owner, repo: repo}
}

// GetFileContent implements extend.ContentProvider.
func (f *RepoFiles) GetFileContent(ctx context.Context, path, ref string) (string, bool, error) {
	return f.client.GetFileContent(ctx, f.owner, f.repo, path, ref)
}

// do executes one HTTP request under the process-wide concurrency bound.
// Network failures come back as *TransientError.
func (c *Client) do(ctx context.Context, method, url, accept string, payload []byte) ([]byte, int, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	defer c.sem.Release(1)

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, 0, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &TransientError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, resp.StatusCode, classifyStatus(resp.StatusCode, body, resp.Header.Get("Retry-After"))
	}
	return body, resp.StatusCode, nil
}

// classifyStatus maps an HTTP status to the pipeline's error classes.
// retryAfter is the raw Retry-After header value, possibly empty.
func classifyStatus(status int, body []byte, retryAfter string) error {
	msg := strings.TrimSpace(string(body))
	switch {
	case status == http.StatusUnprocessableEntity:
		return &StructuralError{StatusCode: status, Message: msg}
	case status == http.StatusTooManyRequests || status >= 500:
		te := &TransientError{StatusCode: status, Message: msg}
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			te.RetryAfter = time.Duration(secs) * time.Second
		}
		return te
	default:
		return fmt.Errorf("GitHub API error (status %d): %s", status, msg)
	}
}
