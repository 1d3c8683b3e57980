package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiq/critiq/internal/cache"
	"github.com/critiq/critiq/internal/config"
	"github.com/critiq/critiq/internal/github"
	"github.com/critiq/critiq/internal/review"
)

func fileDiff(path, added string) string {
	return fmt.Sprintf(`diff --git a/%s b/%s
index 1111111..2222222 100644
--- a/%s
+++ b/%s
@@ -1,2 +1,3 @@
 package main
+%s
 func main() {}
`, path, path, path, path, added)
}

type fakeProvider struct {
	files map[string]string
}

func (f *fakeProvider) GetFileContent(_ context.Context, path, _ string) (string, bool, error) {
	content, ok := f.files[path]
	return content, ok, nil
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	inputs  []string
	failOn  string
	result  func(meta review.ChunkMeta) *review.AnalysisResult
	failAll bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, chunkDiff string, meta review.ChunkMeta) (*review.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.inputs = append(f.inputs, chunkDiff)
	f.mu.Unlock()

	if f.failAll || (f.failOn != "" && strings.Contains(chunkDiff, f.failOn)) {
		return nil, errors.New("analysis blew up")
	}
	if f.result != nil {
		return f.result(meta), nil
	}
	return &review.AnalysisResult{Summary: fmt.Sprintf("chunk %d ok", meta.Index)}, nil
}

type fakePoster struct {
	mu            sync.Mutex
	reviews       []github.ReviewRequest
	issueComments []string
	reviewErr     error
}

func (f *fakePoster) CreateReview(_ context.Context, _, _ string, _ int, r github.ReviewRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, r)
	return f.reviewErr
}

func (f *fakePoster) CreateIssueComment(_ context.Context, _, _ string, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issueComments = append(f.issueComments, body)
	return nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Cache.Enabled = false
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	analyzer := &fakeAnalyzer{result: func(meta review.ChunkMeta) *review.AnalysisResult {
		return &review.AnalysisResult{
			Comments: []review.Comment{{Path: "a.go", Line: 2, Body: "check this", Severity: review.SeverityMedium}},
			Summary:  "One finding.",
			Verdict:  review.VerdictComment,
		}
	}}
	poster := &fakePoster{}
	p := New(Options{
		Provider: &fakeProvider{files: map[string]string{"a.go": "package main\nvar x = 1\nfunc main() {}\nvar tail = 2\n"}},
		Analyzer: analyzer,
		Poster:   poster,
		Config:   testConfig(),
	})

	res, err := p.Run(context.Background(), Request{
		Owner: "acme", Repo: "widgets", PRNumber: 7,
		CommitID: "abc123", Ref: "abc123",
		DiffText: fileDiff("a.go", "var x = 1"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesChanged)
	assert.Equal(t, 1, res.TotalChunks)
	assert.False(t, res.Chunked)
	require.NotNil(t, res.Review)
	assert.Len(t, res.Review.Comments, 1)
	require.NotNil(t, res.Submission)
	assert.Equal(t, 1, res.Submission.PostedCount)
	require.Len(t, poster.reviews, 1)
	assert.Equal(t, "abc123", poster.reviews[0].CommitID)
}

func TestRun_DryRunNeverSubmits(t *testing.T) {
	poster := &fakePoster{}
	p := New(Options{
		Provider: &fakeProvider{},
		Analyzer: &fakeAnalyzer{},
		Poster:   poster,
		Config:   testConfig(),
	})

	res, err := p.Run(context.Background(), Request{DiffText: fileDiff("a.go", "x"), DryRun: true})

	require.NoError(t, err)
	assert.NotNil(t, res.Review)
	assert.Nil(t, res.Submission)
	assert.Empty(t, poster.reviews)
}

func TestRun_EmptyDiff(t *testing.T) {
	p := New(Options{Provider: &fakeProvider{}, Analyzer: &fakeAnalyzer{}, Config: testConfig()})
	res, err := p.Run(context.Background(), Request{DiffText: "not a diff at all\n"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.FilesChanged)
	assert.Nil(t, res.Review)
}

func chunkedConfig() config.Config {
	cfg := testConfig()
	cfg.MaxTokensPerChunk = 30
	cfg.MinFilesForChunking = 3
	cfg.ChunkConcurrency = 2
	cfg.ContextLines = 0
	return cfg
}

func TestRun_ChunkFailureIsolated(t *testing.T) {
	analyzer := &fakeAnalyzer{
		failOn: "b/fail.go",
		result: func(meta review.ChunkMeta) *review.AnalysisResult {
			return &review.AnalysisResult{Summary: fmt.Sprintf("part %d", meta.Index)}
		},
	}
	p := New(Options{
		Provider: &fakeProvider{},
		Analyzer: analyzer,
		Config:   chunkedConfig(),
	})

	diffText := fileDiff("aaa/a.go", "x") + fileDiff("bbb/fail.go", "y") + fileDiff("ccc/c.go", "z")
	res, err := p.Run(context.Background(), Request{DiffText: diffText, DryRun: true})

	require.NoError(t, err, "partial failure must not fail the run")
	assert.True(t, res.Chunked)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, []string{"bbb/fail.go"}, res.Failures[0].Files)
	require.NotNil(t, res.Review)
	assert.NotEmpty(t, res.Review.Summary)
}

func TestRun_AllChunksFailed(t *testing.T) {
	p := New(Options{
		Provider: &fakeProvider{},
		Analyzer: &fakeAnalyzer{failAll: true},
		Config:   testConfig(),
	})

	_, err := p.Run(context.Background(), Request{DiffText: fileDiff("a.go", "x"), DryRun: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed analysis")
}

func TestRun_SecretsRedactedBeforeAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	p := New(Options{
		Provider: &fakeProvider{},
		Analyzer: analyzer,
		Config:   testConfig(),
	})

	diffText := fileDiff("a.go", `apiKey = "sk-ant-REDACTED"`)
	_, err := p.Run(context.Background(), Request{DiffText: diffText, DryRun: true})

	require.NoError(t, err)
	require.Len(t, analyzer.inputs, 1)
	assert.NotContains(t, analyzer.inputs[0], "sk-ant-")
	assert.Contains(t, analyzer.inputs[0], "[REDACTED]")
}

func TestRun_ExtendedContextReachesAnalyzer(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	cfg := testConfig()
	cfg.ContextLines = 2
	p := New(Options{
		Provider: &fakeProvider{files: map[string]string{
			"a.go": "package main\nvar x = 1\nfunc main() {}\nline four\nline five\nline six\n",
		}},
		Analyzer: analyzer,
		Config:   cfg,
	})

	_, err := p.Run(context.Background(), Request{DiffText: fileDiff("a.go", "var x = 1"), Ref: "abc", DryRun: true})

	require.NoError(t, err)
	require.Len(t, analyzer.inputs, 1)
	// Lines beyond the original hunk appear as extended context.
	assert.Contains(t, analyzer.inputs[0], "line four")
}

func TestRun_UnfetchableFileRecordedAsSkipped(t *testing.T) {
	p := New(Options{
		Provider: &fakeProvider{}, // no files at all
		Analyzer: &fakeAnalyzer{},
		Config:   testConfig(),
	})

	res, err := p.Run(context.Background(), Request{DiffText: fileDiff("a.go", "x"), DryRun: true})

	require.NoError(t, err)
	assert.Equal(t, "file absent at reference", res.SkippedFiles["a.go"])
	assert.NotNil(t, res.Review, "skipped extension must not block analysis")
}

func TestRun_ResultCacheShortCircuitsAnalysis(t *testing.T) {
	results, err := cache.New(true, t.TempDir(), 3600)
	require.NoError(t, err)

	analyzer := &fakeAnalyzer{}
	cfg := testConfig()
	opts := Options{
		Provider: &fakeProvider{},
		Analyzer: analyzer,
		Results:  results,
		Config:   cfg,
	}

	req := Request{DiffText: fileDiff("a.go", "x"), DryRun: true}
	_, err = New(opts).Run(context.Background(), req)
	require.NoError(t, err)
	_, err = New(opts).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, analyzer.calls, "second run should hit the result cache")
}

func TestRun_ForcedEventPinsVerdict(t *testing.T) {
	analyzer := &fakeAnalyzer{result: func(review.ChunkMeta) *review.AnalysisResult {
		return &review.AnalysisResult{Summary: "s", Verdict: review.VerdictApprove}
	}}
	cfg := testConfig()
	cfg.Event = review.VerdictRequestChanges
	p := New(Options{Provider: &fakeProvider{}, Analyzer: analyzer, Config: cfg})

	res, err := p.Run(context.Background(), Request{DiffText: fileDiff("a.go", "x"), DryRun: true})

	require.NoError(t, err)
	assert.Equal(t, review.VerdictRequestChanges, res.Review.Verdict)
}
