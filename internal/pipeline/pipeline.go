package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/critiq/critiq/internal/cache"
	"github.com/critiq/critiq/internal/chunk"
	"github.com/critiq/critiq/internal/config"
	"github.com/critiq/critiq/internal/diff"
	"github.com/critiq/critiq/internal/extend"
	"github.com/critiq/critiq/internal/position"
	"github.com/critiq/critiq/internal/redact"
	"github.com/critiq/critiq/internal/review"
	"github.com/critiq/critiq/internal/submit"
)

// Options wires the pipeline's collaborators. Provider and Analyzer are
// required; Poster may be nil for analysis-only runs. Results is an
// optional persistent cache for analysis outputs.
type Options struct {
	Provider extend.ContentProvider
	Analyzer review.Analyzer
	Poster   submit.ReviewPoster
	Counter  chunk.TokenCounter
	Results  *cache.Cache
	Config   config.Config
	Log      *zap.Logger
}

// Pipeline runs one review request to completion: parse, redact, extend,
// chunk, analyze, merge, submit. Each instance owns its content cache, so
// isolated callers construct separate pipelines instead of sharing state.
type Pipeline struct {
	provider extend.ContentProvider
	analyzer review.Analyzer
	poster   submit.ReviewPoster
	counter  chunk.TokenCounter
	contents *extend.Cache
	results  *cache.Cache
	cfg      config.Config
	log      *zap.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Counter == nil {
		opts.Counter = chunk.EstimateCounter{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Pipeline{
		provider: opts.Provider,
		analyzer: opts.Analyzer,
		poster:   opts.Poster,
		counter:  opts.Counter,
		contents: extend.NewCache(),
		results:  opts.Results,
		cfg:      opts.Config,
		log:      opts.Log,
	}
}

// ContentCache exposes the pipeline's file-content cache.
func (p *Pipeline) ContentCache() *extend.Cache {
	return p.contents
}

// Request is one review run over a diff.
type Request struct {
	Owner    string
	Repo     string
	PRNumber int
	CommitID string
	Ref      string
	DiffText string
	DryRun   bool
}

// ChunkFailure records one chunk whose analysis failed. Its siblings'
// results are still merged.
type ChunkFailure struct {
	Index int
	Files []string
	Err   error
}

// Result describes exactly what a run produced: parsed stats, per-file
// skip reasons from context extension, chunking shape, failed chunks, the
// merged review, and the submission outcome (nil on dry runs).
type Result struct {
	RunID        string
	FilesChanged int
	Additions    int
	Deletions    int
	SkippedFiles map[string]string
	Chunked      bool
	TotalChunks  int
	Failures     []ChunkFailure
	Review       *review.Result
	Submission   *submit.Outcome
}

// Run executes the pipeline. Expected degradation (malformed diff
// regions, unfetchable files, individual chunk failures, comments that
// need adjustment) is reported in the Result; an error comes back only
// when nothing could be analyzed or the submission transport failed after
// retries.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{
		RunID:        uuid.NewString(),
		SkippedFiles: make(map[string]string),
	}

	parsed := diff.Parse(req.DiffText)
	res.FilesChanged = len(parsed.Files)
	res.Additions = parsed.TotalAdditions
	res.Deletions = parsed.TotalDeletions
	if len(parsed.Files) == 0 {
		p.log.Info("diff contains no reviewable files", zap.String("run", res.RunID))
		return res, nil
	}

	p.log.Info("starting review run",
		zap.String("run", res.RunID),
		zap.Int("files", res.FilesChanged),
		zap.Int("additions", res.Additions),
		zap.Int("deletions", res.Deletions))

	extender := extend.New(p.provider, p.contents, p.log)
	extended := extender.ExtendFiles(ctx, parsed.Files, req.Ref, extend.Options{
		ContextLines: p.cfg.ContextLines,
		MaxFileSize:  p.cfg.MaxFileSize,
	})
	byPath := make(map[string]*extend.ExtendedFile, len(extended))
	for i := range extended {
		ef := &extended[i]
		byPath[ef.File.Path()] = ef
		if !ef.ContentFetched && ef.SkipReason != "" {
			res.SkippedFiles[ef.File.Path()] = ef.SkipReason
		}
	}

	chunks := chunk.Split(parsed, p.counter, chunk.Options{
		MaxTokensPerChunk:   p.cfg.MaxTokensPerChunk,
		MinFilesForChunking: p.cfg.MinFilesForChunking,
	})
	res.Chunked = len(chunks) > 1
	res.TotalChunks = len(chunks)

	outcomes := chunk.Run(ctx, p.log, chunks, p.cfg.ChunkConcurrency, func(ctx context.Context, c chunk.Chunk) (*review.AnalysisResult, error) {
		return p.analyzeChunk(ctx, c, byPath)
	})

	var analyses []*review.AnalysisResult
	for _, o := range outcomes {
		if o.Err != nil {
			res.Failures = append(res.Failures, ChunkFailure{
				Index: o.Chunk.Index,
				Files: o.Chunk.Paths(),
				Err:   o.Err,
			})
			continue
		}
		analyses = append(analyses, o.Result)
	}
	if len(analyses) == 0 {
		return res, fmt.Errorf("all %d chunks failed analysis", len(outcomes))
	}

	merged := review.Merge(analyses)
	if forced := p.cfg.Event; forced == review.VerdictApprove || forced == review.VerdictRequestChanges {
		// An explicitly configured event pins the review verdict.
		merged.Verdict = forced
	}
	res.Review = merged

	if req.DryRun || p.poster == nil {
		return res, nil
	}

	submitter := submit.New(p.poster, p.log)
	res.Submission = submitter.Submit(ctx, submit.Input{
		Owner:    req.Owner,
		Repo:     req.Repo,
		PRNumber: req.PRNumber,
		CommitID: req.CommitID,
		Review:   merged,
		Resolver: position.NewResolver(parsed),
	})
	if res.Submission.Err != nil {
		return res, fmt.Errorf("submitting review: %w", res.Submission.Err)
	}
	return res, nil
}

// analyzeChunk renders a chunk with extended context, redacts it, and
// runs it through the analyzer, short-circuiting on a result-cache hit.
func (p *Pipeline) analyzeChunk(ctx context.Context, c chunk.Chunk, byPath map[string]*extend.ExtendedFile) (*review.AnalysisResult, error) {
	text := p.chunkText(c, byPath)
	if p.cfg.Privacy.RedactSecrets {
		text = redact.Secrets(text)
	}

	meta := review.ChunkMeta{
		Index:       c.Index,
		TotalChunks: c.TotalChunks,
		IsFirst:     c.IsFirst,
		IsLast:      c.IsLast,
		Files:       c.Paths(),
	}

	var key string
	if p.results != nil && p.results.Enabled() {
		key = cache.BuildKey(p.cfg.Model, text)
		if payload, ok := p.results.Get(key); ok {
			var cached review.AnalysisResult
			if err := json.Unmarshal([]byte(payload), &cached); err == nil {
				p.log.Debug("analysis cache hit", zap.Int("chunk", c.Index))
				return &cached, nil
			}
		}
	}

	result, err := p.analyzer.Analyze(ctx, text, meta)
	if err != nil {
		return nil, err
	}
	if key != "" {
		if payload, err := json.Marshal(result); err == nil {
			if err := p.results.Put(key, string(payload)); err != nil {
				p.log.Debug("analysis cache write failed", zap.Error(err))
			}
		}
	}
	return result, nil
}

// chunkText renders the chunk's files with their extended hunks. Files
// the extender never saw fall back to their original diff text.
func (p *Pipeline) chunkText(c chunk.Chunk, byPath map[string]*extend.ExtendedFile) string {
	files := make([]extend.ExtendedFile, 0, len(c.Files))
	for i := range c.Files {
		if ef, ok := byPath[c.Files[i].Path()]; ok {
			files = append(files, *ef)
			continue
		}
		files = append(files, extend.ExtendedFile{File: &c.Files[i]})
	}
	for i := range files {
		if files[i].Hunks == nil {
			files[i] = fallbackIdentity(files[i].File)
		}
	}
	return extend.Reconstruct(files, extend.Options{IncludeFileHeaders: true})
}

func fallbackIdentity(f *diff.File) extend.ExtendedFile {
	ef := extend.ExtendedFile{File: f}
	for i := range f.Hunks {
		ef.Hunks = append(ef.Hunks, extend.ExtendedHunk{
			Hunk:             f.Hunks[i],
			ExtendedOldStart: f.Hunks[i].OldStart,
			ExtendedNewStart: f.Hunks[i].NewStart,
		})
	}
	return ef
}
