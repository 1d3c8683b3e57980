package review

import "context"

// ChunkMeta tells the analyzer where its input sits in the overall diff,
// so multi-chunk reviews can phrase summaries accordingly.
type ChunkMeta struct {
	Index       int
	TotalChunks int
	IsFirst     bool
	IsLast      bool
	Files       []string
}

// Analyzer turns a chunk of diff text into review comments and summary
// fragments. Implementations are external collaborators (an LLM, a rule
// engine); this pipeline treats them as opaque and fallible.
type Analyzer interface {
	Analyze(ctx context.Context, chunkDiff string, meta ChunkMeta) (*AnalysisResult, error)
}
