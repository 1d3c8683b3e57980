package chunk

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/critiq/critiq/internal/diff"
)

// Options controls when and how a diff is split.
type Options struct {
	MaxTokensPerChunk   int
	MinFilesForChunking int
}

// Chunk is a token-bounded group of file diffs reviewed as one unit.
type Chunk struct {
	ID          string
	Index       int
	Files       []diff.File
	Diff        string
	TokenCount  int
	IsFirst     bool
	IsLast      bool
	TotalChunks int
}

// Paths returns the addressable paths of the chunk's files.
func (c *Chunk) Paths() []string {
	paths := make([]string, len(c.Files))
	for i := range c.Files {
		paths[i] = c.Files[i].Path()
	}
	return paths
}

// NeedsChunking reports whether the diff is big enough to split: at least
// MinFilesForChunking files and a token total over the per-chunk budget.
func NeedsChunking(d *diff.Diff, counter TokenCounter, opts Options) bool {
	if len(d.Files) < opts.MinFilesForChunking {
		return false
	}
	return counter.Count(diff.Reconstruct(d)) > opts.MaxTokensPerChunk
}

// Split breaks a diff into token-bounded chunks. Files are sorted by
// directory so related files stay together, then accumulated greedily; a
// group is flushed when the next file would overflow the budget. A single
// file over the budget gets its own chunk; files are never split mid-file.
//
// When the diff does not need chunking the whole diff comes back as one
// chunk.
func Split(d *diff.Diff, counter TokenCounter, opts Options) []Chunk {
	if len(d.Files) == 0 {
		return nil
	}
	if !NeedsChunking(d, counter, opts) {
		return finalize([][]diff.File{append([]diff.File(nil), d.Files...)}, counter)
	}

	files := append([]diff.File(nil), d.Files...)
	sort.SliceStable(files, func(i, j int) bool {
		di, dj := filepath.Dir(files[i].Path()), filepath.Dir(files[j].Path())
		if di != dj {
			return di < dj
		}
		return files[i].Path() < files[j].Path()
	})

	var groups [][]diff.File
	var current []diff.File
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			groups = append(groups, current)
			current = nil
			currentTokens = 0
		}
	}

	for i := range files {
		tokens := counter.Count(fileText(&files[i]))
		if tokens > opts.MaxTokensPerChunk {
			// Oversized file: isolate, never split mid-file.
			flush()
			groups = append(groups, []diff.File{files[i]})
			continue
		}
		if currentTokens+tokens > opts.MaxTokensPerChunk {
			flush()
		}
		current = append(current, files[i])
		currentTokens += tokens
	}
	flush()

	return finalize(groups, counter)
}

func finalize(groups [][]diff.File, counter TokenCounter) []Chunk {
	chunks := make([]Chunk, len(groups))
	for i, group := range groups {
		text := groupText(group)
		chunks[i] = Chunk{
			ID:          uuid.NewString(),
			Index:       i,
			Files:       group,
			Diff:        text,
			TokenCount:  counter.Count(text),
			IsFirst:     i == 0,
			IsLast:      i == len(groups)-1,
			TotalChunks: len(groups),
		}
	}
	return chunks
}

func fileText(f *diff.File) string {
	var sb strings.Builder
	diff.ReconstructFile(&sb, f)
	return sb.String()
}

func groupText(files []diff.File) string {
	var sb strings.Builder
	for i := range files {
		diff.ReconstructFile(&sb, &files[i])
	}
	return sb.String()
}
