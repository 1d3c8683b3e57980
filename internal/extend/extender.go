package extend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/critiq/critiq/internal/diff"
)

// Context line bounds. Requests outside the range are clamped, never
// rejected.
const (
	MinContextLines = 0
	MaxContextLines = 10
)

// ContentProvider fetches file content at a given reference. ok is false
// when the file does not exist at that reference; that is not an error.
type ContentProvider interface {
	GetFileContent(ctx context.Context, path, ref string) (content string, ok bool, err error)
}

// Options controls hunk extension.
type Options struct {
	ContextLines       int
	IncludeFileHeaders bool
	MaxFileSize        int
}

// ClampContextLines bounds the requested context to [0, 10].
func ClampContextLines(n int) int {
	if n < MinContextLines {
		return MinContextLines
	}
	if n > MaxContextLines {
		return MaxContextLines
	}
	return n
}

// ExtendedHunk is a hunk widened with surrounding file lines. Before and
// After hold raw lines without diff markers. ExtendedOldStart and
// ExtendedNewStart are the hunk anchors shifted back by the length of the
// before-context.
type ExtendedHunk struct {
	diff.Hunk
	Before           []string
	After            []string
	ExtendedOldStart int
	ExtendedNewStart int
}

// ExtendedFile pairs a parsed file with its widened hunks.
// ContentFetched is false when the file was skipped (deleted, absent,
// over the size limit, or the provider failed); its hunks then carry
// empty context.
type ExtendedFile struct {
	File           *diff.File
	Hunks          []ExtendedHunk
	ContentFetched bool
	SkipReason     string
}

// Extender widens hunks with file content fetched through a provider and
// cached per (ref, path).
type Extender struct {
	provider ContentProvider
	cache    *Cache
	log      *zap.Logger
}

// New creates an Extender. The cache is owned by the caller so isolated
// pipelines do not share state.
func New(provider ContentProvider, cache *Cache, log *zap.Logger) *Extender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extender{provider: provider, cache: cache, log: log}
}

// ExtendFiles widens every hunk of every file with up to
// opts.ContextLines of surrounding content at ref. A file that cannot be
// fetched is recorded as skipped; it never aborts the batch.
func (e *Extender) ExtendFiles(ctx context.Context, files []diff.File, ref string, opts Options) []ExtendedFile {
	n := ClampContextLines(opts.ContextLines)

	out := make([]ExtendedFile, 0, len(files))
	for i := range files {
		out = append(out, e.extendFile(ctx, &files[i], ref, n, opts))
	}
	return out
}

func (e *Extender) extendFile(ctx context.Context, f *diff.File, ref string, n int, opts Options) ExtendedFile {
	ef := ExtendedFile{File: f}

	skip := func(reason string) ExtendedFile {
		ef.SkipReason = reason
		ef.Hunks = identityHunks(f)
		return ef
	}

	if f.Kind == diff.KindDelete {
		return skip("deleted file")
	}
	if f.IsBinary {
		return skip("binary file")
	}
	if n == 0 {
		// Identity transform, nothing to fetch.
		ef.Hunks = identityHunks(f)
		return ef
	}

	lines, ok := e.cache.Get(ref, f.NewPath)
	if !ok {
		content, found, err := e.provider.GetFileContent(ctx, f.NewPath, ref)
		if err != nil {
			e.log.Warn("content fetch failed, skipping file",
				zap.String("path", f.NewPath), zap.Error(err))
			return skip(fmt.Sprintf("fetch failed: %v", err))
		}
		if !found {
			return skip("file absent at reference")
		}
		if opts.MaxFileSize > 0 && len(content) > opts.MaxFileSize {
			return skip(fmt.Sprintf("file exceeds %d bytes", opts.MaxFileSize))
		}
		lines = strings.Split(content, "\n")
		e.cache.Put(ref, f.NewPath, lines)
	}

	ef.ContentFetched = true
	ef.Hunks = make([]ExtendedHunk, 0, len(f.Hunks))
	for i := range f.Hunks {
		ef.Hunks = append(ef.Hunks, extendHunk(&f.Hunks[i], lines, n))
	}
	return ef
}

// extendHunk slices context around the hunk using new-side boundaries.
// The old-side anchor shifts back by the same before-context length; old
// content is never fetched independently.
func extendHunk(h *diff.Hunk, lines []string, n int) ExtendedHunk {
	total := len(lines)
	hunkEnd := h.NewStart + h.NewLines - 1

	start := h.NewStart - n
	if start < 1 {
		start = 1
	}
	end := hunkEnd + n
	if end > total {
		end = total
	}

	eh := ExtendedHunk{
		Hunk:             *h,
		ExtendedOldStart: h.OldStart,
		ExtendedNewStart: h.NewStart,
	}

	if before := sliceLines(lines, start, h.NewStart-1); len(before) > 0 {
		eh.Before = before
		eh.ExtendedOldStart = h.OldStart - len(before)
		eh.ExtendedNewStart = h.NewStart - len(before)
	}
	eh.After = sliceLines(lines, hunkEnd+1, end)
	return eh
}

// sliceLines returns 1-based inclusive lines [from, to], clamped to the file.
func sliceLines(lines []string, from, to int) []string {
	if from < 1 {
		from = 1
	}
	if to > len(lines) {
		to = len(lines)
	}
	if from > to {
		return nil
	}
	return lines[from-1 : to]
}

func identityHunks(f *diff.File) []ExtendedHunk {
	hunks := make([]ExtendedHunk, 0, len(f.Hunks))
	for i := range f.Hunks {
		hunks = append(hunks, ExtendedHunk{
			Hunk:             f.Hunks[i],
			ExtendedOldStart: f.Hunks[i].OldStart,
			ExtendedNewStart: f.Hunks[i].NewStart,
		})
	}
	return hunks
}

// Reconstruct renders extended files back into unified diff text. Hunk
// headers are recomputed so their counts equal the originals plus the
// added context; context lines carry the usual space prefix.
func Reconstruct(files []ExtendedFile, opts Options) string {
	var sb strings.Builder
	for i := range files {
		reconstructFile(&sb, &files[i], opts)
	}
	return sb.String()
}

func reconstructFile(sb *strings.Builder, ef *ExtendedFile, opts Options) {
	f := ef.File
	if opts.IncludeFileHeaders {
		fmt.Fprintf(sb, "diff --git a/%s b/%s\n", headerPath(f.OldPath, f.Path()), f.Path())
		fmt.Fprintf(sb, "--- a/%s\n", headerPath(f.OldPath, f.Path()))
		fmt.Fprintf(sb, "+++ b/%s\n", f.Path())
	}
	for i := range ef.Hunks {
		reconstructHunk(sb, &ef.Hunks[i])
	}
}

func headerPath(old, fallback string) string {
	if old != "" {
		return old
	}
	return fallback
}

func reconstructHunk(sb *strings.Builder, h *ExtendedHunk) {
	extra := len(h.Before) + len(h.After)
	sb.WriteString(diff.FormatHunkHeader(
		h.ExtendedOldStart, h.OldLines+extra,
		h.ExtendedNewStart, h.NewLines+extra,
		h.Section,
	))
	sb.WriteByte('\n')

	for _, line := range h.Before {
		sb.WriteByte(' ')
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	for _, c := range h.Changes {
		switch c.Kind {
		case diff.ChangeInsert:
			sb.WriteByte('+')
		case diff.ChangeDelete:
			sb.WriteByte('-')
		default:
			sb.WriteByte(' ')
		}
		sb.WriteString(c.Content)
		sb.WriteByte('\n')
	}
	for _, line := range h.After {
		sb.WriteByte(' ')
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
}
