package position

import (
	"fmt"

	"github.com/critiq/critiq/internal/diff"
)

// Tolerance is the maximum distance, in lines, a comment may be moved to
// land on a commentable line. Searches beyond this window reject the
// comment instead of anchoring it somewhere misleading.
const Tolerance = 10

// Validation is the outcome of resolving a proposed comment location.
// AdjustedLine/AdjustedStartLine are set when the location was moved;
// Downgraded means the range start was unusable and the comment became
// single-line. Reason explains rejections and adjustments.
type Validation struct {
	Valid             bool
	AdjustedLine      int
	AdjustedStartLine int
	Downgraded        bool
	Reason            string
}

// Line returns the effective end line after adjustment.
func (v Validation) Line(requested int) int {
	if v.AdjustedLine != 0 {
		return v.AdjustedLine
	}
	return requested
}

// Resolver maps new-side lines of a parsed diff to commentable locations
// and legacy diff positions. It is immutable once built.
type Resolver struct {
	commentable map[string]map[int]bool
	positions   map[string]map[int]int
}

// NewResolver indexes every insert/context line of the diff. Delete-only
// lines are never commentable.
func NewResolver(d *diff.Diff) *Resolver {
	r := &Resolver{
		commentable: make(map[string]map[int]bool),
		positions:   make(map[string]map[int]int),
	}
	for fi := range d.Files {
		f := &d.Files[fi]
		path := f.Path()
		lines := make(map[int]bool)
		positions := make(map[int]int)
		for hi := range f.Hunks {
			for _, c := range f.Hunks[hi].Changes {
				if c.Kind == diff.ChangeDelete {
					continue
				}
				lines[c.NewLine] = true
				positions[c.NewLine] = c.Position
			}
		}
		r.commentable[path] = lines
		r.positions[path] = positions
	}
	return r
}

// IsCommentable reports whether a new-side line is visible in the
// rendered diff for path.
func (r *Resolver) IsCommentable(path string, line int) bool {
	return r.commentable[path][line]
}

// Position returns the 1-based diff position for a commentable line,
// for APIs that address comments by position instead of line.
func (r *Resolver) Position(path string, line int) (int, bool) {
	pos, ok := r.positions[path][line]
	return pos, ok
}

// Validate resolves a proposed comment anchor to a commentable location.
//
// If line is commentable it is accepted as-is. Otherwise the nearest
// commentable line within Tolerance is used, preferring smaller offsets
// and the earlier line at equal distance. startLine (0 means single-line)
// is then re-resolved to the nearest commentable line at or before the
// resolved end line; if none exists the comment downgrades to
// single-line. When both line and startLine are invalid, line wins:
// startLine is recomputed relative to the adjusted line.
func (r *Resolver) Validate(path string, line, startLine int) Validation {
	lines, ok := r.commentable[path]
	if !ok || len(lines) == 0 {
		return Validation{Reason: fmt.Sprintf("file %s is not part of the diff", path)}
	}

	resolved := line
	v := Validation{Valid: true}

	if !lines[line] {
		adjusted, found := nearestCommentable(lines, line)
		if !found {
			return Validation{Reason: fmt.Sprintf(
				"line %d is not commentable and no commentable line within %d lines", line, Tolerance)}
		}
		resolved = adjusted
		v.AdjustedLine = adjusted
		v.Reason = fmt.Sprintf("line %d moved to nearest commentable line %d", line, adjusted)
	}

	if startLine > 0 && startLine != resolved {
		adjStart, found := nearestCommentableBelow(lines, startLine, resolved)
		switch {
		case found && adjStart < resolved:
			if adjStart != startLine {
				v.AdjustedStartLine = adjStart
			}
		default:
			// No usable range start: downgrade to single-line.
			v.Downgraded = true
			if v.Reason != "" {
				v.Reason += "; "
			}
			v.Reason += "range start unusable, downgraded to single-line"
		}
	}

	return v
}

// nearestCommentable searches outward from line by increasing offset,
// checking the earlier line first at each distance.
func nearestCommentable(lines map[int]bool, line int) (int, bool) {
	for offset := 1; offset <= Tolerance; offset++ {
		if below := line - offset; below >= 1 && lines[below] {
			return below, true
		}
		if lines[line+offset] {
			return line + offset, true
		}
	}
	return 0, false
}

// nearestCommentableBelow searches outward from want for a commentable
// line that still precedes limit, so an adjusted start keeps forming a
// valid range with the resolved end line.
func nearestCommentableBelow(lines map[int]bool, want, limit int) (int, bool) {
	if want >= limit {
		want = limit - 1
	}
	for offset := 0; offset <= Tolerance; offset++ {
		if below := want - offset; below >= 1 && lines[below] {
			return below, true
		}
		if above := want + offset; offset > 0 && above < limit && lines[above] {
			return above, true
		}
	}
	return 0, false
}
