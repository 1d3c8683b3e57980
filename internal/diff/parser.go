package diff

import (
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)

// Parse scans unified diff text into a structural model.
//
// Parsing is a single forward pass and never fails: malformed or non-diff
// input degrades to a best-effort partial model. Binary markers and
// unrecognized lines are skipped without advancing line counters.
func Parse(text string) *Diff {
	p := &parser{}
	for _, line := range strings.Split(text, "\n") {
		p.line(line)
	}
	p.flushFile()

	d := &Diff{Files: p.files}
	if d.Files == nil {
		d.Files = []File{}
	}
	for _, f := range d.Files {
		d.TotalAdditions += f.Additions
		d.TotalDeletions += f.Deletions
	}
	return d
}

type parser struct {
	files []File

	cur        *File
	renameFrom string
	inHunk     bool

	oldNum   int
	newNum   int
	position int
}

func (p *parser) line(line string) {
	if strings.HasPrefix(line, "diff --git ") {
		p.flushFile()
		p.startFile(line)
		return
	}
	if p.cur == nil {
		return
	}

	// Inside a hunk only "@@" opens anything new. "--- "/"+++ " must
	// parse as content there: deleting an SQL-style "-- " comment renders
	// as "--- ...", which would otherwise be eaten as a path header.
	if p.inHunk && !strings.HasPrefix(line, "@@ ") {
		p.contentLine(line)
		return
	}

	switch {
	case strings.HasPrefix(line, "new file mode"):
		p.cur.Kind = KindAdd
	case strings.HasPrefix(line, "deleted file mode"):
		p.cur.Kind = KindDelete
	case strings.HasPrefix(line, "rename from "):
		p.renameFrom = strings.TrimPrefix(line, "rename from ")
	case strings.HasPrefix(line, "rename to "):
		// Commit the rename only now; a dangling "rename from" is ignored.
		if p.renameFrom != "" {
			p.cur.OldPath = p.renameFrom
			p.cur.NewPath = strings.TrimPrefix(line, "rename to ")
			p.cur.Kind = KindRename
			p.renameFrom = ""
		}
	case strings.HasPrefix(line, "Binary files ") && strings.HasSuffix(line, " differ"):
		p.cur.IsBinary = true
	case strings.HasPrefix(line, "--- "):
		path := strings.TrimPrefix(line, "--- ")
		if path == "/dev/null" {
			p.cur.OldPath = ""
			p.cur.Kind = KindAdd
		} else {
			p.cur.OldPath = stripPrefix(path, "a/")
		}
	case strings.HasPrefix(line, "+++ "):
		path := strings.TrimPrefix(line, "+++ ")
		if path == "/dev/null" {
			p.cur.NewPath = ""
			p.cur.Kind = KindDelete
		} else {
			p.cur.NewPath = stripPrefix(path, "b/")
		}
	case strings.HasPrefix(line, "@@ "):
		p.startHunk(line)
	default:
		p.contentLine(line)
	}
}

func (p *parser) startFile(line string) {
	f := File{Kind: KindModify}
	// "diff --git a/old b/new"
	rest := strings.TrimPrefix(line, "diff --git ")
	if i := strings.Index(rest, " b/"); i >= 0 {
		f.OldPath = stripPrefix(rest[:i], "a/")
		f.NewPath = rest[i+3:]
	}
	p.cur = &f
	p.renameFrom = ""
	p.inHunk = false
	p.position = 0
}

func (p *parser) startHunk(line string) {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	h := Hunk{
		OldStart: atoiDefault(m[1], 0),
		OldLines: atoiDefault(m[2], 1),
		NewStart: atoiDefault(m[3], 0),
		NewLines: atoiDefault(m[4], 1),
		Section:  strings.TrimPrefix(m[5], " "),
	}
	// Every hunk header after the first occupies one diff position.
	if len(p.cur.Hunks) > 0 {
		p.position++
	}
	p.cur.Hunks = append(p.cur.Hunks, h)
	p.oldNum = h.OldStart
	p.newNum = h.NewStart
	p.inHunk = true
}

func (p *parser) contentLine(line string) {
	if !p.inHunk {
		return
	}
	h := &p.cur.Hunks[len(p.cur.Hunks)-1]

	switch {
	case strings.HasPrefix(line, "+"):
		p.position++
		h.Changes = append(h.Changes, Change{
			Kind:     ChangeInsert,
			Content:  line[1:],
			NewLine:  p.newNum,
			Position: p.position,
		})
		p.newNum++
		p.cur.Additions++
	case strings.HasPrefix(line, "-"):
		p.position++
		h.Changes = append(h.Changes, Change{
			Kind:     ChangeDelete,
			Content:  line[1:],
			OldLine:  p.oldNum,
			Position: p.position,
		})
		p.oldNum++
		p.cur.Deletions++
	case strings.HasPrefix(line, " "):
		p.position++
		h.Changes = append(h.Changes, Change{
			Kind:     ChangeContext,
			Content:  strings.TrimPrefix(line, " "),
			OldLine:  p.oldNum,
			NewLine:  p.newNum,
			Position: p.position,
		})
		p.oldNum++
		p.newNum++
	default:
		// "\ No newline at end of file", blank separators, anything else: skip.
	}
}

func (p *parser) flushFile() {
	if p.cur == nil {
		return
	}
	if p.cur.Hunks == nil {
		p.cur.Hunks = []Hunk{}
	}
	p.files = append(p.files, *p.cur)
	p.cur = nil
	p.inHunk = false
}

func stripPrefix(s, prefix string) string {
	return strings.TrimPrefix(s, prefix)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
