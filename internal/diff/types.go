package diff

// FileKind classifies how a file changed.
type FileKind string

const (
	KindAdd    FileKind = "add"
	KindDelete FileKind = "delete"
	KindModify FileKind = "modify"
	KindRename FileKind = "rename"
)

// ChangeKind classifies a single line within a hunk.
type ChangeKind string

const (
	ChangeInsert  ChangeKind = "insert"
	ChangeDelete  ChangeKind = "delete"
	ChangeContext ChangeKind = "context"
)

// Change is one content line of a hunk.
//
// OldLine is 0 for inserts, NewLine is 0 for deletes. Position is the
// 1-based index of this line in the file's rendered diff: every content
// line advances it by one, and each hunk header after the first consumes
// one position unit. Review APIs that address comments by diff position
// depend on this counting exactly.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Content  string     `json:"content"`
	OldLine  int        `json:"oldLine,omitempty"`
	NewLine  int        `json:"newLine,omitempty"`
	Position int        `json:"position"`
}

// Hunk is a contiguous changed region anchored on both file sides.
type Hunk struct {
	OldStart int      `json:"oldStart"`
	OldLines int      `json:"oldLines"`
	NewStart int      `json:"newStart"`
	NewLines int      `json:"newLines"`
	Section  string   `json:"section,omitempty"`
	Changes  []Change `json:"changes"`
}

// File is the parsed diff of a single file.
type File struct {
	OldPath   string   `json:"oldPath"`
	NewPath   string   `json:"newPath"`
	Kind      FileKind `json:"kind"`
	IsBinary  bool     `json:"isBinary,omitempty"`
	Hunks     []Hunk   `json:"hunks"`
	Additions int      `json:"additions"`
	Deletions int      `json:"deletions"`
}

// Path returns the file's addressable path: the new path unless the file
// was deleted.
func (f *File) Path() string {
	if f.Kind == KindDelete && f.OldPath != "" {
		return f.OldPath
	}
	return f.NewPath
}

// Diff is the structural model of a multi-file unified diff.
type Diff struct {
	Files          []File `json:"files"`
	TotalAdditions int    `json:"totalAdditions"`
	TotalDeletions int    `json:"totalDeletions"`
}

// FileByPath returns the file whose addressable path matches, or nil.
func (d *Diff) FileByPath(path string) *File {
	for i := range d.Files {
		if d.Files[i].Path() == path {
			return &d.Files[i]
		}
	}
	return nil
}
