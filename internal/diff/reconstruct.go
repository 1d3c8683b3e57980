package diff

import (
	"fmt"
	"strings"
)

// Reconstruct renders a Diff back into unified diff text following the
// input grammar, so that Parse(Reconstruct(d)) is structurally equal to d.
func Reconstruct(d *Diff) string {
	var sb strings.Builder
	for i := range d.Files {
		ReconstructFile(&sb, &d.Files[i])
	}
	return sb.String()
}

// ReconstructFile writes the diff section for a single file.
func ReconstructFile(sb *strings.Builder, f *File) {
	switch f.Kind {
	case KindAdd:
		fmt.Fprintf(sb, "diff --git a/%s b/%s\n", f.NewPath, f.NewPath)
		sb.WriteString("new file mode 100644\n")
		if f.IsBinary {
			fmt.Fprintf(sb, "Binary files /dev/null and b/%s differ\n", f.NewPath)
			return
		}
		sb.WriteString("--- /dev/null\n")
		fmt.Fprintf(sb, "+++ b/%s\n", f.NewPath)
	case KindDelete:
		fmt.Fprintf(sb, "diff --git a/%s b/%s\n", f.OldPath, f.OldPath)
		sb.WriteString("deleted file mode 100644\n")
		if f.IsBinary {
			fmt.Fprintf(sb, "Binary files a/%s and /dev/null differ\n", f.OldPath)
			return
		}
		fmt.Fprintf(sb, "--- a/%s\n", f.OldPath)
		sb.WriteString("+++ /dev/null\n")
	case KindRename:
		fmt.Fprintf(sb, "diff --git a/%s b/%s\n", f.OldPath, f.NewPath)
		fmt.Fprintf(sb, "rename from %s\n", f.OldPath)
		fmt.Fprintf(sb, "rename to %s\n", f.NewPath)
		if len(f.Hunks) == 0 {
			return
		}
		fmt.Fprintf(sb, "--- a/%s\n", f.OldPath)
		fmt.Fprintf(sb, "+++ b/%s\n", f.NewPath)
	default:
		fmt.Fprintf(sb, "diff --git a/%s b/%s\n", f.OldPath, f.NewPath)
		if f.IsBinary {
			fmt.Fprintf(sb, "Binary files a/%s and b/%s differ\n", f.OldPath, f.NewPath)
			return
		}
		fmt.Fprintf(sb, "--- a/%s\n", f.OldPath)
		fmt.Fprintf(sb, "+++ b/%s\n", f.NewPath)
	}

	for i := range f.Hunks {
		reconstructHunk(sb, &f.Hunks[i])
	}
}

func reconstructHunk(sb *strings.Builder, h *Hunk) {
	sb.WriteString(FormatHunkHeader(h.OldStart, h.OldLines, h.NewStart, h.NewLines, h.Section))
	sb.WriteByte('\n')
	for _, c := range h.Changes {
		switch c.Kind {
		case ChangeInsert:
			sb.WriteByte('+')
		case ChangeDelete:
			sb.WriteByte('-')
		default:
			sb.WriteByte(' ')
		}
		sb.WriteString(c.Content)
		sb.WriteByte('\n')
	}
}

// FormatHunkHeader renders an "@@" line with explicit counts.
func FormatHunkHeader(oldStart, oldLines, newStart, newLines int, section string) string {
	header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", oldStart, oldLines, newStart, newLines)
	if section != "" {
		header += " " + section
	}
	return header
}
