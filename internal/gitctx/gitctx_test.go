package gitctx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractFiles(t *testing.T) {
	diff := `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
+import "fmt"
diff --git a/util.go b/util.go
--- a/util.go
+++ b/util.go
@@ -5,3 +5,4 @@
+func helper() {}
`
	files := extractFiles(diff)
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0] != "main.go" {
		t.Errorf("files[0] = %q, want %q", files[0], "main.go")
	}
	if files[1] != "util.go" {
		t.Errorf("files[1] = %q, want %q", files[1], "util.go")
	}
}

func TestExtractFiles_Dedup(t *testing.T) {
	diff := `+++ b/main.go
+++ b/main.go
`
	files := extractFiles(diff)
	if len(files) != 1 {
		t.Errorf("got %d files, want 1 (should dedup)", len(files))
	}
}

func TestExtractFiles_Empty(t *testing.T) {
	if files := extractFiles(""); len(files) != 0 {
		t.Errorf("got %d files from empty diff, want 0", len(files))
	}
}

func TestFilterExcluded(t *testing.T) {
	diff := `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
+import "fmt"
diff --git a/vendor/lib.go b/vendor/lib.go
--- a/vendor/lib.go
+++ b/vendor/lib.go
@@ -1,3 +1,4 @@
+package lib
`
	result := filterExcluded(diff, []string{"vendor/**"})
	if strings.Contains(result, "vendor/lib.go") {
		t.Error("vendor/lib.go should be excluded")
	}
	if !strings.Contains(result, "main.go") {
		t.Error("main.go should be kept")
	}
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"vendor/lib.go", []string{"vendor/**"}, true},
		{"main.go", []string{"vendor/**"}, false},
		{"foo.gen.go", []string{"**/*.gen.go"}, true},
		{"pkg/foo.gen.go", []string{"**/*.gen.go"}, true},
		{"dist/bundle.js", []string{"**/dist/**"}, true},
		{"main.go", []string{"*.go"}, true},
	}
	for _, tt := range tests {
		got := MatchesAny(tt.path, tt.patterns)
		if got != tt.want {
			t.Errorf("MatchesAny(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}

func TestMatchesAny_EmptyPatterns(t *testing.T) {
	if MatchesAny("main.go", nil) {
		t.Error("MatchesAny with nil patterns should return false")
	}
	if MatchesAny("main.go", []string{}) {
		t.Error("MatchesAny with empty patterns should return false")
	}
}

func TestSplitDiffSections(t *testing.T) {
	diff := `diff --git a/a.go b/a.go
--- a/a.go
+++ b/a.go
@@ -1,3 +1,4 @@
+line1
diff --git a/b.go b/b.go
--- a/b.go
+++ b/b.go
@@ -1,3 +1,4 @@
+line2
`
	sections := splitDiffSections(diff)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if !strings.Contains(sections[0], "a.go") {
		t.Error("section 0 should contain a.go")
	}
	if !strings.Contains(sections[1], "b.go") {
		t.Error("section 1 should contain b.go")
	}
}

func TestExtractPathFromSection(t *testing.T) {
	section := "diff --git a/main.go b/main.go\n--- a/main.go\n+++ b/main.go\n@@ -1,3 +1,4 @@\n+import\n"
	if path := extractPathFromSection(section); path != "main.go" {
		t.Errorf("extractPathFromSection = %q, want %q", path, "main.go")
	}
}

func TestExtractPathFromSection_NoPath(t *testing.T) {
	section := "diff --git a/main.go b/main.go\nsome other content\n"
	if path := extractPathFromSection(section); path != "" {
		t.Errorf("extractPathFromSection = %q, want empty", path)
	}
}

func TestFilterFileList(t *testing.T) {
	files := []string{"main.go", "vendor/lib.go", "pkg/util.go", "dist/bundle.js"}
	result := filterFileList(files, []string{"vendor/**", "**/dist/**"})
	if len(result) != 2 {
		t.Fatalf("filterFileList got %d files, want 2", len(result))
	}
	if result[0] != "main.go" {
		t.Errorf("result[0] = %q, want %q", result[0], "main.go")
	}
	if result[1] != "pkg/util.go" {
		t.Errorf("result[1] = %q, want %q", result[1], "pkg/util.go")
	}
}

func TestBuildDiffArgs(t *testing.T) {
	args := buildDiffArgs(DiffOptions{ContextLines: 5})
	if len(args) != 1 || args[0] != "-U5" {
		t.Errorf("args = %v, want [-U5]", args)
	}
	if args := buildDiffArgs(DiffOptions{}); len(args) != 0 {
		t.Errorf("args = %v, want none with ContextLines=0", args)
	}
}

func TestBuildResult_ExcludeBeforeTruncate(t *testing.T) {
	smallDiff := "diff --git a/main.go b/main.go\n--- a/main.go\n+++ b/main.go\n@@ -1,3 +1,4 @@\n+line\n"
	largeDiff := "diff --git a/vendor/big.go b/vendor/big.go\n--- a/vendor/big.go\n+++ b/vendor/big.go\n@@ -1,3 +1,4 @@\n+" + strings.Repeat("x", 500) + "\n"
	diff := largeDiff + smallDiff

	opts := DiffOptions{
		MaxDiffBytes: 100,
		Exclude:      []string{"vendor/**"},
	}
	result, err := buildResult(diff, "unstaged", opts)
	if err != nil {
		t.Fatalf("buildResult error: %v", err)
	}

	if strings.Contains(result.Diff, "truncated") {
		t.Error("Diff should not be truncated after excluding vendor/")
	}
	if !strings.Contains(result.Diff, "main.go") {
		t.Error("Diff should still contain main.go")
	}
}

func TestBuildResult_Truncation(t *testing.T) {
	diff := "diff --git a/main.go b/main.go\n--- a/main.go\n+++ b/main.go\n@@ -1,3 +1,4 @@\n+" + strings.Repeat("x", 200) + "\n"
	result, err := buildResult(diff, "unstaged", DiffOptions{MaxDiffBytes: 50})
	if err != nil {
		t.Fatalf("buildResult error: %v", err)
	}
	if !strings.Contains(result.Diff, "truncated") {
		t.Error("Large diff should be truncated")
	}
}

func TestBuildResult_MetadataAndMode(t *testing.T) {
	diff := "diff --git a/main.go b/main.go\n--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n+ok\n"
	result, err := buildResult(diff, "staged", DiffOptions{})
	if err != nil {
		t.Fatalf("buildResult error: %v", err)
	}
	if result.Mode != "staged" {
		t.Errorf("Mode = %q, want %q", result.Mode, "staged")
	}
	if len(result.Files) != 1 || result.Files[0] != "main.go" {
		t.Errorf("Files = %v, want [main.go]", result.Files)
	}
}

// setupTestRepo creates a temp git repo with a committed file and returns
// its path.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("command %v failed: %v\n%s", args, err, out)
		}
	}

	run("git", "init")
	run("git", "checkout", "-b", "main")

	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644)
	run("git", "add", "-A")
	run("git", "commit", "-m", "init")

	return dir
}

func TestStagedAndUnstaged(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	// Modify the tracked file without staging.
	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() { println(1) }\n"), 0o644)

	unstaged, err := Unstaged(DiffOptions{ContextLines: 3})
	if err != nil {
		t.Fatalf("Unstaged error: %v", err)
	}
	if !strings.Contains(unstaged.Diff, "main.go") {
		t.Errorf("unstaged diff missing main.go:\n%s", unstaged.Diff)
	}
	if unstaged.Mode != "unstaged" {
		t.Errorf("Mode = %q, want %q", unstaged.Mode, "unstaged")
	}

	staged, err := Staged(DiffOptions{})
	if err != nil {
		t.Fatalf("Staged error: %v", err)
	}
	if staged.Diff != "" {
		t.Errorf("staged diff should be empty before git add, got:\n%s", staged.Diff)
	}

	cmd := exec.Command("git", "add", "main.go")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add failed: %v\n%s", err, out)
	}

	staged, err = Staged(DiffOptions{})
	if err != nil {
		t.Fatalf("Staged error: %v", err)
	}
	if !strings.Contains(staged.Diff, "main.go") {
		t.Errorf("staged diff missing main.go after git add:\n%s", staged.Diff)
	}
}

func TestFiles_WorktreeAndRef(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	ctx := context.Background()
	var provider Files

	content, found, err := provider.GetFileContent(ctx, "main.go", "")
	if err != nil {
		t.Fatalf("GetFileContent error: %v", err)
	}
	if !found || !strings.Contains(content, "package main") {
		t.Errorf("worktree read: found=%v content=%q", found, content)
	}

	content, found, err = provider.GetFileContent(ctx, "main.go", "HEAD")
	if err != nil {
		t.Fatalf("GetFileContent at HEAD error: %v", err)
	}
	if !found || !strings.Contains(content, "package main") {
		t.Errorf("HEAD read: found=%v content=%q", found, content)
	}

	_, found, err = provider.GetFileContent(ctx, "missing.go", "HEAD")
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if found {
		t.Error("missing file should report absence")
	}
}
