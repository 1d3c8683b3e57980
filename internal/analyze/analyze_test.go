package analyze

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/critiq/critiq/internal/review"
)

const wellFormedResult = `{
  "comments": [
    {"path": "a.go", "line": 12, "body": "Possible nil dereference", "severity": "high"},
    {"path": "b.go", "line": 4, "startLine": 2, "body": "Extract this block", "severity": "low"}
  ],
  "summary": "Two small issues.",
  "verdict": "COMMENT"
}`

func messagesBody(text string) string {
	resp := map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestAnalyze_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "claude-sonnet-4-20250514" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "diff --git") {
			t.Error("user prompt should carry the chunk diff")
		}
		w.Write([]byte(messagesBody(wellFormedResult)))
	}))
	defer srv.Close()

	a := NewAnthropicForTest(srv.URL, "claude-sonnet-4-20250514")
	result, err := a.Analyze(context.Background(), "diff --git a/a.go b/a.go\n", review.ChunkMeta{Index: 0, TotalChunks: 1})
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if len(result.Comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(result.Comments))
	}
	if result.Comments[0].Severity != review.SeverityHigh {
		t.Errorf("severity = %q", result.Comments[0].Severity)
	}
	if result.Comments[1].StartLine != 2 {
		t.Errorf("startLine = %d, want 2", result.Comments[1].StartLine)
	}
	if result.Verdict != review.VerdictComment {
		t.Errorf("verdict = %q", result.Verdict)
	}
}

func TestAnalyze_RateLimitRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(messagesBody(wellFormedResult)))
	}))
	defer srv.Close()

	a := NewAnthropicForTest(srv.URL, "m")
	if _, err := a.Analyze(context.Background(), "diff", review.ChunkMeta{}); err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestAnalyze_AuthErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	a := NewAnthropicForTest(srv.URL, "m")
	_, err := a.Analyze(context.Background(), "diff", review.ChunkMeta{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1 (auth errors are not retried)", got)
	}
}

func TestUserPrompt_ChunkMetadata(t *testing.T) {
	meta := review.ChunkMeta{Index: 1, TotalChunks: 3, Files: []string{"a.go", "b.go"}}
	prompt := userPrompt("DIFF", meta)
	if !strings.Contains(prompt, "part 2 of 3") {
		t.Errorf("prompt missing chunk position:\n%s", prompt)
	}
	if !strings.Contains(prompt, "a.go, b.go") {
		t.Errorf("prompt missing file list:\n%s", prompt)
	}
	if !strings.Contains(prompt, "do not repeat") {
		t.Errorf("non-first chunk should carry the continuation note:\n%s", prompt)
	}

	single := userPrompt("DIFF", review.ChunkMeta{Index: 0, TotalChunks: 1})
	if strings.Contains(single, "part") {
		t.Errorf("single chunk should not mention parts:\n%s", single)
	}
}

func TestParseResult_MarkdownFences(t *testing.T) {
	raw := "Here is my review:\n```json\n" + wellFormedResult + "\n```\n"
	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult error: %v", err)
	}
	if len(result.Comments) != 2 {
		t.Errorf("got %d comments, want 2", len(result.Comments))
	}
	if result.Summary != "Two small issues." {
		t.Errorf("summary = %q", result.Summary)
	}
}

func TestParseResult_DropsUnanchoredComments(t *testing.T) {
	raw := `{"comments":[
		{"path":"", "line": 3, "body": "no path"},
		{"path":"a.go", "line": 0, "body": "no line"},
		{"path":"a.go", "line": 3, "body": "  "},
		{"path":"a.go", "line": 3, "body": "kept"}
	], "summary": "s", "verdict": "approve"}`
	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult error: %v", err)
	}
	if len(result.Comments) != 1 || result.Comments[0].Body != "kept" {
		t.Errorf("comments = %+v, want only the anchored one", result.Comments)
	}
	if result.Verdict != review.VerdictApprove {
		t.Errorf("verdict = %q, want APPROVE (case-normalized)", result.Verdict)
	}
}

func TestParseResult_NoJSON(t *testing.T) {
	if _, err := ParseResult("the model refused to answer"); err == nil {
		t.Error("expected error for response without JSON")
	}
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want review.Severity
	}{
		{"HIGH", review.SeverityHigh},
		{"critical", review.SeverityHigh},
		{"Medium", review.SeverityMedium},
		{"info", review.SeverityLow},
		{"???", ""},
	}
	for _, tt := range tests {
		if got := normalizeSeverity(tt.in); got != tt.want {
			t.Errorf("normalizeSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
