package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPRDiff(t *testing.T) {
	const wantDiff = "diff --git a/a.go b/a.go\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/7", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3.diff", r.Header.Get("Accept"))
		w.Write([]byte(wantDiff))
	}))
	defer srv.Close()

	c := NewClientForTest(srv.URL, "tok")
	diff, err := c.GetPRDiff(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)
	assert.Equal(t, wantDiff, diff)
}

func TestGetPRHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/7", r.URL.Path)
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		w.Write([]byte(`{"number":7,"head":{"sha":"abc123","ref":"feature"}}`))
	}))
	defer srv.Close()

	c := NewClientForTest(srv.URL, "tok")
	sha, err := c.GetPRHead(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)
}

func TestGetPRHead_MissingSHA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"number":7,"head":{}}`))
	}))
	defer srv.Close()

	c := NewClientForTest(srv.URL, "tok")
	_, err := c.GetPRHead(context.Background(), "acme", "widgets", 7)
	require.Error(t, err)
}

func TestGetFileContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets/contents/pkg/a.go":
			assert.Equal(t, "abc123", r.URL.Query().Get("ref"))
			w.Write([]byte("package a\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClientForTest(srv.URL, "tok")

	content, found, err := c.GetFileContent(context.Background(), "acme", "widgets", "pkg/a.go", "abc123")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "package a\n", content)

	// A missing file is absence, not an error.
	_, found, err = c.GetFileContent(context.Background(), "acme", "widgets", "nope.go", "abc123")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateReview_StructuralRejection(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"line must be part of the diff"}`))
	}))
	defer srv.Close()

	c := NewClientForTest(srv.URL, "tok")
	err := c.CreateReview(context.Background(), "acme", "widgets", 7, ReviewRequest{Body: "x", Event: "COMMENT"})

	require.Error(t, err)
	assert.True(t, IsStructural(err))
	assert.False(t, IsTransient(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "structural rejections must never be retried")
}

func TestCreateReview_TransientRetriedThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req ReviewRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "COMMENT", req.Event)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClientForTest(srv.URL, "tok")
	err := c.CreateReview(context.Background(), "acme", "widgets", 7, ReviewRequest{
		Body:  "summary",
		Event: "COMMENT",
		Comments: []ReviewComment{
			{Path: "a.go", Line: 3, Side: "RIGHT", Body: "check this"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCreateReview_BadRequestNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClientForTest(srv.URL, "tok")
	err := c.CreateReview(context.Background(), "acme", "widgets", 7, ReviewRequest{Body: "x"})

	require.Error(t, err)
	assert.False(t, IsStructural(err))
	assert.False(t, IsTransient(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateIssueComment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/issues/7/comments", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "fallback body", payload["body"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClientForTest(srv.URL, "tok")
	require.NoError(t, c.CreateIssueComment(context.Background(), "acme", "widgets", 7, "fallback body"))
}

func TestClassifyStatus(t *testing.T) {
	assert.True(t, IsStructural(classifyStatus(422, []byte("bad anchor"), "")))

	err := classifyStatus(429, []byte("slow down"), "3")
	require.True(t, IsTransient(err))
	var te *TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int64(3), int64(te.RetryAfter.Seconds()))

	assert.True(t, IsTransient(classifyStatus(502, nil, "")))
	assert.False(t, IsTransient(classifyStatus(404, nil, "")))
	assert.False(t, IsStructural(classifyStatus(400, nil, "")))
}
