package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catenrich/internal/enrich"
	"catenrich/pkg/categories"
)

func newCategoriesServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req categories.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case strings.Contains(req.Content, "stock"):
			_, _ = io.WriteString(w, `{"categories":[{"label":"FINANCE","confidence":0.91}]}`)
		case strings.Contains(req.Content, "quota"):
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"code":"overQuota","message":"monthly quota exceeded"}`)
		default:
			_, _ = io.WriteString(w, `{"categories":[]}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runRoot(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCategorizeCommand(t *testing.T) {
	srv := newCategoriesServer(t)
	t.Setenv("CATEGORIES_URL", srv.URL)

	stdout, stderr, err := runRoot(t, `{"text":"The stock market rallied today."}`, "categorize", "--field", "text")
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.JSONEq(t, `{"text":"The stock market rallied today.","ros_category":"FINANCE"}`, stdout)
}

func TestCategorizeCommand_TargetFieldAndFile(t *testing.T) {
	srv := newCategoriesServer(t)
	t.Setenv("CATEGORIES_URL", srv.URL)

	path := filepath.Join(t.TempDir(), "docs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"body":"stock prices"}`+"\n"), 0o600))

	stdout, _, err := runRoot(t, "", "categorize", "--field", "body", "--target-field", "cat", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"body":"stock prices","cat":"FINANCE"}`, stdout)
}

func TestCategorizeCommand_Failures(t *testing.T) {
	srv := newCategoriesServer(t)
	t.Setenv("CATEGORIES_URL", srv.URL)

	input := strings.Join([]string{
		`{"text":"stock rally"}`,
		`{"text":"weather report"}`,
		`{"text":"quota buster"}`,
		`{"title":"no text"}`,
	}, "\n")

	stdout, stderr, err := runRoot(t, input, "categorize", "--field", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 4 documents failed")

	assert.JSONEq(t, `{"text":"stock rally","ros_category":"FINANCE"}`, stdout)
	assert.Contains(t, stderr, "document 2: ros_categories: step produced no usable category")
	assert.Contains(t, stderr, "document 3: ros_categories: monthly quota exceeded")
	assert.Contains(t, stderr, "document 4: ros_categories: field [text] not present")
}

func TestCategorizeCommand_RequiresConfig(t *testing.T) {
	t.Setenv("CATEGORIES_URL", "")

	_, _, err := runRoot(t, "{}", "categorize", "--field", "text")
	assert.EqualError(t, err, "CATEGORIES_URL is required")

	t.Setenv("CATEGORIES_URL", "http://localhost")
	_, _, err = runRoot(t, "{}", "categorize")
	assert.ErrorContains(t, err, `required flag(s) "field" not set`)
}

func TestCategorizeCommand_MalformedInput(t *testing.T) {
	srv := newCategoriesServer(t)
	t.Setenv("CATEGORIES_URL", srv.URL)

	_, _, err := runRoot(t, `{"text":`, "categorize", "--field", "text")
	assert.ErrorContains(t, err, "decode document")
}

func TestBuildPipeline_RejectsBadDefinition(t *testing.T) {
	client, err := categories.NewClient("http://localhost")
	require.NoError(t, err)

	_, err = buildPipeline(client, []enrich.Definition{
		{Type: enrich.CategoriesType, Config: map[string]any{"field": "text"}},
		{Type: enrich.CategoriesType, Config: map[string]any{"target_field": "cat"}},
	})
	assert.ErrorIs(t, err, enrich.ErrInvalidConfig)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestCategorizeStream_WriteFailureStops(t *testing.T) {
	srv := newCategoriesServer(t)
	client, err := categories.NewClient(srv.URL)
	require.NoError(t, err)
	pipeline, err := buildPipeline(client, []enrich.Definition{
		{Type: enrich.CategoriesType, Config: map[string]any{"field": "text"}},
	})
	require.NoError(t, err)

	pr, pw := io.Pipe()
	go func() {
		for i := 0; i < 3; i++ {
			if _, err := io.WriteString(pw, `{"text":"stock rally"}`+"\n"); err != nil {
				return
			}
		}
		// Left open: the decoder must not be what ends the stream.
	}()
	t.Cleanup(func() { _ = pw.Close() })

	done := make(chan error, 1)
	go func() {
		done <- categorizeStream(context.Background(), pipeline, pr, failingWriter{err: io.ErrClosedPipe}, io.Discard)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.ErrClosedPipe)
		assert.ErrorContains(t, err, "write document 1")
	case <-time.After(5 * time.Second):
		t.Fatal("categorizeStream did not return after a write failure")
	}
}
