package models

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_GetFieldValue(t *testing.T) {
	doc := NewDocument(map[string]any{
		"text": "hello",
		"meta": map[string]any{"lang": "eng"},
	})

	cases := []struct {
		name   string
		path   string
		want   any
		wantOK bool
	}{
		{"top level", "text", "hello", true},
		{"nested", "meta.lang", "eng", true},
		{"missing leaf", "meta.author", nil, false},
		{"through scalar", "text.inner", nil, false},
		{"empty path", "", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := doc.GetFieldValue(tc.path)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDocument_SetFieldValue(t *testing.T) {
	doc := NewDocument(map[string]any{"text": "hello"})

	require.NoError(t, doc.SetFieldValue("ros_category", "FINANCE"))
	require.NoError(t, doc.SetFieldValue("enrich.category", "SPORTS"))

	assert.Equal(t, map[string]any{
		"text":         "hello",
		"ros_category": "FINANCE",
		"enrich":       map[string]any{"category": "SPORTS"},
	}, doc.Source())

	err := doc.SetFieldValue("text.category", "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[text] is not an object")

	assert.Error(t, doc.SetFieldValue("", "X"))
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	orig := NewDocument(map[string]any{"meta": map[string]any{"lang": "eng"}})
	clone := orig.Clone()

	require.NoError(t, clone.SetFieldValue("meta.lang", "fra"))

	v, _ := orig.GetFieldValue("meta.lang")
	assert.Equal(t, "eng", v)
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"text":"The stock market rallied today."}`), &doc))
	require.NoError(t, doc.SetFieldValue("ros_category", "FINANCE"))

	out, err := json.Marshal(&doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"The stock market rallied today.","ros_category":"FINANCE"}`, string(out))
}

func TestDocument_ConcurrentWrites(t *testing.T) {
	doc := NewDocument(nil)
	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d", "e", "f"}
	for _, k := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			_ = doc.SetFieldValue(k, k)
		}(k)
	}
	wg.Wait()
	assert.Equal(t, len(keys), doc.Len())
}
