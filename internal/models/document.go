package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Document is the mutable record passed through the ingest pipeline.
// Fields are addressed by dotted paths ("meta.lang"), where each segment
// but the last names a nested object.
//
// Steps of the same stage may touch a Document concurrently, so every
// access goes through the embedded lock.
type Document struct {
	mu     sync.RWMutex
	source map[string]any
}

// NewDocument wraps a copy of source.
func NewDocument(source map[string]any) *Document {
	if source == nil {
		return &Document{source: make(map[string]any)}
	}
	return &Document{source: copyMap(source)}
}

// GetFieldValue returns the value stored at path.
func (d *Document) GetFieldValue(path string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	parent, leaf, ok := resolve(d.source, path)
	if !ok {
		return nil, false
	}
	v, ok := parent[leaf]
	return v, ok
}

func (d *Document) HasField(path string) bool {
	_, ok := d.GetFieldValue(path)
	return ok
}

// SetFieldValue stores value at path, creating intermediate objects as
// needed. It fails if an intermediate segment holds a non-object value.
func (d *Document) SetFieldValue(path string, value any) error {
	if path == "" {
		return fmt.Errorf("empty field path")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	segments := strings.Split(path, ".")
	current := d.source
	for i, seg := range segments[:len(segments)-1] {
		next, exists := current[seg]
		if !exists {
			child := make(map[string]any)
			current[seg] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set [%s]: [%s] is not an object", path, strings.Join(segments[:i+1], "."))
		}
		current = child
	}
	current[segments[len(segments)-1]] = value
	return nil
}

// Len reports the number of top-level fields.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.source)
}

// Source returns a deep copy of the document's fields.
func (d *Document) Source() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyMap(d.source)
}

func (d *Document) Clone() *Document {
	return &Document{source: d.Source()}
}

func (d *Document) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.Marshal(d.source)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var source map[string]any
	if err := json.Unmarshal(data, &source); err != nil {
		return err
	}
	if source == nil {
		source = make(map[string]any)
	}
	d.mu.Lock()
	d.source = source
	d.mu.Unlock()
	return nil
}

func resolve(root map[string]any, path string) (map[string]any, string, bool) {
	if path == "" {
		return nil, "", false
	}
	segments := strings.Split(path, ".")
	current := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := current[seg].(map[string]any)
		if !ok {
			return nil, "", false
		}
		current = child
	}
	return current, segments[len(segments)-1], true
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
