package keys

import (
	"path"
	"strings"
)

// Enriched returns the key, within the enriched bucket, of the enriched copy
// of a source document: <source bucket>/<source key>. The source bucket is
// kept so documents from different buckets never collide.
func Enriched(sourceBucket, sourceKey string) string {
	return path.Join(sanitizeSegment(sourceBucket), strings.TrimLeft(sourceKey, "/"))
}

// sanitizeSegment lowercases s and replaces spaces and slashes with hyphens.
func sanitizeSegment(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "-", "/", "-").Replace(s)
}
