// Package enrich runs document enrichment: processors that derive a value
// from one document field and write it to another, organised into stages
// of a pipeline.
package enrich

import (
	"context"
)

// Step mutates item in place. A non-nil error aborts the item: the rest of
// its stage is cancelled through ctx and later stages do not run.
//
// Steps of one stage run concurrently on the same item, so the item type
// must tolerate concurrent writes (models.Document does).
type Step[T any] func(ctx context.Context, item *T) error

// Stage groups steps that may run in parallel for a single item.
type Stage[T any] struct {
	steps []Step[T]
}

func NewStage[T any](steps ...Step[T]) Stage[T] {
	return Stage[T]{steps: steps}
}
