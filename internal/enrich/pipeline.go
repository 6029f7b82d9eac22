package enrich

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"catenrich/internal/models"
)

// Pipeline applies its stages to each item in order. Within a stage every
// step runs in its own goroutine and the stage finishes when all of them
// have; the first failing step cancels its siblings and ends the item.
type Pipeline[T any] struct {
	stages []Stage[T]
}

// Outcome pairs an item with the error that aborted it, if any.
type Outcome[T any] struct {
	Item *T
	Err  error
}

func NewPipeline[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{stages: stages}
}

// FromProcessors builds a document pipeline running each processor in its
// own stage, in definition order.
func FromProcessors(procs []Processor) *Pipeline[models.Document] {
	stages := make([]Stage[models.Document], 0, len(procs))
	for _, p := range procs {
		stages = append(stages, NewStage(FieldStep(p)))
	}
	return NewPipeline(stages...)
}

// Run applies every stage to item and returns the first step error.
func (p *Pipeline[T]) Run(ctx context.Context, item *T) error {
	for _, stage := range p.stages {
		g, gctx := errgroup.WithContext(ctx)
		for _, step := range stage.steps {
			g.Go(func() error {
				return step(gctx, item)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// Process runs every item received on in and emits its Outcome. The
// returned channel is closed once in is closed and drained, or as soon as
// ctx is done; an outcome not yet received at that point is dropped.
// Failures are logged here and left to the receiver to route.
func (p *Pipeline[T]) Process(ctx context.Context, in <-chan *T) <-chan Outcome[T] {
	out := make(chan Outcome[T])
	go func() {
		defer close(out)
		for item := range in {
			err := p.Run(ctx, item)
			if err != nil {
				log.WithError(err).Warn("pipeline aborted item")
			}
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Outcome[T]{Item: item, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
