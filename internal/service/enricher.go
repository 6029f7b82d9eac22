package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"catenrich/internal/enrich"
	"catenrich/internal/keys"
	"catenrich/internal/models"
	"catenrich/internal/storage"
)

const deadLetterSource = "catenrich"

type DocumentStore interface {
	GetDocument(ctx context.Context, bucket, key string) (*models.Document, error)
	PutDocument(ctx context.Context, bucket, key string, doc *models.Document) error
}

// DocumentPipeline runs every configured processor over one document.
// *enrich.Pipeline[models.Document] implements it.
type DocumentPipeline interface {
	Run(ctx context.Context, doc *models.Document) error
}

type DeadLetterPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type OutcomeRecorder interface {
	Record(ctx context.Context, o storage.Outcome) error
}

// Enricher consumes storage notifications, enriches each announced
// document and routes the result: enriched documents are written to the
// enriched bucket, failures are dead-lettered. Offsets are committed in
// message order and only once every object of the message has been routed.
type Enricher struct {
	source         MessageIterator
	store          DocumentStore
	pipeline       DocumentPipeline
	deadLetters    DeadLetterPublisher
	ledger         OutcomeRecorder
	enrichedBucket string
	now            func() time.Time
}

// NewEnricher wires an Enricher. ledger may be nil.
func NewEnricher(source MessageIterator, store DocumentStore, pipeline DocumentPipeline, deadLetters DeadLetterPublisher, ledger OutcomeRecorder, enrichedBucket string) *Enricher {
	return &Enricher{
		source:         source,
		store:          store,
		pipeline:       pipeline,
		deadLetters:    deadLetters,
		ledger:         ledger,
		enrichedBucket: enrichedBucket,
		now:            time.Now,
	}
}

// Run handles objects until the message source closes or ctx is done. It
// returns on the first outcome it cannot route: a commit acknowledges every
// earlier offset of the partition, so nothing may be committed past that
// document. The consumer group then redelivers from the last commit.
func (e *Enricher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	iterator := NewIterator(e.source, e.store.GetDocument)
	for obj := range iterator.Objects(ctx) {
		fields := log.Fields{"partition": obj.Message.Partition, "offset": obj.Message.Offset}
		if !obj.Skipped {
			fields["bucket"], fields["key"] = obj.Bucket, obj.Key
			if err := e.handle(ctx, obj); err != nil {
				log.WithFields(fields).WithError(err).Error("Failed to route document outcome")
				return fmt.Errorf("route %s/%s at offset %d: %w", obj.Bucket, obj.Key, obj.Message.Offset, err)
			}
		}
		if obj.Final {
			if err := e.source.CommitOffset(ctx, obj.Message); err != nil {
				log.WithFields(fields).WithError(err).Warn("Failed to commit offset")
			}
		}
	}
	return ctx.Err()
}

func (e *Enricher) handle(ctx context.Context, obj *FetchedObject[*models.Document]) error {
	if obj.Err != nil {
		return e.fail(ctx, obj, fmt.Errorf("load document: %w", obj.Err))
	}
	if err := e.pipeline.Run(ctx, obj.Data); err != nil {
		return e.fail(ctx, obj, err)
	}

	enrichedKey := keys.Enriched(obj.Bucket, obj.Key)
	if err := e.store.PutDocument(ctx, e.enrichedBucket, enrichedKey, obj.Data); err != nil {
		return e.fail(ctx, obj, fmt.Errorf("store enriched document: %w", err))
	}

	log.WithFields(log.Fields{"bucket": obj.Bucket, "key": obj.Key, "enriched_key": enrichedKey}).Info("Document enriched")
	e.record(ctx, storage.Outcome{
		Bucket:      obj.Bucket,
		Key:         obj.Key,
		Status:      storage.StatusSucceeded,
		EnrichedKey: enrichedKey,
		ProcessedAt: e.now().UTC(),
	})
	return nil
}

func (e *Enricher) fail(ctx context.Context, obj *FetchedObject[*models.Document], cause error) error {
	if errors.Is(cause, context.Canceled) && ctx.Err() != nil {
		return cause
	}

	ts := e.now().UTC()
	letter := models.DeadLetter{
		ID:        uuid.NewString(),
		Bucket:    obj.Bucket,
		Key:       obj.Key,
		Processor: enrich.FailedProcessor(cause),
		Reason:    cause.Error(),
		Source:    deadLetterSource,
		Timestamp: ts.Format(time.RFC3339Nano),
	}
	log.WithFields(log.Fields{
		"bucket":    obj.Bucket,
		"key":       obj.Key,
		"processor": letter.Processor,
	}).WithError(cause).Warn("Document enrichment failed")

	if err := e.deadLetters.PublishJSON(ctx, obj.Bucket+"/"+obj.Key, letter); err != nil {
		return fmt.Errorf("dead-letter %s/%s: %w", obj.Bucket, obj.Key, err)
	}
	e.record(ctx, storage.Outcome{
		Bucket:      obj.Bucket,
		Key:         obj.Key,
		Status:      storage.StatusFailed,
		Processor:   letter.Processor,
		Reason:      letter.Reason,
		ProcessedAt: ts,
	})
	return nil
}

func (e *Enricher) record(ctx context.Context, o storage.Outcome) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.Record(ctx, o); err != nil {
		log.WithError(err).Warn("Failed to record outcome")
	}
}
