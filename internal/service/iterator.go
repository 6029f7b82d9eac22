// Package service runs the enrichment service: it turns storage
// notifications delivered over Kafka into loaded documents, enriches them
// and routes each outcome.
package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const objectCreatedPrefix = "s3:ObjectCreated:"

// Iterator decodes each Kafka message as a MinIO notification and loads the
// objects it announces.
type Iterator[T any] struct {
	msgIterator MessageIterator
	loader      LoaderFunc[T]
}

func NewIterator[T any](iterator MessageIterator, loader LoaderFunc[T]) *Iterator[T] {
	return &Iterator[T]{
		msgIterator: iterator,
		loader:      loader,
	}
}

// Objects streams a FetchedObject for every object-created record, in
// message order. Messages that cannot be decoded, or that announce nothing
// to load, yield a single Skipped object so the consumer commits them in
// turn. Load failures are reported on the object, not skipped. The returned
// channel closes when the underlying Messages channel does or ctx is done.
func (it *Iterator[T]) Objects(ctx context.Context) <-chan *FetchedObject[T] {
	out := make(chan *FetchedObject[T])
	go func() {
		defer close(out)

		for msg := range it.msgIterator.Messages() {
			fields := log.Fields{"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset}

			records, err := decodeRecords(msg.Value)
			if err != nil {
				log.WithFields(fields).WithError(err).Warn("Skipping undecodable notification")
			}
			if len(records) == 0 {
				if !it.send(ctx, out, &FetchedObject[T]{Message: msg, Final: true, Skipped: true}) {
					return
				}
				continue
			}

			for i, rec := range records {
				obj := it.load(ctx, rec, msg)
				obj.Final = i == len(records)-1
				if !it.send(ctx, out, obj) {
					return
				}
			}
		}
	}()
	return out
}

func (it *Iterator[T]) load(ctx context.Context, rec notification.Event, msg kafka.Message) *FetchedObject[T] {
	obj := &FetchedObject[T]{
		Bucket:  rec.S3.Bucket.Name,
		Event:   rec,
		Message: msg,
	}
	key, err := url.QueryUnescape(rec.S3.Object.Key)
	if err != nil {
		obj.Key = rec.S3.Object.Key
		obj.Err = err
		return obj
	}
	obj.Key = key
	obj.Data, obj.Err = it.loader(ctx, obj.Bucket, obj.Key)
	return obj
}

func (it *Iterator[T]) send(ctx context.Context, out chan<- *FetchedObject[T], obj *FetchedObject[T]) bool {
	select {
	case out <- obj:
		return true
	case <-ctx.Done():
		return false
	}
}

// decodeRecords returns the object-created records of a notification.
func decodeRecords(value []byte) ([]notification.Event, error) {
	var info notification.Info
	if err := json.Unmarshal(value, &info); err != nil {
		return nil, err
	}
	records := make([]notification.Event, 0, len(info.Records))
	for _, rec := range info.Records {
		if !strings.HasPrefix(rec.EventName, objectCreatedPrefix) {
			continue
		}
		if rec.S3.Bucket.Name == "" || rec.S3.Object.Key == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
