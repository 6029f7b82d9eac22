package service

import (
	"context"

	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/segmentio/kafka-go"
)

// MessageIterator is a source of Kafka messages whose offsets are committed
// explicitly. *kafkaclient.KafkaConsumer implements it.
type MessageIterator interface {
	// Messages is closed when the source stops.
	Messages() <-chan kafka.Message
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// LoaderFunc loads and decodes the object at bucket/key. It must honour
// ctx and have no side effects.
type LoaderFunc[T any] func(ctx context.Context, bucket, key string) (T, error)

// FetchedObject is one object referenced by a storage notification.
type FetchedObject[T any] struct {
	Data   T
	Bucket string
	Key    string
	Event  notification.Event

	// Err is set when the object could not be loaded; Data is then the
	// zero value.
	Err error

	// Message is the Kafka message the event arrived in. Final marks the
	// last object decoded from it: the message can be committed once that
	// object has been handled.
	Message kafka.Message
	Final   bool

	// Skipped marks a message that announced nothing to load. It carries
	// no object and is Final.
	Skipped bool
}
