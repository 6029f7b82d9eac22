package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/segmentio/kafka-go"

	"catenrich/internal/models"
	"catenrich/internal/storage"
	"catenrich/pkg/categories"
)

type fakeSource struct {
	ch        chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func newFakeSource(msgs ...kafka.Message) *fakeSource {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &fakeSource{ch: ch}
}

func (s *fakeSource) Messages() <-chan kafka.Message { return s.ch }

func (s *fakeSource) CommitOffset(_ context.Context, msg kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, msg.Offset)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]any
	put     map[string]*models.Document
	putErr  error
	getErrs map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:    map[string]map[string]any{},
		put:     map[string]*models.Document{},
		getErrs: map[string]error{},
	}
}

func (s *fakeStore) GetDocument(_ context.Context, bucket, key string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.getErrs[bucket+"/"+key]; err != nil {
		return nil, err
	}
	src, ok := s.docs[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such key %s/%s", bucket, key)
	}
	return models.NewDocument(src), nil
}

func (s *fakeStore) PutDocument(_ context.Context, bucket, key string, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.put[bucket+"/"+key] = doc.Clone()
	return nil
}

type fakeDeadLetters struct {
	mu      sync.Mutex
	letters []models.DeadLetter
	keys    []string
	err     error
	// failCalls limits err to the first failCalls publishes. Zero fails
	// every publish.
	failCalls int
	calls     int
}

func (d *fakeDeadLetters) PublishJSON(_ context.Context, key string, v any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil && (d.failCalls == 0 || d.calls <= d.failCalls) {
		return d.err
	}
	d.keys = append(d.keys, key)
	d.letters = append(d.letters, v.(models.DeadLetter))
	return nil
}

type fakeLedger struct {
	mu       sync.Mutex
	outcomes []storage.Outcome
}

func (l *fakeLedger) Record(_ context.Context, o storage.Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = append(l.outcomes, o)
	return nil
}

// labelByContent answers with a fixed label per input text; unknown text
// gets an empty category list.
type labelByContent map[string]string

func (l labelByContent) Categorize(_ context.Context, req categories.Request) (*categories.Response, error) {
	if req.Content == "unreachable" {
		return nil, &categories.APIError{Code: categories.CodeTransport, Message: "connection refused", Err: errors.New("dial")}
	}
	label, ok := l[req.Content]
	if !ok {
		return &categories.Response{Categories: []*categories.Category{}}, nil
	}
	return &categories.Response{Categories: []*categories.Category{{Label: label, Confidence: 0.9}}}, nil
}

func notificationMessage(offset int64, eventName, bucket string, keys ...string) kafka.Message {
	records := ""
	for i, key := range keys {
		if i > 0 {
			records += ","
		}
		records += fmt.Sprintf(`{"eventName":%q,"s3":{"bucket":{"name":%q},"object":{"key":%q}}}`,
			eventName, bucket, url.QueryEscape(key))
	}
	return kafka.Message{
		Topic:  "minio-events",
		Offset: offset,
		Value:  []byte(fmt.Sprintf(`{"EventName":%q,"Key":%q,"Records":[%s]}`, eventName, bucket, records)),
	}
}
