package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// sizedDoc produces documents with distinct content so the dedup index never
// collapses them.
func sizedDoc(t *testing.T, ref string, width int) Document {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, 8))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return Document{Raw: buf.Bytes(), SourceFormat: "png", FileRef: ref}
}

// countingSink is safe for concurrent workers.
type countingSink struct {
	mu      sync.Mutex
	results []Result
}

func (s *countingSink) accept(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func TestQueueProcessesEveryDocument(t *testing.T) {
	ext := &mockExtractor{fn: func(llm.Request) (llm.ProviderResponse, error) {
		return successResponse(validResponse), nil
	}}
	sink := &countingSink{}
	q := NewQueue(context.Background(), newTestProcessor(ext), sink.accept, nil,
		WithWorkers(2), WithQueueSize(8))

	for i := 0; i < 5; i++ {
		q.Enqueue(sizedDoc(t, fmt.Sprintf("doc-%d.png", i), 4+i))
	}
	q.Shutdown(context.Background())

	if got := sink.count(); got != 5 {
		t.Errorf("results = %d, want 5", got)
	}
}

func TestQueueDoesNotStartDocumentsAfterCancellation(t *testing.T) {
	ext := &mockExtractor{fn: func(llm.Request) (llm.ProviderResponse, error) {
		return successResponse(validResponse), nil
	}}
	sink := &countingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // operator shutdown before any work starts

	q := NewQueue(ctx, newTestProcessor(ext), sink.accept, nil,
		WithWorkers(1), WithQueueSize(16))
	for i := 0; i < 10; i++ {
		q.Enqueue(sizedDoc(t, fmt.Sprintf("doc-%d.png", i), 4+i))
	}
	q.Shutdown(context.Background())

	if len(ext.calls) != 0 {
		t.Errorf("extractor calls = %d, want 0: queued documents must not start after cancellation", len(ext.calls))
	}
	if got := sink.count(); got != 0 {
		t.Errorf("results = %d, want 0", got)
	}
}

func TestQueueShutdownDeadlineAbandonsBacklog(t *testing.T) {
	ext := &mockExtractor{fn: func(llm.Request) (llm.ProviderResponse, error) {
		return successResponse(validResponse), nil
	}}
	q := NewQueue(context.Background(), newTestProcessor(ext), nil, nil,
		WithWorkers(1), WithQueueSize(16))

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	q.Shutdown(expired) // must return promptly and leave the queue cancelled

	q.Enqueue(sizedDoc(t, "late.png", 4))
	if len(ext.calls) != 0 {
		t.Errorf("extractor calls = %d, want 0 after shutdown", len(ext.calls))
	}
}
