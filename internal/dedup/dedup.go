package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Fingerprint returns the content hash used to recognize a document that has
// already been processed, regardless of its filename.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Index remembers which document fingerprints have been processed and which
// invoice they resolved to. The index is advisory: a lookup miss always means
// "process it".
type Index interface {
	// Seen returns the invoice ID recorded for the fingerprint, if any.
	Seen(fingerprint string) (invoiceID string, ok bool, err error)
	// Record stores the fingerprint with the invoice it produced.
	Record(fingerprint, invoiceID string) error
	Close() error
}

// MapIndex is the in-memory Index used when no durable path is configured.
type MapIndex struct {
	mu   sync.RWMutex
	seen map[string]string
}

func NewMapIndex() *MapIndex {
	return &MapIndex{seen: make(map[string]string)}
}

func (m *MapIndex) Seen(fingerprint string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.seen[fingerprint]
	return id, ok, nil
}

func (m *MapIndex) Record(fingerprint, invoiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[fingerprint] = invoiceID
	return nil
}

func (m *MapIndex) Close() error { return nil }
