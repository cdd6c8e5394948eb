package dedup

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestFingerprintIsContentKeyed(t *testing.T) {
	a := Fingerprint([]byte("same bytes"))
	b := Fingerprint([]byte("same bytes"))
	c := Fingerprint([]byte("different bytes"))
	if a != b {
		t.Error("identical content must fingerprint identically")
	}
	if a == c {
		t.Error("different content must fingerprint differently")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}

func TestMapIndex(t *testing.T) {
	idx := NewMapIndex()

	if _, ok, err := idx.Seen("fp1"); err != nil || ok {
		t.Fatalf("Seen on empty index = %v, %v", ok, err)
	}
	if err := idx.Record("fp1", "UE-2026-001234"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	id, ok, err := idx.Seen("fp1")
	if err != nil || !ok {
		t.Fatalf("Seen after Record = %v, %v", ok, err)
	}
	if id != "UE-2026-001234" {
		t.Errorf("invoice id = %q", id)
	}
}

func TestMapIndexConcurrentAccess(t *testing.T) {
	idx := NewMapIndex()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			fp := Fingerprint([]byte{byte(n)})
			_ = idx.Record(fp, "X")
			_, _, _ = idx.Seen(fp)
		}(i)
	}
	wg.Wait()
}

func TestSQLiteIndexPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedup.db")

	idx, err := OpenSQLiteIndex(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Record("fp1", "UE-2026-001234"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenSQLiteIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	id, ok, err := reopened.Seen("fp1")
	if err != nil || !ok {
		t.Fatalf("Seen after reopen = %v, %v", ok, err)
	}
	if id != "UE-2026-001234" {
		t.Errorf("invoice id = %q", id)
	}
}

func TestSQLiteIndexUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedup.db")
	idx, err := OpenSQLiteIndex(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = idx.Close() }()

	if err := idx.Record("fp1", "old"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := idx.Record("fp1", "new"); err != nil {
		t.Fatalf("Record again: %v", err)
	}
	id, _, _ := idx.Seen("fp1")
	if id != "new" {
		t.Errorf("invoice id = %q, want new", id)
	}
}
