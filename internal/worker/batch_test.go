package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/kgcurator/internal/model"
)

// mockCurator implements Curator
type mockCurator struct {
	fail  map[string]bool
	delay time.Duration

	mu   sync.Mutex
	seen []string
}

func (m *mockCurator) CurateDocument(ctx context.Context, docID string) (*model.CurationReport, error) {
	m.mu.Lock()
	m.seen = append(m.seen, docID)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail[docID] {
		return nil, errors.New("curation error")
	}
	return &model.CurationReport{DocID: docID}, nil
}

func writeIDs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessDocuments(t *testing.T) {
	curator := &mockCurator{delay: time.Millisecond}
	processor := NewBatchProcessor(curator, 3)

	ids := []string{"doc-a", "doc-b", "doc-c", "doc-d", "doc-e"}
	results := processor.ProcessDocuments(context.Background(), ids)

	if len(results) != len(ids) {
		t.Fatalf("expected %d results, got %d", len(ids), len(results))
	}
	for i, res := range results {
		if res.DocID != ids[i] {
			t.Errorf("result %d: expected %s, got %s (results must keep input order)", i, ids[i], res.DocID)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.DocID, res.Error)
		}
		if res.Report == nil || res.Report.DocID != ids[i] {
			t.Errorf("expected report for %s", ids[i])
		}
	}
}

func TestBatchProcessor_ProcessDocuments_Error(t *testing.T) {
	curator := &mockCurator{fail: map[string]bool{"bad": true}}
	processor := NewBatchProcessor(curator, 2)

	results := processor.ProcessDocuments(context.Background(), []string{"good", "bad"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("unexpected error for good: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error for bad, got nil")
	}
	if results[1].Report != nil {
		t.Error("expected nil report on error")
	}
}

func TestBatchProcessor_ProcessDocuments_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockCurator{}, 2)

	results := processor.ProcessDocuments(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessDocuments_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&mockCurator{delay: 50 * time.Millisecond}, 1)
	ids := []string{"a", "b", "c", "d", "e", "f"}
	results := processor.ProcessDocuments(ctx, ids)

	if len(results) != len(ids) {
		t.Fatalf("expected one result per document, got %d", len(results))
	}
	for _, res := range results {
		if res.Error == nil {
			t.Errorf("expected error for %s after cancellation", res.DocID)
		}
	}
}

func TestReadDocIDsFromFile(t *testing.T) {
	path := writeIDs(t, `doc-1
# comment
doc-2.md
   
doc-3   
doc-1`)

	ids, err := ReadDocIDsFromFile(path)
	if err != nil {
		t.Fatalf("ReadDocIDsFromFile failed: %v", err)
	}

	expected := []string{"doc-1", "doc-2.md", "doc-3"}
	if len(ids) != len(expected) {
		t.Fatalf("expected %d ids, got %d", len(expected), len(ids))
	}
	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("expected id %s at index %d, got %s", expected[i], i, id)
		}
	}
}

func TestReadDocIDsFromFile_NonExistent(t *testing.T) {
	if _, err := ReadDocIDsFromFile("non_existent_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestDocumentResult_GetError(t *testing.T) {
	r1 := &DocumentResult{DocID: "a"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("curation failed")
	r2 := &DocumentResult{DocID: "a", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
