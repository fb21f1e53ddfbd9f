package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/kgcurator/internal/model"
)

// Curator curates one document
type Curator interface {
	CurateDocument(ctx context.Context, docID string) (*model.CurationReport, error)
}

// DocumentJob represents one document curation
type DocumentJob struct {
	Index   int
	DocID   string
	Curator Curator
}

// Execute executes the curation job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	report, err := j.Curator.CurateDocument(ctx, j.DocID)
	return &DocumentResult{
		Index:  j.Index,
		DocID:  j.DocID,
		Report: report,
		Error:  err,
	}
}

// DocumentResult represents the result of a document job. Report may be
// set alongside Error when the run was partial.
type DocumentResult struct {
	Index  int
	DocID  string
	Report *model.CurationReport
	Error  error
}

// GetError returns the error from the document result
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor curates multiple documents concurrently
type BatchProcessor struct {
	curator     Curator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(curator Curator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		curator:     curator,
		concurrency: concurrency,
	}
}

// ProcessDocuments curates the documents concurrently and returns one
// result per id, in input order. Documents never started because ctx was
// cancelled carry the context error.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docIDs []string) []*DocumentResult {
	if len(docIDs) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, id := range docIDs {
		pool.Submit(&DocumentJob{
			Index:   i,
			DocID:   id,
			Curator: b.curator,
		})
	}

	results := pool.Wait()

	out := make([]*DocumentResult, len(docIDs))
	for _, result := range results {
		r := result.(*DocumentResult)
		out[r.Index] = r
	}
	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &DocumentResult{Index: i, DocID: docIDs[i], Error: err}
		}
	}

	return out
}

// ReadDocIDsFromFile reads document ids from a file (one per line)
func ReadDocIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
