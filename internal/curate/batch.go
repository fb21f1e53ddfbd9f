package curate

import (
	"context"
	"errors"

	"github.com/ppiankov/kgcurator/internal/worker"
)

// BatchSummary totals a multi-document run
type BatchSummary struct {
	Documents     int `json:"documents"`
	Succeeded     int `json:"succeeded"`
	Partial       int `json:"partial"` // report produced with failed batches or after cancellation
	Failed        int `json:"failed"`
	Relationships int `json:"relationships"`
	GateFailures  int `json:"quality_gate_failures"`
}

// BatchCurator curates many documents concurrently. Documents share only
// the curator's read-only configuration.
type BatchCurator struct {
	processor *worker.BatchProcessor
}

// NewBatchCurator runs c on a pool of workers
func NewBatchCurator(c worker.Curator, workers int) *BatchCurator {
	return &BatchCurator{processor: worker.NewBatchProcessor(c, workers)}
}

// Run curates every document and returns per-document results in input order
func (b *BatchCurator) Run(ctx context.Context, docIDs []string) ([]*worker.DocumentResult, BatchSummary) {
	results := b.processor.ProcessDocuments(ctx, docIDs)
	return results, Summarize(results)
}

// Summarize totals document results
func Summarize(results []*worker.DocumentResult) BatchSummary {
	s := BatchSummary{Documents: len(results)}
	for _, r := range results {
		switch {
		case r.Report == nil:
			s.Failed++
			continue
		case r.Error != nil:
			s.Partial++
		default:
			s.Succeeded++
		}
		s.Relationships += len(r.Report.Relationships)
		if !r.Report.QualityGate.Passed {
			s.GateFailures++
		}
	}
	return s
}

// IsPartial reports whether err still came with a usable report
func IsPartial(err error) bool {
	var batchErr *BatchError
	return errors.As(err, &batchErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
