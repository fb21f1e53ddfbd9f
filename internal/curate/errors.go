package curate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/kgcurator/internal/model"
)

// ErrDuplicateClaimUID means two output relationships share a claim_uid.
// The deduplicator runs last, so this is an internal error.
var ErrDuplicateClaimUID = errors.New("duplicate claim_uid in curated output")

// BatchError reports collaborator batches (extraction windows or scoring
// batches) that exhausted their retries. The rest of the document was
// still curated.
type BatchError struct {
	DocID  string
	Failed []model.FailedBatch
}

func (e *BatchError) Error() string {
	idx := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		stage := f.Stage
		if stage == "" {
			stage = model.StageScoring
		}
		idx[i] = fmt.Sprintf("%s %d", stage, f.Index)
	}
	msg := fmt.Sprintf("%s: %d batch(es) failed [%s]", e.DocID, len(e.Failed), strings.Join(idx, ", "))
	if len(e.Failed) > 0 && e.Failed[0].Error != "" {
		msg += ": " + e.Failed[0].Error
	}
	return msg
}
