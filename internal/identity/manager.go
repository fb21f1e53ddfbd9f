// Package identity assigns claim and candidate identities and tracks
// whether evidence still matches its document.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ppiankov/kgcurator/internal/docstore"
	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
)

// Manager assigns identities and evidence status. Document hashes are
// looked up once per Manager, so create one per curation run.
type Manager struct {
	docs docstore.HashSource
	log  *logging.Logger

	mu     sync.Mutex
	hashes map[string]hashResult
}

type hashResult struct {
	hash string
	err  error
}

// NewManager creates a manager; docs may be nil, in which case spans are
// never compared against a current document
func NewManager(docs docstore.HashSource, log *logging.Logger) *Manager {
	return &Manager{
		docs:   docs,
		log:    logging.OrNop(log),
		hashes: make(map[string]hashResult),
	}
}

// Seed records already known content hashes so they are not looked up again
func (m *Manager) Seed(hashes map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, h := range hashes {
		m.hashes[id] = hashResult{hash: h}
	}
}

// NewCandidateUID returns a fresh candidate id
func NewCandidateUID() string {
	return uuid.NewString()
}

// EnsureCandidateUID gives a candidate an id if it has none
func EnsureCandidateUID(c model.Candidate) model.Candidate {
	if c.CandidateUID == "" {
		c.CandidateUID = NewCandidateUID()
	}
	return c
}

// Assign returns a copy with claim_uid computed from the current fields
func (m *Manager) Assign(rel model.Relationship) model.Relationship {
	out := rel.Clone()
	out.Rekey()
	return out
}

// Check returns a copy with evidence_status set. Missing span fields mean
// missing; a span hash that differs from the document's current hash means
// stale and adds STALE_EVIDENCE.
func (m *Manager) Check(ctx context.Context, rel model.Relationship) (model.Relationship, error) {
	out := rel.Clone()
	if !out.Evidence.Valid() {
		out.EvidenceStatus = model.EvidenceMissing
		return out, nil
	}
	if m.docs == nil {
		out.EvidenceStatus = model.EvidenceFresh
		return out, nil
	}

	current, err := m.contentHash(ctx, out.Evidence.DocID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		// The document is gone, so the span cannot be checked against anything
		out.EvidenceStatus = model.EvidenceMissing
		return out, nil
	case err != nil:
		return rel, fmt.Errorf("content hash %s: %w", out.Evidence.DocID, err)
	}

	if current != out.Evidence.DocContentHash {
		out.EvidenceStatus = model.EvidenceStale
		out.Flags[model.FlagStaleEvidence] = true
		return out, nil
	}
	out.EvidenceStatus = model.EvidenceFresh
	return out, nil
}

// Refresh re-evaluates the evidence status of already persisted
// relationships and returns the ones whose status changed
func (m *Manager) Refresh(ctx context.Context, rels []model.Relationship) ([]model.Relationship, error) {
	var changed []model.Relationship
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		checked, err := m.Check(ctx, rel)
		if err != nil {
			return changed, err
		}
		if checked.EvidenceStatus != rel.EvidenceStatus {
			m.log.Debug("evidence status changed",
				"claim_uid", rel.ClaimUID,
				"from", rel.EvidenceStatus,
				"to", checked.EvidenceStatus,
			)
			changed = append(changed, checked)
		}
	}
	return changed, nil
}

func (m *Manager) contentHash(ctx context.Context, docID string) (string, error) {
	m.mu.Lock()
	if r, ok := m.hashes[docID]; ok {
		m.mu.Unlock()
		return r.hash, r.err
	}
	m.mu.Unlock()

	h, err := m.docs.ContentHash(ctx, docID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		// transient failures are not remembered
		return "", err
	}

	m.mu.Lock()
	m.hashes[docID] = hashResult{hash: h, err: err}
	m.mu.Unlock()
	return h, err
}
