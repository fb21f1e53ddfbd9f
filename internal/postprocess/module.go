// Package postprocess runs an ordered sequence of transformation modules
// over a batch of evaluated relationships.
package postprocess

import (
	"context"
	"sync"

	"github.com/ppiankov/kgcurator/internal/model"
)

// Module names the engine checks for placement
const (
	NameNormalizer          = "normalizer"
	NameContextEnricher     = "context_enricher"
	NameListSplitter        = "list_splitter"
	NamePredicateNormalizer = "predicate_normalizer"
	NameTypeRechecker       = "type_rechecker"
	NameVagueEntityBlocker  = "vague_entity_blocker"
	NameClaimClassifier     = "claim_classifier"
	NameSubjectiveFilter    = "subjective_filter"
	NameConfidenceFilter    = "confidence_filter"
	NameDeduplicator        = "deduplicator"
)

// Module is one batch transformation. Apply must not modify its input and
// must be a no-op on its own output. Stats is a read-only copy of the
// module's counters; counters are never part of the returned batch.
type Module interface {
	Name() string
	Priority() int
	Apply(ctx context.Context, batch []model.Relationship) []model.Relationship
	Stats() map[string]int
}

// counter accumulates module statistics across batches
type counter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *counter) add(key string, n int) {
	if n == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[key] += n
}

// Stats returns a copy of the counters
func (c *counter) Stats() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
